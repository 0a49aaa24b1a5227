package ast

// Flatten returns a copy of the tree in which chains of the same associative
// logic operator are merged into one N-ary node, so "(a & b) & c" becomes a
// single & node with three children. Node IDs of the copy are renumbered.
func Flatten(root *Node) *Node {
	if root == nil {
		return nil
	}
	out := flatten(root)
	Renumber(out)
	return out
}

func flatten(n *Node) *Node {
	cp := *n
	cp.Children = nil
	for _, c := range n.Children {
		fc := flatten(c)
		if n.Kind == Logic && fc.Kind == Logic && fc.Op == n.Op {
			cp.Children = append(cp.Children, fc.Children...)
			continue
		}
		cp.Children = append(cp.Children, fc)
	}
	return &cp
}
