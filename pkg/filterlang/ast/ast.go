package ast

import (
	"bytes"
	"fmt"

	"github.com/sambeau/filterlang/pkg/filterlang/lexer"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// Kind is the closed set of node kinds
type Kind int

const (
	Atom Kind = iota
	Semicolon
	Assignment
	IndexAssignment
	ArrayAppend
	Conditional
	Logic
	Compare
	ArithmeticAdditive
	ArithmeticMultiplicative
	Exponentiation
	BooleanNegation
	KeywordOperator
	ArithmeticUnary
	ArrayIndexing
	FunctionCall
	ArrayDefinition
)

var kindNames = [...]string{
	Atom:                     "Atom",
	Semicolon:                "Semicolon",
	Assignment:               "Assignment",
	IndexAssignment:          "IndexAssignment",
	ArrayAppend:              "ArrayAppend",
	Conditional:              "Conditional",
	Logic:                    "Logic",
	Compare:                  "Compare",
	ArithmeticAdditive:       "ArithmeticAdditive",
	ArithmeticMultiplicative: "ArithmeticMultiplicative",
	Exponentiation:           "Exponentiation",
	BooleanNegation:          "BooleanNegation",
	KeywordOperator:          "KeywordOperator",
	ArithmeticUnary:          "ArithmeticUnary",
	ArrayIndexing:            "ArrayIndexing",
	FunctionCall:             "FunctionCall",
	ArrayDefinition:          "ArrayDefinition",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is a single AST node.
//
// Atom nodes carry the originating token and no children. Every other node
// carries its operator or function name in Op and owns its Children. Token
// is the defining token of the node (the operator, the function name, the
// opening bracket) and gives the node its source position.
//
// Child layouts:
//
//	Assignment       [target Atom, value]
//	IndexAssignment  [target Atom, index, value]
//	ArrayAppend      [target Atom, value]
//	Conditional      [condition, then, else?]   Op is "if" or "?"
//	ArrayIndexing    [array, index]
//	FunctionCall     args...                    Op is the function name
//
// IDs are unique within one tree and key the evaluator's trace side-table.
type Node struct {
	ID       int
	Kind     Kind
	Op       string
	Token    lexer.Token
	Children []*Node
}

// Pos returns the source offset of the node's defining token.
func (n *Node) Pos() int {
	return n.Token.Offset
}

// IsVariable reports whether n is an identifier atom.
func (n *Node) IsVariable() bool {
	return n.Kind == Atom && n.Token.Type == lexer.IDENT
}

// String renders the node back to source. Binary operations are fully
// parenthesised so the output always reparses to the same tree shape.
func (n *Node) String() string {
	var out bytes.Buffer
	n.write(&out)
	return out.String()
}

func (n *Node) write(out *bytes.Buffer) {
	if n == nil {
		out.WriteString("null")
		return
	}
	switch n.Kind {
	case Atom:
		if n.Token.Type == lexer.STRING {
			out.WriteString(value.Quote(n.Token.Literal))
		} else {
			out.WriteString(n.Token.Literal)
		}
	case Semicolon:
		for i, c := range n.Children {
			if i > 0 {
				out.WriteString("; ")
			}
			c.write(out)
		}
	case Assignment:
		n.Children[0].write(out)
		out.WriteString(" := ")
		n.Children[1].write(out)
	case IndexAssignment:
		n.Children[0].write(out)
		out.WriteString("[")
		n.Children[1].write(out)
		out.WriteString("] := ")
		n.Children[2].write(out)
	case ArrayAppend:
		n.Children[0].write(out)
		out.WriteString("[] := ")
		n.Children[1].write(out)
	case Conditional:
		n.writeConditional(out)
	case Logic, Compare, ArithmeticAdditive, ArithmeticMultiplicative, Exponentiation:
		out.WriteString("(")
		for i, c := range n.Children {
			if i > 0 {
				out.WriteString(" " + n.Op + " ")
			}
			c.write(out)
		}
		out.WriteString(")")
	case KeywordOperator:
		out.WriteString("(")
		n.Children[0].write(out)
		out.WriteString(" " + n.Op + " ")
		n.Children[1].write(out)
		out.WriteString(")")
	case BooleanNegation, ArithmeticUnary:
		out.WriteString(n.Op)
		n.Children[0].write(out)
	case ArrayIndexing:
		n.Children[0].write(out)
		out.WriteString("[")
		n.Children[1].write(out)
		out.WriteString("]")
	case FunctionCall:
		out.WriteString(n.Op)
		out.WriteString("(")
		writeList(out, n.Children)
		out.WriteString(")")
	case ArrayDefinition:
		out.WriteString("[")
		writeList(out, n.Children)
		out.WriteString("]")
	default:
		fmt.Fprintf(out, "<%s>", n.Kind)
	}
}

func (n *Node) writeConditional(out *bytes.Buffer) {
	if n.Op == "?" {
		out.WriteString("(")
		n.Children[0].write(out)
		out.WriteString(" ? ")
		n.Children[1].write(out)
		out.WriteString(" : ")
		n.Children[2].write(out)
		out.WriteString(")")
		return
	}
	out.WriteString("if ")
	n.Children[0].write(out)
	out.WriteString(" then ")
	n.Children[1].write(out)
	if len(n.Children) > 2 {
		out.WriteString(" else ")
		n.Children[2].write(out)
	}
	out.WriteString(" end")
}

func writeList(out *bytes.Buffer, nodes []*Node) {
	for i, c := range nodes {
		if i > 0 {
			out.WriteString(", ")
		}
		c.write(out)
	}
}

// Walk calls fn for n and its descendants in depth-first pre-order. When fn
// returns false the children of that node are skipped.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Renumber assigns fresh sequential IDs in pre-order, starting at 1.
func Renumber(root *Node) {
	next := 1
	Walk(root, func(n *Node) bool {
		n.ID = next
		next++
		return true
	})
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	count := 0
	Walk(root, func(*Node) bool {
		count++
		return true
	})
	return count
}
