package pcre

import (
	"strconv"
	"strings"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

// resolveRelative turns \g{-n} references into absolute group numbers. A
// relative reference counts back from the last group opened before it.
func resolveRelative(t *Tree) error {
	opened := 0
	var visit func(g *Group) error
	visit = func(g *Group) error {
		for _, item := range g.Items {
			switch n := item.(type) {
			case *Group:
				if n.Kind == CapturingGroup {
					opened++
				}
				if err := visit(n); err != nil {
					return err
				}
			case *Backreference:
				if !n.Relative {
					continue
				}
				abs := opened + n.Number + 1
				if abs < 1 {
					return errors.New("REGEX-0004", map[string]any{"Fragment": `\g{` + strconv.Itoa(n.Number) + `}`})
				}
				n.Number = abs
				n.Relative = false
			}
		}
		return nil
	}
	return visit(t.Root)
}

// reifyOctal rewrites bare references like \10 that cannot name a group
// into the octal escape and literal digits they stand for.
func reifyOctal(t *Tree) {
	walkGroups(t.Root, func(g *Group) {
		items := make([]Node, 0, len(g.Items))
		for _, item := range g.Items {
			ref, ok := item.(*Backreference)
			if !ok || !octalCandidate(ref, t.Groups) {
				items = append(items, item)
				continue
			}
			items = append(items, octalCharacters(ref.Digits)...)
		}
		g.Items = items
	})
}

func octalCandidate(ref *Backreference, groups int) bool {
	if ref.Digits == "" || ref.Number <= 9 || ref.Number <= groups {
		return false
	}
	return ref.Digits[0] != '8' && ref.Digits[0] != '9'
}

func octalCharacters(digits string) []Node {
	n := 0
	for n < len(digits) && n < 3 && isOctal(rune(digits[n])) {
		n++
	}
	code, _ := strconv.ParseUint(digits[:n], 8, 32)
	nodes := []Node{&Character{R: rune(code)}}
	for _, c := range digits[n:] {
		nodes = append(nodes, &Character{R: c})
	}
	return nodes
}

// checkReferences reports references to groups that do not exist.
func checkReferences(t *Tree) error {
	var err error
	walkGroups(t.Root, func(g *Group) {
		for _, item := range g.Items {
			ref, ok := item.(*Backreference)
			if !ok || err != nil {
				continue
			}
			if ref.Name != "" {
				if _, found := t.Names[ref.Name]; !found {
					err = errors.New("REGEX-0004", map[string]any{"Fragment": `\k<` + ref.Name + `>`})
				}
				continue
			}
			if ref.Number < 1 || ref.Number > t.Groups {
				err = errors.New("REGEX-0004", map[string]any{"Fragment": `\` + strconv.Itoa(ref.Number)})
			}
		}
	})
	return err
}

// accumulateFlags collects the flags in effect for the engine: the defaults
// plus every flag switched on anywhere, minus the flags switched off at the
// top level.
func accumulateFlags(t *Tree, defaults string) string {
	on := map[rune]bool{}
	for _, c := range defaults {
		on[c] = true
	}
	walkGroups(t.Root, func(g *Group) {
		for _, c := range g.On {
			on[c] = true
		}
		for _, item := range g.Items {
			if opt, ok := item.(*InternalOption); ok {
				for _, c := range opt.On {
					on[c] = true
				}
			}
		}
	})
	for _, item := range t.Root.Items {
		if opt, ok := item.(*InternalOption); ok {
			for _, c := range opt.Off {
				delete(on, c)
			}
		}
	}

	var b strings.Builder
	for _, c := range "imsxU" {
		if on[c] {
			b.WriteRune(c)
		}
	}
	return b.String()
}
