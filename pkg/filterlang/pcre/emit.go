package pcre

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// mode holds the flags in effect at a point of the pattern.
type mode struct {
	caseless, multiline, dotAll, ungreedy bool
}

func modeFrom(flags string) mode {
	return mode{}.apply(flags, "")
}

func (m mode) apply(on, off string) mode {
	set := func(flags string, v bool) {
		for _, c := range flags {
			switch c {
			case 'i':
				m.caseless = v
			case 'm':
				m.multiline = v
			case 's':
				m.dotAll = v
			case 'U':
				m.ungreedy = v
			}
		}
	}
	set(on, true)
	set(off, false)
	return m
}

// emitter writes a tree out as an engine pattern. Atomic groups and
// possessive quantifiers need extra capturing groups, so user group n is
// emitted as group groupMap[n]. The tree is emitted twice: the first run
// fills groupMap, the second writes references with their final numbers.
type emitter struct {
	b            strings.Builder
	tree         *Tree
	next         int
	groupMap     map[int]int
	afterBackref bool
}

var markRanges = tableRanges(unicode.M)

func emit(t *Tree, defaults string) (string, map[int]int) {
	e := &emitter{tree: t, groupMap: map[int]int{}}
	e.group(t.Root.Items, modeFrom(defaults))

	final := &emitter{tree: t, groupMap: e.groupMap}
	final.group(t.Root.Items, modeFrom(defaults))
	return final.b.String(), final.groupMap
}

func (e *emitter) write(s string) {
	e.b.WriteString(s)
	e.afterBackref = false
}

func (e *emitter) alloc() int {
	e.next++
	return e.next
}

func (e *emitter) group(items []Node, m mode) {
	for i := 0; i < len(items); i++ {
		item := items[i]
		if opt, ok := item.(*InternalOption); ok {
			m = m.apply(opt.On, opt.Off)
			continue
		}
		if i+1 < len(items) {
			if q, ok := items[i+1].(*Quantifier); ok && q.Possessive {
				n := e.alloc()
				e.write("(?:(?=(")
				e.item(item, m)
				e.quantifier(&Quantifier{Min: q.Min, Max: q.Max}, mode{})
				e.write("))\\" + strconv.Itoa(n) + ")")
				i++
				continue
			}
		}
		e.item(item, m)
	}
}

func (e *emitter) item(item Node, m mode) {
	switch n := item.(type) {
	case *Meta:
		switch {
		case n.Symbol == "|":
			e.write("|")
		case m.dotAll:
			e.write(`[\s\S]`)
		default:
			e.write(`[^\n]`)
		}
	case *Anchor:
		e.anchor(n, m)
	case *Character:
		if e.afterBackref && n.R >= '0' && n.R <= '9' {
			e.write("(?:)")
		}
		e.write(escapeRune(n.R, false))
	case *WellKnownClass:
		e.wellKnown(n, m)
	case *Backreference:
		number := n.Number
		if n.Name != "" {
			number = e.tree.Names[n.Name]
		}
		if mapped, ok := e.groupMap[number]; ok {
			number = mapped
		}
		e.write(`\` + strconv.Itoa(number))
		e.afterBackref = true
	case *Quantifier:
		e.quantifier(n, m)
	case *CharacterClass:
		e.class(n, m)
	case *Group:
		e.subgroup(n, m)
	}
}

func (e *emitter) anchor(a *Anchor, m mode) {
	switch a.Symbol {
	case "^":
		if m.multiline {
			e.write(`(?:^|(?<=\n)(?=[\s\S]))`)
		} else {
			e.write("^")
		}
	case "$":
		if m.multiline {
			e.write(`(?=\n|(?![\s\S]))`)
		} else {
			e.write(`(?=\n?(?![\s\S]))`)
		}
	case `\A`:
		e.write("^")
	case `\Z`:
		e.write(`(?=\n?(?![\s\S]))`)
	case `\z`:
		e.write(`(?![\s\S])`)
	default:
		e.write(a.Symbol)
	}
}

func (e *emitter) quantifier(q *Quantifier, m mode) {
	switch {
	case q.Min == 0 && q.Max == -1:
		e.write("*")
	case q.Min == 1 && q.Max == -1:
		e.write("+")
	case q.Min == 0 && q.Max == 1:
		e.write("?")
	case q.Max == -1:
		e.write(fmt.Sprintf("{%d,}", q.Min))
	case q.Min == q.Max:
		e.write(fmt.Sprintf("{%d}", q.Min))
	default:
		e.write(fmt.Sprintf("{%d,%d}", q.Min, q.Max))
	}
	if q.Lazy != m.ungreedy {
		e.write("?")
	}
}

func (e *emitter) subgroup(g *Group, m mode) {
	inner := m.apply(g.On, g.Off)
	switch g.Kind {
	case CapturingGroup:
		e.groupMap[g.Number] = e.alloc()
		e.write("(")
	case AtomicGroup:
		n := e.alloc()
		e.write("(?:(?=(")
		e.group(g.Items, inner)
		e.write("))\\" + strconv.Itoa(n) + ")")
		return
	case LookAhead:
		e.write("(?=")
	case NegativeLookAhead:
		e.write("(?!")
	case LookBehind:
		e.write("(?<=")
	case NegativeLookBehind:
		e.write("(?<!")
	default:
		e.write("(?:")
	}
	e.group(g.Items, inner)
	e.write(")")
}

func (e *emitter) wellKnown(w *WellKnownClass, m mode) {
	switch w.Name {
	case "R":
		e.write(`(?:\r\n|\n|\x0B|\f|\r|\x85|\u2028|\u2029)`)
		return
	case "X":
		e.write("(?:[^" + writeRanges(markRanges, false) + "][" + writeRanges(markRanges, false) + "]*)")
		return
	}
	open := "["
	if w.Negated {
		open = "[^"
	}
	e.write(open + writeRanges(w.Ranges, w.Fold && m.caseless) + "]")
}

func (e *emitter) class(c *CharacterClass, m mode) {
	var b strings.Builder
	b.WriteString("[")
	if c.Negated {
		b.WriteString("^")
	}
	for _, item := range c.Items {
		switch n := item.(type) {
		case *Character:
			b.WriteString(writeRanges([]Range{{n.R, n.R}}, m.caseless))
		case Range:
			b.WriteString(writeRanges([]Range{n}, m.caseless))
		case *WellKnownClass:
			ranges := n.Ranges
			if n.Negated {
				ranges = complementRanges(ranges)
			}
			b.WriteString(writeRanges(ranges, n.Fold && m.caseless))
		}
	}
	b.WriteString("]")
	e.write(b.String())
}

// writeRanges renders ranges as the inside of a bracket expression. With
// fold set, each range is followed by the runs of its case variants.
func writeRanges(ranges []Range, fold bool) string {
	var b strings.Builder
	for _, r := range ranges {
		writeRange(&b, r)
		if fold {
			for _, v := range caseVariants(r) {
				writeRange(&b, v)
			}
		}
	}
	return b.String()
}

func writeRange(b *strings.Builder, r Range) {
	b.WriteString(escapeRune(r.Lo, true))
	if r.Hi != r.Lo {
		b.WriteString("-")
		b.WriteString(escapeRune(r.Hi, true))
	}
}

// escapeRune renders one code point so that it is read back literally,
// inside or outside a bracket expression.
func escapeRune(r rune, inClass bool) string {
	switch {
	case r < 0x20 || (r >= 0x7F && r < 0x100):
		return fmt.Sprintf(`\x%02X`, r)
	case r >= 0x100 && r <= 0xFFFF:
		return fmt.Sprintf(`\u%04X`, r)
	case r > 0xFFFF:
		return string(r)
	}
	meta := `\^$.|?*+()[]{}`
	if inClass {
		meta = `\]-[^`
	}
	if strings.ContainsRune(meta, r) {
		return `\` + string(r)
	}
	return string(r)
}
