// Package pcre translates PCRE patterns into patterns for the regexp2
// engine running in ECMAScript mode.
//
// A pattern is parsed into a tree of Nodes, fixed up by two passes
// (relative backreferences become absolute, impossible backreferences
// become octal literals) and emitted as a pattern string that only uses
// constructs both dialects agree on.
package pcre

// Node is a PCRE syntax tree node. The set of node types is closed.
type Node interface {
	pcreNode()
}

// Anchor is a zero-width assertion: ^ $ \A \Z \z \b \B.
type Anchor struct {
	Symbol string
}

// Meta is the dot or the alternation bar.
type Meta struct {
	Symbol string
}

// Quantifier repeats the preceding item. Max is -1 when unbounded.
type Quantifier struct {
	Min, Max   int
	Lazy       bool
	Possessive bool
}

// Character is a single literal code point.
type Character struct {
	R rune
}

// WellKnownClass is an escape such as \d, \h or \p{L}, or a POSIX class
// inside brackets. Ranges hold the matched code points; R (line break) and
// X (grapheme) are sequences and have no ranges.
type WellKnownClass struct {
	Name    string
	Negated bool
	Ranges  []Range
	// Fold marks sets that case-insensitive matching widens, such as [:upper:].
	Fold bool
}

// Backreference refers to a capturing group by number or name. Digits is
// set for the bare \NN form, which may turn out to be an octal escape.
type Backreference struct {
	Number   int
	Name     string
	Relative bool
	Digits   string
}

// GroupKind distinguishes the kinds of parenthesised group.
type GroupKind int

const (
	RootGroup GroupKind = iota
	CapturingGroup
	NonCapturingGroup
	AtomicGroup
	LookAhead
	NegativeLookAhead
	LookBehind
	NegativeLookBehind
)

// Group is a parenthesised sequence, or the whole pattern for RootGroup.
// Alternatives are separated by Meta{"|"} items. On and Off hold the flags
// of a scoped option group such as (?i-s:...).
type Group struct {
	Kind    GroupKind
	Number  int
	Name    string
	Items   []Node
	On, Off string
}

// Range is an inclusive code point range.
type Range struct {
	Lo, Hi rune
}

// CharacterClass is a bracket expression. Items are Character, Range and
// WellKnownClass values.
type CharacterClass struct {
	Negated bool
	Items   []Node
}

// InternalOption is an unscoped option setting such as (?i) that applies to
// the rest of the enclosing group.
type InternalOption struct {
	On, Off string
}

func (*Anchor) pcreNode()         {}
func (*Meta) pcreNode()           {}
func (*Quantifier) pcreNode()     {}
func (*Character) pcreNode()      {}
func (*WellKnownClass) pcreNode() {}
func (*Backreference) pcreNode()  {}
func (*Group) pcreNode()          {}
func (*CharacterClass) pcreNode() {}
func (*InternalOption) pcreNode() {}
func (Range) pcreNode()           {}

// walkGroups calls fn for every group in the tree in order of their opening
// parenthesis.
func walkGroups(g *Group, fn func(*Group)) {
	fn(g)
	for _, item := range g.Items {
		if child, ok := item.(*Group); ok {
			walkGroups(child, fn)
		}
	}
}
