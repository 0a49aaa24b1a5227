package pcre

import (
	"sort"
	"unicode"
)

const maxRune = unicode.MaxRune

var (
	digitRanges  = []Range{{'0', '9'}}
	wordRanges   = []Range{{'0', '9'}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}}
	spaceRanges  = []Range{{'\t', '\r'}, {' ', ' '}}
	lineBreak    = []Range{{'\n', '\n'}}
	hspaceRanges = []Range{
		{'\t', '\t'}, {' ', ' '}, {0xA0, 0xA0}, {0x1680, 0x1680}, {0x180E, 0x180E},
		{0x2000, 0x200A}, {0x202F, 0x202F}, {0x205F, 0x205F}, {0x3000, 0x3000},
	}
	vspaceRanges = []Range{{'\n', '\r'}, {0x85, 0x85}, {0x2028, 0x2029}}
)

var posixClasses = map[string][]Range{
	"alpha":  {{'A', 'Z'}, {'a', 'z'}},
	"digit":  digitRanges,
	"alnum":  {{'0', '9'}, {'A', 'Z'}, {'a', 'z'}},
	"upper":  {{'A', 'Z'}},
	"lower":  {{'a', 'z'}},
	"space":  spaceRanges,
	"blank":  {{'\t', '\t'}, {' ', ' '}},
	"punct":  {{'!', '/'}, {':', '@'}, {'[', '`'}, {'{', '~'}},
	"xdigit": {{'0', '9'}, {'A', 'F'}, {'a', 'f'}},
	"word":   wordRanges,
	"cntrl":  {{0, 0x1F}, {0x7F, 0x7F}},
	"print":  {{0x20, 0x7E}},
	"graph":  {{0x21, 0x7E}},
	"ascii":  {{0, 0x7F}},
}

// escapeClass returns the ranges of a one-letter class escape such as \d.
func escapeClass(c rune) ([]Range, bool) {
	switch c {
	case 'd':
		return digitRanges, true
	case 'w':
		return wordRanges, true
	case 's':
		return spaceRanges, true
	case 'h':
		return hspaceRanges, true
	case 'v':
		return vspaceRanges, true
	}
	return nil, false
}

// unicodeProperty resolves the name inside \p{...}: a general category, a
// script or one of PCRE's special properties.
func unicodeProperty(name string) ([]Range, bool) {
	switch name {
	case "Any":
		return []Range{{0, maxRune}}, true
	case "L&", "LC":
		return unionRanges(tableRanges(unicode.Lu), tableRanges(unicode.Ll), tableRanges(unicode.Lt)), true
	case "Xan":
		return unionRanges(tableRanges(unicode.L), tableRanges(unicode.N)), true
	case "Xwd":
		return unionRanges(tableRanges(unicode.L), tableRanges(unicode.N), []Range{{'_', '_'}}), true
	case "Xsp", "Xps":
		return unionRanges(tableRanges(unicode.Z), spaceRanges), true
	}
	if t, ok := unicode.Categories[name]; ok {
		return tableRanges(t), true
	}
	if t, ok := unicode.Scripts[name]; ok {
		return tableRanges(t), true
	}
	return nil, false
}

func tableRanges(t *unicode.RangeTable) []Range {
	var out []Range
	for _, r := range t.R16 {
		out = appendStrided(out, rune(r.Lo), rune(r.Hi), rune(r.Stride))
	}
	for _, r := range t.R32 {
		out = appendStrided(out, rune(r.Lo), rune(r.Hi), rune(r.Stride))
	}
	return out
}

func appendStrided(out []Range, lo, hi, stride rune) []Range {
	if stride == 1 {
		return append(out, Range{lo, hi})
	}
	for r := lo; r <= hi; r += stride {
		out = append(out, Range{r, r})
	}
	return out
}

// unionRanges merges range lists into one sorted list without overlaps.
func unionRanges(lists ...[]Range) []Range {
	var all []Range
	for _, l := range lists {
		all = append(all, l...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Lo < all[j].Lo })
	out := []Range{all[0]}
	for _, r := range all[1:] {
		last := &out[len(out)-1]
		if r.Lo <= last.Hi+1 {
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// complementRanges returns every code point not covered by ranges.
func complementRanges(ranges []Range) []Range {
	var out []Range
	next := rune(0)
	for _, r := range unionRanges(ranges) {
		if r.Lo > next {
			out = append(out, Range{next, r.Lo - 1})
		}
		next = r.Hi + 1
	}
	if next <= maxRune {
		out = append(out, Range{next, maxRune})
	}
	return out
}

// maxFoldSpan bounds the ranges that are walked for case variants.
const maxFoldSpan = 0x10000

// caseVariants returns the code points outside r that are case variants of
// code points inside it, compressed into runs.
func caseVariants(r Range) []Range {
	if r.Hi-r.Lo > maxFoldSpan {
		return nil
	}
	var found []rune
	for c := r.Lo; c <= r.Hi; c++ {
		for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
			if f < r.Lo || f > r.Hi {
				found = append(found, f)
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	var out []Range
	for _, c := range found {
		if n := len(out); n > 0 && c <= out[n-1].Hi+1 {
			if c > out[n-1].Hi {
				out[n-1].Hi = c
			}
			continue
		}
		out = append(out, Range{c, c})
	}
	return out
}
