package ccnorm

import (
	"context"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BuiltinTable maps common Cyrillic and Greek homoglyphs and look-alike
// digits and symbols to Latin capitals.
var BuiltinTable = Table{
	// Cyrillic
	'А': "A", 'а': "A", 'В': "B", 'в': "B", 'Е': "E", 'е': "E", 'Ё': "E", 'ё': "E",
	'К': "K", 'к': "K", 'М': "M", 'м': "M", 'Н': "H", 'н': "H", 'О': "O", 'о': "O",
	'Р': "P", 'р': "P", 'С': "C", 'с': "C", 'Т': "T", 'т': "T", 'Х': "X", 'х': "X",
	'У': "Y", 'у': "Y", 'І': "I", 'і': "I", 'Ј': "J", 'ј': "J", 'Ѕ': "S", 'ѕ': "S",
	// Greek
	'Α': "A", 'α': "A", 'Β': "B", 'β': "B", 'Ε': "E", 'ε': "E", 'Ζ': "Z", 'Η': "H",
	'Ι': "I", 'ι': "I", 'Κ': "K", 'κ': "K", 'Μ': "M", 'Ν': "N", 'ν': "V", 'Ο': "O",
	'ο': "O", 'Ρ': "P", 'ρ': "P", 'Τ': "T", 'τ': "T", 'Υ': "Y", 'υ': "U", 'Χ': "X",
	'χ': "X",
	// digits and symbols
	'0': "O", '1': "I", '3': "E", '4': "A", '5': "S", '7': "T", '@': "A", '$': "S",
	'|': "I", '!': "I",
}

// strip decomposes compatibility characters such as full-width letters and
// ligatures and removes combining marks.
func strip(s string) string {
	// transformers and casers are stateful, so each call builds its own
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// apply normalizes s with t: marks are stripped, the table is applied and
// the result is upper-cased.
func apply(t Table, s string) string {
	return cases.Upper(language.Und).String(t.Normalize(strip(s)))
}

// Builtin is a Provider using BuiltinTable.
type Builtin struct {
	lazy lazyTable
}

// NewBuiltin returns a provider using BuiltinTable merged with extra.
func NewBuiltin(extra Table) *Builtin {
	table := BuiltinTable.Merge(extra)
	b := &Builtin{}
	b.lazy.load = func(context.Context) (Table, error) { return table, nil }
	return b
}

// Initialize implements Provider.
func (b *Builtin) Initialize(ctx context.Context) error {
	return b.lazy.initialize(ctx)
}

// Normalize implements Provider.
func (b *Builtin) Normalize(s string) string {
	return b.lazy.normalize(s)
}
