package functions

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

func (l *Library) stringEntries() map[string]Entry {
	return map[string]Entry{
		"lcase": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(cases.Lower(language.Und).String(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Convert to lower case",
		},
		"ucase": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(cases.Upper(language.Und).String(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Convert to upper case",
		},
		"length": {
			Fn:          length,
			Arity:       "1",
			Description: "Number of characters in a string or elements in an array",
		},
		"strlen": {
			Fn:          length,
			Arity:       "1",
			Description: "Alias of length",
		},
		"string": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return args[0].AsString(), nil
			},
			Arity:       "1",
			Description: "Cast to string",
		},
		"int": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return args[0].AsInt(), nil
			},
			Arity:       "1",
			Description: "Cast to integer",
		},
		"float": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return args[0].AsFloat(), nil
			},
			Arity:       "1",
			Description: "Cast to float",
		},
		"bool": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return args[0].AsBoolean(), nil
			},
			Arity:       "1",
			Description: "Cast to boolean",
		},
		"norm": {
			Fn: func(ctx context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				s, err := l.normalize(ctx, args[0].String())
				if err != nil {
					return value.Undef(), err
				}
				return value.NewString(rmWhitespace(rmSpecials(rmDoubles(s)))), nil
			},
			Arity:       "1",
			Description: "Normalize confusables, then remove repeated, special and whitespace characters",
		},
		"ccnorm": {
			Fn: func(ctx context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				s, err := l.normalize(ctx, args[0].String())
				if err != nil {
					return value.Undef(), err
				}
				return value.NewString(s), nil
			},
			Arity:       "1",
			Description: "Normalize confusable characters",
		},
		"specialratio": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewFloat(specialRatio(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Fraction of characters that are neither letters nor digits",
		},
		"rmspecials": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(rmSpecials(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Remove characters other than letters, digits and whitespace",
		},
		"rmdoubles": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(rmDoubles(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Collapse runs of the same character",
		},
		"rmwhitespace": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(rmWhitespace(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Remove whitespace",
		},
		"count": {
			Fn:          count,
			Arity:       "1-2",
			Description: "Count array elements, comma separated items, or occurrences of a needle",
		},
		"substr": {
			Fn:          substr,
			Arity:       "2-3",
			Description: "Substring by character offset and length",
		},
		"strpos": {
			Fn:          strpos,
			Arity:       "2-3",
			Description: "Character offset of a needle, or -1",
		},
		"str_replace": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				subject, search := args[0].String(), args[1].String()
				if search == "" {
					return value.NewString(subject), nil
				}
				return value.NewString(strings.ReplaceAll(subject, search, args[2].String())), nil
			},
			Arity:       "3",
			Description: "Replace every occurrence of a string",
		},
		"rescape": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(quoteMeta(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Escape regular expression metacharacters",
		},
		"set": {
			Fn:          setVar,
			Arity:       "2",
			Description: "Assign a variable and return the value",
			Undefined:   true,
		},
		"set_var": {
			Fn:          setVar,
			Arity:       "2",
			Description: "Alias of set",
			Undefined:   true,
		},
		"sanitize": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewString(html.UnescapeString(args[0].String())), nil
			},
			Arity:       "1",
			Description: "Decode HTML entities",
		},
	}
}

func (l *Library) normalize(ctx context.Context, s string) (string, error) {
	if err := l.ccnorm.Initialize(ctx); err != nil {
		return "", errors.New("EVAL-0009", map[string]any{"Message": err.Error()})
	}
	return l.ccnorm.Normalize(s), nil
}

func length(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
	if args[0].Kind() == value.Array {
		return value.NewInt(int64(args[0].Len())), nil
	}
	return value.NewInt(int64(utf8.RuneCountInString(args[0].String()))), nil
}

func count(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
	if len(args) == 1 {
		return countItems(args[0]), nil
	}
	needle, haystack := args[0].String(), args[1].String()
	if needle == "" {
		return value.NewInt(0), nil
	}
	return value.NewInt(int64(strings.Count(haystack, needle))), nil
}

// countItems counts the elements of an array, or the comma separated items
// of anything else.
func countItems(v value.Value) value.Value {
	if v.Kind() == value.Array {
		return value.NewInt(int64(v.Len()))
	}
	return value.NewInt(int64(strings.Count(v.String(), ",") + 1))
}

func substr(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
	runes := []rune(args[0].String())
	n := len(runes)
	start := int(args[1].Int())
	if start < 0 {
		start = max(n+start, 0)
	}
	if start > n {
		return value.NewString(""), nil
	}
	end := n
	if len(args) == 3 {
		length := int(args[2].Int())
		if length < 0 {
			end = n + length
		} else if length < n-start {
			end = start + length
		}
	}
	if end <= start {
		return value.NewString(""), nil
	}
	return value.NewString(string(runes[start:end])), nil
}

func strpos(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
	haystack := []rune(args[0].String())
	needle := args[1].String()
	offset := 0
	if len(args) == 3 {
		offset = int(args[2].Int())
	}
	if offset < 0 {
		offset += len(haystack)
	}
	if needle == "" || offset < 0 || offset > len(haystack) {
		return value.NewInt(-1), nil
	}
	i := strings.Index(string(haystack[offset:]), needle)
	if i < 0 {
		return value.NewInt(-1), nil
	}
	return value.NewInt(int64(offset + utf8.RuneCountInString(string(haystack[offset:])[:i]))), nil
}

func setVar(_ context.Context, env *evaluator.Environment, args []value.Value) (value.Value, error) {
	if args[0].IsUndefined() {
		return value.Undef(), nil
	}
	if err := env.SetVariable(args[0].String(), args[1]); err != nil {
		return value.Undef(), err
	}
	return args[1], nil
}

// isWordRune reports whether r is matched by \w in Unicode mode.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func specialRatio(s string) float64 {
	total, specials := 0, 0
	for _, r := range s {
		total++
		if !isWordRune(r) {
			specials++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(specials) / float64(total)
}

func rmSpecials(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

func rmDoubles(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := utf8.RuneError
	first := true
	for _, r := range s {
		if first || r != prev {
			b.WriteRune(r)
		}
		prev, first = r, false
	}
	return b.String()
}

func rmWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// quoteMeta escapes the characters special to PCRE, plus the / delimiter.
func quoteMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == 0:
			b.WriteString(`\000`)
			continue
		case strings.ContainsRune(`.\+*?[^]$(){}=!<>|:-#/`, r):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
