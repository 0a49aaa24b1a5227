package functions

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

func (l *Library) keywordEntries() map[string]Entry {
	in := Entry{
		Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
			return value.NewBool(substring(args[1].String(), args[0].String())), nil
		},
		Arity:       "2",
		Description: "Whether the left operand occurs in the right one",
		Keyword:     true,
	}
	contains := Entry{
		Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
			return value.NewBool(substring(args[0].String(), args[1].String())), nil
		},
		Arity:       "2",
		Description: "Whether the right operand occurs in the left one",
		Keyword:     true,
	}
	like := Entry{
		Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
			return l.match(args[0].String(), globPattern(args[1].String()), "su")
		},
		Arity:       "2",
		Description: "Shell glob match of the whole left operand",
		Keyword:     true,
	}
	rlike := Entry{
		Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
			return l.match(args[0].String(), args[1].String(), l.flags)
		},
		Arity:       "2",
		Description: "Regular expression search",
		Keyword:     true,
	}
	irlike := Entry{
		Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
			flags := l.flags
			if !strings.ContainsRune(flags, 'i') {
				flags += "i"
			}
			return l.match(args[0].String(), args[1].String(), flags)
		},
		Arity:       "2",
		Description: "Case-insensitive regular expression search",
		Keyword:     true,
	}
	return map[string]Entry{
		"in":       in,
		"contains": contains,
		"like":     like,
		"matches":  like,
		"rlike":    rlike,
		"regex":    rlike,
		"irlike":   irlike,
	}
}

// substring reports whether needle occurs in haystack. Empty operands never
// match.
func substring(haystack, needle string) bool {
	if haystack == "" || needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}

// globPattern converts a shell glob into an anchored PCRE pattern. * and ?
// match any run of characters and any single character, [...] and [!...]
// are bracket expressions, and a backslash quotes the next character.
// An unterminated [ matches itself.
func globPattern(glob string) string {
	var b strings.Builder
	b.WriteString(`\A`)
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '\\':
			if i+1 < len(runes) {
				i++
			}
			b.WriteString(literal(runes[i]))
		case '[':
			end, class := bracket(runes, i)
			if end < 0 {
				b.WriteString(literal(r))
				continue
			}
			b.WriteString(class)
			i = end
		default:
			b.WriteString(literal(r))
		}
	}
	b.WriteString(`\z`)
	return b.String()
}

// bracket converts the bracket expression starting at runes[start]. It
// returns the index of the closing ] and the class, or -1 when there is no
// closing ].
func bracket(runes []rune, start int) (int, string) {
	var b strings.Builder
	b.WriteByte('[')
	i := start + 1
	if i < len(runes) && (runes[i] == '!' || runes[i] == '^') {
		b.WriteByte('^')
		i++
	}
	first := true
	for ; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == ']' && !first:
			b.WriteByte(']')
			return i, b.String()
		case r == '-' && !first && i+1 < len(runes) && runes[i+1] != ']':
			b.WriteByte('-')
		case r == '\\' && i+1 < len(runes):
			i++
			b.WriteString(hexEscape(runes[i]))
		default:
			b.WriteString(hexEscape(r))
		}
		first = false
	}
	return -1, ""
}

func literal(r rune) string {
	if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return string(r)
	}
	return hexEscape(r)
}

func hexEscape(r rune) string {
	return fmt.Sprintf(`\x{%X}`, r)
}
