package functions

import (
	"context"

	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

func (l *Library) regexEntries() map[string]Entry {
	return map[string]Entry{
		"rcount": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				if len(args) == 1 {
					return countItems(args[0]), nil
				}
				re, err := l.Compile(args[0].String(), l.flags)
				if err != nil {
					return value.Undef(), err
				}
				n, err := re.Count(args[1].String())
				if err != nil {
					return value.Undef(), err
				}
				return value.NewInt(int64(n)), nil
			},
			Arity:       "1-2",
			Description: "Count matches of a pattern",
		},
		"get_matches": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				re, err := l.Compile(args[0].String(), l.flags)
				if err != nil {
					return value.Undef(), err
				}
				texts, matched, err := re.FindSubmatch(args[1].String())
				if err != nil {
					return value.Undef(), err
				}
				elems := make([]value.Value, re.Result().Groups+1)
				for i := range elems {
					if i < len(matched) && matched[i] {
						elems[i] = value.NewString(texts[i])
					} else {
						elems[i] = value.NewBool(false)
					}
				}
				return value.NewArray(elems...), nil
			},
			Arity:       "2",
			Description: "Array of the whole match and each group, false where nothing matched",
		},
		"str_replace_regexp": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				re, err := l.Compile(args[1].String(), l.flags)
				if err != nil {
					return value.Undef(), err
				}
				out, err := re.ReplaceAll(args[0].String(), args[2].String())
				if err != nil {
					return value.Undef(), err
				}
				return value.NewString(out), nil
			},
			Arity:       "3",
			Description: "Replace every match of a pattern",
		},
	}
}

// match reports whether pattern matches subject under flags.
func (l *Library) match(subject, pattern, flags string) (value.Value, error) {
	re, err := l.Compile(pattern, flags)
	if err != nil {
		return value.Undef(), err
	}
	ok, err := re.MatchString(subject)
	if err != nil {
		return value.Undef(), err
	}
	return value.NewBool(ok), nil
}
