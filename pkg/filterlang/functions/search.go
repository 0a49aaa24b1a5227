package functions

import (
	"context"
	"strings"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

func (l *Library) searchEntries() map[string]Entry {
	return map[string]Entry{
		"contains_any": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewBool(containsAny(args[0].String(), strs(args[1:]))), nil
			},
			Arity:       "2+",
			Description: "Whether the first argument contains any of the others",
		},
		"contains_all": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return value.NewBool(containsAll(args[0].String(), strs(args[1:]))), nil
			},
			Arity:       "2+",
			Description: "Whether the first argument contains all of the others",
		},
		"ccnorm_contains_any": {
			Fn: func(ctx context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				haystack, needles, err := l.normalizeAll(ctx, args)
				if err != nil {
					return value.Undef(), err
				}
				return value.NewBool(containsAny(haystack, needles)), nil
			},
			Arity:       "2+",
			Description: "contains_any after normalizing confusable characters",
		},
		"ccnorm_contains_all": {
			Fn: func(ctx context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				haystack, needles, err := l.normalizeAll(ctx, args)
				if err != nil {
					return value.Undef(), err
				}
				return value.NewBool(containsAll(haystack, needles)), nil
			},
			Arity:       "2+",
			Description: "contains_all after normalizing confusable characters",
		},
		"equals_to_any": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				for _, candidate := range args[1:] {
					if value.Equal(args[0], candidate, true).Truthy() {
						return value.NewBool(true), nil
					}
				}
				return value.NewBool(false), nil
			},
			Arity:       "2+",
			Description: "Whether the first argument is identical to any of the others",
		},
	}
}

func (l *Library) normalizeAll(ctx context.Context, args []value.Value) (string, []string, error) {
	haystack, err := l.normalize(ctx, args[0].String())
	if err != nil {
		return "", nil, err
	}
	needles := strs(args[1:])
	for i, n := range needles {
		if needles[i], err = l.normalize(ctx, n); err != nil {
			return "", nil, err
		}
	}
	return haystack, needles, nil
}

// nonEmpty drops empty needles, which would match everywhere.
func nonEmpty(needles []string) []string {
	out := needles[:0:0]
	for _, n := range needles {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func automaton(needles []string) ac.AhoCorasick {
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		MatchKind: ac.LeftMostLongestMatch,
	})
	return builder.Build(needles)
}

func containsAny(haystack string, needles []string) bool {
	needles = nonEmpty(needles)
	switch len(needles) {
	case 0:
		return false
	case 1:
		return strings.Contains(haystack, needles[0])
	}
	m := automaton(needles)
	return len(m.FindAll(haystack)) > 0
}

func containsAll(haystack string, needles []string) bool {
	needles = nonEmpty(needles)
	if len(needles) == 0 {
		return true
	}
	m := automaton(needles)
	found := make([]bool, len(needles))
	for _, match := range m.FindAll(haystack) {
		if idx := match.Pattern(); idx >= 0 && idx < len(found) {
			found[idx] = true
		}
	}
	// Leftmost-longest matches do not overlap, so a needle hidden inside
	// another match is confirmed directly.
	for i, ok := range found {
		if !ok && !strings.Contains(haystack, needles[i]) {
			return false
		}
	}
	return true
}
