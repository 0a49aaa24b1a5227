package evaluator

import (
	"context"
	"maps"
	"slices"

	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// Builtin implements a function or keyword operator. Builtins must not
// mutate env except through SetVariable, and must be safe to call from
// several goroutines at once.
type Builtin func(ctx context.Context, env *Environment, args []value.Value) (value.Value, error)

// Registry resolves function names for the evaluator. Keyword operators
// (in, like, contains, matches, rlike, irlike, regex) are looked up under
// their keyword; keywords are never valid identifiers, so they cannot clash
// with function names.
type Registry interface {
	Lookup(name string) (Builtin, bool)
	Names() []string
}

// Functions is a Registry backed by a map.
type Functions map[string]Builtin

// Lookup implements Registry.
func (f Functions) Lookup(name string) (Builtin, bool) {
	fn, ok := f[name]
	return fn, ok
}

// Names implements Registry.
func (f Functions) Names() []string {
	return slices.Sorted(maps.Keys(f))
}
