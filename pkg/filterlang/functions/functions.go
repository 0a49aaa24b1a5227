// Package functions provides the built-in functions and keyword operators
// of the filter language.
//
// A Library is an evaluator.Registry. Every entry declares its arity and is
// checked before it runs; entries return Undefined when an argument is
// Undefined unless they are marked as accepting it. Regular expressions are
// compiled through the pcre package and cached per Library.
package functions

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sambeau/filterlang/pkg/filterlang/ccnorm"
	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/pcre"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// DefaultRegexFlags are the flags applied to patterns given to rlike, regex
// and the regex functions.
const DefaultRegexFlags = "u"

// DefaultCacheSize is the number of compiled patterns kept by default.
const DefaultCacheSize = 256

// Func is the signature of entry implementations. args have already been
// checked against the entry's arity.
type Func func(ctx context.Context, env *evaluator.Environment, args []value.Value) (value.Value, error)

// Entry defines a single function with its implementation and metadata.
type Entry struct {
	Fn Func
	// Arity is "2", "1-2", "2+" and so on.
	Arity       string
	Description string
	// Undefined entries are called even when an argument is Undefined.
	Undefined bool
	// Keyword entries implement keyword operators and are not reported
	// by Names.
	Keyword bool
}

// Option configures a Library.
type Option func(*Library)

// WithCCNorm sets the confusable normalization provider used by ccnorm, norm
// and the ccnorm_contains functions. The default is ccnorm.NewBuiltin(nil).
func WithCCNorm(p ccnorm.Provider) Option {
	return func(l *Library) {
		if p != nil {
			l.ccnorm = p
		}
	}
}

// WithRegexFlags sets the default pattern flags.
func WithRegexFlags(flags string) Option {
	return func(l *Library) {
		l.flags = flags
	}
}

// WithCacheSize sets the number of compiled patterns kept. Zero disables
// the cache.
func WithCacheSize(n int) Option {
	return func(l *Library) {
		l.cacheSize = n
	}
}

// WithMatchTimeout bounds the time a single regular expression match may
// take. Zero means no limit.
func WithMatchTimeout(d time.Duration) Option {
	return func(l *Library) {
		l.timeout = d
	}
}

// Library is the built-in function registry.
type Library struct {
	entries   map[string]Entry
	ccnorm    ccnorm.Provider
	flags     string
	cacheSize int
	timeout   time.Duration
	cache     *regexCache
}

// New creates a Library holding all built-in functions and keyword
// operators.
func New(opts ...Option) *Library {
	l := &Library{
		ccnorm:    ccnorm.NewBuiltin(nil),
		flags:     DefaultRegexFlags,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cache = newRegexCache(l.cacheSize)
	l.entries = map[string]Entry{}
	maps.Copy(l.entries, l.stringEntries())
	maps.Copy(l.entries, l.regexEntries())
	maps.Copy(l.entries, l.searchEntries())
	maps.Copy(l.entries, l.ipEntries())
	maps.Copy(l.entries, l.keywordEntries())
	return l
}

// Register adds or replaces an entry.
func (l *Library) Register(name string, e Entry) {
	l.entries[strings.ToLower(name)] = e
}

// Entry returns the entry registered under name.
func (l *Library) Entry(name string) (Entry, bool) {
	e, ok := l.entries[strings.ToLower(name)]
	return e, ok
}

// Lookup implements evaluator.Registry.
func (l *Library) Lookup(name string) (evaluator.Builtin, bool) {
	name = strings.ToLower(name)
	e, ok := l.entries[name]
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, env *evaluator.Environment, args []value.Value) (value.Value, error) {
		if err := checkArity(name, e.Arity, len(args)); err != nil {
			return value.Undef(), err
		}
		if !e.Undefined && slices.ContainsFunc(args, value.Value.IsUndefined) {
			return value.Undef(), nil
		}
		return e.Fn(ctx, env, args)
	}, true
}

// Names implements evaluator.Registry. Keyword operators are left out.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.entries))
	for name, e := range l.entries {
		if !e.Keyword {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// IsVariadic reports whether name takes any number of trailing arguments.
// It is meant for parser.WithVariadic.
func (l *Library) IsVariadic(name string) bool {
	e, ok := l.Entry(name)
	if !ok {
		return false
	}
	_, maxArgs := parseArity(e.Arity)
	return maxArgs < 0
}

// CacheSize returns the number of compiled patterns currently cached.
func (l *Library) CacheSize() int {
	return l.cache.size()
}

// Compile returns the compiled form of pattern under flags, using the cache.
func (l *Library) Compile(pattern, flags string) (*pcre.Regexp, error) {
	if cached, ok := l.cache.get(pattern, flags); ok {
		return cached.re, cached.err
	}
	var opts []pcre.Option
	if l.timeout > 0 {
		opts = append(opts, pcre.WithTimeout(l.timeout))
	}
	re, err := pcre.Compile(pattern, flags, opts...)
	l.cache.put(pattern, flags, re, err)
	return re, err
}

// parseArity interprets an arity spec. max is -1 for variadic specs.
// Arity specs: "0", "1", "2", "0-1", "1-2", "1+", "2+", etc.
func parseArity(spec string) (minArgs, maxArgs int) {
	spec = strings.TrimSpace(spec)

	// Exact match: "0", "1", "2", etc.
	if exact, err := strconv.Atoi(spec); err == nil {
		return exact, exact
	}

	// Variadic: "1+", "0+", "2+", etc.
	if suffix, found := strings.CutSuffix(spec, "+"); found {
		if n, err := strconv.Atoi(suffix); err == nil {
			return n, -1
		}
	}

	// Range: "0-1", "1-2", "0-2", etc.
	if lo, hi, found := strings.Cut(spec, "-"); found {
		minVal, errMin := strconv.Atoi(lo)
		maxVal, errMax := strconv.Atoi(hi)
		if errMin == nil && errMax == nil {
			return minVal, maxVal
		}
	}

	// Unknown spec - be permissive
	return 0, -1
}

// checkArity validates that the argument count matches the arity spec.
func checkArity(name, spec string, got int) error {
	minArgs, maxArgs := parseArity(spec)
	if got < minArgs {
		return errors.New("ARITY-0001", map[string]any{"Function": name, "Min": minArgs, "Got": got})
	}
	if maxArgs >= 0 && got > maxArgs {
		return errors.New("ARITY-0002", map[string]any{"Function": name, "Max": maxArgs, "Got": got})
	}
	return nil
}

// strs converts values to strings, expanding arrays into their elements.
func strs(args []value.Value) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a.Kind() == value.Array {
			for _, el := range a.Elements() {
				out = append(out, el.String())
			}
			continue
		}
		out = append(out, a.String())
	}
	return out
}
