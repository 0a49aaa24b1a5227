package pcre

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

// Result is a translated pattern.
type Result struct {
	// Pattern is the engine pattern.
	Pattern string
	// Flags are the flags in effect, in the order "imsxU".
	Flags string
	// Groups is the number of user capturing groups.
	Groups int
	// Names maps group names to user group numbers.
	Names map[string]int

	groupMap map[int]int
}

// Caseless reports whether the pattern matches without regard to case.
func (r *Result) Caseless() bool {
	return strings.ContainsRune(r.Flags, 'i')
}

// EngineGroup returns the engine group number of user group n.
func (r *Result) EngineGroup(n int) int {
	if n == 0 {
		return 0
	}
	return r.groupMap[n]
}

// Flags lists the default flags Translate accepts. g, y, d and v only
// change how a match is iterated or reported and are ignored.
const Flags = "imsxuU" + ignoredFlags

const ignoredFlags = "gydv"

// Translate converts a PCRE pattern into an engine pattern. flags are the
// default flags, as written after the closing delimiter in PHP.
func Translate(pattern, flags string) (*Result, error) {
	for _, c := range flags {
		if !strings.ContainsRune(Flags, c) {
			return nil, errors.New("REGEX-0005", map[string]any{"Fragment": string(c)})
		}
	}
	flags = strings.Map(func(c rune) rune {
		if strings.ContainsRune(ignoredFlags, c) {
			return -1
		}
		return c
	}, flags)
	tree, err := Parse(pattern, flags)
	if err != nil {
		return nil, err
	}
	out, groupMap := emit(tree, flags)
	return &Result{
		Pattern:  out,
		Flags:    accumulateFlags(tree, strings.ReplaceAll(flags, "u", "")),
		Groups:   tree.Groups,
		Names:    tree.Names,
		groupMap: groupMap,
	}, nil
}

// Option configures Compile.
type Option func(*regexp2.Regexp)

// WithTimeout bounds the time a single match may take.
func WithTimeout(d time.Duration) Option {
	return func(re *regexp2.Regexp) {
		re.MatchTimeout = d
	}
}

// Regexp is a compiled PCRE pattern.
type Regexp struct {
	source string
	result *Result
	re     *regexp2.Regexp
}

// Compile translates and compiles a PCRE pattern.
func Compile(pattern, flags string, opts ...Option) (*Regexp, error) {
	result, err := Translate(pattern, flags)
	if err != nil {
		return nil, err
	}
	options := regexp2.RegexOptions(regexp2.ECMAScript)
	if result.Caseless() {
		options |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(result.Pattern, options)
	if err != nil {
		return nil, errors.New("REGEX-0010", map[string]any{"Pattern": pattern, "Reason": err.Error()})
	}
	for _, opt := range opts {
		opt(re)
	}
	return &Regexp{source: pattern, result: result, re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern, flags string) *Regexp {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic(err)
	}
	return re
}

// String returns the PCRE source pattern.
func (r *Regexp) String() string { return r.source }

// Result returns the translation the regexp was compiled from.
func (r *Regexp) Result() *Result { return r.result }

// MatchString reports whether s contains a match.
func (r *Regexp) MatchString(s string) (bool, error) {
	ok, err := r.re.MatchString(s)
	if err != nil {
		return false, r.engineError(err)
	}
	return ok, nil
}

// FindSubmatch returns the text of the leftmost match and of each user
// group, with matched[i] false for groups that took no part in the match.
// It returns nil slices when nothing matches.
func (r *Regexp) FindSubmatch(s string) (texts []string, matched []bool, err error) {
	m, err := r.re.FindStringMatch(s)
	if err != nil {
		return nil, nil, r.engineError(err)
	}
	if m == nil {
		return nil, nil, nil
	}
	texts = make([]string, r.result.Groups+1)
	matched = make([]bool, r.result.Groups+1)
	for n := 0; n <= r.result.Groups; n++ {
		g := m.GroupByNumber(r.result.EngineGroup(n))
		if g == nil || len(g.Captures) == 0 {
			continue
		}
		texts[n] = g.String()
		matched[n] = true
	}
	return texts, matched, nil
}

// Count returns the number of non-overlapping matches in s.
func (r *Regexp) Count(s string) (int, error) {
	count := 0
	m, err := r.re.FindStringMatch(s)
	for err == nil && m != nil {
		count++
		m, err = r.re.FindNextMatch(m)
	}
	if err != nil {
		return 0, r.engineError(err)
	}
	return count, nil
}

// ReplaceAll replaces every match in s with repl. In repl, $n, ${n} and \n
// insert the text of user group n.
func (r *Regexp) ReplaceAll(s, repl string) (string, error) {
	out, err := r.re.ReplaceFunc(s, func(m regexp2.Match) string {
		return r.expand(&m, repl)
	}, -1, -1)
	if err != nil {
		return "", r.engineError(err)
	}
	return out, nil
}

func (r *Regexp) expand(m *regexp2.Match, repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if (c != '$' && c != '\\') || i+1 == len(repl) {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		braced := c == '$' && repl[j] == '{'
		if braced {
			j++
		}
		start := j
		for j < len(repl) && j-start < 2 && repl[j] >= '0' && repl[j] <= '9' {
			j++
		}
		if j == start || (braced && (j == len(repl) || repl[j] != '}')) {
			if c == '\\' && repl[i+1] == '\\' {
				b.WriteByte('\\')
				i++
				continue
			}
			b.WriteByte(c)
			continue
		}
		n, _ := strconv.Atoi(repl[start:j])
		if braced {
			j++
		}
		if n <= r.result.Groups {
			if g := m.GroupByNumber(r.result.EngineGroup(n)); g != nil && len(g.Captures) > 0 {
				b.WriteString(g.String())
			}
		}
		i = j - 1
	}
	return b.String()
}

func (r *Regexp) engineError(err error) error {
	return errors.New("REGEX-0010", map[string]any{"Pattern": r.source, "Reason": err.Error()})
}
