package evaluator

import (
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// Entry is what one evaluation recorded for one node.
type Entry struct {
	Value       value.Value
	Errors      []error
	Speculative bool
	// Done is false while the node is still being evaluated.
	Done bool
}

type traceKey struct {
	node int
	root uuid.UUID
}

// Trace records the value and errors of every evaluated node, keyed by node
// ID and root environment ID. It is safe for concurrent use.
type Trace struct {
	mu      sync.RWMutex
	entries map[traceKey]*Entry
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{entries: make(map[traceKey]*Entry)}
}

func (t *Trace) entry(node int, env *Environment) *Entry {
	key := traceKey{node, env.RootID()}
	e, ok := t.entries[key]
	if !ok {
		e = &Entry{Speculative: env.IsSpeculative()}
		t.entries[key] = e
	}
	return e
}

func (t *Trace) start(node int, env *Environment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(node, env).Done = false
}

func (t *Trace) setValue(node int, env *Environment, v value.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(node, env)
	e.Value = v
	e.Done = true
}

func (t *Trace) addError(node int, env *Environment, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(node, env)
	e.Errors = append(e.Errors, err)
}

// Lookup returns a copy of the entry for a node under a root environment.
func (t *Trace) Lookup(node int, root uuid.UUID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[traceKey{node, root}]
	if !ok {
		return Entry{}, false
	}
	cp := *e
	cp.Errors = append([]error(nil), e.Errors...)
	return cp, true
}

// Value returns the value recorded for a node.
func (t *Trace) Value(node int, root uuid.UUID) (value.Value, bool) {
	e, ok := t.Lookup(node, root)
	if !ok || !e.Done {
		return value.Undef(), false
	}
	return e.Value, true
}

// Errors returns the errors recorded for a node.
func (t *Trace) Errors(node int, root uuid.UUID) []error {
	e, _ := t.Lookup(node, root)
	return e.Errors
}

// AllErrors returns every error recorded under a root environment,
// speculative branches included when withSpeculative is set.
func (t *Trace) AllErrors(root uuid.UUID, withSpeculative bool) []error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var keys []traceKey
	for key, e := range t.entries {
		if key.root == root && len(e.Errors) > 0 && (withSpeculative || !e.Speculative) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].node < keys[j].node })
	var out []error
	for _, key := range keys {
		out = append(out, t.entries[key].Errors...)
	}
	return out
}

// Forget drops every entry recorded under a root environment.
func (t *Trace) Forget(root uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.entries {
		if key.root == root {
			delete(t.entries, key)
		}
	}
}
