package evaluator

import (
	"encoding/binary"
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gofrs/uuid/v5"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// Environment holds the variables of one evaluation. Names are
// case-insensitive.
//
// A root environment is created per top-level evaluation. The branches that
// lazy operators do not take run in enclosed environments: each starts from
// a copy of the variables visible when the branch was spawned, so its writes
// never reach the outer environment and the two can be used from different
// goroutines. Enclosed environments share the root's ID so trace entries
// from every branch land under one key.
type Environment struct {
	store     map[string]value.Value
	readOnly  map[string]bool
	rootID    uuid.UUID
	speculate bool
}

var (
	newV4        = uuid.NewV4
	fallbackRoot atomic.Uint64
)

// newRootID returns a random ID. When the system random source fails it
// returns the next ID of a process-wide sequence instead, so roots never
// share a trace key.
func newRootID() uuid.UUID {
	if id, err := newV4(); err == nil {
		return id
	}
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], fallbackRoot.Add(1))
	return id
}

// NewEnvironment creates a root environment with a fresh ID.
func NewEnvironment() *Environment {
	return &Environment{
		store:    make(map[string]value.Value),
		readOnly: make(map[string]bool),
		rootID:   newRootID(),
	}
}

// NewEnclosedEnvironment creates a speculative environment starting from
// the variables of outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{
		store:     maps.Clone(outer.store),
		readOnly:  maps.Clone(outer.readOnly),
		rootID:    outer.rootID,
		speculate: true,
	}
}

func normalize(name string) string {
	return strings.ToLower(name)
}

// RootID identifies the root environment this environment descends from.
func (e *Environment) RootID() uuid.UUID { return e.rootID }

// IsSpeculative reports whether e belongs to a branch whose result is
// discarded.
func (e *Environment) IsSpeculative() bool { return e.speculate }

// GetVariable returns the value bound to name. A variable that was never
// set reads as an uninitialized Undefined.
func (e *Environment) GetVariable(name string) value.Value {
	key := normalize(name)
	if v, ok := e.store[key]; ok {
		return v
	}
	return value.Uninitialized(key)
}

// HasVariable reports whether name is set.
func (e *Environment) HasVariable(name string) bool {
	_, ok := e.store[normalize(name)]
	return ok
}

// SetVariable binds name. Read-only variables cannot be rebound.
func (e *Environment) SetVariable(name string, v value.Value) error {
	key := normalize(name)
	if e.readOnly[key] {
		return errors.New("EVAL-0006", map[string]any{"Name": key})
	}
	e.store[key] = v
	return nil
}

// SetReadOnly binds name and protects it from assignment by filter code.
func (e *Environment) SetReadOnly(name string, v value.Value) {
	key := normalize(name)
	e.store[key] = v
	e.readOnly[key] = true
}

// IsReadOnly reports whether name is protected.
func (e *Environment) IsReadOnly(name string) bool {
	return e.readOnly[normalize(name)]
}

// Variables returns the bound names, sorted.
func (e *Environment) Variables() []string {
	return slices.Sorted(maps.Keys(e.store))
}
