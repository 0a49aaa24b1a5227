// Package ccnorm normalizes confusable characters, so that strings that
// look alike compare equal: "Ρаypal" (with a Greek Rho and a Cyrillic a)
// and "paypal" both normalize to "PAYPAL".
//
// A Provider owns a Table mapping characters to their canonical form. The
// table may come from the built-in set, a YAML file (optionally watched for
// changes) or a SQL database.
package ccnorm

import (
	"context"
	"strings"
	"sync"
)

// Provider normalizes confusable characters. Initialize loads the table and
// is safe to call repeatedly; only the first successful call does any work.
type Provider interface {
	Initialize(ctx context.Context) error
	Normalize(s string) string
}

// Table maps characters to the string they normalize to.
type Table map[rune]string

// Normalize applies the table to every character of s.
func (t Table) Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := t[r]; ok {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Merge returns a table holding the entries of t overridden by other.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// loader fetches a table from its source.
type loader func(ctx context.Context) (Table, error)

// lazyTable loads a table on first use and can swap it later. A failed load
// is retried by the next Initialize.
type lazyTable struct {
	mu     sync.RWMutex
	table  Table
	loaded bool
	load   loader
}

func (l *lazyTable) initialize(ctx context.Context) error {
	l.mu.RLock()
	loaded := l.loaded
	l.mu.RUnlock()
	if loaded {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	table, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.table = table
	l.loaded = true
	return nil
}

func (l *lazyTable) replace(t Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table = t
	l.loaded = true
}

func (l *lazyTable) normalize(s string) string {
	l.mu.RLock()
	t := l.table
	l.mu.RUnlock()
	return apply(t, s)
}
