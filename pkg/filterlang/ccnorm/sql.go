package ccnorm

import (
	"context"
	"database/sql"
	"fmt"
	"unicode/utf8"
)

// DefaultQuery selects the confusable pairs when no query is configured.
const DefaultQuery = "SELECT source, target FROM confusables"

// SQL is a Provider loading its table from a database. The query must return
// two string columns: the confusable character and its replacement. Entries
// are added to BuiltinTable.
type SQL struct {
	db     *sql.DB
	query  string
	logger Logger
	lazy   lazyTable
}

// NewSQL returns a provider reading pairs from db with query, or
// DefaultQuery when query is empty. logger may be nil.
func NewSQL(db *sql.DB, query string, logger Logger) *SQL {
	if query == "" {
		query = DefaultQuery
	}
	if logger == nil {
		logger = nopLogger{}
	}
	s := &SQL{db: db, query: query, logger: logger}
	s.lazy.load = s.read
	return s
}

func (s *SQL) read(ctx context.Context) (Table, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying confusables: %w", err)
	}
	defer rows.Close()

	table := Table{}
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("scanning confusable row: %w", err)
		}
		r, size := utf8.DecodeRuneInString(source)
		if r == utf8.RuneError || size != len(source) {
			return nil, fmt.Errorf("confusable source %q is not a single character", source)
		}
		table[r] = target
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading confusables: %w", err)
	}
	s.logger.Infof("loaded %d confusable entries from the database", len(table))
	return BuiltinTable.Merge(table), nil
}

// Initialize implements Provider.
func (s *SQL) Initialize(ctx context.Context) error {
	return s.lazy.initialize(ctx)
}

// Normalize implements Provider.
func (s *SQL) Normalize(str string) string {
	return s.lazy.normalize(str)
}
