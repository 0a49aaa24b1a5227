package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sambeau/filterlang/pkg/filterlang/ccnorm"
	"github.com/sambeau/filterlang/pkg/filterlang/filterlang"
	"github.com/sambeau/filterlang/pkg/filterlang/functions"
)

func nopClose() error { return nil }

// NewLogger opens the configured log output. stdout and stderr are used for
// the "stdout" and "stderr" outputs; any other output is a file appended to.
// The returned function closes the file.
func (c *Config) NewLogger(stdout, stderr io.Writer) (filterlang.Logger, func() error, error) {
	level, err := filterlang.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	switch c.Logging.Output {
	case "", "stderr":
		return filterlang.WriterLogger(stderr, level), nopClose, nil
	case "stdout":
		return filterlang.WriterLogger(stdout, level), nopClose, nil
	}
	f, err := os.OpenFile(c.Logging.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return filterlang.WriterLogger(f, level), f.Close, nil
}

// NewCCNorm builds the confusable-character provider: a table file, a
// database table, or the built-in table. The table itself is loaded on first
// use. The returned function stops watching or closes the database.
func (c *Config) NewCCNorm(ctx context.Context, logger ccnorm.Logger) (ccnorm.Provider, func() error, error) {
	cc := c.CCNorm
	switch {
	case cc.Table != "":
		f := ccnorm.NewFile(cc.Table, logger)
		if cc.Watch {
			if err := f.Watch(ctx); err != nil {
				return nil, nil, err
			}
		}
		return f, f.Close, nil

	case cc.Driver != "":
		db, err := ccnorm.Open(cc.Driver, cc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return ccnorm.NewSQL(db, cc.Query, logger), db.Close, nil
	}
	return ccnorm.NewBuiltin(nil), nopClose, nil
}

// FunctionOptions returns the built-in library settings, using provider for
// ccnorm and the functions built on it.
func (c *Config) FunctionOptions(provider ccnorm.Provider) []functions.Option {
	return []functions.Option{
		functions.WithCCNorm(provider),
		functions.WithRegexFlags(c.Regex.DefaultFlags),
		functions.WithCacheSize(c.Regex.CacheSize),
		functions.WithMatchTimeout(c.Regex.MatchTimeout),
	}
}

// EngineOptions returns the engine settings.
func (c *Config) EngineOptions(lib *functions.Library, logger filterlang.Logger) []filterlang.Option {
	return []filterlang.Option{
		filterlang.WithRegistry(lib),
		filterlang.WithLogger(logger),
		filterlang.WithSpeculation(c.Evaluator.Speculative),
		filterlang.WithFlatten(c.Evaluator.FlattenLogic),
	}
}
