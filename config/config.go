// Package config loads the filt configuration file.
package config

import "time"

// Config represents the complete filterlang configuration
type Config struct {
	BaseDir   string          `yaml:"-"` // Directory containing config file, for resolving relative paths
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Regex     RegexConfig     `yaml:"regex"`
	CCNorm    CCNormConfig    `yaml:"ccnorm"`
	Logging   LoggingConfig   `yaml:"logging"`
	Variables map[string]any  `yaml:"variables"` // Preset variables, bound read-only
}

// EvaluatorConfig holds evaluation settings
type EvaluatorConfig struct {
	Speculative  bool `yaml:"speculative"`   // Evaluate undecided operands in the background
	FlattenLogic bool `yaml:"flatten_logic"` // Merge chains of & and | into one node
}

// RegexConfig holds settings for rlike, irlike and the regex built-ins
type RegexConfig struct {
	DefaultFlags string        `yaml:"default_flags"` // Flags applied to every pattern (subset of pcre.Flags)
	CacheSize    int           `yaml:"cache_size"`    // Compiled patterns kept, 0 disables the cache
	MatchTimeout time.Duration `yaml:"match_timeout"` // Per-match limit, 0 for none
}

// CCNormConfig selects where the confusable-character table comes from.
// With neither table nor driver set the built-in table is used.
type CCNormConfig struct {
	Table  string `yaml:"table"`  // YAML or JSON table file, merged over the built-in table
	Watch  bool   `yaml:"watch"`  // Reload the table file when it changes
	Driver string `yaml:"driver"` // sqlite, postgres or mysql
	DSN    string `yaml:"dsn"`
	Query  string `yaml:"query"` // Defaults to ccnorm.DefaultQuery
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Evaluator: EvaluatorConfig{
			Speculative: true,
		},
		Regex: RegexConfig{
			DefaultFlags: "u",
			CacheSize:    256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
		},
	}
}
