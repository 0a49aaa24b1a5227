package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noenv(string) string { return "" }

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if !cfg.Evaluator.Speculative {
		t.Error("expected speculation on by default")
	}
	if cfg.Regex.DefaultFlags != "u" {
		t.Errorf("expected default flags 'u', got %q", cfg.Regex.DefaultFlags)
	}
	if cfg.Regex.CacheSize != 256 {
		t.Errorf("expected cache size 256, got %d", cfg.Regex.CacheSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_DSN":
			return "file:test.db"
		case "TEST_LEVEL":
			return "debug"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "dsn: ${TEST_DSN}",
			expected: "dsn: file:test.db",
		},
		{
			name:     "with default (env set)",
			input:    "level: ${TEST_LEVEL:-info}",
			expected: "level: debug",
		},
		{
			name:     "with default (env not set)",
			input:    "level: ${UNSET_VAR:-warn}",
			expected: "level: warn",
		},
		{
			name:     "unset without default",
			input:    "dsn: '${UNSET_VAR}'",
			expected: "dsn: ''",
		},
		{
			name:     "multiple substitutions",
			input:    "x: ${TEST_LEVEL}/${TEST_DSN}",
			expected: "x: debug/file:test.db",
		},
		{
			name:     "no substitution needed",
			input:    "static: value $HOME",
			expected: "static: value $HOME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
evaluator:
  speculative: false
  flatten_logic: true

regex:
  default_flags: iu
  cache_size: 16
  match_timeout: 50ms

ccnorm:
  table: confusables.yaml
  watch: true

logging:
  level: debug
  output: filt.log

variables:
  user_name: bob
  edit_count: 3
  groups: [user, autoconfirmed]
`)

	cfg, err := Load(path, noenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if cfg.Evaluator.Speculative || !cfg.Evaluator.FlattenLogic {
		t.Errorf("unexpected evaluator config %+v", cfg.Evaluator)
	}
	if cfg.Regex.DefaultFlags != "iu" || cfg.Regex.CacheSize != 16 {
		t.Errorf("unexpected regex config %+v", cfg.Regex)
	}
	if cfg.Regex.MatchTimeout != 50*time.Millisecond {
		t.Errorf("expected match timeout 50ms, got %s", cfg.Regex.MatchTimeout)
	}

	// relative paths are resolved against the config directory
	if want := filepath.Join(dir, "confusables.yaml"); cfg.CCNorm.Table != want {
		t.Errorf("expected table %q, got %q", want, cfg.CCNorm.Table)
	}
	if want := filepath.Join(dir, "filt.log"); cfg.Logging.Output != want {
		t.Errorf("expected log output %q, got %q", want, cfg.Logging.Output)
	}

	if cfg.Variables["user_name"] != "bob" || cfg.Variables["edit_count"] != 3 {
		t.Errorf("unexpected variables %v", cfg.Variables)
	}
	if groups, ok := cfg.Variables["groups"].([]any); !ok || len(groups) != 2 {
		t.Errorf("expected two groups, got %#v", cfg.Variables["groups"])
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
ccnorm:
  driver: ${CC_DRIVER:-sqlite}
  dsn: ${CC_DSN}
logging:
  level: ${LOG_LEVEL:-warn}
`)

	getenv := func(key string) string {
		if key == "CC_DSN" {
			return "file:confusables.db"
		}
		return ""
	}
	cfg, err := Load(path, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CCNorm.Driver != "sqlite" || cfg.CCNorm.DSN != "file:confusables.db" {
		t.Errorf("unexpected ccnorm config %+v", cfg.CCNorm)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn', got %q", cfg.Logging.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "regex: [unclosed")
	if _, err := Load(path, noenv); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		expectErr bool
		errSubstr string
	}{
		{
			name:   "valid minimal config",
			config: "logging:\n  level: error\n",
		},
		{
			name:      "unknown log level",
			config:    "logging:\n  level: loud\n",
			expectErr: true,
			errSubstr: "logging.level",
		},
		{
			name:      "negative cache size",
			config:    "regex:\n  cache_size: -1\n",
			expectErr: true,
			errSubstr: "regex.cache_size",
		},
		{
			name:      "unknown regex flag",
			config:    "regex:\n  default_flags: uq\n",
			expectErr: true,
			errSubstr: "unknown flag 'q'",
		},
		{
			name:   "ignored regex flags",
			config: "regex:\n  default_flags: gu\n",
		},
		{
			name:      "driver without dsn",
			config:    "ccnorm:\n  driver: postgres\n",
			expectErr: true,
			errSubstr: "driver requires dsn",
		},
		{
			name:      "unknown driver",
			config:    "ccnorm:\n  driver: oracle\n  dsn: x\n",
			expectErr: true,
			errSubstr: "unknown driver",
		},
		{
			name:      "table and driver",
			config:    "ccnorm:\n  table: t.yaml\n  driver: mysql\n  dsn: x\n",
			expectErr: true,
			errSubstr: "cannot both be set",
		},
		{
			name: "database table",
			config: `
ccnorm:
  driver: postgresql
  dsn: postgres://localhost/filters
  query: SELECT a, b FROM pairs
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.config)
			_, err := Load(path, noenv)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errSubstr, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidationReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "loud"
	cfg.Regex.CacheSize = -5
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration errors:") || strings.Count(msg, "\n  - ") != 2 {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestResolveConfigPath(t *testing.T) {
	// Test explicit path not found
	if _, err := resolveConfigPath("/nonexistent/path/filterlang.yaml", noenv); err == nil {
		t.Error("expected error for nonexistent path")
	}

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	// Nothing in the search path
	resolved, err := resolveConfigPath("", noenv)
	if err != nil || resolved != "" {
		t.Errorf("expected no config, got %q, %v", resolved, err)
	}

	// Test explicit path found
	custom := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(custom, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if resolved, err := resolveConfigPath(custom, noenv); err != nil || resolved != custom {
		t.Errorf("expected %q, got %q, %v", custom, resolved, err)
	}

	// Environment variable
	getenv := func(key string) string {
		if key == EnvConfigPath {
			return custom
		}
		return ""
	}
	if resolved, err := resolveConfigPath("", getenv); err != nil || resolved != custom {
		t.Errorf("expected %q from %s, got %q, %v", custom, EnvConfigPath, resolved, err)
	}
	missing := func(string) string { return filepath.Join(dir, "missing.yaml") }
	if _, err := resolveConfigPath("", missing); err == nil {
		t.Errorf("expected error for missing %s file", EnvConfigPath)
	}

	// Home directory, then the working directory
	home := filepath.Join(dir, ".config", "filterlang")
	if err := os.MkdirAll(home, 0755); err != nil {
		t.Fatal(err)
	}
	homeConfig := writeConfig(t, home, "")
	if resolved, _ := resolveConfigPath("", noenv); resolved != homeConfig {
		t.Errorf("expected %q, got %q", homeConfig, resolved)
	}
	writeConfig(t, dir, "")
	if resolved, _ := resolveConfigPath("", noenv); resolved != FileName {
		t.Errorf("expected %q, got %q", FileName, resolved)
	}
}

func TestLoadWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, err := Load("", noenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Regex.CacheSize != Defaults().Regex.CacheSize {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantWarn string
	}{
		{
			name:     "watch without table",
			cfg:      &Config{CCNorm: CCNormConfig{Watch: true}},
			wantWarn: "ccnorm.watch",
		},
		{
			name:     "query without driver",
			cfg:      &Config{CCNorm: CCNormConfig{Query: "SELECT 1"}},
			wantWarn: "ccnorm.query",
		},
		{
			name:     "watched table",
			cfg:      &Config{CCNorm: CCNormConfig{Table: "t.yaml", Watch: true}},
			wantWarn: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := Warnings(tt.cfg)
			if tt.wantWarn == "" {
				if len(warnings) > 0 {
					t.Errorf("expected no warnings, got %v", warnings)
				}
				return
			}
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantWarn) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected warning containing %q, got %v", tt.wantWarn, warnings)
			}
		})
	}
}
