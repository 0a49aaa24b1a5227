package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/filterlang/pkg/filterlang/ccnorm"
	"github.com/sambeau/filterlang/pkg/filterlang/filterlang"
	"github.com/sambeau/filterlang/pkg/filterlang/pcre"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "FILTERLANG_CONFIG"

// FileName is the config file looked for in the working directory and in
// ~/.config/filterlang.
const FileName = "filterlang.yaml"

// Load reads the config file at path, or the first one found in the search
// path when path is empty. getenv resolves ${VAR} references; pass
// os.Getenv. With no file anywhere Load returns Defaults().
func Load(path string, getenv func(string) string) (*Config, error) {
	resolved, err := resolveConfigPath(path, getenv)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return Defaults(), nil
	}
	return loadFile(resolved, getenv)
}

func loadFile(path string, getenv func(string) string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg.BaseDir = filepath.Dir(abs)
	resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// resolveConfigPath picks the config file: the explicit path, then
// $FILTERLANG_CONFIG, then ./filterlang.yaml, then
// ~/.config/filterlang/filterlang.yaml. A path that was asked for but does
// not exist is an error; finding nothing in the search path is not.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if env := getenv(EnvConfigPath); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config file not found: %s (from %s)", env, EnvConfigPath)
		}
		return env, nil
	}

	candidates := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "filterlang", FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} in data.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		if v := getenv(string(groups[1])); v != "" {
			return []byte(v)
		}
		return groups[2]
	})
}

// resolvePaths makes file paths relative to the config file absolute.
func resolvePaths(cfg *Config) {
	if cfg.CCNorm.Table != "" && !filepath.IsAbs(cfg.CCNorm.Table) {
		cfg.CCNorm.Table = filepath.Join(cfg.BaseDir, cfg.CCNorm.Table)
	}
	switch cfg.Logging.Output {
	case "", "stderr", "stdout":
	default:
		if !filepath.IsAbs(cfg.Logging.Output) {
			cfg.Logging.Output = filepath.Join(cfg.BaseDir, cfg.Logging.Output)
		}
	}
}

// Validate reports every invalid setting in cfg.
func Validate(cfg *Config) error {
	var errs []string

	if _, err := filterlang.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: %q must be debug, info, warn or error", cfg.Logging.Level))
	}

	if cfg.Regex.CacheSize < 0 {
		errs = append(errs, fmt.Sprintf("regex.cache_size: %d must not be negative", cfg.Regex.CacheSize))
	}
	if cfg.Regex.MatchTimeout < 0 {
		errs = append(errs, fmt.Sprintf("regex.match_timeout: %s must not be negative", cfg.Regex.MatchTimeout))
	}
	for _, c := range cfg.Regex.DefaultFlags {
		if !strings.ContainsRune(pcre.Flags, c) {
			errs = append(errs, fmt.Sprintf("regex.default_flags: unknown flag %q (valid flags are %s)", c, pcre.Flags))
			break
		}
	}

	cc := cfg.CCNorm
	switch {
	case cc.Driver != "" && cc.DSN == "":
		errs = append(errs, "ccnorm: driver requires dsn")
	case cc.Driver == "" && cc.DSN != "":
		errs = append(errs, "ccnorm: dsn requires driver")
	}
	if cc.Driver != "" && !ccnorm.IsDriver(cc.Driver) {
		errs = append(errs, fmt.Sprintf("ccnorm.driver: unknown driver %q (use sqlite, postgres or mysql)", cc.Driver))
	}
	if cc.Driver != "" && cc.Table != "" {
		errs = append(errs, "ccnorm: table and driver cannot both be set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Warnings returns settings that are valid but have no effect.
func Warnings(cfg *Config) []string {
	var warnings []string
	if cfg.CCNorm.Watch && cfg.CCNorm.Table == "" {
		warnings = append(warnings, "ccnorm.watch has no effect without ccnorm.table")
	}
	if cfg.CCNorm.Query != "" && cfg.CCNorm.Driver == "" {
		warnings = append(warnings, "ccnorm.query has no effect without ccnorm.driver")
	}
	return warnings
}
