package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/filterlang/config"
	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/filterlang"
	"github.com/sambeau/filterlang/pkg/filterlang/format"
	"github.com/sambeau/filterlang/pkg/filterlang/functions"
	"github.com/sambeau/filterlang/pkg/filterlang/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0"

// Exit codes
const (
	exitOK    = 0
	exitError = 1 // syntax or evaluation errors
	exitUsage = 2 // bad flags, unreadable files, bad configuration
)

// options holds the parsed command line.
type options struct {
	eval       string
	check      bool
	trace      bool
	configPath string
	varsFile   string
	vars       map[string]any
	version    bool
	args       []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("filt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printHelp(stderr) }

	fs.StringVar(&opts.eval, "e", "", "Evaluate filter code")
	fs.StringVar(&opts.eval, "eval", "", "Evaluate filter code")
	fs.BoolVar(&opts.check, "check", false, "Check syntax without evaluating")
	fs.BoolVar(&opts.trace, "trace", false, "Print the evaluation trace")
	fs.StringVar(&opts.configPath, "config", "", "Configuration file")
	fs.StringVar(&opts.varsFile, "vars", "", "YAML file of variables")
	fs.Func("var", "Set a variable (name=value, repeatable)", func(s string) error {
		name, v, err := parseVar(s)
		if err != nil {
			return err
		}
		opts.vars[name] = v
		return nil
	})
	fs.BoolVar(&opts.version, "V", false, "Show version information")
	fs.BoolVar(&opts.version, "version", false, "Show version information")
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{vars: map[string]any{}}
	fs := newFlagSet(opts, stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}
	opts.args = fs.Args()

	if opts.version {
		fmt.Fprintf(stdout, "filt version %s\n", Version)
		return exitOK
	}

	if opts.check {
		if opts.eval != "" {
			return checkSources(stderr, map[string]string{"<eval>": opts.eval}, []string{"<eval>"})
		}
		if len(opts.args) == 0 {
			fmt.Fprintln(stderr, "Error: --check requires -e or at least one file")
			return exitUsage
		}
		return checkFiles(stderr, opts.args)
	}

	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	logger, closeLog, err := cfg.NewLogger(stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer closeLog()
	for _, w := range config.Warnings(cfg) {
		logger.Warnf("%s", w)
	}

	provider, closeCCNorm, err := cfg.NewCCNorm(ctx, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer closeCCNorm()

	lib := functions.New(cfg.FunctionOptions(provider)...)
	// the REPL can switch tracing on at any time
	interactive := opts.eval == "" && len(opts.args) == 0
	engineOpts := append(cfg.EngineOptions(lib, logger), filterlang.WithKeepTrace(opts.trace || interactive))
	engine := filterlang.New(engineOpts...)

	vars, err := collectVars(cfg.Variables, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	switch {
	case opts.eval != "":
		return evaluate(ctx, engine, opts.eval, vars, opts.trace, stdout, stderr)
	case len(opts.args) > 0:
		content, err := os.ReadFile(opts.args[0])
		if err != nil {
			fmt.Fprintf(stderr, "Error reading file '%s': %v\n", opts.args[0], err)
			return exitUsage
		}
		return evaluate(ctx, engine, string(content), vars, opts.trace, stdout, stderr)
	default:
		r, err := repl.New(engine, vars, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		r.SetTrace(opts.trace)
		repl.Start(ctx, r, Version)
		return exitOK
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `filt - filter language interpreter version %s

Usage:
  filt [options] [file]
  filt -e "code"
  filt --check <file>...

Options:
  -e, --eval <code>     Evaluate filter code
  --check               Check syntax without evaluating (can specify multiple files)
  --trace               Print the evaluation trace before the result
  --var name=value      Set a variable, value is read as YAML (repeatable)
  --vars <file>         Read variables from a YAML file
  --config <file>       Configuration file (default: $FILTERLANG_CONFIG,
                        ./filterlang.yaml, ~/.config/filterlang/filterlang.yaml)
  -V, --version         Show version information
  -h, --help            Show this help message

Variables given with --var override --vars, which override the
configuration file. All variables are read-only.

Examples:
  filt                                        Start interactive REPL
  filt --vars edit.yaml rule.filt             Evaluate a filter file
  filt -e "1 + 2"                             Evaluate inline code (outputs: 3)
  filt -e "user_name rlike '^bot'" --var user_name=botany
  filt --trace -e "a & b" --var a=false       Show which operands decided the result
  filt --check rules/*.filt                   Check multiple files
`, Version)
}

// parseVar splits name=value. The value is read as a YAML scalar or flow
// collection so numbers, booleans and lists keep their type.
func parseVar(s string) (string, any, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("expected name=value, got %q", s)
	}
	if raw == "" {
		return name, "", nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		// not valid YAML, keep the text
		return name, raw, nil
	}
	if _, isMap := v.(map[string]any); isMap {
		return name, raw, nil
	}
	return name, v, nil
}

// collectVars merges the configured variables, the --vars file and --var
// flags, later sources winning.
func collectVars(base map[string]any, opts *options) (map[string]any, error) {
	vars := maps.Clone(base)
	if vars == nil {
		vars = map[string]any{}
	}
	if opts.varsFile != "" {
		data, err := os.ReadFile(opts.varsFile)
		if err != nil {
			return nil, fmt.Errorf("reading variables: %w", err)
		}
		var fileVars map[string]any
		if err := yaml.Unmarshal(data, &fileVars); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", opts.varsFile, err)
		}
		maps.Copy(vars, fileVars)
	}
	maps.Copy(vars, opts.vars)
	return vars, nil
}

// evaluate runs one filter and prints its value. Errors raised along the way
// go to stderr and make the exit status non-zero.
func evaluate(ctx context.Context, engine *filterlang.Engine, src string, vars map[string]any, trace bool, stdout, stderr io.Writer) int {
	prog, err := engine.Compile(src)
	if err != nil {
		printError(stderr, err, src)
		return exitError
	}
	env, err := filterlang.NewEnvironment(vars, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	res := prog.Eval(ctx, env)
	if trace {
		io.WriteString(stdout, format.Trace(res.Root, res.Trace, res.Env.RootID(), format.Options{Source: src}))
	}
	for _, err := range res.Errors {
		printError(stderr, err, src)
	}
	fmt.Fprintln(stdout, res.Value.Literal())

	if len(res.Errors) > 0 {
		return exitError
	}
	return exitOK
}

// checkFiles checks the syntax of one or more files without evaluating them
func checkFiles(stderr io.Writer, files []string) int {
	sources := make(map[string]string, len(files))
	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
			return exitUsage
		}
		sources[filename] = string(content)
	}
	return checkSources(stderr, sources, files)
}

func checkSources(stderr io.Writer, sources map[string]string, order []string) int {
	code := exitOK
	for _, name := range order {
		src := sources[name]
		if err := filterlang.Check(src); err != nil {
			fmt.Fprintf(stderr, "%s:\n", name)
			printError(stderr, err, src)
			code = exitError
		}
	}
	return code
}

func printError(w io.Writer, err error, src string) {
	fmt.Fprintln(w, errors.From(err).PrettyString(src))
}
