// Package repl implements the interactive filter prompt.
package repl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/filterlang"
	"github.com/sambeau/filterlang/pkg/filterlang/format"
	"github.com/sambeau/filterlang/pkg/filterlang/lexer"
)

const PROMPT = ">> "
const PROMPT_TRACE = "~> "
const CONTINUATION_PROMPT = ".. "

// REPL holds the state of one interactive session. Variables assigned by
// one input stay visible to the next.
type REPL struct {
	engine *filterlang.Engine
	env    *evaluator.Environment
	preset map[string]any
	out    io.Writer
	trace  bool
	buf    strings.Builder
}

// New creates a session evaluating with engine. vars are bound read-only
// and survive :clear.
func New(engine *filterlang.Engine, vars map[string]any, out io.Writer) (*REPL, error) {
	env, err := filterlang.NewEnvironment(vars, true)
	if err != nil {
		return nil, err
	}
	return &REPL{
		engine: engine,
		env:    env,
		preset: vars,
		out:    out,
	}, nil
}

// SetTrace turns printing of the evaluation trace on or off.
func (r *REPL) SetTrace(on bool) { r.trace = on }

// Prompt returns the prompt for the next line.
func (r *REPL) Prompt() string {
	switch {
	case r.buf.Len() > 0:
		return CONTINUATION_PROMPT
	case r.trace:
		return PROMPT_TRACE
	}
	return PROMPT
}

// Reset drops any partially entered input.
func (r *REPL) Reset() { r.buf.Reset() }

// Feed handles one line of input. It returns the complete input that was
// evaluated (empty while more lines are needed) and whether the session
// should end.
func (r *REPL) Feed(ctx context.Context, input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if r.buf.Len() == 0 {
		switch {
		case trimmed == "exit" || trimmed == "quit":
			fmt.Fprintln(r.out, "Goodbye!")
			return "", true
		case strings.HasPrefix(trimmed, ":"):
			r.command(trimmed)
			return "", false
		case trimmed == "":
			return "", false
		}
	}

	if r.buf.Len() > 0 {
		r.buf.WriteString("\n")
	}
	r.buf.WriteString(input)
	full := r.buf.String()
	if needsMoreInput(full) {
		return "", false
	}
	r.buf.Reset()
	r.eval(ctx, full)
	return full, false
}

func (r *REPL) eval(ctx context.Context, src string) {
	prog, err := r.engine.Compile(src)
	if err != nil {
		printError(r.out, err, src)
		return
	}
	res := prog.Eval(ctx, r.env)
	if r.trace {
		io.WriteString(r.out, format.Trace(res.Root, res.Trace, res.Env.RootID(), format.Options{Source: src}))
	} else {
		for _, err := range res.Errors {
			printError(r.out, err, src)
		}
	}
	fmt.Fprintln(r.out, res.Value.Literal())
}

// command handles REPL meta-commands that start with ':'
func (r *REPL) command(cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(r.out, "  :env            Show variables in scope")
		fmt.Fprintln(r.out, "  :clear          Forget assigned variables")
		fmt.Fprintln(r.out, "  :trace          Toggle printing the evaluation trace")
		fmt.Fprintln(r.out, "  :funcs          List the built-in functions")
		fmt.Fprintln(r.out, "  exit, quit      Exit the REPL")

	case ":env":
		r.printEnvironment()

	case ":clear":
		// preset converted cleanly in New
		r.env, _ = filterlang.NewEnvironment(r.preset, true)
		fmt.Fprintln(r.out, "Environment cleared")

	case ":trace":
		r.trace = !r.trace
		if r.trace {
			fmt.Fprintln(r.out, "Trace ON")
		} else {
			fmt.Fprintln(r.out, "Trace OFF")
		}

	case ":funcs":
		fmt.Fprintln(r.out, strings.Join(r.engine.Registry().Names(), " "))

	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// printEnvironment displays all variables in the environment
func (r *REPL) printEnvironment() {
	names := r.env.Variables()
	if len(names) == 0 {
		fmt.Fprintln(r.out, "(no variables)")
		return
	}
	for _, name := range names {
		v := r.env.GetVariable(name)
		lit := v.Literal()
		if len(lit) > 60 {
			// Truncate long values
			lit = lit[:57] + "..."
		}
		suffix := ""
		if r.env.IsReadOnly(name) {
			suffix = " (read-only)"
		}
		fmt.Fprintf(r.out, "  %s: %s = %s%s\n", name, v.Kind(), lit, suffix)
	}
}

// Start runs an interactive session on the terminal with line editing,
// history and tab completion.
func Start(ctx context.Context, r *REPL, version string) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	completions := append(r.engine.Registry().Names(), keywords()...)
	line.SetCompleter(func(line string) []string {
		return filterCompletions(line, completions)
	})

	// Load command history from file
	historyFile := filepath.Join(os.TempDir(), ".filt_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history on exit
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(r.out, "filt", version)
	fmt.Fprintln(r.out, "Type 'exit' or Ctrl+D to quit, ':help' for commands")
	fmt.Fprintln(r.out, "")

	for {
		input, err := line.Prompt(r.Prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				fmt.Fprintln(r.out, "^C")
				r.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(r.out, "Error reading input: %v\n", err)
			continue
		}

		full, done := r.Feed(ctx, input)
		if done {
			return
		}
		if full != "" {
			line.AppendHistory(full)
		}
	}
}

func keywords() []string {
	return slices.Sorted(maps.Keys(lexer.Keywords))
}

// filterCompletions returns completion suggestions for the last word typed
func filterCompletions(line string, words []string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	// Don't complete if line ends with whitespace
	if last := line[len(line)-1]; last == ' ' || last == '\t' {
		return nil
	}

	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) + 1
	prefix, word := line[:start], strings.ToLower(line[start:])
	if word == "" {
		return nil
	}

	var matches []string
	for _, w := range words {
		if strings.HasPrefix(w, word) {
			matches = append(matches, prefix+w)
		}
	}
	return matches
}

// needsMoreInput reports whether input ends inside a string or comment or
// has unclosed brackets or if blocks.
func needsMoreInput(input string) bool {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		var fe *errors.FilterError
		return stderrors.As(err, &fe) && (fe.Code == "LEX-0001" || fe.Code == "LEX-0002")
	}
	depth, blocks := 0, 0
	for _, tok := range tokens {
		switch {
		case tok.Is(lexer.PAREN, "("), tok.Is(lexer.SQUARE_BRACKET, "["):
			depth++
		case tok.Is(lexer.PAREN, ")"), tok.Is(lexer.SQUARE_BRACKET, "]"):
			depth--
		case tok.Is(lexer.KEYWORD, "if"):
			blocks++
		case tok.Is(lexer.KEYWORD, "end"):
			blocks--
		}
	}
	return depth > 0 || blocks > 0
}

func printError(out io.Writer, err error, src string) {
	io.WriteString(out, errors.From(err).PrettyString(src))
	io.WriteString(out, "\n")
}
