// Package filterlang provides a public API for embedding the filter language.
//
// An Engine compiles filter source into Programs and evaluates them against
// environments of variables:
//
//	engine := filterlang.New()
//	prog, err := engine.Compile(`user_name rlike "^bot" & edit_count < 5`)
//	if err != nil {
//		return err
//	}
//	env, err := filterlang.NewEnvironment(vars, true)
//	if err != nil {
//		return err
//	}
//	res := prog.Eval(ctx, env)
//
// Evaluation never fails as a whole: errors are recorded against the nodes
// that raised them and are listed in the Result.
package filterlang

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/sambeau/filterlang/pkg/filterlang/ast"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/functions"
	"github.com/sambeau/filterlang/pkg/filterlang/parser"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// variadicRegistry is implemented by registries that can tell the parser
// which functions accept empty arguments.
type variadicRegistry interface {
	IsVariadic(name string) bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the function registry. The default is functions.New().
func WithRegistry(r evaluator.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSpeculation turns evaluation of untaken branches on or off.
func WithSpeculation(on bool) Option {
	return func(e *Engine) {
		e.speculative = on
	}
}

// WithFlatten makes Compile merge chains of the same lazy operator into a
// single node.
func WithFlatten(on bool) Option {
	return func(e *Engine) {
		e.flatten = on
	}
}

// WithTrace makes every evaluation record into t, each under the ID of its
// root environment. By default each evaluation gets a trace of its own.
func WithTrace(t *evaluator.Trace) Option {
	return func(e *Engine) {
		e.trace = t
	}
}

// WithKeepTrace controls whether Results carry the trace. When off, the
// entries of an evaluation are dropped once its errors are collected and
// Result.Trace is nil. It is on by default.
func WithKeepTrace(on bool) Option {
	return func(e *Engine) {
		e.keepTrace = on
	}
}

// Engine compiles and evaluates filters. It is safe for concurrent use.
type Engine struct {
	registry    evaluator.Registry
	logger      Logger
	trace       *evaluator.Trace
	speculative bool
	flatten     bool
	keepTrace   bool
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:      NopLogger(),
		speculative: true,
		keepTrace:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = functions.New()
	}
	return e
}

// Registry returns the function registry.
func (e *Engine) Registry() evaluator.Registry { return e.registry }

// Logger returns the engine's logger.
func (e *Engine) Logger() Logger { return e.logger }

func (e *Engine) parse(src string) (*ast.Node, error) {
	var opts []parser.Option
	if v, ok := e.registry.(variadicRegistry); ok {
		// names the registry does not know are left to the evaluator's
		// unknown-function error
		opts = append(opts, parser.WithVariadic(func(name string) bool {
			if _, known := e.registry.Lookup(name); !known {
				return true
			}
			return v.IsVariadic(name)
		}))
	}
	return parser.ParseString(src, opts...)
}

// Check reports the first lexical or syntax error in src, or nil.
func (e *Engine) Check(src string) error {
	_, err := e.parse(src)
	return err
}

// Compile parses src into a Program.
func (e *Engine) Compile(src string) (*Program, error) {
	root, err := e.parse(src)
	if err != nil {
		return nil, err
	}
	if e.flatten {
		root = ast.Flatten(root)
	}
	return &Program{engine: e, source: src, root: root}, nil
}

// Program is a compiled filter. A Program may be evaluated many times, also
// concurrently.
type Program struct {
	engine *Engine
	source string
	root   *ast.Node
}

// Source returns the filter source.
func (p *Program) Source() string { return p.source }

// Root returns the syntax tree.
func (p *Program) Root() *ast.Node { return p.root }

// Result is the outcome of evaluating a Program.
type Result struct {
	// Value is the value of the filter; Undefined when it could not be
	// determined.
	Value value.Value
	// Errors are the errors raised outside speculative branches, in node
	// order.
	Errors []error
	// Trace holds the value and errors of every evaluated node, including
	// speculative ones. It is nil when the engine does not keep traces.
	Trace *evaluator.Trace
	// Env is the environment the filter ran in, with its assignments.
	Env  *evaluator.Environment
	Root *ast.Node
}

// Matched reports whether the filter produced a truthy, defined value.
func (r *Result) Matched() bool {
	return !r.Value.IsUndefined() && r.Value.Truthy()
}

// Err joins Errors, or returns nil when there are none.
func (r *Result) Err() error {
	return stderrors.Join(r.Errors...)
}

// Eval runs the program in env and waits for speculative branches to
// finish. A nil env is replaced by an empty environment.
func (p *Program) Eval(ctx context.Context, env *evaluator.Environment) *Result {
	if env == nil {
		env = evaluator.NewEnvironment()
	}
	ev := evaluator.New(
		p.engine.registry,
		evaluator.WithLogger(p.engine.logger),
		evaluator.WithSpeculation(p.engine.speculative),
		evaluator.WithTrace(p.engine.trace),
	)
	v := ev.Evaluate(ctx, p.root, env)
	ev.Wait()

	trace := ev.Trace()
	res := &Result{
		Value:  v,
		Errors: trace.AllErrors(env.RootID(), false),
		Trace:  trace,
		Env:    env,
		Root:   p.root,
	}
	if !p.engine.keepTrace {
		trace.Forget(env.RootID())
		res.Trace = nil
	}
	for _, err := range res.Errors {
		p.engine.logger.Debugf("evaluation error: %v", err)
	}
	return res
}

// Eval compiles and runs src with vars bound read-only.
func (e *Engine) Eval(ctx context.Context, src string, vars map[string]any) (*Result, error) {
	prog, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	env, err := NewEnvironment(vars, true)
	if err != nil {
		return nil, err
	}
	return prog.Eval(ctx, env), nil
}

// NewEnvironment creates an environment holding vars, converted with
// value.FromNative. With readOnly set the filter cannot reassign them.
func NewEnvironment(vars map[string]any, readOnly bool) (*evaluator.Environment, error) {
	env := evaluator.NewEnvironment()
	for name, raw := range vars {
		v, err := value.FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		if readOnly {
			env.SetReadOnly(name, v)
		} else if err := env.SetVariable(name, v); err != nil {
			return nil, err
		}
	}
	return env, nil
}

var defaultEngine = sync.OnceValue(func() *Engine { return New() })

// Compile parses src with the default engine.
func Compile(src string) (*Program, error) {
	return defaultEngine().Compile(src)
}

// Check checks src with the default engine.
func Check(src string) error {
	return defaultEngine().Check(src)
}

// Eval compiles and runs src with the default engine.
func Eval(ctx context.Context, src string, vars map[string]any) (*Result, error) {
	return defaultEngine().Eval(ctx, src, vars)
}
