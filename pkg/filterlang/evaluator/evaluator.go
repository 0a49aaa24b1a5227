// Package evaluator walks filter syntax trees.
//
// Most nodes evaluate their children left to right and combine the results
// with the value package. The lazy operators & and | and the conditionals
// decide their result from the first operands they need, then keep
// evaluating the rest in enclosed environments on a separate goroutine so
// that observers can see what the untaken paths would have produced. Node
// failures are recorded in the Trace and turn the node's value into
// Undefined; they never abort the rest of the tree.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sambeau/filterlang/pkg/filterlang/ast"
	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/lexer"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

// Logger receives debug output from the evaluator.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for speculative branches and node errors.
func WithLogger(l Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSpeculation turns evaluation of untaken branches on or off. It is on
// by default.
func WithSpeculation(on bool) Option {
	return func(e *Evaluator) {
		e.speculative = on
	}
}

// WithTrace makes the evaluator record into t instead of a trace of its own.
func WithTrace(t *Trace) Option {
	return func(e *Evaluator) {
		if t != nil {
			e.trace = t
		}
	}
}

// Evaluator evaluates syntax trees against environments. One Evaluator may
// be used for many evaluations, also concurrently.
type Evaluator struct {
	registry    Registry
	trace       *Trace
	logger      Logger
	speculative bool
	pending     sync.WaitGroup
}

// New creates an Evaluator resolving functions through registry.
func New(registry Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry:    registry,
		trace:       NewTrace(),
		logger:      nopLogger{},
		speculative: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Trace returns the trace the evaluator records into.
func (e *Evaluator) Trace() *Trace { return e.trace }

// Registry returns the function registry.
func (e *Evaluator) Registry() Registry { return e.registry }

// Wait blocks until every speculative branch started so far has finished.
func (e *Evaluator) Wait() {
	e.pending.Wait()
}

// Evaluate evaluates node in env and returns its value. Errors raised at
// any node are recorded in the trace under env's root ID; the returned
// value is Undefined where they prevented a result. Speculative branches
// may still be running when Evaluate returns.
func (e *Evaluator) Evaluate(ctx context.Context, node *ast.Node, env *Environment) value.Value {
	return e.eval(ctx, node, env)
}

// eval evaluates one node, recording its value or error.
func (e *Evaluator) eval(ctx context.Context, n *ast.Node, env *Environment) (result value.Value) {
	e.trace.start(n.ID, env)
	defer func() {
		if r := recover(); r != nil {
			e.fail(n, env, errors.New("EVAL-0009", map[string]any{"Message": fmt.Sprint(r)}))
			result = value.Undef()
		}
		e.trace.setValue(n.ID, env, result)
	}()

	if err := ctx.Err(); err != nil {
		e.fail(n, env, err)
		return value.Undef()
	}
	v, err := e.dispatch(ctx, n, env)
	if err != nil {
		e.fail(n, env, err)
		return value.Undef()
	}
	return v
}

func (e *Evaluator) fail(n *ast.Node, env *Environment, err error) {
	fe := errors.From(err)
	if fe.Offset < 0 {
		fe = fe.WithOffset(n.Pos())
	}
	e.trace.addError(n.ID, env, fe)
	e.logger.Debugf("node %d (%s) at %d: %s", n.ID, n.Kind, n.Pos(), fe.Message)
}

// speculate evaluates nodes in order in an environment enclosed by env,
// without blocking the caller.
func (e *Evaluator) speculate(ctx context.Context, env *Environment, nodes ...*ast.Node) {
	if !e.speculative || len(nodes) == 0 {
		return
	}
	child := NewEnclosedEnvironment(env)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		e.logger.Debugf("speculating on %d node(s) from node %d", len(nodes), nodes[0].ID)
		for _, n := range nodes {
			e.eval(ctx, n, child)
		}
		e.logger.Debugf("speculation from node %d finished", nodes[0].ID)
	}()
}

func (e *Evaluator) dispatch(ctx context.Context, n *ast.Node, env *Environment) (value.Value, error) {
	switch n.Kind {
	case ast.Atom:
		return e.evalAtom(n, env)

	case ast.Semicolon:
		result := value.NewNull()
		for _, child := range n.Children {
			result = e.eval(ctx, child, env)
		}
		return result, nil

	case ast.Assignment:
		return e.evalAssignment(ctx, n, env)

	case ast.IndexAssignment, ast.ArrayAppend:
		return e.evalArrayAssignment(ctx, n, env)

	case ast.Conditional:
		return e.evalConditional(ctx, n, env)

	case ast.Logic:
		if n.Op == "&" || n.Op == "|" {
			return e.evalLazyLogic(ctx, n, env), nil
		}
		return value.Logic(n.Op, e.evalChildren(ctx, n.Children, env)...)

	case ast.Compare:
		args := e.evalChildren(ctx, n.Children, env)
		return value.Compare(n.Op, args[0], args[1])

	case ast.ArithmeticAdditive, ast.ArithmeticMultiplicative, ast.Exponentiation:
		args := e.evalChildren(ctx, n.Children, env)
		return value.Arithmetic(n.Op, args[0], args[1])

	case ast.BooleanNegation:
		return value.Not(e.eval(ctx, n.Children[0], env)), nil

	case ast.ArithmeticUnary:
		v := e.eval(ctx, n.Children[0], env)
		if n.Op == "-" {
			return value.Negate(v), nil
		}
		return value.Plus(v), nil

	case ast.KeywordOperator, ast.FunctionCall:
		return e.evalCall(ctx, n, env)

	case ast.ArrayIndexing:
		return e.evalIndexing(ctx, n, env)

	case ast.ArrayDefinition:
		elems := e.evalChildren(ctx, n.Children, env)
		for _, el := range elems {
			if el.IsUndefined() {
				return value.Undef(), nil
			}
		}
		return value.NewArray(elems...), nil
	}
	return value.Undef(), errors.New("EVAL-0010", map[string]any{"Kind": n.Kind.String()})
}

func (e *Evaluator) evalChildren(ctx context.Context, nodes []*ast.Node, env *Environment) []value.Value {
	out := make([]value.Value, len(nodes))
	for i, child := range nodes {
		out[i] = e.eval(ctx, child, env)
	}
	return out
}

func (e *Evaluator) evalAtom(n *ast.Node, env *Environment) (value.Value, error) {
	tok := n.Token
	switch tok.Type {
	case lexer.IDENT:
		return env.GetVariable(tok.Literal), nil
	case lexer.STRING:
		return value.NewString(tok.Literal), nil
	case lexer.INT:
		i, err := tok.IntValue()
		if err != nil {
			return value.Undef(), errors.New("PARSE-0004", map[string]any{"Literal": tok.Literal})
		}
		return value.NewInt(i), nil
	case lexer.FLOAT:
		f, err := tok.FloatValue()
		if err != nil {
			return value.Undef(), errors.New("PARSE-0004", map[string]any{"Literal": tok.Literal})
		}
		return value.NewFloat(f), nil
	case lexer.KEYWORD:
		switch tok.Literal {
		case "true":
			return value.NewBool(true), nil
		case "false":
			return value.NewBool(false), nil
		case "null":
			return value.NewNull(), nil
		}
	}
	return value.Undef(), errors.New("EVAL-0010", map[string]any{"Kind": "atom " + tok.Type.String()})
}

func (e *Evaluator) evalAssignment(ctx context.Context, n *ast.Node, env *Environment) (value.Value, error) {
	target := n.Children[0]
	if !target.IsVariable() {
		return value.Undef(), errors.New("EVAL-0005", nil)
	}
	v := e.eval(ctx, n.Children[1], env)
	if err := env.SetVariable(target.Token.Literal, v); err != nil {
		return value.Undef(), err
	}
	return v, nil
}

// evalArrayAssignment handles both name[index] := v and name[] := v.
func (e *Evaluator) evalArrayAssignment(ctx context.Context, n *ast.Node, env *Environment) (value.Value, error) {
	target := n.Children[0]
	if !target.IsVariable() {
		return value.Undef(), errors.New("EVAL-0005", nil)
	}
	name := target.Token.Literal
	if env.IsReadOnly(name) {
		return value.Undef(), errors.New("EVAL-0006", map[string]any{"Name": name})
	}

	var index value.Value
	if n.Kind == ast.IndexAssignment {
		index = e.eval(ctx, n.Children[1], env)
	}
	v := e.eval(ctx, n.Children[len(n.Children)-1], env)

	array := env.GetVariable(name)
	if array.Kind() != value.Array {
		if array.IsUndefined() && array.VarName() == "" {
			// the array itself is not known yet
			return value.Undef(), nil
		}
		return value.Undef(), errors.New("EVAL-0007", map[string]any{"Name": name})
	}

	if n.Kind == ast.ArrayAppend {
		return v, env.SetVariable(name, array.Append(v))
	}

	if index.IsUndefined() {
		// which element changes is unknown, so the whole array is
		return v, env.SetVariable(name, value.Undef())
	}
	i := index.Int()
	updated, ok := array.WithIndex(int(i), v)
	if !ok || int64(int(i)) != i {
		return value.Undef(), errors.New("EVAL-0003", map[string]any{"Index": i, "Length": array.Len()})
	}
	return v, env.SetVariable(name, updated)
}

func (e *Evaluator) evalIndexing(ctx context.Context, n *ast.Node, env *Environment) (value.Value, error) {
	array := e.eval(ctx, n.Children[0], env)
	index := e.eval(ctx, n.Children[1], env)
	if array.IsUndefined() || index.IsUndefined() {
		return value.Undef(), nil
	}
	if array.Kind() != value.Array {
		return value.Undef(), errors.New("EVAL-0004", map[string]any{"Type": array.Kind().String()})
	}
	i := index.Int()
	elem, ok := array.Index(int(i))
	if !ok || int64(int(i)) != i {
		return value.Undef(), errors.New("EVAL-0003", map[string]any{"Index": i, "Length": array.Len()})
	}
	return elem, nil
}

func (e *Evaluator) evalCall(ctx context.Context, n *ast.Node, env *Environment) (value.Value, error) {
	args := e.evalChildren(ctx, n.Children, env)
	name := strings.ToLower(n.Op)
	fn, ok := e.registry.Lookup(name)
	if !ok {
		return value.Undef(), errors.NewUnknownFunction(name, n.Pos(), e.registry.Names())
	}
	return fn(ctx, env, args)
}

// evalLazyLogic evaluates & and |. The first operand before the last whose
// truthiness differs from the operator's neutral element decides the result
// and is returned as it is; the operands after it are evaluated
// speculatively. Without such an operand the result is the boolean value of
// the last operand, or Undefined when an earlier operand was Undefined and
// the last one would not have decided the result either.
func (e *Evaluator) evalLazyLogic(ctx context.Context, n *ast.Node, env *Environment) value.Value {
	neutral := n.Op == "&"
	sawUndefined := false
	last := len(n.Children) - 1

	for i, child := range n.Children {
		v := e.eval(ctx, child, env)
		if i == last {
			if v.IsUndefined() || (sawUndefined && v.Truthy() == neutral) {
				return value.Undef()
			}
			return v.AsBoolean()
		}
		if v.IsUndefined() {
			sawUndefined = true
			continue
		}
		if v.Truthy() != neutral {
			e.speculate(ctx, env, n.Children[i+1:]...)
			return v
		}
	}
	return value.NewBool(neutral)
}

// evalConditional takes one branch in env and speculates on the other. An
// Undefined condition takes neither branch.
func (e *Evaluator) evalConditional(ctx context.Context, n *ast.Node, env *Environment) (value.Value, error) {
	cond := e.eval(ctx, n.Children[0], env)
	then := n.Children[1]
	var otherwise *ast.Node
	if len(n.Children) > 2 {
		otherwise = n.Children[2]
	}

	switch {
	case cond.IsUndefined():
		e.speculate(ctx, env, then)
		if otherwise != nil {
			e.speculate(ctx, env, otherwise)
		}
		return value.Undef(), nil
	case cond.Truthy():
		if otherwise != nil {
			e.speculate(ctx, env, otherwise)
		}
		return e.eval(ctx, then, env), nil
	default:
		e.speculate(ctx, env, then)
		if otherwise == nil {
			return value.NewNull(), nil
		}
		return e.eval(ctx, otherwise, env), nil
	}
}
