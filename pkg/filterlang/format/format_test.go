package format

import (
	"context"
	"strings"
	"testing"

	"github.com/sambeau/filterlang/pkg/filterlang/ast"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/parser"
)

func evaluate(t *testing.T, src string) (*ast.Node, *evaluator.Evaluator, *evaluator.Environment) {
	t.Helper()
	root, err := parser.ParseString(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	env := evaluator.NewEnvironment()
	ev := evaluator.New(evaluator.Functions{})
	ev.Evaluate(context.Background(), root, env)
	ev.Wait()
	return root, ev, env
}

func TestTrace(t *testing.T) {
	root, ev, env := evaluate(t, "1 + 2")
	out := Trace(root, ev.Trace(), env.RootID(), Options{})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "ArithmeticAdditive +") || !strings.HasSuffix(lines[0], "=> 3") {
		t.Errorf("root line = %q", lines[0])
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, IndentString+"#") || !strings.Contains(line, "Atom") {
			t.Errorf("child line = %q", line)
		}
	}
}

func TestTraceErrors(t *testing.T) {
	src := "x := 1;\n5 / 0"
	root, ev, env := evaluate(t, src)

	out := Trace(root, ev.Trace(), env.RootID(), Options{Source: src})
	if !strings.Contains(out, ErrorMarker+" 2:3: division by zero") {
		t.Errorf("missing positioned error:\n%s", out)
	}

	out = Trace(root, ev.Trace(), env.RootID(), Options{})
	if !strings.Contains(out, ErrorMarker+" offset 10: division by zero") {
		t.Errorf("missing offset error:\n%s", out)
	}
}

func TestTraceSpeculative(t *testing.T) {
	root, ev, env := evaluate(t, "false & 'a' = 'a'")

	out := Trace(root, ev.Trace(), env.RootID(), Options{})
	if !strings.Contains(out, SpeculativeMarker+"#") {
		t.Errorf("no speculative marker:\n%s", out)
	}

	out = Trace(root, ev.Trace(), env.RootID(), Options{HideSpeculative: true})
	if strings.Contains(out, SpeculativeMarker+"#") || !strings.Contains(out, "(not evaluated)") {
		t.Errorf("speculative values shown:\n%s", out)
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("a  b\n c", 20); got != "a b c" {
		t.Errorf("shorten collapsed to %q", got)
	}
	long := strings.Repeat("x", 40)
	got := shorten(long, 20)
	if len([]rune(got)) != 20 || !strings.HasSuffix(got, Ellipsis) {
		t.Errorf("shorten(%d chars) = %q", len(long), got)
	}
}
