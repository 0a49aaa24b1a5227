package parser

import (
	stderrors "errors"
	"testing"

	"github.com/sambeau/filterlang/pkg/filterlang/ast"
	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/lexer"
)

func mustParse(t *testing.T, input string, opts ...Option) *ast.Node {
	t.Helper()
	root, err := ParseString(input, opts...)
	if err != nil {
		t.Fatalf("ParseString(%q) error = %v", input, err)
	}
	return root
}

func TestTrueAndFalse(t *testing.T) {
	root := mustParse(t, "true & false")
	if root.Kind != ast.Logic || root.Op != "&" {
		t.Fatalf("root = %s %q, want Logic &", root.Kind, root.Op)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	for i, want := range []string{"true", "false"} {
		c := root.Children[i]
		if c.Kind != ast.Atom || c.Token.Literal != want {
			t.Errorf("child %d = %s %q, want Atom %q", i, c.Kind, c.Token.Literal, want)
		}
	}
	if root.Pos() != 5 {
		t.Errorf("Pos() = %d, want 5", root.Pos())
	}
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"a - b - c", "((a - b) - c)"},
		{"2 ** 3 ** 2", "((2 ** 3) ** 2)"},
		{"-2 ** 2", "(-2 ** 2)"},
		{"a & b | c", "((a & b) | c)"},
		{"a | b ^ c", "((a | b) ^ c)"},
		{"a = 1 & b", "((a = 1) & b)"},
		{"a < b == c", "((a < b) == c)"},
		{"a == b < c", "((a == b) < c)"},
		{"!a & b", "(!a & b)"},
		{"!!a", "!!a"},
		{"!a in b", "!(a in b)"},
		{"x contains 'y' & z", "((x contains \"y\") & z)"},
		{"-a[0]", "-a[0]"},
		{"a[0][1]", "a[0][1]"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"lcase(a) + 'x'", "(lcase(a) + \"x\")"},
		{"f(a, b; c)", "f(a, b; c)"},
		{"[1, 'a', [2]]", "[1, \"a\", [2]]"},
		{"[1, 2,]", "[1, 2]"},
		{"[]", "[]"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"if a then b else c end", "if a then b else c end"},
		{"if a then b end", "if a then b end"},
		{"if a then x := 1; y := 2 else z end", "if a then x := 1; y := 2 else z end"},
		{"x := y := 3", "x := y := 3"},
		{"x[1] := 2", "x[1] := 2"},
		{"x[] := 'v'", "x[] := \"v\""},
		{"x[1] == 2", "(x[1] == 2)"},
		{"a; b; c", "a; b; c"},
		{";; a ;", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root := mustParse(t, tt.input)
			if got := root.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAssignmentShapes(t *testing.T) {
	tests := []struct {
		input    string
		kind     ast.Kind
		children int
	}{
		{"x := 1", ast.Assignment, 2},
		{"x[0] := 1", ast.IndexAssignment, 3},
		{"x[] := 1", ast.ArrayAppend, 2},
	}
	for _, tt := range tests {
		root := mustParse(t, tt.input)
		if root.Kind != tt.kind || len(root.Children) != tt.children {
			t.Errorf("%q parsed to %s with %d children", tt.input, root.Kind, len(root.Children))
			continue
		}
		if !root.Children[0].IsVariable() || root.Children[0].Token.Literal != "x" {
			t.Errorf("%q target = %v", tt.input, root.Children[0].Token)
		}
	}
}

func TestEmptyProgram(t *testing.T) {
	for _, input := range []string{"", "  ", ";", "/* nothing */"} {
		root := mustParse(t, input)
		if root.Kind != ast.Atom || !root.Token.Is(lexer.KEYWORD, "null") {
			t.Errorf("ParseString(%q) = %s %v, want null atom", input, root.Kind, root.Token)
		}
	}
}

func TestSemicolonOnlyWithTwoStatements(t *testing.T) {
	root := mustParse(t, "a;")
	if root.Kind != ast.Atom {
		t.Errorf("single statement should not be wrapped, got %s", root.Kind)
	}
	root = mustParse(t, "a; b")
	if root.Kind != ast.Semicolon || len(root.Children) != 2 {
		t.Errorf("got %s with %d children", root.Kind, len(root.Children))
	}
}

func TestFunctionCalls(t *testing.T) {
	root := mustParse(t, "contains_any(a, 'x', 'y')")
	if root.Kind != ast.FunctionCall || root.Op != "contains_any" || len(root.Children) != 3 {
		t.Fatalf("got %s %q with %d args", root.Kind, root.Op, len(root.Children))
	}

	root = mustParse(t, "f(a, , b)")
	if len(root.Children) != 2 {
		t.Errorf("empty arguments should be dropped, got %d args", len(root.Children))
	}

	root = mustParse(t, "now()")
	if root.Kind != ast.FunctionCall || len(root.Children) != 0 {
		t.Errorf("now() = %s with %d args", root.Kind, len(root.Children))
	}
}

func TestVariadicOption(t *testing.T) {
	isVariadic := func(name string) bool { return name == "contains_any" }

	if _, err := ParseString("contains_any(a, , 'b')", WithVariadic(isVariadic)); err != nil {
		t.Errorf("variadic call should accept empty arguments: %v", err)
	}

	_, err := ParseString("lcase(a, )", WithVariadic(isVariadic))
	var fe *errors.FilterError
	if !stderrors.As(err, &fe) || fe.Code != "PARSE-0005" {
		t.Errorf("non-variadic empty argument error = %v, want PARSE-0005", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		code   string
		offset int
	}{
		{"a < b < c", "PARSE-0002", 6},
		{"()", "PARSE-0002", 1},
		{"(1 + 2", "PARSE-0001", 6},
		{"1 +", "PARSE-0001", 3},
		{"a b", "PARSE-0002", 2},
		{"then", "PARSE-0003", 0},
		{"if a b end", "PARSE-0001", 5},
		{"if a then b", "PARSE-0001", 11},
		{"a ? b", "PARSE-0001", 5},
		{"[1 2]", "PARSE-0001", 3},
		{"a[]", "PARSE-0002", 2},
		{"f(a", "PARSE-0001", 3},
		{")", "PARSE-0002", 0},
		{"x[1 := 2", "PARSE-0001", 4},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseString(tt.input)
			if err == nil {
				t.Fatal("expected a parse error")
			}
			var fe *errors.FilterError
			if !stderrors.As(err, &fe) {
				t.Fatalf("error %T is not a FilterError", err)
			}
			if fe.Code != tt.code || fe.Offset != tt.offset {
				t.Errorf("got %s at %d (%s), want %s at %d", fe.Code, fe.Offset, fe.Message, tt.code, tt.offset)
			}
			if !stderrors.Is(err, errors.ErrParse) {
				t.Error("parse errors should match errors.ErrParse")
			}
		})
	}
}

func TestLexErrorsPassThrough(t *testing.T) {
	_, err := ParseString(`"unterminated`)
	if !stderrors.Is(err, errors.ErrLex) {
		t.Errorf("error = %v, want a lex error", err)
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	root := mustParse(t, "x[0] == 1 & f(a, [b, c]) ? d : -e")
	seen := map[int]bool{}
	ast.Walk(root, func(n *ast.Node) bool {
		if seen[n.ID] {
			t.Errorf("duplicate node id %d", n.ID)
		}
		seen[n.ID] = true
		return true
	})
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"a := 'it\\'s'; b := a + \"\\n\"; a in b",
		"if x > 1 then y := [1, 2.5, true, null] else y[] := 3 end",
		"!(a & b) | c ^ d ** 2 % 3",
		"v irlike 'ab+c' ? count('a', v) : -1",
	}
	for _, input := range inputs {
		first := mustParse(t, input)
		second := mustParse(t, first.String())
		if first.String() != second.String() {
			t.Errorf("round trip changed shape:\n%s\n%s", first, second)
		}
	}
}

func TestReservedWordsAsKeywordOperators(t *testing.T) {
	for _, op := range []string{"in", "like", "matches", "contains", "rlike", "irlike", "regex"} {
		root := mustParse(t, "a "+op+" b")
		if root.Kind != ast.KeywordOperator || root.Op != op {
			t.Errorf("%s parsed to %s %q", op, root.Kind, root.Op)
		}
	}
}
