package lexer

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

func TestTokenize(t *testing.T) {
	input := `user_name := "Foo"; /* note */
if IN_group then x[0] else [1, 2.5] end;
a !== b ** 2 <= 0x1F | ! c`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{IDENT, "user_name"},
		{OPERATOR, ":="},
		{STRING, "Foo"},
		{SEMICOLON, ";"},
		{KEYWORD, "if"},
		{IDENT, "IN_group"},
		{KEYWORD, "then"},
		{IDENT, "x"},
		{SQUARE_BRACKET, "["},
		{INT, "0"},
		{SQUARE_BRACKET, "]"},
		{KEYWORD, "else"},
		{SQUARE_BRACKET, "["},
		{INT, "1"},
		{COMMA, ","},
		{FLOAT, "2.5"},
		{SQUARE_BRACKET, "]"},
		{KEYWORD, "end"},
		{SEMICOLON, ";"},
		{IDENT, "a"},
		{OPERATOR, "!=="},
		{IDENT, "b"},
		{OPERATOR, "**"},
		{INT, "2"},
		{OPERATOR, "<="},
		{INT, "0x1F"},
		{OPERATOR, "|"},
		{OPERATOR, "!"},
		{IDENT, "c"},
		{EOF, ""},
	}

	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(tokens) != len(tests) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(tests), tokens)
	}
	for i, tt := range tests {
		tok := tokens[i]
		if tok.Type != tt.expectedType {
			t.Errorf("tests[%d] - tokentype wrong. expected=%s, got=%s", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Errorf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestTrueAndFalse(t *testing.T) {
	tokens, err := Tokenize("true & false")
	if err != nil {
		t.Fatal(err)
	}
	want := []Token{
		{Type: KEYWORD, Literal: "true", Offset: 0, Length: 4},
		{Type: OPERATOR, Literal: "&", Offset: 5, Length: 1},
		{Type: KEYWORD, Literal: "false", Offset: 7, Length: 5},
		{Type: EOF, Offset: 12},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, tokens[i], want[i])
		}
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	tokens, err := Tokenize("TRUE Like RLIKE")
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"true", "like", "rlike"} {
		if !tokens[i].Is(KEYWORD, want) {
			t.Errorf("token %d = %v, want keyword %q", i, tokens[i], want)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"cr\r"`, "cr\r"},
		{`"back\\slash"`, `back\slash`},
		{`"say \"hi\""`, `say "hi"`},
		{`'it\'s'`, "it's"},
		{`'keep \" as is'`, `keep \" as is`},
		{`"\x41\x62"`, "Ab"},
		{`"\xe9"`, "é"},
		{`"\xZZ"`, `\xZZ`},
		{`"\x4"`, `\x4`},
		{`"unknown \d"`, `unknown \d`},
		{`""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%s) error = %v", tt.input, err)
			}
			if tokens[0].Type != STRING {
				t.Fatalf("type = %s, want STRING", tokens[0].Type)
			}
			if tokens[0].Literal != tt.expected {
				t.Errorf("literal = %q, want %q", tokens[0].Literal, tt.expected)
			}
			if tokens[0].Length != len(tt.input) {
				t.Errorf("length = %d, want raw length %d", tokens[0].Length, len(tt.input))
			}
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input    string
		typ      TokenType
		intVal   int64
		floatVal float64
	}{
		{"42", INT, 42, 42},
		{"0x1f", INT, 31, 31},
		{"0b101", INT, 5, 5},
		{"0o17", INT, 15, 15},
		{"3.25", FLOAT, 0, 3.25},
		{"1.", FLOAT, 0, 1},
		{".5", FLOAT, 0, 0.5},
		{"99999999999999999999", FLOAT, 0, 1e20},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			tok := tokens[0]
			if tok.Type != tt.typ {
				t.Fatalf("type = %s, want %s", tok.Type, tt.typ)
			}
			if tt.typ == INT {
				n, err := tok.IntValue()
				if err != nil || n != tt.intVal {
					t.Errorf("IntValue() = %d, %v, want %d", n, err, tt.intVal)
				}
			}
			f, err := tok.FloatValue()
			if err != nil || f != tt.floatVal {
				t.Errorf("FloatValue() = %v, %v, want %v", f, err, tt.floatVal)
			}
		})
	}
}

func TestNumberLikeIdentifiers(t *testing.T) {
	for _, input := range []string{"0xZZ", "1e5", "2nd"} {
		tokens, err := Tokenize(input)
		if err != nil {
			t.Fatalf("Tokenize(%q) error = %v", input, err)
		}
		if tokens[0].Type != IDENT || tokens[0].Literal != input {
			t.Errorf("Tokenize(%q)[0] = %v, want a single identifier", input, tokens[0])
		}
	}
}

func TestOffsetsSliceSource(t *testing.T) {
	input := "a:= 'x\\ty' /* c */ + lcase( \"Q\" )"
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatal(err)
	}
	var parts []string
	for _, tok := range tokens {
		if tok.Type == EOF {
			if tok.Offset != len(input) {
				t.Errorf("EOF offset = %d, want %d", tok.Offset, len(input))
			}
			continue
		}
		parts = append(parts, input[tok.Offset:tok.Offset+tok.Length])
	}
	got := strings.Join(parts, " ")
	want := `a := 'x\ty' + lcase ( "Q" )`
	if got != want {
		t.Errorf("re-joined source = %q, want %q", got, want)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input  string
		code   string
		offset int
	}{
		{"1 /* never closed", "LEX-0001", 2},
		{`"open`, "LEX-0002", 0},
		{`x := 'trailing\`, "LEX-0002", 5},
		{"a # b", "LEX-0003", 2},
		{"é", "LEX-0003", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			var fe *errors.FilterError
			if !stderrors.As(err, &fe) {
				t.Fatalf("error %T is not a FilterError", err)
			}
			if fe.Code != tt.code || fe.Offset != tt.offset {
				t.Errorf("got %s at %d, want %s at %d", fe.Code, fe.Offset, tt.code, tt.offset)
			}
			if !stderrors.Is(err, errors.ErrLex) {
				t.Error("lex errors should match errors.ErrLex")
			}
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "/* only a comment */"} {
		tokens, err := Tokenize(input)
		if err != nil {
			t.Fatal(err)
		}
		if len(tokens) != 1 || tokens[0].Type != EOF {
			t.Errorf("Tokenize(%q) = %v, want a lone EOF", input, tokens)
		}
	}
}
