package lexer

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

// TokenType represents the kind of a token
type TokenType int

const (
	EOF TokenType = iota

	IDENT   // foo, user_name
	KEYWORD // in, like, if, true, ...
	STRING  // "foo" or 'foo'
	INT     // 12, 0x1f, 0b101, 0o17
	FLOAT   // 1.5

	OPERATOR       // + - * / ** := == ...
	PAREN          // ( )
	SQUARE_BRACKET // [ ]
	COMMA          // ,
	SEMICOLON      // ;
)

var tokenTypeNames = map[TokenType]string{
	EOF:            "EOF",
	IDENT:          "IDENT",
	KEYWORD:        "KEYWORD",
	STRING:         "STRING",
	INT:            "INT",
	FLOAT:          "FLOAT",
	OPERATOR:       "OPERATOR",
	PAREN:          "PAREN",
	SQUARE_BRACKET: "SQUARE_BRACKET",
	COMMA:          "COMMA",
	SEMICOLON:      "SEMICOLON",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenTypeNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexeme. Offset and Length describe the raw source span,
// so input[Offset:Offset+Length] is always the exact text the token came from.
// Literal holds the decoded string for STRING tokens and the lower-cased word
// for KEYWORD tokens.
type Token struct {
	Type    TokenType
	Literal string
	Offset  int
	Length  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Offset: %d, Length: %d}",
		t.Type, t.Literal, t.Offset, t.Length)
}

// Is reports whether the token has the given type and literal.
func (t Token) Is(tt TokenType, literal string) bool {
	return t.Type == tt && t.Literal == literal
}

// IntValue returns the value of an INT token, honouring base prefixes.
func (t Token) IntValue() (int64, error) {
	digits, base := splitBase(t.Literal)
	return strconv.ParseInt(digits, base, 64)
}

// FloatValue returns the value of a FLOAT or INT token as a float64. Based
// integer literals too large for int64 are converted through math/big.
func (t Token) FloatValue() (float64, error) {
	digits, base := splitBase(t.Literal)
	if base == 10 {
		return strconv.ParseFloat(digits, 64)
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0, fmt.Errorf("invalid number %q", t.Literal)
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f, nil
}

func splitBase(lit string) (string, int) {
	if len(lit) > 2 && lit[0] == '0' {
		switch lit[1] {
		case 'x', 'X':
			return lit[2:], 16
		case 'b', 'B':
			return lit[2:], 2
		case 'o', 'O':
			return lit[2:], 8
		}
	}
	return lit, 10
}

// Keywords is the reserved-word set. Matching is case-insensitive.
var Keywords = map[string]bool{
	"in":       true,
	"like":     true,
	"true":     true,
	"false":    true,
	"null":     true,
	"contains": true,
	"matches":  true,
	"rlike":    true,
	"irlike":   true,
	"regex":    true,
	"if":       true,
	"then":     true,
	"else":     true,
	"end":      true,
}

// operators ordered so that the first prefix match is the longest one
var operators = []string{
	"!==", "===",
	"!=", "**", ":=", "<=", ">=", "==",
	"!", "*", "/", "+", "-", "%", "&", "|", "^", "?", ":", "<", ">", "=",
}

var punctuation = map[byte]TokenType{
	'(': PAREN,
	')': PAREN,
	'[': SQUARE_BRACKET,
	']': SQUARE_BRACKET,
	',': COMMA,
	';': SEMICOLON,
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input    string
	position int
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize lexes the whole input. The result always ends with exactly one EOF
// token. Lex errors are fatal and returned as *errors.FilterError.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token. After EOF has been returned, further
// calls keep returning EOF.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}
	start := l.position
	if start >= len(l.input) {
		return Token{Type: EOF, Offset: len(l.input)}, nil
	}

	ch := l.input[start]

	if tt, ok := punctuation[ch]; ok {
		l.position++
		return Token{Type: tt, Literal: string(ch), Offset: start, Length: 1}, nil
	}

	if ch == '"' || ch == '\'' {
		return l.readString(ch)
	}

	for _, op := range operators {
		if strings.HasPrefix(l.input[start:], op) {
			l.position += len(op)
			return Token{Type: OPERATOR, Literal: op, Offset: start, Length: len(op)}, nil
		}
	}

	if isDigit(ch) || (ch == '.' && start+1 < len(l.input) && isDigit(l.input[start+1])) {
		if tok, ok := l.readNumber(); ok {
			return tok, nil
		}
	}

	if isWordChar(ch) {
		word := l.readWord()
		lower := strings.ToLower(word)
		if Keywords[lower] {
			return Token{Type: KEYWORD, Literal: lower, Offset: start, Length: len(word)}, nil
		}
		return Token{Type: IDENT, Literal: word, Offset: start, Length: len(word)}, nil
	}

	return Token{}, errors.NewAt("LEX-0003", start, map[string]any{"Token": string(l.runeAt(start))})
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.position < len(l.input) {
		ch := l.input[l.position]
		if isWhitespace(ch) {
			l.position++
			continue
		}
		if strings.HasPrefix(l.input[l.position:], "/*") {
			end := strings.Index(l.input[l.position+2:], "*/")
			if end < 0 {
				return errors.NewAt("LEX-0001", l.position, nil)
			}
			l.position += 2 + end + 2
			continue
		}
		return nil
	}
	return nil
}

// readString reads a quoted literal starting at the opening quote.
func (l *Lexer) readString(quote byte) (Token, error) {
	start := l.position
	var sb strings.Builder
	i := start + 1
	for i < len(l.input) {
		ch := l.input[i]
		if ch == quote {
			l.position = i + 1
			return Token{Type: STRING, Literal: sb.String(), Offset: start, Length: l.position - start}, nil
		}
		if ch != '\\' {
			sb.WriteByte(ch)
			i++
			continue
		}
		if i+1 >= len(l.input) {
			break
		}
		next := l.input[i+1]
		switch next {
		case '\\':
			sb.WriteByte('\\')
		case quote:
			sb.WriteByte(quote)
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'x':
			if i+3 < len(l.input) && isHexDigit(l.input[i+2]) && isHexDigit(l.input[i+3]) {
				code, _ := strconv.ParseUint(l.input[i+2:i+4], 16, 8)
				sb.WriteRune(rune(code))
				i += 2
			} else {
				sb.WriteString(`\x`)
			}
		default:
			sb.WriteByte('\\')
			sb.WriteByte(next)
		}
		i += 2
	}
	return Token{}, errors.NewAt("LEX-0002", start, nil)
}

// readNumber reads a numeric literal. It reports false when the digits run
// straight into word characters (as in "0xZZ" or "1e5"), leaving the position
// untouched so the text lexes as a single identifier.
func (l *Lexer) readNumber() (Token, bool) {
	start := l.position
	rest := l.input[start:]
	end := 0
	isFloat := false

	if len(rest) > 2 && rest[0] == '0' && strings.ContainsRune("xXbBoO", rune(rest[1])) {
		valid := isHexDigit
		switch rest[1] {
		case 'b', 'B':
			valid = func(c byte) bool { return c == '0' || c == '1' }
		case 'o', 'O':
			valid = func(c byte) bool { return c >= '0' && c <= '7' }
		}
		end = 2
		for end < len(rest) && valid(rest[end]) {
			end++
		}
		if end == 2 {
			end = 0
		}
	}

	if end == 0 {
		for end < len(rest) && isDigit(rest[end]) {
			end++
		}
		if end < len(rest) && rest[end] == '.' {
			isFloat = true
			end++
			for end < len(rest) && isDigit(rest[end]) {
				end++
			}
		}
	}

	if end < len(rest) && isWordChar(rest[end]) {
		return Token{}, false
	}

	text := rest[:end]
	tok := Token{Type: INT, Literal: text, Offset: start, Length: end}
	if isFloat {
		tok.Type = FLOAT
	} else if _, err := tok.IntValue(); err != nil {
		// too large for int64; evaluates as a float
		tok.Type = FLOAT
	}
	l.position += end
	return tok, true
}

func (l *Lexer) readWord() string {
	start := l.position
	for l.position < len(l.input) && isWordChar(l.input[l.position]) {
		l.position++
	}
	return l.input[start:l.position]
}

func (l *Lexer) runeAt(pos int) rune {
	for _, r := range l.input[pos:] {
		return r
	}
	return 0
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isWordChar(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}
