package parser

import (
	"github.com/sambeau/filterlang/pkg/filterlang/ast"
	perrors "github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/lexer"
)

var (
	equalityOps = map[string]bool{"=": true, "==": true, "===": true, "!=": true, "!==": true}
	orderOps    = map[string]bool{"<": true, ">": true, "<=": true, ">=": true}
	logicOps    = map[string]bool{"&": true, "|": true, "^": true}

	keywordOps = map[string]bool{
		"in":       true,
		"like":     true,
		"matches":  true,
		"contains": true,
		"rlike":    true,
		"irlike":   true,
		"regex":    true,
	}
)

// Option configures a Parser.
type Option func(*Parser)

// WithVariadic sets the predicate used to decide whether a call may contain
// empty arguments, as in "f(a, , b)" or "f()". Without it empty arguments
// are always dropped silently.
func WithVariadic(isVariadic func(name string) bool) Option {
	return func(p *Parser) {
		p.isVariadic = isVariadic
	}
}

// Parser is a recursive-descent parser over a token slice. Every precedence
// level is one method, from parseSemicolon (loosest) down to parseAtom.
type Parser struct {
	tokens     []lexer.Token
	pos        int
	nextID     int
	isVariadic func(name string) bool
}

// New creates a parser for a token sequence produced by lexer.Tokenize.
func New(tokens []lexer.Token, opts ...Option) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.EOF {
		end := 0
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1]
			end = last.Offset + last.Length
		}
		tokens = append(tokens, lexer.Token{Type: lexer.EOF, Offset: end})
	}
	p := &Parser{tokens: tokens}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseString tokenizes and parses src.
func ParseString(src string, opts ...Option) (*ast.Node, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens, opts...).Parse()
}

// Parse parses the whole token sequence. An empty program parses to a null
// atom. Errors are *errors.FilterError values and parsing stops at the first.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*perrors.FilterError)
			if !ok {
				panic(r)
			}
			root, err = nil, fe
		}
	}()

	root = p.parseSemicolon()
	if cur := p.cur(); cur.Type != lexer.EOF {
		p.fail("PARSE-0002", cur, map[string]any{"Token": cur.Literal})
	}
	if root == nil {
		eof := p.cur()
		root = p.newNode(ast.Atom, "", lexer.Token{Type: lexer.KEYWORD, Literal: "null", Offset: eof.Offset})
	}
	return root, nil
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) curIs(tt lexer.TokenType, literal string) bool {
	return p.cur().Is(tt, literal)
}

func (p *Parser) curIsOp(ops map[string]bool) bool {
	cur := p.cur()
	return cur.Type == lexer.OPERATOR && ops[cur.Literal]
}

func (p *Parser) newNode(kind ast.Kind, op string, tok lexer.Token, children ...*ast.Node) *ast.Node {
	p.nextID++
	return &ast.Node{ID: p.nextID, Kind: kind, Op: op, Token: tok, Children: children}
}

// fail aborts parsing; Parse turns the panic back into an error.
func (p *Parser) fail(code string, tok lexer.Token, data map[string]any) {
	panic(perrors.NewAt(code, tok.Offset, data))
}

func (p *Parser) expect(tt lexer.TokenType, literal string) lexer.Token {
	cur := p.cur()
	if !cur.Is(tt, literal) {
		p.fail("PARSE-0001", cur, map[string]any{"Expected": "'" + literal + "'", "Got": describe(cur)})
	}
	p.advance()
	return cur
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	return tok.Literal
}

// parseSemicolon parses a statement sequence. Empty statements are allowed;
// nil means no statement was found at all.
func (p *Parser) parseSemicolon() *ast.Node {
	var statements []*ast.Node
	first := p.cur()
	for {
		cur := p.cur()
		if cur.Type == lexer.EOF || cur.Is(lexer.PAREN, ")") || cur.Is(lexer.SQUARE_BRACKET, "]") || cur.Type == lexer.COMMA {
			break
		}
		if cur.Type == lexer.SEMICOLON {
			p.advance()
			continue
		}
		statements = append(statements, p.parseSet())
		if p.cur().Type != lexer.SEMICOLON {
			break
		}
		p.advance()
	}

	switch len(statements) {
	case 0:
		return nil
	case 1:
		return statements[0]
	default:
		return p.newNode(ast.Semicolon, ";", first, statements...)
	}
}

// parseSet speculatively parses an assignment, rolling back to a plain
// expression when the tokens do not have an assignment's shape.
func (p *Parser) parseSet() *ast.Node {
	if p.cur().Type != lexer.IDENT {
		return p.parseConditions()
	}

	start := p.pos
	nameTok := p.cur()
	p.advance()

	if p.curIs(lexer.OPERATOR, ":=") {
		opTok := p.cur()
		p.advance()
		target := p.newNode(ast.Atom, "", nameTok)
		value := p.parseSet()
		return p.newNode(ast.Assignment, ":=", opTok, target, value)
	}

	if p.curIs(lexer.SQUARE_BRACKET, "[") {
		p.advance()
		var index *ast.Node
		appending := p.curIs(lexer.SQUARE_BRACKET, "]")
		if !appending {
			index = p.parseSemicolon()
			if index == nil {
				p.fail("PARSE-0002", p.cur(), map[string]any{"Token": p.cur().Literal})
			}
			if !p.curIs(lexer.SQUARE_BRACKET, "]") {
				p.fail("PARSE-0001", p.cur(), map[string]any{"Expected": "']'", "Got": describe(p.cur())})
			}
		}
		p.advance()

		if p.curIs(lexer.OPERATOR, ":=") {
			opTok := p.cur()
			p.advance()
			target := p.newNode(ast.Atom, "", nameTok)
			value := p.parseSet()
			if appending {
				return p.newNode(ast.ArrayAppend, "[]", opTok, target, value)
			}
			return p.newNode(ast.IndexAssignment, "[]", opTok, target, index, value)
		}
	}

	// not an assignment
	p.pos = start
	return p.parseConditions()
}

func (p *Parser) parseConditions() *ast.Node {
	if p.curIs(lexer.KEYWORD, "if") {
		ifTok := p.cur()
		p.advance()
		condition := p.parseBoolOps()
		p.expect(lexer.KEYWORD, "then")
		children := []*ast.Node{condition, p.parseBlock()}
		if p.curIs(lexer.KEYWORD, "else") {
			p.advance()
			children = append(children, p.parseBlock())
		}
		p.expect(lexer.KEYWORD, "end")
		return p.newNode(ast.Conditional, "if", ifTok, children...)
	}

	condition := p.parseBoolOps()
	if p.curIs(lexer.OPERATOR, "?") {
		qTok := p.cur()
		p.advance()
		ifTrue := p.parseConditions()
		p.expect(lexer.OPERATOR, ":")
		ifFalse := p.parseConditions()
		return p.newNode(ast.Conditional, "?", qTok, condition, ifTrue, ifFalse)
	}
	return condition
}

// parseBlock parses the body of a then or else branch, which may hold a
// statement sequence.
func (p *Parser) parseBlock() *ast.Node {
	block := p.parseSemicolon()
	if block == nil {
		p.fail("PARSE-0002", p.cur(), map[string]any{"Token": describe(p.cur())})
	}
	return block
}

func (p *Parser) parseBoolOps() *ast.Node {
	left := p.parseCompares()
	for p.curIsOp(logicOps) {
		opTok := p.cur()
		p.advance()
		right := p.parseCompares()
		left = p.newNode(ast.Logic, opTok.Literal, opTok, left, right)
	}
	return left
}

// parseCompares allows at most one equality and one order operator per
// chain, so "a < b == c" parses and "a < b < c" does not.
func (p *Parser) parseCompares() *ast.Node {
	left := p.parseSum()
	allowEquality, allowOrder := true, true
	for {
		cur := p.cur()
		if cur.Type != lexer.OPERATOR {
			return left
		}
		switch {
		case allowEquality && equalityOps[cur.Literal]:
			allowEquality = false
		case allowOrder && orderOps[cur.Literal]:
			allowOrder = false
		default:
			return left
		}
		p.advance()
		right := p.parseSum()
		left = p.newNode(ast.Compare, cur.Literal, cur, left, right)
	}
}

func (p *Parser) parseSum() *ast.Node {
	left := p.parseMul()
	for p.curIs(lexer.OPERATOR, "+") || p.curIs(lexer.OPERATOR, "-") {
		opTok := p.cur()
		p.advance()
		right := p.parseMul()
		left = p.newNode(ast.ArithmeticAdditive, opTok.Literal, opTok, left, right)
	}
	return left
}

func (p *Parser) parseMul() *ast.Node {
	left := p.parsePow()
	for p.curIs(lexer.OPERATOR, "*") || p.curIs(lexer.OPERATOR, "/") || p.curIs(lexer.OPERATOR, "%") {
		opTok := p.cur()
		p.advance()
		right := p.parsePow()
		left = p.newNode(ast.ArithmeticMultiplicative, opTok.Literal, opTok, left, right)
	}
	return left
}

func (p *Parser) parsePow() *ast.Node {
	base := p.parseBoolInvert()
	for p.curIs(lexer.OPERATOR, "**") {
		opTok := p.cur()
		p.advance()
		exponent := p.parseBoolInvert()
		base = p.newNode(ast.Exponentiation, "**", opTok, base, exponent)
	}
	return base
}

func (p *Parser) parseBoolInvert() *ast.Node {
	if p.curIs(lexer.OPERATOR, "!") {
		opTok := p.cur()
		p.advance()
		return p.newNode(ast.BooleanNegation, "!", opTok, p.parseBoolInvert())
	}
	return p.parseKeywordOperators()
}

func (p *Parser) parseKeywordOperators() *ast.Node {
	left := p.parseUnary()
	cur := p.cur()
	if cur.Type == lexer.KEYWORD && keywordOps[cur.Literal] {
		p.advance()
		right := p.parseUnary()
		return p.newNode(ast.KeywordOperator, cur.Literal, cur, left, right)
	}
	return left
}

func (p *Parser) parseUnary() *ast.Node {
	if p.curIs(lexer.OPERATOR, "+") || p.curIs(lexer.OPERATOR, "-") {
		opTok := p.cur()
		p.advance()
		return p.newNode(ast.ArithmeticUnary, opTok.Literal, opTok, p.parseArrayElements())
	}
	return p.parseArrayElements()
}

func (p *Parser) parseArrayElements() *ast.Node {
	array := p.parseParenthesis()
	for p.curIs(lexer.SQUARE_BRACKET, "[") {
		bracket := p.cur()
		p.advance()
		index := p.parseSemicolon()
		if index == nil {
			p.fail("PARSE-0002", p.cur(), map[string]any{"Token": describe(p.cur())})
		}
		p.expect(lexer.SQUARE_BRACKET, "]")
		array = p.newNode(ast.ArrayIndexing, "[]", bracket, array, index)
	}
	return array
}

func (p *Parser) parseParenthesis() *ast.Node {
	if !p.curIs(lexer.PAREN, "(") {
		return p.parseFunction()
	}
	if p.peek().Is(lexer.PAREN, ")") {
		p.fail("PARSE-0002", p.peek(), map[string]any{"Token": ")"})
	}
	p.advance()
	inner := p.parseSemicolon()
	if inner == nil {
		p.fail("PARSE-0002", p.cur(), map[string]any{"Token": describe(p.cur())})
	}
	p.expect(lexer.PAREN, ")")
	return inner
}

func (p *Parser) parseFunction() *ast.Node {
	nameTok := p.cur()
	if nameTok.Type != lexer.IDENT || !p.peek().Is(lexer.PAREN, "(") {
		return p.parseAtom()
	}
	p.advance()

	var args []*ast.Node
	for {
		// consumes the opening parenthesis or the separating comma
		p.advance()
		arg := p.parseSemicolon()
		if arg != nil {
			args = append(args, arg)
		} else if p.isVariadic != nil && !p.isVariadic(nameTok.Literal) {
			p.fail("PARSE-0005", p.cur(), map[string]any{"Function": nameTok.Literal})
		}
		if p.cur().Type != lexer.COMMA {
			break
		}
	}
	p.expect(lexer.PAREN, ")")
	return p.newNode(ast.FunctionCall, nameTok.Literal, nameTok, args...)
}

func (p *Parser) parseAtom() *ast.Node {
	tok := p.cur()
	switch tok.Type {
	case lexer.IDENT, lexer.STRING:
		p.advance()
		return p.newNode(ast.Atom, "", tok)
	case lexer.INT, lexer.FLOAT:
		if _, err := tok.FloatValue(); err != nil {
			p.fail("PARSE-0004", tok, map[string]any{"Literal": tok.Literal})
		}
		p.advance()
		return p.newNode(ast.Atom, "", tok)
	case lexer.KEYWORD:
		switch tok.Literal {
		case "true", "false", "null":
			p.advance()
			return p.newNode(ast.Atom, "", tok)
		}
		p.fail("PARSE-0003", tok, map[string]any{"Keyword": tok.Literal})
	case lexer.SQUARE_BRACKET:
		if tok.Literal == "[" {
			return p.parseArrayDefinition()
		}
	case lexer.EOF:
		p.fail("PARSE-0001", tok, map[string]any{"Expected": "an expression", "Got": "end of input"})
	}
	p.fail("PARSE-0002", tok, map[string]any{"Token": tok.Literal})
	return nil
}

// parseArrayDefinition parses "[a, b, ...]". A trailing comma is allowed.
func (p *Parser) parseArrayDefinition() *ast.Node {
	open := p.cur()
	var elements []*ast.Node
	for {
		p.advance()
		if p.curIs(lexer.SQUARE_BRACKET, "]") {
			break
		}
		elements = append(elements, p.parseSet())
		if p.curIs(lexer.SQUARE_BRACKET, "]") {
			break
		}
		if p.cur().Type != lexer.COMMA {
			p.fail("PARSE-0001", p.cur(), map[string]any{"Expected": "',' or ']'", "Got": describe(p.cur())})
		}
	}
	p.advance()
	return p.newNode(ast.ArrayDefinition, "[]", open, elements...)
}
