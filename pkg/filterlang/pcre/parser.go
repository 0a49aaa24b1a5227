package pcre

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

// Tree is a parsed pattern.
type Tree struct {
	Root *Group
	// Groups is the number of capturing groups.
	Groups int
	// Names maps group names to group numbers.
	Names map[string]int
}

type parser struct {
	src      []rune
	pos      int
	extended bool
	groups   int
	names    map[string]int
}

// Parse parses a PCRE pattern. defaultFlags may contain x, which makes the
// whole pattern extended; other flags do not affect parsing.
func Parse(pattern, defaultFlags string) (*Tree, error) {
	p := &parser{
		src:      []rune(pattern),
		extended: strings.ContainsRune(defaultFlags, 'x'),
		names:    map[string]int{},
	}
	root := &Group{Kind: RootGroup}
	if err := p.parseSequence(root); err != nil {
		return nil, err
	}
	if !p.eof() {
		// parseSequence only stops early at a ')'
		return nil, p.fail("REGEX-0007", p.pos)
	}

	tree := &Tree{Root: root, Groups: p.groups, Names: p.names}
	if err := resolveRelative(tree); err != nil {
		return nil, err
	}
	reifyOctal(tree)
	if err := checkReferences(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(offset int) rune {
	if p.pos+offset >= len(p.src) {
		return 0
	}
	return p.src[p.pos+offset]
}

func (p *parser) hasPrefix(s string) bool {
	rs := []rune(s)
	if p.pos+len(rs) > len(p.src) {
		return false
	}
	for i, r := range rs {
		if p.src[p.pos+i] != r {
			return false
		}
	}
	return true
}

// fail builds a regex error quoting the pattern from start onwards.
func (p *parser) fail(code string, start int) error {
	end := p.pos + 1
	if end > len(p.src) {
		end = len(p.src)
	}
	if start > end {
		start = end
	}
	return errors.New(code, map[string]any{"Fragment": string(p.src[start:end])})
}

// skipExtended skips whitespace and #-comments in extended mode.
func (p *parser) skipExtended() {
	for p.extended && !p.eof() {
		c := p.peek()
		switch {
		case c == '#':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		case unicode.IsSpace(c):
			p.pos++
		default:
			return
		}
	}
}

// parseSequence parses items into g until the end of the pattern or an
// unconsumed ')'.
func (p *parser) parseSequence(g *Group) error {
	savedExtended := p.extended
	defer func() { p.extended = savedExtended }()

	for {
		p.skipExtended()
		if p.eof() || p.peek() == ')' {
			return nil
		}
		start := p.pos
		c := p.peek()

		switch c {
		case '(':
			node, err := p.parseGroup()
			if err != nil {
				return err
			}
			if opt, ok := node.(*InternalOption); ok {
				p.applyExtended(opt.On, opt.Off)
			}
			if node != nil {
				g.Items = append(g.Items, node)
			}
		case '|':
			p.pos++
			g.Items = append(g.Items, &Meta{Symbol: "|"})
		case '.':
			p.pos++
			g.Items = append(g.Items, &Meta{Symbol: "."})
		case '^', '$':
			p.pos++
			g.Items = append(g.Items, &Anchor{Symbol: string(c)})
		case '[':
			class, err := p.parseClass()
			if err != nil {
				return err
			}
			g.Items = append(g.Items, class)
		case '\\':
			nodes, err := p.parseEscape()
			if err != nil {
				return err
			}
			g.Items = append(g.Items, nodes...)
		case '*', '+', '?':
			p.pos++
			q := &Quantifier{Max: -1}
			switch c {
			case '+':
				q.Min = 1
			case '?':
				q.Max = 1
			}
			if err := p.applyQuantifier(g, q, start); err != nil {
				return err
			}
		case '{':
			q, ok, err := p.parseBraces()
			if err != nil {
				return err
			}
			if !ok {
				p.pos++
				g.Items = append(g.Items, &Character{R: '{'})
				continue
			}
			if err := p.applyQuantifier(g, q, start); err != nil {
				return err
			}
		default:
			p.pos++
			g.Items = append(g.Items, &Character{R: c})
		}
	}
}

func lastItem(g *Group) Node {
	if len(g.Items) == 0 {
		return nil
	}
	return g.Items[len(g.Items)-1]
}

func (p *parser) applyExtended(on, off string) {
	if strings.ContainsRune(on, 'x') {
		p.extended = true
	}
	if strings.ContainsRune(off, 'x') {
		p.extended = false
	}
}

// applyQuantifier attaches q to the last item of g, reading an optional lazy
// or possessive suffix.
func (p *parser) applyQuantifier(g *Group, q *Quantifier, start int) error {
	switch p.peek() {
	case '?':
		q.Lazy = true
		p.pos++
	case '+':
		q.Possessive = true
		p.pos++
	}
	if !repeatable(lastItem(g)) {
		return p.fail("REGEX-0006", start)
	}
	g.Items = append(g.Items, q)
	return nil
}

func repeatable(n Node) bool {
	switch t := n.(type) {
	case *Character, *WellKnownClass, *Backreference, *CharacterClass:
		return true
	case *Meta:
		return t.Symbol == "."
	case *Group:
		return true
	}
	return false
}

// parseBraces reads {n}, {n,} or {n,m}. It reports false, consuming
// nothing, when the braces do not form a quantifier.
func (p *parser) parseBraces() (*Quantifier, bool, error) {
	start := p.pos
	end := start + 1
	for end < len(p.src) && p.src[end] != '}' {
		end++
	}
	if end >= len(p.src) {
		return nil, false, nil
	}
	body := string(p.src[start+1 : end])
	minText, maxText, hasComma := strings.Cut(body, ",")
	if !isDecimal(minText) || (hasComma && maxText != "" && !isDecimal(maxText)) {
		return nil, false, nil
	}
	q := &Quantifier{}
	q.Min, _ = strconv.Atoi(minText)
	switch {
	case !hasComma:
		q.Max = q.Min
	case maxText == "":
		q.Max = -1
	default:
		q.Max, _ = strconv.Atoi(maxText)
	}
	p.pos = end + 1
	if q.Max != -1 && q.Max < q.Min {
		return nil, false, p.fail("REGEX-0011", start)
	}
	return q, true, nil
}

func isDecimal(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseGroup parses a parenthesised construct. It returns nil for
// constructs that produce no node, such as comments.
func (p *parser) parseGroup() (Node, error) {
	start := p.pos
	p.pos++ // (

	if p.peek() == '*' {
		return nil, p.fail("REGEX-0005", start)
	}

	g := &Group{Kind: CapturingGroup}
	if p.peek() == '?' {
		p.pos++
		node, done, err := p.parseGroupHeader(g, start)
		if err != nil || done {
			return node, err
		}
	}
	if g.Kind == CapturingGroup {
		p.groups++
		g.Number = p.groups
		if g.Name != "" {
			p.names[g.Name] = g.Number
		}
	}

	savedExtended := p.extended
	p.applyExtended(g.On, g.Off)
	err := p.parseSequence(g)
	p.extended = savedExtended
	if err != nil {
		return nil, err
	}
	if p.eof() {
		return nil, p.fail("REGEX-0002", start)
	}
	p.pos++ // )
	return g, nil
}

// parseGroupHeader reads what follows "(?". done is true when the whole
// construct has been consumed, as for comments, options and (?P=name).
func (p *parser) parseGroupHeader(g *Group, start int) (node Node, done bool, err error) {
	c := p.peek()
	switch {
	case c == '#':
		for !p.eof() && p.peek() != ')' {
			p.pos++
		}
		if p.eof() {
			return nil, true, p.fail("REGEX-0002", start)
		}
		p.pos++
		return nil, true, nil
	case c == ':':
		p.pos++
		g.Kind = NonCapturingGroup
	case c == '>':
		p.pos++
		g.Kind = AtomicGroup
	case c == '=':
		p.pos++
		g.Kind = LookAhead
	case c == '!':
		p.pos++
		g.Kind = NegativeLookAhead
	case p.hasPrefix("<="):
		p.pos += 2
		g.Kind = LookBehind
	case p.hasPrefix("<!"):
		p.pos += 2
		g.Kind = NegativeLookBehind
	case c == '<' || c == '\'':
		p.pos++
		close := '>'
		if c == '\'' {
			close = '\''
		}
		name, err := p.readName(close, start)
		if err != nil {
			return nil, true, err
		}
		g.Name = name
	case p.hasPrefix("P<"):
		p.pos += 2
		name, err := p.readName('>', start)
		if err != nil {
			return nil, true, err
		}
		g.Name = name
	case p.hasPrefix("P="):
		p.pos += 2
		name, err := p.readName(')', start)
		if err != nil {
			return nil, true, err
		}
		return &Backreference{Name: name}, true, nil
	case c == '|', c == '(', c == 'R', c == '&', c == 'C', c == '+', c == '-' && unicode.IsDigit(p.peekAt(1)),
		unicode.IsDigit(c), p.hasPrefix("P>"):
		return nil, true, p.fail("REGEX-0005", start)
	default:
		on, off, scoped, err := p.readFlags(start)
		if err != nil {
			return nil, true, err
		}
		if !scoped {
			return &InternalOption{On: on, Off: off}, true, nil
		}
		g.Kind = NonCapturingGroup
		g.On, g.Off = on, off
	}
	return nil, false, nil
}

// readFlags reads "imsxU-imsxU" followed by ')' (unscoped) or ':' (scoped).
func (p *parser) readFlags(start int) (on, off string, scoped bool, err error) {
	negate := false
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch c {
		case 'i', 'm', 's', 'x', 'U':
			if negate {
				off += string(c)
			} else {
				on += string(c)
			}
		case '-':
			if negate {
				return "", "", false, p.fail("REGEX-0005", start)
			}
			negate = true
		case ')':
			return on, off, false, nil
		case ':':
			return on, off, true, nil
		default:
			return "", "", false, p.fail("REGEX-0005", start)
		}
	}
	return "", "", false, p.fail("REGEX-0002", start)
}

func (p *parser) readName(close rune, start int) (string, error) {
	begin := p.pos
	for !p.eof() && p.peek() != close {
		c := p.peek()
		if !(c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)) {
			return "", p.fail("REGEX-0009", start)
		}
		p.pos++
	}
	if p.eof() || p.pos == begin {
		return "", p.fail("REGEX-0002", start)
	}
	name := string(p.src[begin:p.pos])
	p.pos++ // close
	return name, nil
}

// parseEscape parses a backslash sequence outside a character class.
func (p *parser) parseEscape() ([]Node, error) {
	start := p.pos
	p.pos++ // backslash
	if p.eof() {
		return nil, p.fail("REGEX-0009", start)
	}
	c := p.peek()
	p.pos++

	switch c {
	case 'A', 'Z', 'z', 'b', 'B':
		return []Node{&Anchor{Symbol: `\` + string(c)}}, nil
	case 'G', 'K', 'C':
		return nil, p.fail("REGEX-0005", start)
	case 'Q':
		var nodes []Node
		for !p.eof() && !p.hasPrefix(`\E`) {
			nodes = append(nodes, &Character{R: p.peek()})
			p.pos++
		}
		if !p.eof() {
			p.pos += 2
		}
		return nodes, nil
	case 'E':
		return nil, nil
	case 'N':
		return []Node{&WellKnownClass{Name: "N", Negated: true, Ranges: lineBreak}}, nil
	case 'R', 'X':
		return []Node{&WellKnownClass{Name: string(c)}}, nil
	case 'g':
		return p.parseGReference(start)
	case 'k':
		close := rune(0)
		switch p.peek() {
		case '<':
			close = '>'
		case '\'':
			close = '\''
		case '{':
			close = '}'
		default:
			return nil, p.fail("REGEX-0009", start)
		}
		p.pos++
		name, err := p.readName(close, start)
		if err != nil {
			return nil, err
		}
		return []Node{&Backreference{Name: name}}, nil
	}

	if c >= '1' && c <= '9' {
		digits := string(c)
		for !p.eof() && unicode.IsDigit(p.peek()) && p.peek() < 0x80 {
			digits += string(p.peek())
			p.pos++
		}
		n, _ := strconv.Atoi(digits)
		return []Node{&Backreference{Number: n, Digits: digits}}, nil
	}

	if class, ok, err := p.classEscape(c, start); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return []Node{class}, nil
	}

	r, err := p.charEscape(c, start, false)
	if err != nil {
		return nil, err
	}
	return []Node{&Character{R: r}}, nil
}

// parseGReference parses \g references: \gN, \g{N}, \g{-N}, \g-N, \g{name},
// \g<name> and \g'name'.
func (p *parser) parseGReference(start int) ([]Node, error) {
	var body string
	switch p.peek() {
	case '{', '<', '\'':
		close := map[rune]rune{'{': '}', '<': '>', '\'': '\''}[p.peek()]
		p.pos++
		begin := p.pos
		for !p.eof() && p.peek() != close {
			p.pos++
		}
		if p.eof() {
			return nil, p.fail("REGEX-0009", start)
		}
		body = string(p.src[begin:p.pos])
		p.pos++
	default:
		begin := p.pos
		if p.peek() == '-' || p.peek() == '+' {
			p.pos++
		}
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}
		body = string(p.src[begin:p.pos])
	}

	if body == "" {
		return nil, p.fail("REGEX-0009", start)
	}
	if n, err := strconv.Atoi(body); err == nil {
		switch {
		case strings.HasPrefix(body, "-"):
			return []Node{&Backreference{Number: n, Relative: true}}, nil
		case strings.HasPrefix(body, "+"), n == 0:
			return nil, p.fail("REGEX-0005", start)
		}
		return []Node{&Backreference{Number: n}}, nil
	}
	for _, c := range body {
		if !(c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)) {
			return nil, p.fail("REGEX-0009", start)
		}
	}
	return []Node{&Backreference{Name: body}}, nil
}

// classEscape handles the escapes that stand for a set of characters.
func (p *parser) classEscape(c rune, start int) (*WellKnownClass, bool, error) {
	lower := unicode.ToLower(c)
	if ranges, ok := escapeClass(lower); ok {
		return &WellKnownClass{Name: string(lower), Negated: c != lower, Ranges: ranges}, true, nil
	}
	if c != 'p' && c != 'P' {
		return nil, false, nil
	}

	var name string
	if p.peek() == '{' {
		end := p.pos + 1
		for end < len(p.src) && p.src[end] != '}' {
			end++
		}
		if end >= len(p.src) {
			return nil, false, p.fail("REGEX-0009", start)
		}
		name = string(p.src[p.pos+1 : end])
		p.pos = end + 1
	} else if !p.eof() {
		name = string(p.peek())
		p.pos++
	}

	negated := c == 'P'
	if strings.HasPrefix(name, "^") {
		negated = !negated
		name = name[1:]
	}
	ranges, ok := unicodeProperty(name)
	if !ok {
		return nil, false, p.fail("REGEX-0009", start)
	}
	return &WellKnownClass{Name: "p{" + name + "}", Negated: negated, Ranges: ranges}, true, nil
}

// charEscape decodes an escape that stands for one character. c is the
// character after the backslash, already consumed.
func (p *parser) charEscape(c rune, start int, inClass bool) (rune, error) {
	switch c {
	case 'a':
		return 0x07, nil
	case 'e':
		return 0x1B, nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'c':
		if p.eof() || p.peek() < 0x20 || p.peek() > 0x7E {
			return 0, p.fail("REGEX-0003", start)
		}
		x := unicode.ToUpper(p.peek())
		p.pos++
		return x ^ 0x40, nil
	case 'x':
		if p.peek() == '{' {
			return p.readBracedNumber(16, start)
		}
		digits := ""
		for len(digits) < 2 && isHex(p.peek()) {
			digits += string(p.peek())
			p.pos++
		}
		if digits == "" {
			return 0, nil
		}
		n, _ := strconv.ParseUint(digits, 16, 32)
		return rune(n), nil
	case 'o':
		if p.peek() != '{' {
			return 0, p.fail("REGEX-0009", start)
		}
		return p.readBracedNumber(8, start)
	case '0':
		digits := "0"
		for len(digits) < 3 && isOctal(p.peek()) {
			digits += string(p.peek())
			p.pos++
		}
		n, _ := strconv.ParseUint(digits, 8, 32)
		return rune(n), nil
	}

	if inClass && c >= '1' && c <= '9' {
		if c >= '8' {
			return c, nil
		}
		digits := string(c)
		for len(digits) < 3 && isOctal(p.peek()) {
			digits += string(p.peek())
			p.pos++
		}
		n, _ := strconv.ParseUint(digits, 8, 32)
		return rune(n), nil
	}

	if c < 0x80 && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
		return 0, p.fail("REGEX-0009", start)
	}
	return c, nil
}

func (p *parser) readBracedNumber(base int, start int) (rune, error) {
	end := p.pos + 1
	for end < len(p.src) && p.src[end] != '}' {
		end++
	}
	if end >= len(p.src) {
		return 0, p.fail("REGEX-0009", start)
	}
	n, err := strconv.ParseUint(string(p.src[p.pos+1:end]), base, 32)
	p.pos = end + 1
	if err != nil || n > maxRune {
		return 0, p.fail("REGEX-0009", start)
	}
	return rune(n), nil
}

func isHex(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isOctal(c rune) bool {
	return c >= '0' && c <= '7'
}

// parseClass parses a bracket expression starting at '['.
func (p *parser) parseClass() (*CharacterClass, error) {
	start := p.pos
	p.pos++
	class := &CharacterClass{}
	if p.peek() == '^' {
		class.Negated = true
		p.pos++
	}

	first := true
	for {
		if p.eof() {
			return nil, p.fail("REGEX-0001", start)
		}
		c := p.peek()
		if c == ']' && !first {
			p.pos++
			return class, nil
		}
		first = false

		if p.hasPrefix(`\Q`) {
			p.pos += 2
			for !p.eof() && !p.hasPrefix(`\E`) {
				class.Items = append(class.Items, &Character{R: p.peek()})
				p.pos++
			}
			if !p.eof() {
				p.pos += 2
			}
			continue
		}

		item, err := p.parseClassAtom(start)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}

		lo, isChar := item.(*Character)
		if !isChar || p.peek() != '-' || p.peekAt(1) == ']' || p.peekAt(1) == 0 {
			class.Items = append(class.Items, item)
			continue
		}

		// a range, unless the upper end is a set such as \d
		save := p.pos
		p.pos++ // -
		hiItem, err := p.parseClassAtom(start)
		if err != nil {
			return nil, err
		}
		hi, ok := hiItem.(*Character)
		if !ok {
			p.pos = save
			class.Items = append(class.Items, item)
			continue
		}
		if hi.R < lo.R {
			return nil, p.fail("REGEX-0008", start)
		}
		class.Items = append(class.Items, Range{Lo: lo.R, Hi: hi.R})
	}
}

// parseClassAtom parses one member of a bracket expression. It returns nil
// for members that produce nothing, such as an empty \Q\E.
func (p *parser) parseClassAtom(start int) (Node, error) {
	if p.hasPrefix("[:") {
		if class, ok := p.parsePosix(); ok {
			return class, nil
		}
	}
	c := p.peek()
	if c != '\\' {
		p.pos++
		return &Character{R: c}, nil
	}

	escStart := p.pos
	p.pos++
	if p.eof() {
		return nil, p.fail("REGEX-0001", start)
	}
	c = p.peek()
	p.pos++

	switch c {
	case 'b':
		return &Character{R: 0x08}, nil
	case 'E':
		return nil, nil
	case 'N', 'R', 'X', 'A', 'Z', 'z', 'B', 'G', 'K', 'g', 'k':
		return nil, p.fail("REGEX-0009", escStart)
	}

	if class, ok, err := p.classEscape(c, escStart); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return class, nil
	}
	r, err := p.charEscape(c, escStart, true)
	if err != nil {
		return nil, err
	}
	return &Character{R: r}, nil
}

// parsePosix parses [:name:] or [:^name:] inside a bracket expression.
func (p *parser) parsePosix() (*WellKnownClass, bool) {
	end := p.pos + 2
	for end+1 < len(p.src) && !(p.src[end] == ':' && p.src[end+1] == ']') {
		end++
	}
	if end+1 >= len(p.src) {
		return nil, false
	}
	name := string(p.src[p.pos+2 : end])
	negated := strings.HasPrefix(name, "^")
	name = strings.TrimPrefix(name, "^")
	ranges, ok := posixClasses[name]
	if !ok {
		return nil, false
	}
	p.pos = end + 2
	return &WellKnownClass{Name: "[:" + name + ":]", Negated: negated, Ranges: ranges, Fold: true}, true
}
