package format

import (
	"strings"
)

// Printer manages formatting state and output
type Printer struct {
	output strings.Builder
	indent int // Current indentation level
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.indent = 0
}

// writeln writes an indented line
func (p *Printer) writeln(s string) {
	p.output.WriteString(strings.Repeat(IndentString, p.indent))
	p.output.WriteString(s)
	p.output.WriteString("\n")
}

// indentInc increases the indentation level
func (p *Printer) indentInc() {
	p.indent++
}

// indentDec decreases the indentation level
func (p *Printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}

// currentIndentWidth returns the current indentation width in characters
func (p *Printer) currentIndentWidth() int {
	return p.indent * IndentWidth
}
