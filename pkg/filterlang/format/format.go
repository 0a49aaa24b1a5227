// Package format renders an evaluated syntax tree as indented plain text,
// one node per line with the value it produced and any errors raised there.
//
//	#0 Logic & (a & b) => false
//	  #1 Atom a => false
//	  ~#2 Atom b => true
//
// A leading ~ marks values computed speculatively, for operands that did not
// decide the result.
package format

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/sambeau/filterlang/pkg/filterlang/ast"
	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
)

// Options controls Trace output.
type Options struct {
	// HideSpeculative leaves out the values of speculative evaluation.
	HideSpeculative bool
	// Source prints the source excerpt errors were raised at.
	Source string
}

// Trace renders root with the values trace recorded for the evaluation
// identified by rootID.
func Trace(root *ast.Node, trace *evaluator.Trace, rootID uuid.UUID, opts Options) string {
	p := NewPrinter()
	p.node(root, trace, rootID, opts)
	return p.String()
}

func (p *Printer) node(n *ast.Node, trace *evaluator.Trace, rootID uuid.UUID, opts Options) {
	if n == nil {
		return
	}
	entry, ok := trace.Lookup(n.ID, rootID)
	if ok && entry.Speculative && opts.HideSpeculative {
		ok = false
	}

	var line strings.Builder
	if ok && entry.Speculative {
		line.WriteString(SpeculativeMarker)
	}
	fmt.Fprintf(&line, "#%d %s", n.ID, n.Kind)
	if n.Kind != ast.Atom && n.Op != "" {
		line.WriteString(" " + n.Op)
	}
	line.WriteString(" ")
	line.WriteString(shorten(n.String(), MaxLineWidth-p.currentIndentWidth()-line.Len()))
	switch {
	case !ok:
		line.WriteString(" => (not evaluated)")
	case !entry.Done:
		line.WriteString(" => (pending)")
	default:
		line.WriteString(" => " + entry.Value.Literal())
	}
	p.writeln(line.String())

	if ok {
		p.indentInc()
		for _, err := range entry.Errors {
			p.writeln(ErrorMarker + " " + describe(err, opts.Source))
		}
		p.indentDec()
	}

	p.indentInc()
	for _, child := range n.Children {
		p.node(child, trace, rootID, opts)
	}
	p.indentDec()
}

// describe renders an error, with its line and column when the source is
// known.
func describe(err error, src string) string {
	fe := errors.From(err)
	switch {
	case fe.Offset < 0:
		return fe.Message
	case src == "":
		return fmt.Sprintf("offset %d: %s", fe.Offset, fe.Message)
	}
	line, col := errors.LineColumn(src, fe.Offset)
	return fmt.Sprintf("%d:%d: %s", line, col, fe.Message)
}

// shorten cuts s to width characters, marking the cut with an ellipsis.
func shorten(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	width = max(width, 16)
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + Ellipsis
}
