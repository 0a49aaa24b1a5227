// Package errors provides structured error types for the filter language.
//
// FilterError is the single error type used by the lexer, the parser, the
// evaluator and the regex translator. It carries a catalog code, a rendered
// message, the byte offset of the offending source and the template data the
// message was rendered from, so user interfaces can re-render or localize it.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLex        ErrorClass = "lex"        // Tokenizer failures
	ClassParse      ErrorClass = "parse"      // Syntax errors
	ClassEval       ErrorClass = "eval"       // Generic evaluation failures
	ClassArithmetic ErrorClass = "arithmetic" // Divide by zero
	ClassArity      ErrorClass = "arity"      // Wrong argument count
	ClassType       ErrorClass = "type"       // Invalid argument shape or value
	ClassIndex      ErrorClass = "index"      // Out of bounds
	ClassUndefined  ErrorClass = "undefined"  // Unknown function
	ClassRegex      ErrorClass = "regex"      // PCRE translation or compilation
)

// Sentinels matched by errors.Is against any *FilterError of the same family.
var (
	ErrLex          = stderrors.New("lex error")
	ErrParse        = stderrors.New("parse error")
	ErrEval         = stderrors.New("evaluation error")
	ErrDivideByZero = stderrors.New("divide by zero")
	ErrRegex        = stderrors.New("regex error")
)

// FilterError represents any error from tokenizing, parsing or evaluation.
type FilterError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "PARSE-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Offset  int            `json:"offset"`          // 0-based byte offset (-1 if unknown)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *FilterError) Error() string {
	return e.String()
}

// Is reports whether target is the sentinel for this error's class.
func (e *FilterError) Is(target error) bool {
	switch target {
	case ErrLex:
		return e.Class == ClassLex
	case ErrParse:
		return e.Class == ClassParse
	case ErrDivideByZero:
		return e.Class == ClassArithmetic
	case ErrRegex:
		return e.Class == ClassRegex
	case ErrEval:
		return e.IsRuntimeError()
	}
	return false
}

// String returns a formatted string representation of the error.
func (e *FilterError) String() string {
	var sb strings.Builder

	if e.Offset >= 0 {
		sb.WriteString(fmt.Sprintf("offset %d: ", e.Offset))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line rendering with the source line and a
// caret under the offending offset. src may be empty.
func (e *FilterError) PrettyString(src string) string {
	var sb strings.Builder

	switch e.Class {
	case ClassLex, ClassParse:
		sb.WriteString("Syntax error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.Offset >= 0 && e.Offset <= len(src) {
		line, col := LineColumn(src, e.Offset)
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", line, col))
		sb.WriteString(e.Message)

		start := strings.LastIndexByte(src[:e.Offset], '\n') + 1
		end := strings.IndexByte(src[e.Offset:], '\n')
		if end < 0 {
			end = len(src)
		} else {
			end += e.Offset
		}
		sb.WriteString("\n    ")
		sb.WriteString(src[start:end])
		sb.WriteString("\n    ")
		sb.WriteString(strings.Repeat(" ", col-1))
		sb.WriteString("^")
	} else {
		sb.WriteString(":\n  ")
		sb.WriteString(e.Message)
	}

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// LineColumn converts a byte offset into a 1-based line and column.
func LineColumn(src string, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset - (strings.LastIndexByte(src[:offset], '\n') + 1) + 1
	return line, col
}

// ToJSON returns the error as JSON bytes.
func (e *FilterError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithOffset returns a copy of the error with the offset set.
func (e *FilterError) WithOffset(offset int) *FilterError {
	copy := *e
	copy.Offset = offset
	return &copy
}

// IsSyntaxError returns true for lexer and parser errors.
func (e *FilterError) IsSyntaxError() bool {
	return e.Class == ClassLex || e.Class == ClassParse
}

// IsRuntimeError returns true if this error was raised while evaluating.
func (e *FilterError) IsRuntimeError() bool {
	return !e.IsSyntaxError()
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Lexer errors (LEX-0xxx)
	// ========================================
	"LEX-0001": {
		Class:    ClassLex,
		Template: "unterminated comment",
		Hints:    []string{"close the comment with */"},
	},
	"LEX-0002": {
		Class:    ClassLex,
		Template: "unterminated string literal",
	},
	"LEX-0003": {
		Class:    ClassLex,
		Template: "unrecognised token '{{.Token}}'",
	},

	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unrecognised keyword '{{.Keyword}}' in this position",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "invalid number literal: {{.Literal}}",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "empty argument in call to {{.Function}}",
		Hints:    []string{"only variadic functions accept empty arguments"},
	},

	// ========================================
	// Evaluation errors (EVAL-0xxx)
	// ========================================
	"EVAL-0001": {
		Class:    ClassUndefined,
		Template: "unknown function '{{.Name}}'",
	},
	"EVAL-0002": {
		Class:    ClassArithmetic,
		Template: "division by zero",
		Hints:    []string{"check the divisor before dividing, e.g. b != 0 & a / b > 1"},
	},
	"EVAL-0003": {
		Class:    ClassIndex,
		Template: "index {{.Index}} is out of bounds for an array of length {{.Length}}",
	},
	"EVAL-0004": {
		Class:    ClassType,
		Template: "cannot index a value of type {{.Type}}",
	},
	"EVAL-0005": {
		Class:    ClassEval,
		Template: "the left side of an assignment must be a variable",
	},
	"EVAL-0006": {
		Class:    ClassEval,
		Template: "cannot assign to read-only variable '{{.Name}}'",
	},
	"EVAL-0007": {
		Class:    ClassType,
		Template: "variable '{{.Name}}' is not an array",
	},
	"EVAL-0008": {
		Class:    ClassEval,
		Template: "unsupported operator '{{.Operator}}'",
	},
	"EVAL-0009": {
		Class:    ClassEval,
		Template: "internal error: {{.Message}}",
	},
	"EVAL-0010": {
		Class:    ClassEval,
		Template: "unknown node kind {{.Kind}}",
	},

	// ========================================
	// Arity errors (ARITY-0xxx)
	// ========================================
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "{{.Function}}() expects at least {{.Min}} argument(s), got {{.Got}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "{{.Function}}() expects at most {{.Max}} argument(s), got {{.Got}}",
	},

	// ========================================
	// Type errors (TYPE-0xxx)
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "{{.Kind}} value cannot hold {{.Got}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "'{{.Value}}' is not a valid IP range",
		Hints:    []string{"use CIDR notation (192.0.2.0/24) or an explicit range (192.0.2.1-192.0.2.9)"},
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "cannot convert {{.Got}} to a value",
		Hints:    []string{"variables may hold nil, booleans, numbers, strings, and slices or string-keyed maps of those"},
	},

	// ========================================
	// Regex errors (REGEX-0xxx)
	// ========================================
	"REGEX-0001": {
		Class:    ClassRegex,
		Template: "unterminated character class in `{{.Fragment}}`",
	},
	"REGEX-0002": {
		Class:    ClassRegex,
		Template: "unterminated group in `{{.Fragment}}`",
	},
	"REGEX-0003": {
		Class:    ClassRegex,
		Template: "invalid control character escape `{{.Fragment}}`",
	},
	"REGEX-0004": {
		Class:    ClassRegex,
		Template: "reference to non-existent group `{{.Fragment}}`",
	},
	"REGEX-0005": {
		Class:    ClassRegex,
		Template: "unsupported construct `{{.Fragment}}`",
	},
	"REGEX-0006": {
		Class:    ClassRegex,
		Template: "quantifier does not follow a repeatable item at `{{.Fragment}}`",
	},
	"REGEX-0007": {
		Class:    ClassRegex,
		Template: "unmatched closing parenthesis at `{{.Fragment}}`",
	},
	"REGEX-0008": {
		Class:    ClassRegex,
		Template: "range out of order in character class `{{.Fragment}}`",
	},
	"REGEX-0009": {
		Class:    ClassRegex,
		Template: "invalid escape sequence `{{.Fragment}}`",
	},
	"REGEX-0010": {
		Class:    ClassRegex,
		Template: "invalid regular expression /{{.Pattern}}/: {{.Reason}}",
	},
	"REGEX-0011": {
		Class:    ClassRegex,
		Template: "numbers out of order in quantifier `{{.Fragment}}`",
	},
}

// New creates a FilterError from the catalog.
// If the code is not found, creates a generic evaluation error with the message.
func New(code string, data map[string]any) *FilterError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &FilterError{
			Class:   ClassEval,
			Code:    code,
			Message: msg,
			Offset:  -1,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &FilterError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Offset:  -1,
		Data:    data,
	}
}

// NewAt creates a FilterError with a source offset.
func NewAt(code string, offset int, data map[string]any) *FilterError {
	err := New(code, data)
	err.Offset = offset
	return err
}

// From converts any error into a FilterError, keeping FilterErrors as they are.
func From(err error) *FilterError {
	if err == nil {
		return nil
	}
	var fe *FilterError
	if stderrors.As(err, &fe) {
		return fe
	}
	return New("EVAL-0009", map[string]any{"Message": err.Error()})
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// threshold returns the maximum edit distance accepted for a suggestion.
// Short words (1-3): max 1 edit, medium words (4-6): max 2, longer: max 3.
func threshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise an
// empty string.
func FindClosestMatch(input string, candidates []string) string {
	matches := FindTopMatches(input, candidates, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// FindTopMatches returns the top N closest matches to the input, nearest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	inputLower := strings.ToLower(input)

	type fuzzyMatch struct {
		value    string
		distance int
	}
	var matches []fuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, fuzzyMatch{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	limit := threshold(input)
	var result []string
	for i := 0; i < len(matches) && len(result) < n; i++ {
		if matches[i].distance <= limit {
			result = append(result, matches[i].value)
		}
	}

	return result
}

// NewUnknownFunction creates an unknown function error with an optional
// "did you mean" hint drawn from the registered names.
func NewUnknownFunction(name string, offset int, available []string) *FilterError {
	err := NewAt("EVAL-0001", offset, map[string]any{"Name": name})

	if suggestion := FindClosestMatch(name, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}
