package value

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders f the way the reference language prints floats: the
// value is first rounded to 15 significant digits (so 0.1 + 0.2 prints as
// 0.3) and then printed in its shortest form. Whole values have no
// fractional part, and magnitudes of 1e21 and above or below 1e-6 use
// exponent notation such as 1.5e+21 or 1e-7.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		return "0"
	}

	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', 15, 64), 64)
	if err != nil {
		rounded = f
	}

	abs := math.Abs(rounded)
	if abs >= 1e21 || abs < 1e-6 {
		return trimExponent(strconv.FormatFloat(rounded, 'e', -1, 64))
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// trimExponent turns Go's "1.5e-07" into "1.5e-7".
func trimExponent(s string) string {
	idx := strings.IndexByte(s, 'e')
	if idx < 0 || idx+2 >= len(s) {
		return s
	}
	mantissa, sign, digits := s[:idx], s[idx+1], strings.TrimLeft(s[idx+2:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + string(sign) + digits
}

// Literal renders v as source text that evaluates back to an equal value.
// Undefined renders as the bare word "undefined", which reads as an unset
// variable and so evaluates to Undefined again.
func (v Value) Literal() string {
	var sb strings.Builder
	v.writeLiteral(&sb)
	return sb.String()
}

func (v Value) writeLiteral(sb *strings.Builder) {
	switch v.kind {
	case Undefined:
		sb.WriteString("undefined")
	case Null:
		sb.WriteString("null")
	case Boolean:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Integer:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		sb.WriteString(floatLiteral(v.f))
	case String:
		sb.WriteString(Quote(v.s))
	case Array:
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeLiteral(sb)
		}
		sb.WriteByte(']')
	}
}

// floatLiteral writes a float so that it lexes as a float literal. The
// language has no negative or exponent literals, so negative values are
// written as a subtraction from zero (unary minus would turn -1.0 into an
// integer) and non-finite values as expressions that overflow.
func floatLiteral(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "(10 ** 400)"
	case math.IsInf(f, -1):
		return "(0 - 10 ** 400)"
	case math.IsNaN(f):
		return "(10 ** 400 - 10 ** 400)"
	}
	s := strconv.FormatFloat(math.Abs(f), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if f < 0 || (f == 0 && math.Signbit(f)) {
		return "(0 - " + s + ")"
	}
	return s
}

// Quote renders s as a double-quoted literal using the lexer's escapes.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
