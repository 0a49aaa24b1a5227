// Package value implements the dynamically typed runtime value of the filter
// language and its PHP-compatible coercion rules.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

// Kind is the tag of a Value
type Kind int

const (
	Undefined Kind = iota
	Null
	Boolean
	Integer
	Float
	String
	Array
)

var kindNames = [...]string{
	Undefined: "undefined",
	Null:      "null",
	Boolean:   "bool",
	Integer:   "int",
	Float:     "float",
	String:    "string",
	Array:     "array",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is an immutable tagged union. The zero Value is Undefined.
//
// Arrays share their backing slice between copies of a Value; nothing in
// this package or its callers writes to it after construction.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string // string payload, or the variable name of an uninitialized Undefined
	arr  []Value
}

var (
	undefinedValue = Value{kind: Undefined}
	nullValue      = Value{kind: Null}
	trueValue      = Value{kind: Boolean, b: true}
	falseValue     = Value{kind: Boolean}
)

// Undef returns the Undefined value.
func Undef() Value { return undefinedValue }

// Uninitialized returns the Undefined value produced by reading a variable
// that was never set. It remembers the variable's name.
func Uninitialized(name string) Value { return Value{kind: Undefined, s: name} }

// NewNull returns the Null value.
func NewNull() Value { return nullValue }

// NewBool returns a Boolean value.
func NewBool(b bool) Value {
	if b {
		return trueValue
	}
	return falseValue
}

// NewInt returns an Integer value.
func NewInt(i int64) Value { return Value{kind: Integer, i: i} }

// NewFloat returns a Float value.
func NewFloat(f float64) Value { return Value{kind: Float, f: f} }

// NewString returns a String value.
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewArray returns an Array value holding a copy of elems.
func NewArray(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: Array, arr: cp}
}

// wrapArray takes ownership of elems without copying.
func wrapArray(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: Array, arr: elems}
}

// New builds a Value of the given kind and checks that the payload fits it.
// Integer accepts any Go integer or a whole float; Float accepts any number.
func New(kind Kind, payload any) (Value, error) {
	switch kind {
	case Undefined:
		return undefinedValue, nil
	case Null:
		if payload != nil {
			return Value{}, errCannotHold(kind, fmt.Sprintf("%T", payload))
		}
		return nullValue, nil
	case Boolean:
		if b, ok := payload.(bool); ok {
			return NewBool(b), nil
		}
	case Integer:
		switch p := payload.(type) {
		case int:
			return NewInt(int64(p)), nil
		case int32:
			return NewInt(int64(p)), nil
		case int64:
			return NewInt(p), nil
		case float64:
			if p == math.Trunc(p) && !math.IsInf(p, 0) && math.Abs(p) < 1<<63 {
				return NewInt(int64(p)), nil
			}
			return Value{}, errCannotHold(kind, fmt.Sprint(p))
		}
	case Float:
		switch p := payload.(type) {
		case float64:
			return NewFloat(p), nil
		case float32:
			return NewFloat(float64(p)), nil
		case int:
			return NewFloat(float64(p)), nil
		case int64:
			return NewFloat(float64(p)), nil
		}
	case String:
		if s, ok := payload.(string); ok {
			return NewString(s), nil
		}
	case Array:
		if elems, ok := payload.([]Value); ok {
			return NewArray(elems...), nil
		}
	default:
		return Value{}, fmt.Errorf("unknown kind %d", int(kind))
	}
	return Value{}, errCannotHold(kind, fmt.Sprintf("%T", payload))
}

func errCannotHold(kind Kind, got string) error {
	return errors.New("TYPE-0001", map[string]any{"Kind": kind.String(), "Got": got})
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is Undefined.
func (v Value) IsUndefined() bool { return v.kind == Undefined }

// IsNumeric reports whether v is an Integer or a Float.
func (v Value) IsNumeric() bool { return v.kind == Integer || v.kind == Float }

// VarName returns the variable name of an uninitialized Undefined, or "".
func (v Value) VarName() string {
	if v.kind == Undefined {
		return v.s
	}
	return ""
}

// Len returns the number of elements of an Array, or 0.
func (v Value) Len() int { return len(v.arr) }

// Index returns the i-th element of an Array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Elements returns a copy of the elements of an Array, or nil.
func (v Value) Elements() []Value {
	if v.kind != Array {
		return nil
	}
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp
}

// WithIndex returns a new Array equal to v with element i replaced.
func (v Value) WithIndex(i int, elem Value) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	cp := v.Elements()
	cp[i] = elem
	return wrapArray(cp), true
}

// Append returns a new Array equal to v with elem appended.
func (v Value) Append(elem Value) Value {
	cp := make([]Value, len(v.arr), len(v.arr)+1)
	copy(cp, v.arr)
	return wrapArray(append(cp, elem))
}

// HasUndefined reports whether v is Undefined or an Array containing one at
// any depth.
func (v Value) HasUndefined() bool {
	if v.kind == Undefined {
		return true
	}
	for _, e := range v.arr {
		if e.HasUndefined() {
			return true
		}
	}
	return false
}

// Truthy returns the truthiness of v. Undefined is falsy here; callers that
// must propagate Undefined check for it first or use AsBoolean.
func (v Value) Truthy() bool {
	switch v.kind {
	case Boolean:
		return v.b
	case Integer:
		return v.i != 0
	case Float:
		return v.f != 0
	case String:
		return v.s != "" && v.s != "0"
	case Array:
		return len(v.arr) > 0
	}
	return false
}

// Float returns v as a float64 using numeric coercion.
func (v Value) Float() float64 {
	switch v.kind {
	case Boolean:
		if v.b {
			return 1
		}
		return 0
	case Integer:
		return float64(v.i)
	case Float:
		return v.f
	case String:
		return parseNumericPrefix(v.s)
	case Array:
		return float64(len(v.arr))
	}
	return 0
}

// Int returns v as an int64 using numeric coercion, truncating toward zero.
// NaN and infinities become 0; other out of range floats saturate.
func (v Value) Int() int64 {
	if v.kind == Integer {
		return v.i
	}
	return floatToInt(v.Float())
}

func floatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// String returns the string form of v. Arrays render as each element's
// string form followed by a newline. Undefined renders as "".
func (v Value) String() string {
	switch v.kind {
	case Boolean:
		if v.b {
			return "1"
		}
		return ""
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return FormatFloat(v.f)
	case String:
		return v.s
	case Array:
		var sb strings.Builder
		for _, e := range v.arr {
			sb.WriteString(e.String())
			sb.WriteByte('\n')
		}
		return sb.String()
	}
	return ""
}

// AsBoolean coerces to a Boolean. Undefined stays Undefined.
func (v Value) AsBoolean() Value {
	if v.kind == Undefined {
		return v
	}
	return NewBool(v.Truthy())
}

// AsInt coerces to an Integer. Undefined stays Undefined.
func (v Value) AsInt() Value {
	if v.kind == Undefined {
		return v
	}
	return NewInt(v.Int())
}

// AsFloat coerces to a Float. Undefined stays Undefined.
func (v Value) AsFloat() Value {
	if v.kind == Undefined {
		return v
	}
	return NewFloat(v.Float())
}

// AsString coerces to a String. Undefined stays Undefined.
func (v Value) AsString() Value {
	if v.kind == Undefined {
		return v
	}
	return NewString(v.String())
}

// AsArray wraps a non-array in a one-element Array. Undefined stays Undefined.
func (v Value) AsArray() Value {
	switch v.kind {
	case Undefined, Array:
		return v
	}
	return wrapArray([]Value{v})
}

// parseNumericPrefix parses the longest leading decimal number of s, after
// optional leading whitespace, returning 0 when there is none.
func parseNumericPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := numericPrefixLen(s)
	if end == 0 {
		return 0
	}
	// on a range error ParseFloat still returns ±Inf or 0
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

// numericPrefixLen returns the length of the leading
// [+-]?(digits[.digits]|.digits)([eE][+-]?digits)? match of s.
func numericPrefixLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := countDigits(s[i:])
	i += intDigits
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracDigits = countDigits(s[i+1:])
		if intDigits > 0 || fracDigits > 0 {
			i += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if n := countDigits(s[j:]); n > 0 {
			i = j + n
		}
	}
	return i
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// IsNumericString reports whether s is a PHP numeric string: optional
// surrounding whitespace around a complete decimal number.
func IsNumericString(s string) bool {
	trimmed := strings.Trim(s, " \t\n\r\v\f")
	return trimmed != "" && numericPrefixLen(trimmed) == len(trimmed)
}
