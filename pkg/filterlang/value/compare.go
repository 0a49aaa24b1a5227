package value

import (
	"cmp"
	"strconv"
)

// Equal implements loose (==) or strict (===) equality. Scalars compare by
// their string form, strict equality additionally requiring equal kinds.
// Arrays compare element-wise and never equal a scalar, except that loosely
// an empty array equals false and null. Either operand containing Undefined
// makes the result Undefined.
func Equal(a, b Value, strict bool) Value {
	if a.HasUndefined() || b.HasUndefined() {
		return Undef()
	}
	return NewBool(equals(a, b, strict))
}

func equals(a, b Value, strict bool) bool {
	switch {
	case a.kind != Array && b.kind != Array:
		if strict && a.kind != b.kind {
			return false
		}
		return a.String() == b.String()
	case a.kind == Array && b.kind == Array:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !equals(a.arr[i], b.arr[i], strict) {
				return false
			}
		}
		return true
	case strict:
		return false
	case a.kind == Array && len(a.arr) == 0:
		return isFalseOrNull(b)
	case b.kind == Array && len(b.arr) == 0:
		return isFalseOrNull(a)
	}
	return false
}

func isFalseOrNull(v Value) bool {
	return v.kind == Null || (v.kind == Boolean && !v.b)
}

// Compare applies one of the comparison operators
// =, ==, ===, !=, !==, <, >, <= and >=.
func Compare(op string, a, b Value) (Value, error) {
	switch op {
	case "=", "==":
		return Equal(a, b, false), nil
	case "===":
		return Equal(a, b, true), nil
	case "!=":
		return Not(Equal(a, b, false)), nil
	case "!==":
		return Not(Equal(a, b, true)), nil
	}

	if op != "<" && op != ">" && op != "<=" && op != ">=" {
		return Value{}, errUnsupported(op)
	}
	if a.IsUndefined() || b.IsUndefined() {
		return Undef(), nil
	}

	c := order(a, b)
	switch op {
	case "<":
		return NewBool(c < 0), nil
	case ">":
		return NewBool(c > 0), nil
	case "<=":
		return NewBool(c <= 0), nil
	}
	return NewBool(c >= 0), nil
}

// order compares the string forms of a and b, numerically when both are
// numeric strings and byte-wise otherwise.
func order(a, b Value) int {
	as, bs := a.String(), b.String()
	if !IsNumericString(as) || !IsNumericString(bs) {
		return cmp.Compare(as, bs)
	}
	ai, aerr := strconv.ParseInt(trimSpace(as), 10, 64)
	bi, berr := strconv.ParseInt(trimSpace(bs), 10, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(numericStringValue(as), numericStringValue(bs))
}

func numericStringValue(s string) float64 {
	f, _ := strconv.ParseFloat(trimSpace(s), 64)
	return f
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
