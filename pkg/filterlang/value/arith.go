package value

import (
	"math"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

func errUnsupported(op string) error {
	return errors.New("EVAL-0008", map[string]any{"Operator": op})
}

func errDivideByZero() error {
	return errors.New("EVAL-0002", nil)
}

// Arithmetic applies one of the binary operators + - * / % **.
func Arithmetic(op string, a, b Value) (Value, error) {
	switch op {
	case "+":
		return Add(a, b), nil
	case "-":
		return Sub(a, b), nil
	case "*":
		return Mul(a, b), nil
	case "/":
		return Div(a, b)
	case "%":
		return Mod(a, b)
	case "**":
		return Pow(a, b), nil
	}
	return Value{}, errUnsupported(op)
}

// Add concatenates when either operand is a String or both are Arrays and
// adds numerically otherwise.
func Add(a, b Value) Value {
	switch {
	case a.IsUndefined() || b.IsUndefined():
		return Undef()
	case a.kind == String || b.kind == String:
		return NewString(a.String() + b.String())
	case a.kind == Array && b.kind == Array:
		elems := make([]Value, 0, len(a.arr)+len(b.arr))
		elems = append(elems, a.arr...)
		return wrapArray(append(elems, b.arr...))
	}
	return numeric('+', a, b)
}

// Sub subtracts b from a.
func Sub(a, b Value) Value { return numeric('-', a, b) }

// Mul multiplies a by b.
func Mul(a, b Value) Value { return numeric('*', a, b) }

// numeric keeps Integer results only when both operands are Integers and
// the result does not overflow.
func numeric(op byte, a, b Value) Value {
	if a.IsUndefined() || b.IsUndefined() {
		return Undef()
	}
	if a.kind == Integer && b.kind == Integer {
		x, y := a.i, b.i
		switch op {
		case '+':
			if r := x + y; (r > x) == (y > 0) {
				return NewInt(r)
			}
		case '-':
			if r := x - y; (r < x) == (y > 0) {
				return NewInt(r)
			}
		case '*':
			if r, ok := mulInt(x, y); ok {
				return NewInt(r)
			}
		}
	}
	x, y := a.Float(), b.Float()
	switch op {
	case '+':
		return NewFloat(x + y)
	case '-':
		return NewFloat(x - y)
	}
	return NewFloat(x * y)
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	return r, true
}

// Div divides a by b. A zero divisor is an error even when a is Undefined.
func Div(a, b Value) (Value, error) {
	if b.IsUndefined() {
		return Undef(), nil
	}
	if b.Float() == 0 {
		return Value{}, errDivideByZero()
	}
	if a.IsUndefined() {
		return Undef(), nil
	}
	if a.kind == Integer && b.kind == Integer && a.i%b.i == 0 && !(a.i == math.MinInt64 && b.i == -1) {
		return NewInt(a.i / b.i), nil
	}
	return NewFloat(a.Float() / b.Float()), nil
}

// Mod truncates both operands toward zero and returns the Integer
// remainder. A divisor that truncates to zero is an error.
func Mod(a, b Value) (Value, error) {
	if b.IsUndefined() {
		return Undef(), nil
	}
	divisor := b.Int()
	if divisor == 0 {
		return Value{}, errDivideByZero()
	}
	if a.IsUndefined() {
		return Undef(), nil
	}
	return NewInt(a.Int() % divisor), nil
}

// Pow raises a to the power b. Integer operands give an Integer when the
// result is whole and fits.
func Pow(a, b Value) Value {
	if a.IsUndefined() || b.IsUndefined() {
		return Undef()
	}
	if a.kind == Integer && b.kind == Integer && b.i >= 0 {
		if r, ok := powInt(a.i, b.i); ok {
			return NewInt(r)
		}
	}
	r := math.Pow(a.Float(), b.Float())
	if a.kind == Integer && b.kind == Integer {
		if i, ok := wholeInt(r); ok {
			return NewInt(i)
		}
	}
	return NewFloat(r)
}

func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, ok := mulInt(result, base)
			if !ok {
				return 0, false
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, ok := mulInt(base, base)
			if !ok {
				return 0, false
			}
			base = b
		}
	}
	return result, true
}

// wholeInt converts f to an int64 when it is a whole number in range.
func wholeInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Negate implements unary minus. The result is an Integer whenever it is a
// whole number.
func Negate(v Value) Value {
	switch v.kind {
	case Undefined:
		return v
	case Integer:
		if v.i != math.MinInt64 {
			return NewInt(-v.i)
		}
	}
	return numberFrom(-v.Float())
}

// Plus implements unary plus, a numeric coercion with the same result
// typing as Negate.
func Plus(v Value) Value {
	switch v.kind {
	case Undefined, Integer:
		return v
	}
	return numberFrom(v.Float())
}

func numberFrom(f float64) Value {
	if i, ok := wholeInt(f); ok {
		return NewInt(i)
	}
	return NewFloat(f)
}

// Not negates the truthiness of v.
func Not(v Value) Value {
	if v.IsUndefined() {
		return v
	}
	return NewBool(!v.Truthy())
}

// And is the eager N-ary conjunction: false if any operand is falsy,
// otherwise Undefined if any operand is Undefined, otherwise true.
func And(operands ...Value) Value {
	undefined := false
	for _, v := range operands {
		if v.IsUndefined() {
			undefined = true
		} else if !v.Truthy() {
			return NewBool(false)
		}
	}
	if undefined {
		return Undef()
	}
	return NewBool(true)
}

// Or is the eager N-ary disjunction: true if any operand is truthy,
// otherwise Undefined if any operand is Undefined, otherwise false.
func Or(operands ...Value) Value {
	undefined := false
	for _, v := range operands {
		if v.IsUndefined() {
			undefined = true
		} else if v.Truthy() {
			return NewBool(true)
		}
	}
	if undefined {
		return Undef()
	}
	return NewBool(false)
}

// Xor is true when an odd number of operands is truthy. Any Undefined
// operand makes it Undefined.
func Xor(operands ...Value) Value {
	odd := false
	for _, v := range operands {
		if v.IsUndefined() {
			return Undef()
		}
		if v.Truthy() {
			odd = !odd
		}
	}
	return NewBool(odd)
}

// Logic applies &, | or ^ eagerly.
func Logic(op string, operands ...Value) (Value, error) {
	switch op {
	case "&":
		return And(operands...), nil
	case "|":
		return Or(operands...), nil
	case "^":
		return Xor(operands...), nil
	}
	return Value{}, errUnsupported(op)
}
