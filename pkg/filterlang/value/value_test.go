package value

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

func same(a, b Value) bool {
	return a.Kind() == b.Kind() && a.Literal() == b.Literal()
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    Kind
		payload any
		wantErr bool
	}{
		{Integer, 3, false},
		{Integer, 3.0, false},
		{Integer, 3.5, true},
		{Integer, "3", true},
		{Float, 3, false},
		{Float, 2.5, false},
		{Boolean, true, false},
		{Boolean, 1, true},
		{String, "x", false},
		{String, 1, true},
		{Null, nil, false},
		{Null, 0, true},
		{Array, []Value{NewInt(1)}, false},
		{Array, []int{1}, true},
	}

	for _, tt := range tests {
		v, err := New(tt.kind, tt.payload)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%s, %#v) error = %v, wantErr %v", tt.kind, tt.payload, err, tt.wantErr)
			continue
		}
		if err == nil && v.Kind() != tt.kind {
			t.Errorf("New(%s, %#v).Kind() = %s", tt.kind, tt.payload, v.Kind())
		}
		if err != nil {
			if fe := errors.From(err); fe.Code != "TYPE-0001" {
				t.Errorf("New(%s, %#v) error code = %s, want TYPE-0001", tt.kind, tt.payload, fe.Code)
			}
		}
	}

	_, err := New(Integer, 3.5)
	if err == nil || err.Error() != "int value cannot hold 3.5" {
		t.Errorf("New(Integer, 3.5) error = %v", err)
	}
}

func TestUndefinedCoercions(t *testing.T) {
	for _, v := range []Value{Undef(), Uninitialized("user_name")} {
		for name, got := range map[string]Value{
			"AsBoolean": v.AsBoolean(),
			"AsInt":     v.AsInt(),
			"AsFloat":   v.AsFloat(),
			"AsString":  v.AsString(),
			"AsArray":   v.AsArray(),
		} {
			if !got.IsUndefined() {
				t.Errorf("%s of %v = %s, want undefined", name, v.Literal(), got.Kind())
			}
		}
	}
	if Uninitialized("user_name").VarName() != "user_name" {
		t.Error("uninitialized value should keep the variable name")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{NewNull(), false},
		{NewBool(true), true},
		{NewBool(false), false},
		{NewInt(0), false},
		{NewInt(-1), true},
		{NewFloat(0), false},
		{NewFloat(0.1), true},
		{NewString(""), false},
		{NewString("0"), false},
		{NewString("0.0"), true},
		{NewString(" "), true},
		{NewArray(), false},
		{NewArray(NewInt(0)), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%s.Truthy() = %v, want %v", tt.v.Literal(), got, tt.want)
		}
	}
}

func TestNumericCoercion(t *testing.T) {
	floats := []struct {
		v    Value
		want float64
	}{
		{NewString("  12abc"), 12},
		{NewString("abc"), 0},
		{NewString(".5x"), 0.5},
		{NewString("1e3"), 1000},
		{NewString("-3.5"), -3.5},
		{NewString("0x1A"), 0},
		{NewString("1e"), 1},
		{NewBool(true), 1},
		{NewNull(), 0},
		{NewArray(NewInt(1), NewInt(2)), 2},
	}
	for _, tt := range floats {
		if got := tt.v.Float(); got != tt.want {
			t.Errorf("%s.Float() = %v, want %v", tt.v.Literal(), got, tt.want)
		}
	}

	ints := []struct {
		v    Value
		want int64
	}{
		{NewString("1.9"), 1},
		{NewString("-1.9"), -1},
		{NewFloat(1e30), math.MaxInt64},
		{NewFloat(-1e30), math.MinInt64},
		{NewFloat(math.NaN()), 0},
		{NewFloat(math.Inf(1)), 0},
	}
	for _, tt := range ints {
		if got := tt.v.Int(); got != tt.want {
			t.Errorf("%s.Int() = %v, want %v", tt.v.Literal(), got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NewNull(), ""},
		{NewBool(true), "1"},
		{NewBool(false), ""},
		{NewInt(-42), "-42"},
		{NewFloat(2), "2"},
		{NewFloat(0.1 + 0.2), "0.3"},
		{NewArray(NewInt(1), NewArray(NewInt(2), NewInt(3)), NewString("x")), "1\n2\n3\n\nx\n"},
		{Undef(), ""},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%s.String() = %q, want %q", tt.v.Literal(), got, tt.want)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{1.5, "1.5"},
		{-2.5, "-2.5"},
		{0.1 + 0.2, "0.3"},
		{1.0 / 3, "0.333333333333333"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{0.000001, "0.000001"},
		{123456789012345678, "123456789012346000"},
		{math.Inf(1), "INF"},
		{math.Inf(-1), "-INF"},
		{math.NaN(), "NAN"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.f); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Undef(), "undefined"},
		{NewNull(), "null"},
		{NewBool(false), "false"},
		{NewInt(-3), "-3"},
		{NewFloat(1), "1.0"},
		{NewFloat(0.5), "0.5"},
		{NewFloat(-2), "(0 - 2.0)"},
		{NewFloat(1e21), "1000000000000000000000.0"},
		{NewString("a\"b\\c\n"), `"a\"b\\c\n"`},
		{NewArray(NewInt(1), NewString("x"), NewArray(NewBool(true))), `[1, "x", [true]]`},
		{NewArray(), "[]"},
	}
	for _, tt := range tests {
		if got := tt.v.Literal(); got != tt.want {
			t.Errorf("Literal() = %q, want %q", got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Value
		strict bool
		want   bool
	}{
		{"int and numeric string", NewInt(1), NewString("1"), false, true},
		{"strict int and string", NewInt(1), NewString("1"), true, false},
		{"int and whole float", NewInt(1), NewFloat(1), false, true},
		{"strict int and float", NewInt(1), NewFloat(1), true, false},
		{"string forms differ", NewInt(1), NewString("1.0"), false, false},
		{"null and false", NewNull(), NewBool(false), false, true},
		{"zero and false", NewInt(0), NewBool(false), false, false},
		{"empty array and false", NewArray(), NewBool(false), false, true},
		{"empty array and null", NewNull(), NewArray(), false, true},
		{"strict empty array and false", NewArray(), NewBool(false), true, false},
		{"array and scalar", NewArray(NewInt(1)), NewInt(1), false, false},
		{"equal arrays", NewArray(NewInt(1), NewInt(2)), NewArray(NewInt(1), NewInt(2)), true, true},
		{"loose arrays", NewArray(NewInt(1)), NewArray(NewString("1")), false, true},
		{"strict arrays", NewArray(NewInt(1)), NewArray(NewString("1")), true, false},
		{"different lengths", NewArray(NewInt(1)), NewArray(NewInt(1), NewInt(1)), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Equal(tt.a, tt.b, tt.strict)
			if got.Kind() != Boolean || got.Truthy() != tt.want {
				t.Errorf("Equal(%s, %s, %v) = %s, want %v", tt.a.Literal(), tt.b.Literal(), tt.strict, got.Literal(), tt.want)
			}
		})
	}

	if !Equal(Undef(), NewInt(1), false).IsUndefined() {
		t.Error("comparing with undefined should be undefined")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
		want bool
	}{
		{"<", NewInt(2), NewInt(10), true},
		{">", NewString("10"), NewString("9"), true},
		{"<", NewString("10"), NewString("9a"), true},
		{"<", NewString("abc"), NewString("abd"), true},
		{"<", NewNull(), NewInt(1), true},
		{"<=", NewString(" 5"), NewInt(5), true},
		{">=", NewFloat(2.5), NewInt(3), false},
		{">", NewString("9223372036854775807"), NewString("9223372036854775806"), true},
		{"!=", NewInt(1), NewInt(2), true},
		{"!==", NewInt(1), NewString("1"), true},
		{"===", NewString("a"), NewString("a"), true},
	}
	for _, tt := range tests {
		got, err := Compare(tt.op, tt.a, tt.b)
		if err != nil {
			t.Fatalf("Compare(%q) error = %v", tt.op, err)
		}
		if got.Kind() != Boolean || got.Truthy() != tt.want {
			t.Errorf("%s %s %s = %s, want %v", tt.a.Literal(), tt.op, tt.b.Literal(), got.Literal(), tt.want)
		}
	}

	if got, _ := Compare("<", Undef(), NewInt(1)); !got.IsUndefined() {
		t.Errorf("undefined < 1 = %s, want undefined", got.Literal())
	}
	if _, err := Compare("<>", NewInt(1), NewInt(1)); err == nil {
		t.Error("unknown operator should be an error")
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
		want Value
	}{
		{"+", NewInt(1), NewInt(2), NewInt(3)},
		{"+", NewInt(1), NewFloat(2.5), NewFloat(3.5)},
		{"+", NewString("a"), NewInt(1), NewString("a1")},
		{"+", NewInt(1), NewString("2"), NewString("12")},
		{"+", NewArray(NewInt(1)), NewArray(NewInt(2)), NewArray(NewInt(1), NewInt(2))},
		{"+", NewArray(NewInt(1), NewInt(2)), NewInt(1), NewFloat(3)},
		{"+", NewInt(math.MaxInt64), NewInt(1), NewFloat(math.MaxInt64 + 1.0)},
		{"-", NewInt(5), NewInt(7), NewInt(-2)},
		{"-", NewInt(math.MinInt64), NewInt(1), NewFloat(math.MinInt64 - 1.0)},
		{"*", NewInt(6), NewInt(7), NewInt(42)},
		{"*", NewInt(math.MaxInt64), NewInt(2), NewFloat(math.MaxInt64 * 2.0)},
		{"*", NewBool(true), NewInt(3), NewFloat(3)},
		{"/", NewInt(7), NewInt(2), NewFloat(3.5)},
		{"/", NewInt(6), NewInt(3), NewInt(2)},
		{"/", NewFloat(6), NewInt(3), NewFloat(2)},
		{"%", NewInt(7), NewInt(3), NewInt(1)},
		{"%", NewInt(-7), NewInt(3), NewInt(-1)},
		{"%", NewFloat(7.9), NewFloat(2.5), NewInt(1)},
		{"**", NewInt(2), NewInt(10), NewInt(1024)},
		{"**", NewInt(2), NewInt(-1), NewFloat(0.5)},
		{"**", NewInt(1), NewInt(-1), NewInt(1)},
		{"**", NewInt(2), NewInt(64), NewFloat(math.Pow(2, 64))},
		{"**", NewFloat(4), NewFloat(0.5), NewFloat(2)},
		{"+", Undef(), NewInt(1), Undef()},
		{"**", NewInt(1), Undef(), Undef()},
		{"/", NewInt(1), Undef(), Undef()},
	}

	for _, tt := range tests {
		got, err := Arithmetic(tt.op, tt.a, tt.b)
		if err != nil {
			t.Errorf("%s %s %s error = %v", tt.a.Literal(), tt.op, tt.b.Literal(), err)
			continue
		}
		if !same(got, tt.want) {
			t.Errorf("%s %s %s = %s (%s), want %s (%s)", tt.a.Literal(), tt.op, tt.b.Literal(),
				got.Literal(), got.Kind(), tt.want.Literal(), tt.want.Kind())
		}
	}
}

func TestDivideByZero(t *testing.T) {
	tests := []struct {
		op   string
		a, b Value
	}{
		{"/", NewInt(1), NewInt(0)},
		{"/", NewInt(1), NewString("abc")},
		{"/", Undef(), NewInt(0)},
		{"%", NewInt(5), NewFloat(0.5)},
		{"%", Undef(), NewNull()},
	}
	for _, tt := range tests {
		_, err := Arithmetic(tt.op, tt.a, tt.b)
		if !stderrors.Is(err, errors.ErrDivideByZero) {
			t.Errorf("%s %s %s error = %v, want divide by zero", tt.a.Literal(), tt.op, tt.b.Literal(), err)
		}
	}
}

func TestUnary(t *testing.T) {
	tests := []struct {
		name string
		got  Value
		want Value
	}{
		{"negate int", Negate(NewInt(3)), NewInt(-3)},
		{"negate whole float", Negate(NewFloat(2)), NewInt(-2)},
		{"negate float", Negate(NewFloat(1.5)), NewFloat(-1.5)},
		{"negate string", Negate(NewString("4")), NewInt(-4)},
		{"negate min int", Negate(NewInt(math.MinInt64)), NewFloat(-math.MinInt64)},
		{"negate undefined", Negate(Undef()), Undef()},
		{"plus string", Plus(NewString("2.5")), NewFloat(2.5)},
		{"plus int", Plus(NewInt(7)), NewInt(7)},
		{"not", Not(NewString("0")), NewBool(true)},
		{"not undefined", Not(Undef()), Undef()},
	}
	for _, tt := range tests {
		if !same(tt.got, tt.want) {
			t.Errorf("%s = %s (%s), want %s", tt.name, tt.got.Literal(), tt.got.Kind(), tt.want.Literal())
		}
	}
}

func TestEagerLogic(t *testing.T) {
	tr, fa, un := NewBool(true), NewBool(false), Undef()
	tests := []struct {
		op       string
		operands []Value
		want     Value
	}{
		{"&", []Value{tr, tr}, tr},
		{"&", []Value{tr, un}, un},
		{"&", []Value{un, fa}, fa},
		{"|", []Value{un, tr}, tr},
		{"|", []Value{fa, un}, un},
		{"|", []Value{fa, fa}, fa},
		{"^", []Value{tr, tr, tr}, tr},
		{"^", []Value{tr, tr}, fa},
		{"^", []Value{tr, un}, un},
	}
	for _, tt := range tests {
		got, err := Logic(tt.op, tt.operands...)
		if err != nil {
			t.Fatal(err)
		}
		if !same(got, tt.want) {
			t.Errorf("%s over %d operands = %s, want %s", tt.op, len(tt.operands), got.Literal(), tt.want.Literal())
		}
	}
}

func TestArrayUpdatesDoNotMutate(t *testing.T) {
	original := NewArray(NewInt(1), NewInt(2))

	replaced, ok := original.WithIndex(0, NewString("x"))
	if !ok {
		t.Fatal("WithIndex(0) failed")
	}
	appended := original.Append(NewInt(3))

	if original.Literal() != "[1, 2]" {
		t.Errorf("original changed to %s", original.Literal())
	}
	if replaced.Literal() != `["x", 2]` || appended.Literal() != "[1, 2, 3]" {
		t.Errorf("replaced = %s, appended = %s", replaced.Literal(), appended.Literal())
	}
	if _, ok := original.WithIndex(2, NewNull()); ok {
		t.Error("WithIndex out of range should fail")
	}
}

func TestFromNative(t *testing.T) {
	type named string

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"bool", true, "true"},
		{"int32", int32(-4), "-4"},
		{"uint8", uint8(200), "200"},
		{"huge uint", uint64(math.MaxUint64), "18446744073709551616.0"},
		{"float32", float32(0.5), "0.5"},
		{"string slice", []string{"a", "b"}, `["a", "b"]`},
		{"nested", []any{1, []any{"x", nil}}, `[1, ["x", null]]`},
		{"map", map[string]any{"b": 2, "a": "x"}, `["x", 2]`},
		{"named keys", map[named]int{"z": 1, "y": 2}, "[2, 1]"},
		{"pointer", func() any { s := "p"; return &s }(), `"p"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromNative(tt.in)
			if err != nil {
				t.Fatalf("FromNative() error = %v", err)
			}
			if got := v.Literal(); got != tt.want {
				t.Errorf("FromNative() = %s, want %s", got, tt.want)
			}
		})
	}

	unsupported := []struct {
		name string
		in   any
		got  string
	}{
		{"struct", struct{}{}, "struct {}"},
		{"nested channel", []any{1, make(chan int)}, "chan int"},
		{"int keys", map[int]string{1: "a"}, "map[int]string"},
	}
	for _, tt := range unsupported {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromNative(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			fe := errors.From(err)
			if fe.Code != "TYPE-0003" || fe.Data["Got"] != tt.got {
				t.Errorf("FromNative() error = %s %v, want TYPE-0003 for %s", fe.Code, fe.Data, tt.got)
			}
		})
	}
}

func TestNativeRoundTrip(t *testing.T) {
	inputs := []any{true, false, int64(0), int64(12), 2.5, "", "0", "text", []any{"a", int64(1), []any{}}}
	for _, in := range inputs {
		v, err := FromNative(in)
		if err != nil {
			t.Fatal(err)
		}
		back, err := FromNative(v.ToNative())
		if err != nil {
			t.Fatal(err)
		}
		if back.Truthy() != v.Truthy() || back.String() != v.String() {
			t.Errorf("round trip of %#v: got %s, want %s", in, back.Literal(), v.Literal())
		}
	}
}

func TestIsNumericString(t *testing.T) {
	tests := map[string]bool{
		"1":      true,
		" 1 ":    true,
		"-1.5":   true,
		"1.":     true,
		".5":     true,
		"1e10":   true,
		"+2E-3":  true,
		"":       false,
		"abc":    false,
		"1a":     false,
		"0x1A":   false,
		".":      false,
		"1e":     false,
		"- 1":    false,
		"1 2":    false,
		"\t\n7":  true,
	}
	for s, want := range tests {
		if got := IsNumericString(s); got != want {
			t.Errorf("IsNumericString(%q) = %v, want %v", s, got, want)
		}
	}
}
