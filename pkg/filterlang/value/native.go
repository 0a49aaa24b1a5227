package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
)

// FromNative converts a Go value into a Value. It accepts nil, bool, every
// integer and float type, string, Value, slices and arrays of those, and
// maps with string keys. Maps become Arrays of their values in key order.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NewNull(), nil
	case Value:
		return t, nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case int:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case float64:
		return NewFloat(t), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return wrapArray(elems), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return NewFloat(float64(u)), nil
		}
		return NewInt(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return NewFloat(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			v, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return wrapArray(elems), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, errors.New("TYPE-0003", map[string]any{"Got": rv.Type().String()})
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		elems := make([]Value, len(keys))
		for i, k := range keys {
			v, err := FromNative(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			elems[i] = v
		}
		return wrapArray(elems), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NewNull(), nil
		}
		return FromNative(rv.Elem().Interface())
	}
	return Value{}, errors.New("TYPE-0003", map[string]any{"Got": fmt.Sprintf("%T", x)})
}

// ToNative converts v into plain Go values: nil, bool, int64, float64,
// string or []any. Undefined converts to nil.
func (v Value) ToNative() any {
	switch v.kind {
	case Boolean:
		return v.b
	case Integer:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToNative()
		}
		return out
	}
	return nil
}
