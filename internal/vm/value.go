package vm

import (
	"cmp"
	"fmt"
	"strconv"
)

// Kind is the dynamic type of a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindObject
)

// Object is a heap instance of a type.
type Object struct {
	Type   string
	Fields map[string]Value
}

// Value is one evaluation stack slot. Booleans are integers, as in the
// instruction set.
type Value struct {
	kind Kind
	i    int64
	// wide marks 64-bit integers; other integers wrap at 32 bits.
	wide bool
	f    float64
	s    string
	obj  *Object
}

// Null is the null reference.
func Null() Value { return Value{} }

// Int wraps an integer.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Long wraps a 64-bit integer.
func Long(v int64) Value { return Value{kind: KindInt, i: v, wide: true} }

// IsWide reports whether v is a 64-bit integer.
func (v Value) IsWide() bool { return v.wide }

// Float wraps a floating-point number.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String wraps a string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Ref wraps an object reference.
func Ref(o *Object) Value {
	if o == nil {
		return Null()
	}

	return Value{kind: KindObject, obj: o}
}

// Bool converts a Go bool to the integer encoding.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}

	return Int(0)
}

// Kind reports the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the integer payload.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the value as a float.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}

	return v.f
}

// AsString returns the string payload.
func (v Value) AsString() string { return v.s }

// AsObject returns the referenced object.
func (v Value) AsObject() *Object { return v.obj }

// IsNull reports the null reference.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Truthy is the branch interpretation: non-zero, non-null, non-empty.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return true
	case KindObject:
		return v.obj != nil
	default:
		return false
	}
}

// Equal compares by value for scalars and by identity for objects.
func (v Value) Equal(other Value) bool {
	if v.isNumeric() && other.isNumeric() {
		if v.kind == KindInt && other.kind == KindInt {
			return v.i == other.i
		}

		return v.AsFloat() == other.AsFloat()
	}

	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == other.s
	case KindObject:
		return v.obj == other.obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindObject:
		return fmt.Sprintf("%s@%p", v.obj.Type, v.obj)
	default:
		return "null"
	}
}

func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// compare orders two scalars. Values of different non-numeric kinds are
// unordered.
func compare(a, b Value) (int, bool) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmp.Compare(a.i, b.i), true
	case a.isNumeric() && b.isNumeric():
		return cmp.Compare(a.AsFloat(), b.AsFloat()), true
	case a.kind == KindString && b.kind == KindString:
		return cmp.Compare(a.s, b.s), true
	default:
		return 0, false
	}
}

// zeroValue is the default for a declared type.
func zeroValue(typ string) Value {
	switch typ {
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64", "bool", "char":
		return Int(0)
	case "float32", "float64":
		return Float(0)
	default:
		return Null()
	}
}
