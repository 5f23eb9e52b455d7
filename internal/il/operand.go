package il

import (
	"fmt"
	"strings"
)

// Kind tags the active member of an Operand.
type Kind uint8

// Operand kinds.
const (
	OperandNone Kind = iota
	OperandInt
	OperandFloat
	OperandString
	OperandVariable
	OperandParameter
	OperandField
	OperandMethod
	OperandTarget
)

// InstrID identifies an instruction within one body independently of its position.
type InstrID int

// FieldRef references a field by owner type, name and type.
type FieldRef struct {
	Owner string
	Name  string
	Type  string
}

// String renders the reference as `type Owner::Name`.
func (f FieldRef) String() string {
	return fmt.Sprintf("%s %s::%s", f.Type, f.Owner, f.Name)
}

// Key identifies the field regardless of its type.
func (f FieldRef) Key() string {
	return f.Owner + "::" + f.Name
}

// MethodRef references a method by owner type, name and signature.
type MethodRef struct {
	Instance bool
	Returns  string
	Owner    string
	Name     string
	Params   []string
}

// String renders the reference as `[instance] ret Owner::Name(p1,p2)`.
func (m MethodRef) String() string {
	prefix := ""
	if m.Instance {
		prefix = "instance "
	}

	return fmt.Sprintf("%s%s %s::%s(%s)", prefix, m.Returns, m.Owner, m.Name, strings.Join(m.Params, ","))
}

// Key identifies the method by owner and name.
func (m MethodRef) Key() string {
	return m.Owner + "::" + m.Name
}

// Operand is a tagged union of everything an instruction can refer to.
type Operand struct {
	Kind   Kind
	Int    int64
	Float  float64
	String string
	Index  int
	Field  FieldRef
	Method MethodRef
	Target InstrID
}

// NoOperand is the empty operand.
func NoOperand() Operand { return Operand{} }

// IntOperand wraps an integer constant.
func IntOperand(v int64) Operand { return Operand{Kind: OperandInt, Int: v} }

// FloatOperand wraps a floating-point constant.
func FloatOperand(v float64) Operand { return Operand{Kind: OperandFloat, Float: v} }

// StringOperand wraps a string literal.
func StringOperand(v string) Operand { return Operand{Kind: OperandString, String: v} }

// VariableOperand references a local variable slot.
func VariableOperand(index int) Operand { return Operand{Kind: OperandVariable, Index: index} }

// ParameterOperand references an argument slot (slot 0 is `this` for instance methods).
func ParameterOperand(index int) Operand { return Operand{Kind: OperandParameter, Index: index} }

// FieldOperand references a field.
func FieldOperand(ref FieldRef) Operand { return Operand{Kind: OperandField, Field: ref} }

// MethodOperand references a method.
func MethodOperand(ref MethodRef) Operand { return Operand{Kind: OperandMethod, Method: ref} }

// TargetOperand references a branch target.
func TargetOperand(id InstrID) Operand { return Operand{Kind: OperandTarget, Target: id} }

// Equal reports structural equality.
func (o Operand) Equal(other Operand) bool {
	if o.Kind != other.Kind {
		return false
	}

	switch o.Kind {
	case OperandNone:
		return true
	case OperandInt:
		return o.Int == other.Int
	case OperandFloat:
		return o.Float == other.Float
	case OperandString:
		return o.String == other.String
	case OperandVariable, OperandParameter:
		return o.Index == other.Index
	case OperandField:
		return o.Field == other.Field
	case OperandMethod:
		return o.Method.String() == other.Method.String()
	case OperandTarget:
		return o.Target == other.Target
	default:
		return false
	}
}
