package il

import "fmt"

// SequencePoint correlates an instruction with a source range.
type SequencePoint struct {
	Document    string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Hidden      bool
}

// String renders the range as `file:line:col-line:col`.
func (sp SequencePoint) String() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", sp.Document, sp.StartLine, sp.StartColumn, sp.EndLine, sp.EndColumn)
}

// Instruction is one operation of a method body.
//
// Offset is valid as of the last materialization of the body. OriginalOffset is
// the offset the instruction had when it was loaded and never changes; it is
// what descriptions and sequence-point lookups use. Instructions synthesized
// by a patch inherit the original offset of the instruction they were inserted
// after.
type Instruction struct {
	ID             InstrID
	OpCode         OpCode
	Operand        Operand
	Offset         int
	OriginalOffset int
	SequencePoint  *SequencePoint
}

// Label renders an offset the way listings do.
func Label(offset int) string {
	return fmt.Sprintf("IL_%04x", offset)
}

// Same reports whether two instructions encode the same operation.
func (in Instruction) Same(other Instruction) bool {
	return in.OpCode == other.OpCode && in.Operand.Equal(other.Operand)
}

// IsNop reports a no-op.
func (in Instruction) IsNop() bool { return in.OpCode == Nop }

// IsReturn reports ret.
func (in Instruction) IsReturn() bool { return in.OpCode == Ret }

// VariableIndex returns the local slot read or written by ldloc/stloc forms.
func (in Instruction) VariableIndex() (int, bool) {
	if !in.OpCode.IsLoadLocal() && !in.OpCode.IsStoreLocal() {
		return 0, false
	}

	if info := in.OpCode.info(); info.hasImp {
		return info.implied, true
	}

	return in.Operand.Index, true
}

// ParameterIndex returns the argument slot read or written by ldarg/starg forms.
func (in Instruction) ParameterIndex() (int, bool) {
	if !in.OpCode.IsLoadArg() && !in.OpCode.IsStoreArg() {
		return 0, false
	}

	if info := in.OpCode.info(); info.hasImp {
		return info.implied, true
	}

	return in.Operand.Index, true
}

// IntConstant returns the value pushed by ldc.i4/ldc.i8 forms.
func (in Instruction) IntConstant() (int64, bool) {
	switch in.OpCode.Long() {
	case LdcI4, LdcI8:
	default:
		return 0, false
	}

	if info := in.OpCode.info(); info.hasImp {
		return int64(info.implied), true
	}

	return in.Operand.Int, true
}
