// Package il defines the stack-based instruction model that mutation turtles
// operate on: opcodes, operands, method bodies, assemblies and their codec.
package il

import "fmt"

// OpCode identifies a single operation of the instruction set.
type OpCode uint8

// Instruction set. Short and implicit-operand encodings follow their long form.
const (
	Nop OpCode = iota

	Ldarg
	LdargS
	Ldarg0
	Ldarg1
	Ldarg2
	Ldarg3
	Starg
	StargS

	Ldloc
	LdlocS
	Ldloc0
	Ldloc1
	Ldloc2
	Ldloc3
	Stloc
	StlocS
	Stloc0
	Stloc1
	Stloc2
	Stloc3

	LdcI4
	LdcI4S
	LdcI4M1
	LdcI40
	LdcI41
	LdcI42
	LdcI43
	LdcI44
	LdcI45
	LdcI46
	LdcI47
	LdcI48
	LdcI8
	LdcR8
	Ldstr
	Ldnull

	Ldfld
	Stfld
	Ldsfld
	Stsfld

	Add
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Neg
	Not

	Ceq
	Cgt
	Clt

	Br
	BrS
	Brtrue
	BrtrueS
	Brfalse
	BrfalseS
	Beq
	BeqS
	BneUn
	BneUnS
	Blt
	BltS
	Bgt
	BgtS
	Ble
	BleS
	Bge
	BgeS
	Leave
	LeaveS
	Endfinally

	Call
	Callvirt
	Newobj
	Ret
	Pop
	Dup

	opCodeCount
)

// OperandKind describes how an opcode's operand is encoded.
type OperandKind uint8

// Operand encodings.
const (
	InlineNone OperandKind = iota
	ShortInlineI
	InlineI
	InlineI8
	InlineR
	InlineString
	ShortInlineVar
	InlineVar
	ShortInlineArg
	InlineArg
	InlineField
	InlineMethod
	ShortInlineBrTarget
	InlineBrTarget
)

// FlowControl classifies how an opcode affects control flow.
type FlowControl uint8

// Flow control kinds.
const (
	FlowNext FlowControl = iota
	FlowBranch
	FlowCondBranch
	FlowReturn
	FlowCall
)

type opInfo struct {
	name    string
	operand OperandKind
	size    int // encoded opcode size in bytes, operand excluded
	flow    FlowControl
	long    OpCode // long form of a macro; equal to itself for long forms
	implied int    // implicit operand value for ldarg.N / ldloc.N / ldc.i4.N
	hasImp  bool
}

var opTable = [opCodeCount]opInfo{
	Nop: {name: "nop", size: 1},

	Ldarg:  {name: "ldarg", operand: InlineArg, size: 2},
	LdargS: {name: "ldarg.s", operand: ShortInlineArg, size: 1, long: Ldarg},
	Ldarg0: {name: "ldarg.0", size: 1, long: Ldarg, implied: 0, hasImp: true},
	Ldarg1: {name: "ldarg.1", size: 1, long: Ldarg, implied: 1, hasImp: true},
	Ldarg2: {name: "ldarg.2", size: 1, long: Ldarg, implied: 2, hasImp: true},
	Ldarg3: {name: "ldarg.3", size: 1, long: Ldarg, implied: 3, hasImp: true},
	Starg:  {name: "starg", operand: InlineArg, size: 2},
	StargS: {name: "starg.s", operand: ShortInlineArg, size: 1, long: Starg},

	Ldloc:  {name: "ldloc", operand: InlineVar, size: 2},
	LdlocS: {name: "ldloc.s", operand: ShortInlineVar, size: 1, long: Ldloc},
	Ldloc0: {name: "ldloc.0", size: 1, long: Ldloc, implied: 0, hasImp: true},
	Ldloc1: {name: "ldloc.1", size: 1, long: Ldloc, implied: 1, hasImp: true},
	Ldloc2: {name: "ldloc.2", size: 1, long: Ldloc, implied: 2, hasImp: true},
	Ldloc3: {name: "ldloc.3", size: 1, long: Ldloc, implied: 3, hasImp: true},
	Stloc:  {name: "stloc", operand: InlineVar, size: 2},
	StlocS: {name: "stloc.s", operand: ShortInlineVar, size: 1, long: Stloc},
	Stloc0: {name: "stloc.0", size: 1, long: Stloc, implied: 0, hasImp: true},
	Stloc1: {name: "stloc.1", size: 1, long: Stloc, implied: 1, hasImp: true},
	Stloc2: {name: "stloc.2", size: 1, long: Stloc, implied: 2, hasImp: true},
	Stloc3: {name: "stloc.3", size: 1, long: Stloc, implied: 3, hasImp: true},

	LdcI4:   {name: "ldc.i4", operand: InlineI, size: 1},
	LdcI4S:  {name: "ldc.i4.s", operand: ShortInlineI, size: 1, long: LdcI4},
	LdcI4M1: {name: "ldc.i4.m1", size: 1, long: LdcI4, implied: -1, hasImp: true},
	LdcI40:  {name: "ldc.i4.0", size: 1, long: LdcI4, implied: 0, hasImp: true},
	LdcI41:  {name: "ldc.i4.1", size: 1, long: LdcI4, implied: 1, hasImp: true},
	LdcI42:  {name: "ldc.i4.2", size: 1, long: LdcI4, implied: 2, hasImp: true},
	LdcI43:  {name: "ldc.i4.3", size: 1, long: LdcI4, implied: 3, hasImp: true},
	LdcI44:  {name: "ldc.i4.4", size: 1, long: LdcI4, implied: 4, hasImp: true},
	LdcI45:  {name: "ldc.i4.5", size: 1, long: LdcI4, implied: 5, hasImp: true},
	LdcI46:  {name: "ldc.i4.6", size: 1, long: LdcI4, implied: 6, hasImp: true},
	LdcI47:  {name: "ldc.i4.7", size: 1, long: LdcI4, implied: 7, hasImp: true},
	LdcI48:  {name: "ldc.i4.8", size: 1, long: LdcI4, implied: 8, hasImp: true},
	LdcI8:   {name: "ldc.i8", operand: InlineI8, size: 1},
	LdcR8:   {name: "ldc.r8", operand: InlineR, size: 1},
	Ldstr:   {name: "ldstr", operand: InlineString, size: 1},
	Ldnull:  {name: "ldnull", size: 1},

	Ldfld:  {name: "ldfld", operand: InlineField, size: 1},
	Stfld:  {name: "stfld", operand: InlineField, size: 1},
	Ldsfld: {name: "ldsfld", operand: InlineField, size: 1},
	Stsfld: {name: "stsfld", operand: InlineField, size: 1},

	Add: {name: "add", size: 1},
	Sub: {name: "sub", size: 1},
	Mul: {name: "mul", size: 1},
	Div: {name: "div", size: 1},
	Rem: {name: "rem", size: 1},
	And: {name: "and", size: 1},
	Or:  {name: "or", size: 1},
	Xor: {name: "xor", size: 1},
	Neg: {name: "neg", size: 1},
	Not: {name: "not", size: 1},

	Ceq: {name: "ceq", size: 2},
	Cgt: {name: "cgt", size: 2},
	Clt: {name: "clt", size: 2},

	Br:         {name: "br", operand: InlineBrTarget, size: 1, flow: FlowBranch},
	BrS:        {name: "br.s", operand: ShortInlineBrTarget, size: 1, flow: FlowBranch, long: Br},
	Brtrue:     {name: "brtrue", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BrtrueS:    {name: "brtrue.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Brtrue},
	Brfalse:    {name: "brfalse", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BrfalseS:   {name: "brfalse.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Brfalse},
	Beq:        {name: "beq", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BeqS:       {name: "beq.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Beq},
	BneUn:      {name: "bne.un", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BneUnS:     {name: "bne.un.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: BneUn},
	Blt:        {name: "blt", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BltS:       {name: "blt.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Blt},
	Bgt:        {name: "bgt", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BgtS:       {name: "bgt.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Bgt},
	Ble:        {name: "ble", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BleS:       {name: "ble.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Ble},
	Bge:        {name: "bge", operand: InlineBrTarget, size: 1, flow: FlowCondBranch},
	BgeS:       {name: "bge.s", operand: ShortInlineBrTarget, size: 1, flow: FlowCondBranch, long: Bge},
	Leave:      {name: "leave", operand: InlineBrTarget, size: 1, flow: FlowBranch},
	LeaveS:     {name: "leave.s", operand: ShortInlineBrTarget, size: 1, flow: FlowBranch, long: Leave},
	Endfinally: {name: "endfinally", size: 1, flow: FlowReturn},

	Call:     {name: "call", operand: InlineMethod, size: 1, flow: FlowCall},
	Callvirt: {name: "callvirt", operand: InlineMethod, size: 1, flow: FlowCall},
	Newobj:   {name: "newobj", operand: InlineMethod, size: 1, flow: FlowCall},
	Ret:      {name: "ret", size: 1, flow: FlowReturn},
	Pop:      {name: "pop", size: 1},
	Dup:      {name: "dup", size: 1},
}

var opByName = func() map[string]OpCode {
	names := make(map[string]OpCode, opCodeCount)
	for op := Nop; op < opCodeCount; op++ {
		names[opTable[op].name] = op
	}

	return names
}()

// short forms of branch opcodes, keyed by their long form.
var shortBranch = map[OpCode]OpCode{
	Br:      BrS,
	Brtrue:  BrtrueS,
	Brfalse: BrfalseS,
	Beq:     BeqS,
	BneUn:   BneUnS,
	Blt:     BltS,
	Bgt:     BgtS,
	Ble:     BleS,
	Bge:     BgeS,
	Leave:   LeaveS,
}

// ParseOpCode resolves an opcode by its mnemonic.
func ParseOpCode(name string) (OpCode, error) {
	op, ok := opByName[name]
	if !ok {
		return Nop, fmt.Errorf("unknown opcode %q", name)
	}

	return op, nil
}

func (op OpCode) info() opInfo {
	if op >= opCodeCount {
		return opInfo{name: fmt.Sprintf("op(%d)", uint8(op))}
	}

	return opTable[op]
}

// String returns the opcode mnemonic.
func (op OpCode) String() string {
	return op.info().name
}

// OperandKind reports how the opcode encodes its operand.
func (op OpCode) OperandKind() OperandKind {
	return op.info().operand
}

// FlowControl reports the opcode's effect on control flow.
func (op OpCode) FlowControl() FlowControl {
	return op.info().flow
}

// IsMacro reports whether op is a short or implicit-operand encoding.
func (op OpCode) IsMacro() bool {
	info := op.info()
	return info.long != Nop && info.long != op
}

// Long returns the canonical long form of op.
func (op OpCode) Long() OpCode {
	if op.IsMacro() {
		return op.info().long
	}

	return op
}

// IsBranch reports whether op transfers control to an instruction operand.
func (op OpCode) IsBranch() bool {
	kind := op.OperandKind()
	return kind == InlineBrTarget || kind == ShortInlineBrTarget
}

// IsConditionalBranch reports whether op branches depending on stack values.
func (op OpCode) IsConditionalBranch() bool {
	return op.FlowControl() == FlowCondBranch
}

// IsCompareBranch reports whether op compares two stack values before branching.
func (op OpCode) IsCompareBranch() bool {
	switch op.Long() {
	case Beq, BneUn, Blt, Bgt, Ble, Bge:
		return true
	default:
		return false
	}
}

// IsLoadLocal reports ldloc and its macros.
func (op OpCode) IsLoadLocal() bool { return op.Long() == Ldloc }

// IsStoreLocal reports stloc and its macros.
func (op OpCode) IsStoreLocal() bool { return op.Long() == Stloc }

// IsLoadArg reports ldarg and its macros.
func (op OpCode) IsLoadArg() bool { return op.Long() == Ldarg }

// IsStoreArg reports starg and its macros.
func (op OpCode) IsStoreArg() bool { return op.Long() == Starg }

// operandSize is the encoded operand width in bytes.
func (k OperandKind) operandSize() int {
	switch k {
	case InlineNone:
		return 0
	case ShortInlineI, ShortInlineVar, ShortInlineArg, ShortInlineBrTarget:
		return 1
	case InlineVar, InlineArg:
		return 2
	case InlineI, InlineString, InlineField, InlineMethod, InlineBrTarget:
		return 4
	case InlineI8, InlineR:
		return 8
	default:
		return 0
	}
}

// Size is the encoded size of op including its operand.
func (op OpCode) Size() int {
	info := op.info()
	return info.size + info.operand.operandSize()
}
