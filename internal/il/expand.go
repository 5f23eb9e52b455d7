package il

import "math"

var (
	implicitArg   = [...]OpCode{Ldarg0, Ldarg1, Ldarg2, Ldarg3}
	implicitLoad  = [...]OpCode{Ldloc0, Ldloc1, Ldloc2, Ldloc3}
	implicitStore = [...]OpCode{Stloc0, Stloc1, Stloc2, Stloc3}
	implicitConst = [...]OpCode{LdcI4M1, LdcI40, LdcI41, LdcI42, LdcI43, LdcI44, LdcI45, LdcI46, LdcI47, LdcI48}
)

// Expand rewrites every short or implicit-operand encoding into its explicit
// long form, so that transforms can address operands uniformly. The rewrite
// is one-to-one: indices and IDs are preserved. Offsets are left as they were
// and are stale until the body is materialized again. Expanding an expanded
// body is a no-op.
func (b *Body) Expand() *Body {
	clone := b.Clone()

	for i := range clone.Instructions {
		clone.Instructions[i] = expandInstruction(clone.Instructions[i])
	}

	return clone
}

func expandInstruction(in Instruction) Instruction {
	if !in.OpCode.IsMacro() {
		return in
	}

	info := in.OpCode.info()
	long := info.long

	if info.hasImp {
		switch long {
		case Ldarg:
			in.Operand = ParameterOperand(info.implied)
		case Ldloc, Stloc:
			in.Operand = VariableOperand(info.implied)
		case LdcI4:
			in.Operand = IntOperand(int64(info.implied))
		}
	}

	in.OpCode = long

	return in
}

// IsExpanded reports whether the body contains no macro encodings.
func (b *Body) IsExpanded() bool {
	for _, in := range b.Instructions {
		if in.OpCode.IsMacro() {
			return false
		}
	}

	return true
}

// Compact chooses the shortest encoding for every instruction and returns the
// materialized result. Branches are first assumed short and widened until
// every displacement fits.
func (b *Body) Compact() *Body {
	clone := b.Expand()

	for i := range clone.Instructions {
		clone.Instructions[i] = compactInstruction(clone.Instructions[i])
	}

	for {
		clone = clone.Materialized()
		widened := false

		for i, in := range clone.Instructions {
			if in.OpCode.OperandKind() != ShortInlineBrTarget {
				continue
			}

			target, ok := clone.IndexOf(in.Operand.Target)
			if !ok {
				continue
			}

			displacement := clone.Instructions[target].Offset - (in.Offset + in.OpCode.Size())
			if displacement < math.MinInt8 || displacement > math.MaxInt8 {
				clone.Instructions[i].OpCode = in.OpCode.Long()
				widened = true
			}
		}

		if !widened {
			return clone
		}
	}
}

func compactInstruction(in Instruction) Instruction {
	switch in.OpCode {
	case Ldarg:
		return compactSlot(in, implicitArg[:], LdargS)
	case Starg:
		return compactSlot(in, nil, StargS)
	case Ldloc:
		return compactSlot(in, implicitLoad[:], LdlocS)
	case Stloc:
		return compactSlot(in, implicitStore[:], StlocS)
	case LdcI4:
		v := in.Operand.Int
		if v >= -1 && v <= 8 {
			in.OpCode = implicitConst[v+1]
			in.Operand = NoOperand()
		} else if v >= math.MinInt8 && v <= math.MaxInt8 {
			in.OpCode = LdcI4S
		}

		return in
	default:
		if short, ok := shortBranch[in.OpCode]; ok {
			in.OpCode = short
		}

		return in
	}
}

func compactSlot(in Instruction, implicit []OpCode, short OpCode) Instruction {
	index := in.Operand.Index
	if index >= 0 && index < len(implicit) {
		in.OpCode = implicit[index]
		in.Operand = NoOperand()

		return in
	}

	if index >= 0 && index <= math.MaxUint8 {
		in.OpCode = short
	}

	return in
}
