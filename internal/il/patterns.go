package il

import "strings"

const disposeMethod = "Dispose"

// IsMeaninglessBranch reports an unconditional branch whose target is its own
// successor. Compilers emit these as no-ops; rotating or deleting them cannot
// change behavior.
func (b *Body) IsMeaninglessBranch(i int) bool {
	in := b.Instructions[i]
	if in.OpCode.Long() != Br {
		return false
	}

	target, ok := b.TargetIndex(i)

	return ok && target == i+1
}

// InCleanupBlock reports whether index i lies in a compiler-generated
// resource-cleanup block: a finally handler that disposes a resource.
func (b *Body) InCleanupBlock(i int) bool {
	for _, h := range b.Handlers {
		if h.Kind != HandlerFinally || !b.InHandler(h, i) {
			continue
		}

		if b.handlerDisposes(h) {
			return true
		}
	}

	return false
}

func (b *Body) handlerDisposes(h Handler) bool {
	for i, in := range b.Instructions {
		if !b.InHandler(h, i) {
			continue
		}

		if in.OpCode.FlowControl() == FlowCall && in.Operand.Method.Name == disposeMethod {
			return true
		}
	}

	return false
}

// ReturnCacheVariables finds locals that only exist to carry the return value:
// read exactly once, and that read is immediately followed by ret.
func (b *Body) ReturnCacheVariables() map[int]bool {
	reads := make(map[int][]int)

	for i, in := range b.Instructions {
		if !in.OpCode.IsLoadLocal() {
			continue
		}

		v, _ := in.VariableIndex()
		reads[v] = append(reads[v], i)
	}

	caches := make(map[int]bool)

	for v, at := range reads {
		if len(at) != 1 {
			continue
		}

		if next, ok := b.Next(at[0]); ok && next.IsReturn() {
			caches[v] = true
		}
	}

	return caches
}

// IsSelfCachingRead reports a load whose value is immediately stored back into
// the same slot, or cached into a compiler-generated local.
func (b *Body) IsSelfCachingRead(i int) bool {
	in := b.Instructions[i]

	next, ok := b.Next(i)
	if !ok {
		return false
	}

	switch {
	case in.OpCode.IsLoadLocal() && next.OpCode.IsStoreLocal():
		src, _ := in.VariableIndex()
		dst, _ := next.VariableIndex()

		if src == dst {
			return true
		}

		return b.isCompilerGenerated(dst)
	case in.OpCode.IsLoadArg() && next.OpCode.IsStoreArg():
		src, _ := in.ParameterIndex()
		dst, _ := next.ParameterIndex()

		return src == dst
	case in.OpCode.IsLoadArg() && next.OpCode.IsStoreLocal():
		dst, _ := next.VariableIndex()
		return b.isCompilerGenerated(dst)
	default:
		return false
	}
}

func (b *Body) isCompilerGenerated(index int) bool {
	v, ok := b.Variable(index)
	if !ok {
		return false
	}

	return strings.HasPrefix(v.Name, "CS$") || strings.Contains(v.Name, "<>")
}

// IsBaseConstructorCall reports a constructor-chain call (`call instance void
// Base::.ctor()`), which must never be removed.
func (b *Body) IsBaseConstructorCall(i int) bool {
	in := b.Instructions[i]
	return in.OpCode == Call && in.Operand.Method.Name == ConstructorName
}

// SequencePointFor returns the nearest visible sequence point at or before i.
func (b *Body) SequencePointFor(i int) (*SequencePoint, bool) {
	for j := i; j >= 0; j-- {
		sp := b.Instructions[j].SequencePoint
		if sp == nil {
			continue
		}

		if sp.Hidden {
			return nil, false
		}

		return sp, true
	}

	return nil, false
}

// Run is a maximal slice [Start, End) of instructions sharing one sequence point.
type Run struct {
	Start int
	End   int
	Point *SequencePoint
}

// SequencePointRuns splits the body into runs. A run begins at an instruction
// carrying a sequence point and extends until the next one. Hidden points start
// runs with a nil Point.
func (b *Body) SequencePointRuns() []Run {
	var runs []Run

	current := -1

	for i, in := range b.Instructions {
		if in.SequencePoint == nil {
			continue
		}

		if current >= 0 {
			runs[current].End = i
		}

		run := Run{Start: i, End: len(b.Instructions)}
		if !in.SequencePoint.Hidden {
			run.Point = in.SequencePoint
		}

		runs = append(runs, run)
		current = len(runs) - 1
	}

	return runs
}
