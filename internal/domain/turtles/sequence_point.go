package turtles

import (
	"iter"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// SequencePointDeletionTurtle removes the code of one source statement by
// branching over every instruction that shares its sequence point.
type SequencePointDeletionTurtle struct{}

// Name implements Turtle.
func (SequencePointDeletionTurtle) Name() string { return "sequence-point" }

// Description implements Turtle.
func (SequencePointDeletionTurtle) Description() string {
	return "Skips the instructions of one source statement"
}

// Mutate implements Turtle.
func (t SequencePointDeletionTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		caches := s.body.ReturnCacheVariables()

		for _, run := range s.body.SequencePointRuns() {
			if run.Point == nil || !deletable(s.body, run, caches) {
				continue
			}

			jump := il.Synthetic(il.Br, il.TargetOperand(s.body.At(run.End).ID))

			mutant, ok := s.mutant(run.Start, il.NewPatch(il.Replace(run.Start, il.Br, jump.Operand)), s.render(jump))
			if ok && !yield(mutant) {
				return
			}
		}
	}
}

// deletable excludes runs whose removal is meaningless or breaks the method:
// pure bookkeeping, returns, return-cache stores, constructor chaining, and
// the last run of the body.
func deletable(body *il.Body, run il.Run, caches map[int]bool) bool {
	if run.End >= body.Len() {
		return false
	}

	trivial := true

	for i := run.Start; i < run.End; i++ {
		in := body.At(i)

		switch in.OpCode {
		case il.Nop, il.Pop, il.Leave:
		case il.Ret:
			return false
		default:
			trivial = false
		}

		if v, ok := in.VariableIndex(); ok && in.OpCode.IsStoreLocal() && caches[v] {
			return false
		}

		if body.IsBaseConstructorCall(i) {
			return false
		}
	}

	return !trivial
}
