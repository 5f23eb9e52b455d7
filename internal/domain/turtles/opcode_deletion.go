package turtles

import (
	"iter"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// OpCodeDeletionTurtle replaces single instructions with nop.
type OpCodeDeletionTurtle struct{}

// Name implements Turtle.
func (OpCodeDeletionTurtle) Name() string { return "opcode-deletion" }

// Description implements Turtle.
func (OpCodeDeletionTurtle) Description() string {
	return "Replaces one instruction with nop"
}

// Mutate implements Turtle.
func (t OpCodeDeletionTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		nop := il.Synthetic(il.Nop, il.NoOperand())

		for i, in := range s.body.Instructions {
			if in.IsNop() || in.IsReturn() || s.body.IsMeaninglessBranch(i) {
				continue
			}

			mutant, ok := s.mutant(i, il.NewPatch(il.Replace(i, il.Nop, il.NoOperand())), s.render(nop))
			if ok && !yield(mutant) {
				return
			}
		}
	}
}
