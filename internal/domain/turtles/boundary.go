package turtles

import (
	"iter"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

var boundaryBranch = map[il.OpCode]il.OpCode{
	il.Blt: il.Ble,
	il.Ble: il.Blt,
	il.Bgt: il.Bge,
	il.Bge: il.Bgt,
}

// ConditionalBoundaryTurtle toggles the strictness of comparisons: `<`
// becomes `<=` and `>` becomes `>=`, and the other way round for branches.
type ConditionalBoundaryTurtle struct{}

// Name implements Turtle.
func (ConditionalBoundaryTurtle) Name() string { return "boundary" }

// Description implements Turtle.
func (ConditionalBoundaryTurtle) Description() string {
	return "Swaps strict and non-strict comparisons"
}

// Mutate implements Turtle.
func (t ConditionalBoundaryTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		for i, in := range s.body.Instructions {
			mutant, ok := boundaryMutant(s, i, in)
			if ok && !yield(mutant) {
				return
			}
		}
	}
}

func boundaryMutant(s site, i int, in il.Instruction) (Mutant, bool) {
	// a <= b is !(a > b) and a >= b is !(a < b)
	var flipped il.OpCode

	switch in.OpCode {
	case il.Clt:
		flipped = il.Cgt
	case il.Cgt:
		flipped = il.Clt
	default:
		op, ok := boundaryBranch[in.OpCode]
		if !ok {
			return Mutant{}, false
		}

		replacement := il.Synthetic(op, in.Operand)

		return s.mutant(i, il.NewPatch(il.Replace(i, op, in.Operand)), s.render(replacement))
	}

	compare := il.Synthetic(flipped, il.NoOperand())
	zero := il.Synthetic(il.LdcI4, il.IntOperand(0))
	ceq := il.Synthetic(il.Ceq, il.NoOperand())

	patch := il.NewPatch(il.Replace(i, flipped, il.NoOperand()), il.InsertAfter(i, zero, ceq))

	return s.mutant(i, patch, s.render(compare, zero, ceq))
}
