package turtles

import (
	"iter"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

var inverseBranch = map[il.OpCode]il.OpCode{
	il.Brtrue:  il.Brfalse,
	il.Brfalse: il.Brtrue,
	il.Beq:     il.BneUn,
	il.BneUn:   il.Beq,
	il.Blt:     il.Bge,
	il.Bge:     il.Blt,
	il.Bgt:     il.Ble,
	il.Ble:     il.Bgt,
}

// BranchTurtle rotates branch conditions: a conditional branch is inverted,
// never taken or always taken, and an unconditional branch is removed.
type BranchTurtle struct{}

// Name implements Turtle.
func (BranchTurtle) Name() string { return "branch" }

// Description implements Turtle.
func (BranchTurtle) Description() string {
	return "Inverts, disables or forces branch conditions"
}

// Mutate implements Turtle.
func (t BranchTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		for i, in := range s.body.Instructions {
			if !in.OpCode.IsBranch() || in.OpCode == il.Leave || s.body.IsMeaninglessBranch(i) {
				continue
			}

			for _, mutant := range branchMutants(s, i, in) {
				if !yield(mutant) {
					return
				}
			}
		}
	}
}

func branchMutants(s site, i int, in il.Instruction) []Mutant {
	var mutants []Mutant

	add := func(patch il.Patch, replacement ...il.Instruction) {
		if mutant, ok := s.mutant(i, patch, s.render(replacement...)); ok {
			mutants = append(mutants, mutant)
		}
	}

	if in.OpCode == il.Br {
		nop := il.Synthetic(il.Nop, il.NoOperand())
		add(il.NewPatch(il.Replace(i, il.Nop, il.NoOperand())), nop)

		return mutants
	}

	pop := il.Synthetic(il.Pop, il.NoOperand())
	jump := il.Synthetic(il.Br, in.Operand)

	inverse := il.Synthetic(inverseBranch[in.OpCode], in.Operand)
	add(il.NewPatch(il.Replace(i, inverse.OpCode, in.Operand)), inverse)

	if in.OpCode.IsCompareBranch() {
		add(il.NewPatch(il.Replace(i, il.Pop, il.NoOperand()), il.InsertAfter(i, pop)), pop, pop)
		add(il.NewPatch(il.Replace(i, il.Pop, il.NoOperand()), il.InsertAfter(i, pop, jump)), pop, pop, jump)

		return mutants
	}

	add(il.NewPatch(il.Replace(i, il.Pop, il.NoOperand())), pop)
	add(il.NewPatch(il.Replace(i, il.Pop, il.NoOperand()), il.InsertAfter(i, jump)), pop, jump)

	return mutants
}
