// Package turtles provides the mutation operators ("turtles"). A turtle scans
// a method and lazily yields mutant copies of it, each differing from the base
// method at one site.
package turtles

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// Mutant is one mutated version of a method.
type Mutant struct {
	// Turtle is the name of the operator that produced the mutant.
	Turtle string
	// Description identifies the mutant within its method, e.g.
	// `IL_0003: add => sub`.
	Description string
	// Method is the mutated method. It shares nothing mutable with the base.
	Method *il.Method
	// Index is the position of the mutated instruction in the expanded base body.
	Index int
	// Original is the base instruction at Index.
	Original il.Instruction
	// Point is the source location of the mutated instruction, nil when the
	// method has no visible sequence point there.
	Point *il.SequencePoint
}

// Turtle is a mutation operator.
type Turtle interface {
	Name() string
	Description() string
	// Mutate returns the mutants of method. The sequence is finite and
	// restartable; each range rescans the method.
	Mutate(method *il.Method) iter.Seq[Mutant]
}

// site carries the expanded body a turtle scans and builds mutants from it.
type site struct {
	turtle string
	method *il.Method
	body   *il.Body
}

func newSite(turtle string, method *il.Method) (site, bool) {
	if method == nil || method.Body == nil || method.Body.Len() == 0 {
		return site{}, false
	}

	return site{turtle: turtle, method: method, body: method.Body.Expand()}, true
}

// mutant applies patch and describes the change of the instruction at index.
// A patch that does not apply is skipped.
func (s site) mutant(index int, patch il.Patch, replacement string) (Mutant, bool) {
	patched, err := s.body.Apply(patch)
	if err != nil {
		slog.Debug("skipping mutant", "turtle", s.turtle, "method", s.method.FullName(), "error", err)
		return Mutant{}, false
	}

	original := s.body.At(index)
	point, _ := s.body.SequencePointFor(index)

	return Mutant{
		Turtle:      s.turtle,
		Description: fmt.Sprintf("%s: %s => %s", il.Label(original.OriginalOffset), s.body.Render(original), replacement),
		Method:      s.method.WithBody(patched),
		Index:       index,
		Original:    original,
		Point:       point,
	}, true
}

// render formats synthetic instructions joined by "; ".
func (s site) render(instructions ...il.Instruction) string {
	parts := make([]string, len(instructions))
	for i, in := range instructions {
		parts[i] = s.body.Render(in)
	}

	return strings.Join(parts, "; ")
}

// rotation replaces every instruction whose opcode is in ops with each of the
// other opcodes of the set.
func rotation(name string, method *il.Method, ops []il.OpCode) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(name, method)
		if !ok {
			return
		}

		for i, in := range s.body.Instructions {
			if !slices.Contains(ops, in.OpCode) {
				continue
			}

			for _, op := range ops {
				if op == in.OpCode {
					continue
				}

				replacement := il.Synthetic(op, il.NoOperand())

				mutant, ok := s.mutant(i, il.NewPatch(il.Replace(i, op, il.NoOperand())), s.render(replacement))
				if ok && !yield(mutant) {
					return
				}
			}
		}
	}
}

// Count drains a mutant sequence.
func Count(mutants iter.Seq[Mutant]) int {
	n := 0
	for range mutants {
		n++
	}

	return n
}
