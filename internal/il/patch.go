package il

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyPatch is returned when a patch has no edits.
var ErrEmptyPatch = errors.New("empty patch")

// EditKind selects what an Edit does.
type EditKind uint8

// Edit kinds.
const (
	EditReplace EditKind = iota
	EditInsertAfter
)

// Edit is one change to a body, addressed by the index of the instruction in
// the body the patch is applied to.
type Edit struct {
	Kind         EditKind
	Index        int
	OpCode       OpCode
	Operand      Operand
	Instructions []Instruction
}

// Patch is a reversible set of edits over a base body. Applying a patch never
// touches the base: discarding the result restores the original program.
type Patch struct {
	Edits []Edit
}

// Replace swaps the opcode and operand of the instruction at index, keeping
// its identity, offsets and sequence point.
func Replace(index int, op OpCode, operand Operand) Edit {
	return Edit{Kind: EditReplace, Index: index, OpCode: op, Operand: operand}
}

// InsertAfter places synthetic instructions directly after index.
func InsertAfter(index int, instructions ...Instruction) Edit {
	return Edit{Kind: EditInsertAfter, Index: index, Instructions: instructions}
}

// Synthetic builds an instruction to be inserted by a patch.
func Synthetic(op OpCode, operand Operand) Instruction {
	return Instruction{OpCode: op, Operand: operand}
}

// NewPatch groups edits.
func NewPatch(edits ...Edit) Patch {
	return Patch{Edits: edits}
}

// Apply returns a new body with the patch applied. Inserted instructions get
// fresh IDs and inherit the offsets of the instruction they follow, so
// descriptions and sequence-point lookups still resolve to the original site.
func (b *Body) Apply(p Patch) (*Body, error) {
	if len(p.Edits) == 0 {
		return nil, ErrEmptyPatch
	}

	clone := b.Clone()
	inserts := make(map[int][]Instruction)

	for _, edit := range p.Edits {
		if edit.Index < 0 || edit.Index >= len(clone.Instructions) {
			return nil, fmt.Errorf("edit index %d out of range [0,%d)", edit.Index, len(clone.Instructions))
		}

		switch edit.Kind {
		case EditReplace:
			clone.Instructions[edit.Index].OpCode = edit.OpCode
			clone.Instructions[edit.Index].Operand = edit.Operand
		case EditInsertAfter:
			inserts[edit.Index] = append(inserts[edit.Index], edit.Instructions...)
		default:
			return nil, fmt.Errorf("unknown edit kind %d", edit.Kind)
		}
	}

	if len(inserts) == 0 {
		if err := clone.Validate(); err != nil {
			return nil, err
		}

		return clone, nil
	}

	anchors := make([]int, 0, len(inserts))
	for index := range inserts {
		anchors = append(anchors, index)
	}

	sort.Ints(anchors)

	next := clone.nextID
	total := len(clone.Instructions)

	for _, index := range anchors {
		total += len(inserts[index])
	}

	instructions := make([]Instruction, 0, total)

	for i, in := range clone.Instructions {
		instructions = append(instructions, in)

		for _, extra := range inserts[i] {
			extra.ID = next
			extra.Offset = in.Offset
			extra.OriginalOffset = in.OriginalOffset
			extra.SequencePoint = nil
			next++

			instructions = append(instructions, extra)
		}
	}

	patched := newBody(instructions, clone.Variables, clone.Handlers)
	if err := patched.Validate(); err != nil {
		return nil, err
	}

	return patched, nil
}
