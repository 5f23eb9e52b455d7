package il

import (
	"errors"
	"fmt"
)

// EndOfBody marks a handler boundary that extends to the end of the body.
const EndOfBody InstrID = -1

// ErrDanglingTarget is returned when a branch or handler names an instruction
// that is not part of the body.
var ErrDanglingTarget = errors.New("dangling instruction reference")

// Variable is a typed local slot.
type Variable struct {
	Index int
	Name  string
	Type  string
}

// HandlerKind classifies an exception handler region.
type HandlerKind string

// Handler kinds.
const (
	HandlerFinally HandlerKind = "finally"
)

// Handler is a protected region and the block guarding it. Start boundaries
// are inclusive, end boundaries exclusive.
type Handler struct {
	Kind         HandlerKind
	TryStart     InstrID
	TryEnd       InstrID
	HandlerStart InstrID
	HandlerEnd   InstrID
}

// Body is an ordered instruction sequence with its locals and handlers.
//
// A Body is not edited after construction: every transform returns a new
// body, so a loaded body can be shared by concurrent readers.
type Body struct {
	Instructions []Instruction
	Variables    []Variable
	Handlers     []Handler

	nextID InstrID
	index  map[InstrID]int
}

// NewBody builds a body and validates its internal references. Instructions
// whose IDs are all zero are numbered sequentially.
func NewBody(instructions []Instruction, variables []Variable, handlers []Handler) (*Body, error) {
	numbered := false

	for i := range instructions {
		if instructions[i].ID != 0 {
			numbered = true
			break
		}
	}

	if !numbered {
		for i := range instructions {
			instructions[i].ID = InstrID(i)
		}
	}

	body := newBody(instructions, variables, handlers)
	if err := body.Validate(); err != nil {
		return nil, err
	}

	return body, nil
}

func newBody(instructions []Instruction, variables []Variable, handlers []Handler) *Body {
	body := &Body{
		Instructions: instructions,
		Variables:    variables,
		Handlers:     handlers,
		index:        make(map[InstrID]int, len(instructions)),
	}

	for i, in := range instructions {
		body.index[in.ID] = i
		if in.ID >= body.nextID {
			body.nextID = in.ID + 1
		}
	}

	return body
}

// Len returns the number of instructions.
func (b *Body) Len() int {
	return len(b.Instructions)
}

// At returns the instruction at index i.
func (b *Body) At(i int) Instruction {
	return b.Instructions[i]
}

// IndexOf returns the current position of the instruction with the given ID.
func (b *Body) IndexOf(id InstrID) (int, bool) {
	i, ok := b.index[id]
	return i, ok
}

// OffsetOf returns the offset of the instruction at index i as of the last
// materialization.
func (b *Body) OffsetOf(i int) int {
	return b.Instructions[i].Offset
}

// Next returns the instruction following index i.
func (b *Body) Next(i int) (Instruction, bool) {
	if i+1 >= len(b.Instructions) {
		return Instruction{}, false
	}

	return b.Instructions[i+1], true
}

// TargetIndex resolves the branch target of the instruction at index i.
func (b *Body) TargetIndex(i int) (int, bool) {
	in := b.Instructions[i]
	if !in.OpCode.IsBranch() {
		return 0, false
	}

	return b.IndexOf(in.Operand.Target)
}

// Variable returns the local slot with the given index.
func (b *Body) Variable(index int) (Variable, bool) {
	for _, v := range b.Variables {
		if v.Index == index {
			return v, true
		}
	}

	return Variable{}, false
}

// Validate checks that branch targets and handler boundaries resolve.
func (b *Body) Validate() error {
	seen := make(map[InstrID]struct{}, len(b.Instructions))

	for _, in := range b.Instructions {
		if _, dup := seen[in.ID]; dup {
			return fmt.Errorf("duplicate instruction id %d", in.ID)
		}

		seen[in.ID] = struct{}{}
	}

	for _, in := range b.Instructions {
		if !in.OpCode.IsBranch() {
			continue
		}

		if _, ok := seen[in.Operand.Target]; !ok {
			return fmt.Errorf("%w: %s at %s targets id %d", ErrDanglingTarget, in.OpCode, Label(in.OriginalOffset), in.Operand.Target)
		}
	}

	for _, h := range b.Handlers {
		for _, id := range []InstrID{h.TryStart, h.TryEnd, h.HandlerStart, h.HandlerEnd} {
			if id == EndOfBody {
				continue
			}

			if _, ok := seen[id]; !ok {
				return fmt.Errorf("%w: %s handler boundary id %d", ErrDanglingTarget, h.Kind, id)
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the body.
func (b *Body) Clone() *Body {
	instructions := make([]Instruction, len(b.Instructions))
	copy(instructions, b.Instructions)

	variables := make([]Variable, len(b.Variables))
	copy(variables, b.Variables)

	handlers := make([]Handler, len(b.Handlers))
	copy(handlers, b.Handlers)

	clone := newBody(instructions, variables, handlers)
	if b.nextID > clone.nextID {
		clone.nextID = b.nextID
	}

	return clone
}

// Materialized returns a copy whose offsets are recomputed from the current
// encodings.
func (b *Body) Materialized() *Body {
	clone := b.Clone()

	offset := 0
	for i := range clone.Instructions {
		clone.Instructions[i].Offset = offset
		offset += clone.Instructions[i].OpCode.Size()
	}

	return clone
}

// CodeSize is the encoded size of the body as of the last materialization.
func (b *Body) CodeSize() int {
	if len(b.Instructions) == 0 {
		return 0
	}

	last := b.Instructions[len(b.Instructions)-1]

	return last.Offset + last.OpCode.Size()
}

// regionContains reports whether index i lies in [start, end).
func (b *Body) regionContains(start, end InstrID, i int) bool {
	from, ok := b.IndexOf(start)
	if !ok {
		return false
	}

	to := len(b.Instructions)
	if end != EndOfBody {
		if idx, ok := b.IndexOf(end); ok {
			to = idx
		}
	}

	return i >= from && i < to
}

// InTry reports whether index i lies in the protected region of h.
func (b *Body) InTry(h Handler, i int) bool {
	return b.regionContains(h.TryStart, h.TryEnd, i)
}

// InHandler reports whether index i lies in the handler block of h.
func (b *Body) InHandler(h Handler, i int) bool {
	return b.regionContains(h.HandlerStart, h.HandlerEnd, i)
}
