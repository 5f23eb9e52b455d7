package turtles

import (
	"fmt"
	"iter"
	"strings"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// DefaultPermutationCap bounds the number of same-typed slots permuted
// together. A group of n slots yields n!-1 mutants.
const DefaultPermutationCap = 4

// PermutationTurtle swaps same-typed parameters, or same-typed locals, across
// every instruction that references them.
type PermutationTurtle struct {
	cap int
}

// NewPermutationTurtle creates a turtle permuting at most maxGroup slots of
// one type; zero or less means DefaultPermutationCap.
func NewPermutationTurtle(maxGroup int) PermutationTurtle {
	if maxGroup <= 0 {
		maxGroup = DefaultPermutationCap
	}

	return PermutationTurtle{cap: maxGroup}
}

// Name implements Turtle.
func (PermutationTurtle) Name() string { return "permutation" }

// Description implements Turtle.
func (PermutationTurtle) Description() string {
	return "Permutes parameters or locals that share a type"
}

type slotGroup struct {
	kind  string
	slots []int
}

// Mutate implements Turtle.
func (t PermutationTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		for _, group := range t.groups(s) {
			for _, perm := range permutations(len(group.slots)) {
				mutant, ok := permute(s, group, perm)
				if ok && !yield(mutant) {
					return
				}
			}
		}
	}
}

// groups collects same-typed parameter slots, then same-typed locals, in
// declaration order of the first member of each type.
func (t PermutationTurtle) groups(s site) []slotGroup {
	var groups []slotGroup

	params := newTypeIndex()
	for i, p := range s.method.Parameters {
		params.add(p.Type, s.method.FirstParamSlot()+i)
	}

	locals := newTypeIndex()
	for _, v := range s.body.Variables {
		locals.add(v.Type, v.Index)
	}

	for _, slots := range params.groups() {
		groups = append(groups, slotGroup{kind: "parameters", slots: t.capped(slots)})
	}

	for _, slots := range locals.groups() {
		groups = append(groups, slotGroup{kind: "locals", slots: t.capped(slots)})
	}

	return groups
}

func (t PermutationTurtle) capped(slots []int) []int {
	if len(slots) > t.cap {
		return slots[:t.cap]
	}

	return slots
}

type typeIndex struct {
	order []string
	slots map[string][]int
}

func newTypeIndex() *typeIndex {
	return &typeIndex{slots: make(map[string][]int)}
}

func (x *typeIndex) add(typ string, slot int) {
	if _, ok := x.slots[typ]; !ok {
		x.order = append(x.order, typ)
	}

	x.slots[typ] = append(x.slots[typ], slot)
}

func (x *typeIndex) groups() [][]int {
	var groups [][]int

	for _, typ := range x.order {
		if len(x.slots[typ]) >= 2 {
			groups = append(groups, x.slots[typ])
		}
	}

	return groups
}

func permute(s site, group slotGroup, perm []int) (Mutant, bool) {
	mapping := make(map[int]int, len(group.slots))
	for i, slot := range group.slots {
		mapping[slot] = group.slots[perm[i]]
	}

	var (
		edits []il.Edit
		first = -1
	)

	for i, in := range s.body.Instructions {
		slot, ok := referencedSlot(group.kind, in)
		if !ok {
			continue
		}

		target, ok := mapping[slot]
		if !ok || target == slot {
			continue
		}

		operand := in.Operand
		operand.Index = target
		edits = append(edits, il.Replace(i, in.OpCode, operand))

		if first < 0 {
			first = i
		}
	}

	if len(edits) == 0 {
		return Mutant{}, false
	}

	from := make([]string, len(group.slots))
	to := make([]string, len(group.slots))

	for i, slot := range group.slots {
		from[i] = fmt.Sprint(slot)
		to[i] = fmt.Sprint(mapping[slot])
	}

	replacement := fmt.Sprintf("permute %s (%s) => (%s)", group.kind, strings.Join(from, ","), strings.Join(to, ","))

	mutant, ok := s.mutant(first, il.NewPatch(edits...), replacement)
	if !ok {
		return Mutant{}, false
	}

	mutant.Description = fmt.Sprintf("%s: %s", il.Label(mutant.Original.OriginalOffset), replacement)

	return mutant, true
}

func referencedSlot(kind string, in il.Instruction) (int, bool) {
	switch kind {
	case "parameters":
		if in.OpCode == il.Ldarg || in.OpCode == il.Starg {
			return in.Operand.Index, true
		}
	case "locals":
		if in.OpCode == il.Ldloc || in.OpCode == il.Stloc {
			return in.Operand.Index, true
		}
	}

	return 0, false
}

// permutations returns every non-identity permutation of [0, n) in
// lexicographic order.
func permutations(n int) [][]int {
	if n < 2 {
		return nil
	}

	current := make([]int, n)
	for i := range current {
		current[i] = i
	}

	var result [][]int

	for nextPermutation(current) {
		result = append(result, append([]int(nil), current...))
	}

	return result
}

func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}

	if i < 0 {
		return false
	}

	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}

	p[i], p[j] = p[j], p[i]

	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}

	return true
}
