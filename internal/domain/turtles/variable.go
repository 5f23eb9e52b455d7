package turtles

import (
	"iter"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

type substitution struct {
	op      il.OpCode
	operand il.Operand
}

// VariableReadTurtle replaces a read of a local, parameter or field with a
// read of another one of the same type.
type VariableReadTurtle struct{}

// Name implements Turtle.
func (VariableReadTurtle) Name() string { return "variable-read" }

// Description implements Turtle.
func (VariableReadTurtle) Description() string {
	return "Reads a different variable, parameter or field of the same type"
}

// Mutate implements Turtle.
func (t VariableReadTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		caches := s.body.ReturnCacheVariables()

		for i, in := range s.body.Instructions {
			if s.body.InCleanupBlock(i) || s.body.IsSelfCachingRead(i) {
				continue
			}

			for _, sub := range readSubstitutions(s, in, caches) {
				replacement := il.Synthetic(sub.op, sub.operand)

				mutant, ok := s.mutant(i, il.NewPatch(il.Replace(i, sub.op, sub.operand)), s.render(replacement))
				if ok && !yield(mutant) {
					return
				}
			}
		}
	}
}

func readSubstitutions(s site, in il.Instruction, caches map[int]bool) []substitution {
	switch in.OpCode {
	case il.Ldloc:
		if caches[in.Operand.Index] {
			return nil
		}

		v, ok := s.body.Variable(in.Operand.Index)
		if !ok {
			return nil
		}

		return slotSubstitutions(s, v.Type, in.Operand.Index, -1)
	case il.Ldarg:
		p, ok := s.method.Arg(in.Operand.Index)
		if !ok {
			return nil
		}

		return slotSubstitutions(s, p.Type, -1, in.Operand.Index)
	case il.Ldfld, il.Ldsfld:
		ref := in.Operand.Field
		if ref.Owner != s.method.DeclaringType {
			return nil
		}

		var subs []substitution

		for _, f := range s.method.DeclaredFields(in.OpCode == il.Ldsfld) {
			if f.Name == ref.Name || f.Type != ref.Type {
				continue
			}

			subs = append(subs, substitution{
				op:      in.OpCode,
				operand: il.FieldOperand(il.FieldRef{Owner: ref.Owner, Name: f.Name, Type: f.Type}),
			})
		}

		return subs
	default:
		return nil
	}
}

// slotSubstitutions lists loads of every local and argument slot of typ except
// the one being replaced.
func slotSubstitutions(s site, typ string, skipLocal, skipArg int) []substitution {
	var subs []substitution

	for _, v := range s.body.Variables {
		if v.Index != skipLocal && v.Type == typ {
			subs = append(subs, substitution{op: il.Ldloc, operand: il.VariableOperand(v.Index)})
		}
	}

	for slot := range s.method.ArgCount() {
		if slot == skipArg {
			continue
		}

		if p, ok := s.method.Arg(slot); ok && p.Type == typ {
			subs = append(subs, substitution{op: il.Ldarg, operand: il.ParameterOperand(slot)})
		}
	}

	return subs
}

// VariableWriteTurtle redirects a store into another local of the same type.
type VariableWriteTurtle struct{}

// Name implements Turtle.
func (VariableWriteTurtle) Name() string { return "variable-write" }

// Description implements Turtle.
func (VariableWriteTurtle) Description() string {
	return "Writes to a different local variable of the same type"
}

// Mutate implements Turtle.
func (t VariableWriteTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return func(yield func(Mutant) bool) {
		s, ok := newSite(t.Name(), method)
		if !ok {
			return
		}

		caches := s.body.ReturnCacheVariables()

		for i, in := range s.body.Instructions {
			if in.OpCode != il.Stloc || caches[in.Operand.Index] || s.body.InCleanupBlock(i) {
				continue
			}

			v, ok := s.body.Variable(in.Operand.Index)
			if !ok {
				continue
			}

			for _, other := range s.body.Variables {
				if other.Index == v.Index || other.Type != v.Type {
					continue
				}

				replacement := il.Synthetic(il.Stloc, il.VariableOperand(other.Index))

				mutant, ok := s.mutant(i, il.NewPatch(il.Replace(i, il.Stloc, replacement.Operand)), s.render(replacement))
				if ok && !yield(mutant) {
					return
				}
			}
		}
	}
}
