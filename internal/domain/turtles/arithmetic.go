package turtles

import (
	"iter"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

var (
	arithmeticOps = []il.OpCode{il.Add, il.Sub, il.Mul, il.Div, il.Rem}
	bitwiseOps    = []il.OpCode{il.And, il.Or, il.Xor}
)

// ArithmeticTurtle replaces each arithmetic operator with every other one.
type ArithmeticTurtle struct{}

// Name implements Turtle.
func (ArithmeticTurtle) Name() string { return "arithmetic" }

// Description implements Turtle.
func (ArithmeticTurtle) Description() string {
	return "Rotates add, sub, mul, div and rem"
}

// Mutate implements Turtle.
func (t ArithmeticTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return rotation(t.Name(), method, arithmeticOps)
}

// BitwiseTurtle replaces each bitwise operator with every other one.
type BitwiseTurtle struct{}

// Name implements Turtle.
func (BitwiseTurtle) Name() string { return "bitwise" }

// Description implements Turtle.
func (BitwiseTurtle) Description() string {
	return "Rotates and, or and xor"
}

// Mutate implements Turtle.
func (t BitwiseTurtle) Mutate(method *il.Method) iter.Seq[Mutant] {
	return rotation(t.Name(), method, bitwiseOps)
}
