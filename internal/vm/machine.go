// Package vm interprets assemblies of the il instruction set. It backs the
// built-in test host, so mutated assemblies can be executed inside a sandbox
// without an external runtime.
package vm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// DefaultStepBudget bounds the instructions executed by one invocation tree.
const DefaultStepBudget = 1_000_000

const (
	maxCallDepth     = 256
	cancelCheckEvery = 256
)

// ErrStepBudget is returned when execution exceeds the machine's step budget.
var ErrStepBudget = errors.New("step budget exhausted")

// Exception is a runtime fault raised by the executing program: a failed
// assertion, a division by zero, a null dereference or an invalid program.
type Exception struct {
	Type    string
	Message string
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Type
	}

	return e.Type + ": " + e.Message
}

func throw(typ, format string, args ...any) *Exception {
	return &Exception{Type: typ, Message: fmt.Sprintf(format, args...)}
}

// Machine executes methods of a set of loaded assemblies. It holds static
// field state and is not safe for concurrent use.
type Machine struct {
	types   map[string]*il.Type
	statics map[string]Value
	budget  int
	steps   int
	depth   int
}

// New creates a machine over the given assemblies. A budget of zero or less
// disables the step limit.
func New(budget int, assemblies ...*il.Assembly) *Machine {
	m := &Machine{
		types:   make(map[string]*il.Type),
		statics: make(map[string]Value),
		budget:  budget,
	}

	for _, asm := range assemblies {
		for _, t := range asm.Types {
			m.types[t.Name] = t
		}
	}

	return m
}

// Steps reports the instructions executed so far.
func (m *Machine) Steps() int { return m.steps }

// Invoke runs method with the given argument slots (including `this` for
// instance methods) and returns its result, or Null for void methods.
func (m *Machine) Invoke(ctx context.Context, method *il.Method, args ...Value) (Value, error) {
	if len(args) != method.ArgCount() {
		return Null(), throw("TargetParameterCountException", "%s expects %d arguments, got %d",
			method.FullName(), method.ArgCount(), len(args))
	}

	if method.Body == nil {
		return Null(), throw("MissingMethodException", "%s has no body", method.FullName())
	}

	m.depth++
	defer func() { m.depth-- }()

	if m.depth > maxCallDepth {
		return Null(), throw("StackOverflowException", "call depth exceeded in %s", method.FullName())
	}

	f := newFrame(method, args)

	result, returned, err := m.exec(ctx, f, 0)
	if err != nil {
		return Null(), err
	}

	if !returned {
		return Null(), throw("InvalidProgramException", "endfinally outside a finally block in %s", method.FullName())
	}

	return result, nil
}

// Construct allocates an instance of typeName and runs its parameterless
// constructor when one is declared.
func (m *Machine) Construct(ctx context.Context, typeName string) (Value, error) {
	obj := m.instantiate(typeName)

	t, ok := m.types[typeName]
	if !ok {
		return Ref(obj), nil
	}

	for _, ctor := range t.MethodsNamed(il.ConstructorName) {
		if ctor.Static || len(ctor.Parameters) != 0 {
			continue
		}

		if _, err := m.Invoke(ctx, ctor, Ref(obj)); err != nil {
			return Null(), err
		}
	}

	return Ref(obj), nil
}

// Static returns the current value of a static field.
func (m *Machine) Static(ref il.FieldRef) Value {
	if v, ok := m.statics[ref.Key()]; ok {
		return v
	}

	return zeroValue(ref.Type)
}

func (m *Machine) instantiate(typeName string) *Object {
	obj := &Object{Type: typeName, Fields: make(map[string]Value)}

	for name := typeName; name != ""; {
		t, ok := m.types[name]
		if !ok {
			break
		}

		for _, field := range t.Fields {
			if field.Static {
				continue
			}

			if _, set := obj.Fields[field.Name]; !set {
				obj.Fields[field.Name] = zeroValue(field.Type)
			}
		}

		name = t.Base
	}

	return obj
}

func (m *Machine) resolve(ref il.MethodRef) (*il.Method, bool) {
	t, ok := m.types[ref.Owner]
	if !ok {
		return nil, false
	}

	for _, method := range t.Methods {
		if method.Matches(ref) {
			return method, true
		}
	}

	return nil, false
}

func (m *Machine) call(ctx context.Context, ref il.MethodRef, args []Value) (Value, error) {
	if fn, ok := intrinsics[ref.Key()]; ok {
		return fn(args)
	}

	method, ok := m.resolve(ref)
	if !ok {
		return Null(), throw("MissingMethodException", "%s", ref)
	}

	return m.Invoke(ctx, method, args...)
}

type frame struct {
	method *il.Method
	body   *il.Body
	args   []Value
	locals []Value
	stack  []Value
}

func newFrame(method *il.Method, args []Value) *frame {
	f := &frame{
		method: method,
		body:   method.Body,
		args:   append([]Value(nil), args...),
	}

	slots := 0
	for _, v := range method.Body.Variables {
		slots = max(slots, v.Index+1)
	}

	f.locals = make([]Value, slots)
	for _, v := range method.Body.Variables {
		f.locals[v.Index] = zeroValue(v.Type)
	}

	return f
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return Null(), throw("InvalidProgramException", "evaluation stack underflow in %s", f.method.FullName())
	}

	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]

	return v, nil
}

func (f *frame) popN(n int) ([]Value, error) {
	if len(f.stack) < n {
		return nil, throw("InvalidProgramException", "evaluation stack underflow in %s", f.method.FullName())
	}

	values := append([]Value(nil), f.stack[len(f.stack)-n:]...)
	f.stack = f.stack[:len(f.stack)-n]

	return values, nil
}

func (f *frame) pop2() (Value, Value, error) {
	values, err := f.popN(2)
	if err != nil {
		return Null(), Null(), err
	}

	return values[0], values[1], nil
}

func (f *frame) slot(slots []Value, index int, what string) (*Value, error) {
	if index < 0 || index >= len(slots) {
		return nil, throw("InvalidProgramException", "%s %d out of range in %s", what, index, f.method.FullName())
	}

	return &slots[index], nil
}

// exec runs the frame from pc until ret (returned is true) or endfinally.
func (m *Machine) exec(ctx context.Context, f *frame, pc int) (Value, bool, error) {
	instructions := f.body.Instructions

	for pc < len(instructions) {
		m.steps++
		if m.budget > 0 && m.steps > m.budget {
			return Null(), false, fmt.Errorf("%w after %d steps in %s", ErrStepBudget, m.budget, f.method.FullName())
		}

		if m.steps%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Null(), false, err
			}
		}

		in := instructions[pc]
		next := pc + 1

		switch op := in.OpCode.Long(); op {
		case il.Nop:
		case il.Ldarg, il.Starg:
			index, _ := in.ParameterIndex()

			slot, err := f.slot(f.args, index, "argument")
			if err != nil {
				return Null(), false, err
			}

			if op == il.Ldarg {
				f.push(*slot)
				break
			}

			if *slot, err = f.pop(); err != nil {
				return Null(), false, err
			}
		case il.Ldloc, il.Stloc:
			index, _ := in.VariableIndex()

			slot, err := f.slot(f.locals, index, "local")
			if err != nil {
				return Null(), false, err
			}

			if op == il.Ldloc {
				f.push(*slot)
				break
			}

			if *slot, err = f.pop(); err != nil {
				return Null(), false, err
			}
		case il.LdcI4:
			v, _ := in.IntConstant()
			f.push(Int(v))
		case il.LdcI8:
			v, _ := in.IntConstant()
			f.push(Long(v))
		case il.LdcR8:
			f.push(Float(in.Operand.Float))
		case il.Ldstr:
			f.push(String(in.Operand.String))
		case il.Ldnull:
			f.push(Null())
		case il.Ldfld, il.Stfld:
			if err := m.instanceField(f, op, in.Operand.Field); err != nil {
				return Null(), false, err
			}
		case il.Ldsfld:
			f.push(m.Static(in.Operand.Field))
		case il.Stsfld:
			v, err := f.pop()
			if err != nil {
				return Null(), false, err
			}

			m.statics[in.Operand.Field.Key()] = v
		case il.Add, il.Sub, il.Mul, il.Div, il.Rem, il.And, il.Or, il.Xor:
			a, b, err := f.pop2()
			if err != nil {
				return Null(), false, err
			}

			v, err := binary(op, a, b)
			if err != nil {
				return Null(), false, err
			}

			f.push(v)
		case il.Neg, il.Not:
			a, err := f.pop()
			if err != nil {
				return Null(), false, err
			}

			v, err := unary(op, a)
			if err != nil {
				return Null(), false, err
			}

			f.push(v)
		case il.Ceq, il.Cgt, il.Clt:
			a, b, err := f.pop2()
			if err != nil {
				return Null(), false, err
			}

			v, err := compareOp(op, a, b)
			if err != nil {
				return Null(), false, err
			}

			f.push(Bool(v))
		case il.Br:
			target, err := m.target(f, pc)
			if err != nil {
				return Null(), false, err
			}

			next = target
		case il.Brtrue, il.Brfalse:
			v, err := f.pop()
			if err != nil {
				return Null(), false, err
			}

			if v.Truthy() == (op == il.Brtrue) {
				if next, err = m.target(f, pc); err != nil {
					return Null(), false, err
				}
			}
		case il.Beq, il.BneUn, il.Blt, il.Bgt, il.Ble, il.Bge:
			a, b, err := f.pop2()
			if err != nil {
				return Null(), false, err
			}

			taken, err := branchTaken(op, a, b)
			if err != nil {
				return Null(), false, err
			}

			if taken {
				if next, err = m.target(f, pc); err != nil {
					return Null(), false, err
				}
			}
		case il.Leave:
			target, err := m.target(f, pc)
			if err != nil {
				return Null(), false, err
			}

			if result, returned, err := m.runFinally(ctx, f, pc, target); err != nil || returned {
				return result, returned, err
			}

			f.stack = f.stack[:0]
			next = target
		case il.Endfinally:
			return Null(), false, nil
		case il.Call, il.Callvirt:
			ref := in.Operand.Method

			n := len(ref.Params)
			if ref.Instance {
				n++
			}

			args, err := f.popN(n)
			if err != nil {
				return Null(), false, err
			}

			if op == il.Callvirt && ref.Instance && args[0].IsNull() {
				return Null(), false, throw("NullReferenceException", "callvirt %s on null", ref)
			}

			result, err := m.call(ctx, ref, args)
			if err != nil {
				return Null(), false, err
			}

			if ref.Returns != il.VoidType {
				f.push(result)
			}
		case il.Newobj:
			ref := in.Operand.Method

			params, err := f.popN(len(ref.Params))
			if err != nil {
				return Null(), false, err
			}

			obj := Ref(m.instantiate(ref.Owner))
			if _, err := m.call(ctx, ref, append([]Value{obj}, params...)); err != nil {
				return Null(), false, err
			}

			f.push(obj)
		case il.Ret:
			if f.method.Returns == il.VoidType {
				return Null(), true, nil
			}

			v, err := f.pop()
			if err != nil {
				return Null(), false, err
			}

			return v, true, nil
		case il.Pop:
			if _, err := f.pop(); err != nil {
				return Null(), false, err
			}
		case il.Dup:
			v, err := f.pop()
			if err != nil {
				return Null(), false, err
			}

			f.push(v)
			f.push(v)
		default:
			return Null(), false, throw("InvalidProgramException", "unsupported opcode %s", in.OpCode)
		}

		pc = next
	}

	return Null(), false, throw("InvalidProgramException", "execution ran past the end of %s", f.method.FullName())
}

func (m *Machine) target(f *frame, pc int) (int, error) {
	target, ok := f.body.TargetIndex(pc)
	if !ok {
		return 0, throw("InvalidProgramException", "unresolved branch target in %s", f.method.FullName())
	}

	return target, nil
}

// runFinally executes, innermost first, every finally block whose protected
// region is exited by a leave from pc to target.
func (m *Machine) runFinally(ctx context.Context, f *frame, pc, target int) (Value, bool, error) {
	for _, h := range f.body.Handlers {
		if h.Kind != il.HandlerFinally || !f.body.InTry(h, pc) || f.body.InTry(h, target) {
			continue
		}

		start, ok := f.body.IndexOf(h.HandlerStart)
		if !ok {
			return Null(), false, throw("InvalidProgramException", "unresolved handler in %s", f.method.FullName())
		}

		saved := f.stack
		f.stack = nil

		result, returned, err := m.exec(ctx, f, start)
		if err != nil || returned {
			return result, returned, err
		}

		f.stack = saved
	}

	return Null(), false, nil
}

func (m *Machine) instanceField(f *frame, op il.OpCode, ref il.FieldRef) error {
	if op == il.Ldfld {
		target, err := f.pop()
		if err != nil {
			return err
		}

		if target.IsNull() || target.Kind() != KindObject {
			return throw("NullReferenceException", "ldfld %s", ref.Key())
		}

		v, ok := target.AsObject().Fields[ref.Name]
		if !ok {
			v = zeroValue(ref.Type)
		}

		f.push(v)

		return nil
	}

	target, v, err := f.pop2()
	if err != nil {
		return err
	}

	if target.IsNull() || target.Kind() != KindObject {
		return throw("NullReferenceException", "stfld %s", ref.Key())
	}

	target.AsObject().Fields[ref.Name] = v

	return nil
}

func binary(op il.OpCode, a, b Value) (Value, error) {
	if op == il.Add && a.Kind() == KindString && b.Kind() == KindString {
		return String(a.AsString() + b.AsString()), nil
	}

	if a.Kind() == KindInt && b.Kind() == KindInt {
		wide := a.IsWide() || b.IsWide()
		x, y := a.AsInt(), b.AsInt()

		switch op {
		case il.Add:
			return integer(wide, x+y), nil
		case il.Sub:
			return integer(wide, x-y), nil
		case il.Mul:
			return integer(wide, x*y), nil
		case il.Div, il.Rem:
			if y == 0 {
				return Null(), throw("DivideByZeroException", "attempted to divide by zero")
			}

			if !wide && y == -1 && x == math.MinInt32 {
				return Null(), throw("OverflowException", "arithmetic operation resulted in an overflow")
			}

			if op == il.Div {
				return integer(wide, x/y), nil
			}

			return integer(wide, x%y), nil
		case il.And:
			return integer(wide, x&y), nil
		case il.Or:
			return integer(wide, x|y), nil
		case il.Xor:
			return integer(wide, x^y), nil
		}
	}

	if a.isNumeric() && b.isNumeric() {
		x, y := a.AsFloat(), b.AsFloat()

		switch op {
		case il.Add:
			return Float(x + y), nil
		case il.Sub:
			return Float(x - y), nil
		case il.Mul:
			return Float(x * y), nil
		case il.Div:
			return Float(x / y), nil
		case il.Rem:
			return Float(math.Mod(x, y)), nil
		}
	}

	return Null(), throw("InvalidProgramException", "%s is not defined for %v and %v", op, a, b)
}

// integer wraps an arithmetic result to the width of its operands.
func integer(wide bool, v int64) Value {
	if wide {
		return Long(v)
	}

	return Int(int64(int32(v)))
}

func unary(op il.OpCode, a Value) (Value, error) {
	switch {
	case op == il.Neg && a.Kind() == KindInt:
		return integer(a.IsWide(), -a.AsInt()), nil
	case op == il.Neg && a.Kind() == KindFloat:
		return Float(-a.AsFloat()), nil
	case op == il.Not && a.Kind() == KindInt:
		return integer(a.IsWide(), ^a.AsInt()), nil
	default:
		return Null(), throw("InvalidProgramException", "%s is not defined for %v", op, a)
	}
}

func compareOp(op il.OpCode, a, b Value) (bool, error) {
	if op == il.Ceq {
		return a.Equal(b), nil
	}

	c, ok := compare(a, b)
	if !ok {
		return false, throw("InvalidProgramException", "%s is not defined for %v and %v", op, a, b)
	}

	if op == il.Cgt {
		return c > 0, nil
	}

	return c < 0, nil
}

func branchTaken(op il.OpCode, a, b Value) (bool, error) {
	switch op {
	case il.Beq:
		return a.Equal(b), nil
	case il.BneUn:
		return !a.Equal(b), nil
	}

	c, ok := compare(a, b)
	if !ok {
		return false, throw("InvalidProgramException", "%s is not defined for %v and %v", op, a, b)
	}

	switch op {
	case il.Blt:
		return c < 0, nil
	case il.Bgt:
		return c > 0, nil
	case il.Ble:
		return c <= 0, nil
	default:
		return c >= 0, nil
	}
}
