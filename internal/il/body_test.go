package il

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	asm := loadCalc(t)
	add := calcMethod(t, asm, "Add")

	expanded := add.Body.Expand()

	require.True(t, expanded.IsExpanded())
	require.False(t, add.Body.IsExpanded())
	require.Equal(t, add.Body.Len(), expanded.Len())

	tests := []struct {
		index   int
		op      OpCode
		operand Operand
	}{
		{1, Ldarg, ParameterOperand(0)},
		{2, Ldarg, ParameterOperand(1)},
		{4, Stloc, VariableOperand(0)},
		{6, Ldloc, VariableOperand(0)},
	}

	for _, tt := range tests {
		in := expanded.At(tt.index)
		assert.Equal(t, tt.op, in.OpCode, "index %d", tt.index)
		assert.True(t, tt.operand.Equal(in.Operand), "index %d", tt.index)
		assert.Equal(t, add.Body.At(tt.index).ID, in.ID)
	}

	assert.Equal(t, Br, expanded.At(5).OpCode)
	assert.Equal(t, expanded.Instructions, expanded.Expand().Instructions)
}

func TestExpand_Constants(t *testing.T) {
	m := decodeTestMethod(t, `      - name: M
        static: true
        returns: int32
        body:
          - "IL_0000: ldc.i4.m1"
          - "IL_0001: ldc.i4.s 100"
          - "IL_0003: add"
          - "IL_0004: ret"
`)

	expanded := m.Body.Expand()

	v, ok := expanded.At(0).IntConstant()
	require.True(t, ok)
	assert.Equal(t, int64(-1), v)
	assert.Equal(t, LdcI4, expanded.At(0).OpCode)
	assert.Equal(t, LdcI4, expanded.At(1).OpCode)
	assert.Equal(t, int64(100), expanded.At(1).Operand.Int)
}

func TestCompact(t *testing.T) {
	asm := loadCalc(t)
	pick := calcMethod(t, asm, "Pick")

	compacted := pick.Body.Expand().Compact()

	require.Equal(t, pick.Body.Len(), compacted.Len())

	for i := range pick.Body.Instructions {
		assert.Equal(t, pick.Body.At(i).OpCode, compacted.At(i).OpCode, "index %d", i)
		assert.Equal(t, pick.Body.At(i).Offset, compacted.At(i).Offset, "index %d", i)
	}
}

func TestCompact_WidensFarBranches(t *testing.T) {
	instructions := []Instruction{{OpCode: Br, Operand: TargetOperand(201)}}
	for i := 1; i <= 200; i++ {
		instructions = append(instructions, Instruction{ID: InstrID(i), OpCode: Nop})
	}

	instructions = append(instructions, Instruction{ID: 201, OpCode: Ret})

	body, err := NewBody(instructions, nil, nil)
	require.NoError(t, err)

	compacted := body.Compact()
	assert.Equal(t, Br, compacted.At(0).OpCode)

	near, err := NewBody([]Instruction{
		{ID: 0, OpCode: Br, Operand: TargetOperand(1)},
		{ID: 1, OpCode: Ret},
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, BrS, near.Compact().At(0).OpCode)
}

func TestMaterialized(t *testing.T) {
	asm := loadCalc(t)
	add := calcMethod(t, asm, "Add")

	expanded := add.Body.Expand().Materialized()

	offsets := make([]int, expanded.Len())
	original := make([]int, expanded.Len())

	for i, in := range expanded.Instructions {
		offsets[i] = in.Offset
		original[i] = in.OriginalOffset
	}

	assert.Equal(t, []int{0, 1, 5, 9, 10, 14, 19, 23}, offsets)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 7, 8}, original)
	assert.Equal(t, 24, expanded.CodeSize())
}

func TestApply(t *testing.T) {
	asm := loadCalc(t)
	add := calcMethod(t, asm, "Add")
	base := add.Body.Expand()

	t.Run("replace keeps identity", func(t *testing.T) {
		patched, err := base.Apply(NewPatch(Replace(3, Sub, NoOperand())))
		require.NoError(t, err)

		assert.Equal(t, Sub, patched.At(3).OpCode)
		assert.Equal(t, base.At(3).ID, patched.At(3).ID)
		assert.Equal(t, Add, base.At(3).OpCode)
	})

	t.Run("insert after allocates ids", func(t *testing.T) {
		patched, err := base.Apply(NewPatch(
			InsertAfter(3, Synthetic(LdcI4, IntOperand(0)), Synthetic(Ceq, NoOperand())),
		))
		require.NoError(t, err)

		require.Equal(t, base.Len()+2, patched.Len())
		assert.Equal(t, LdcI4, patched.At(4).OpCode)
		assert.Equal(t, Ceq, patched.At(5).OpCode)
		assert.Equal(t, 3, patched.At(4).OriginalOffset)
		assert.NotEqual(t, patched.At(4).ID, patched.At(5).ID)

		for _, in := range base.Instructions {
			assert.NotEqual(t, in.ID, patched.At(4).ID)
		}

		target, ok := patched.TargetIndex(7)
		require.True(t, ok)
		assert.Equal(t, 8, target)
		assert.Equal(t, 8, base.Len())
	})

	t.Run("rejects empty and out of range", func(t *testing.T) {
		_, err := base.Apply(NewPatch())
		require.ErrorIs(t, err, ErrEmptyPatch)

		_, err = base.Apply(NewPatch(Replace(99, Nop, NoOperand())))
		require.Error(t, err)
	})

	t.Run("rejects dangling targets", func(t *testing.T) {
		_, err := base.Apply(NewPatch(Replace(5, Br, TargetOperand(999))))
		require.ErrorIs(t, err, ErrDanglingTarget)
	})
}

func TestApply_BaseReserializesIdentically(t *testing.T) {
	asm := loadCalc(t)

	before, err := Encode(asm)
	require.NoError(t, err)

	for _, method := range asm.Methods() {
		if method.Body == nil {
			continue
		}

		base := method.Body.Expand()
		for i := range base.Instructions {
			patched, err := base.Apply(NewPatch(Replace(i, Nop, NoOperand())))
			require.NoError(t, err)

			mutated, err := Encode(asm.Replace(method, method.WithBody(patched)))
			require.NoError(t, err)
			require.NotEqual(t, string(before), string(mutated))
		}
	}

	after, err := Encode(asm)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestAssembly_FindMethods(t *testing.T) {
	asm := loadCalc(t)

	tests := []struct {
		name   string
		method string
		params []string
		want   int
	}{
		{"by name", "Add", nil, 1},
		{"by signature", "Add", []string{"int32", "int32"}, 1},
		{"signature mismatch", "Add", []string{"int32"}, 0},
		{"parameterless only", ".ctor", []string{}, 1},
		{"all with bodies", "", nil, 8},
		{"unknown", "Missing", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, asm.FindMethods(calculator, tt.method, tt.params), tt.want)
		})
	}

	assert.Empty(t, asm.FindMethods("Calc.Missing", "Add", nil))
}

func TestAssembly_Clone(t *testing.T) {
	asm := loadCalc(t)
	clone := asm.Clone()

	add := calcMethod(t, clone, "Add")
	add.Body.Instructions[3].OpCode = Mul

	assert.Equal(t, Add, calcMethod(t, asm, "Add").Body.At(3).OpCode)
}
