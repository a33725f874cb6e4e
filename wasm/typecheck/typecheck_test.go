package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guybedford/wabt/wasm"
)

var (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
	f32 = wasm.ValueTypeF32
)

func TestConstantFunction(t *testing.T) {
	c := New()
	c.BeginFunction([]wasm.ValueType{i32})
	require.NoError(t, c.OnConst(i32))
	require.Equal(t, 1, c.TypeStackSize())
	require.NoError(t, c.EndFunction())
}

func TestResultTypeMismatch(t *testing.T) {
	c := New()
	c.BeginFunction([]wasm.ValueType{i32})
	require.NoError(t, c.OnConst(i64))
	err := c.EndFunction()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch in implicit return, expected i32 but got i64")
}

func TestBinaryOperandChecks(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnConst(f32))
	err := c.OnBinary(wasm.OpcodeI32Add)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch in i32.add")
}

func TestStackUnderflow(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	err := c.OnBinary(wasm.OpcodeI32Add)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type stack size too small at i32.add")
}

func TestBlockEnd(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnBlock([]wasm.ValueType{i32}))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnEnd())
	// The block's result is visible to the enclosing scope.
	require.Equal(t, 1, c.TypeStackSize())
	require.NoError(t, c.OnDrop())
	require.NoError(t, c.EndFunction())
}

func TestBlockLeavesExtraValue(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnBlock(nil))
	require.NoError(t, c.OnConst(i32))
	err := c.OnEnd()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type stack at end of block")
}

func TestIfElse(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnIf([]wasm.ValueType{i32}))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnElse())
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnEnd())
	require.NoError(t, c.OnDrop())
	require.NoError(t, c.EndFunction())
}

func TestIfWithoutElseNeedsEmptySignature(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnIf([]wasm.ValueType{i32}))
	require.NoError(t, c.OnConst(i32))
	err := c.OnEnd()
	require.Error(t, err)
}

func TestElseOutsideIf(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnBlock(nil))
	err := c.OnElse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected else")
}

func TestBrSignatureCheck(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnBlock([]wasm.ValueType{i32}))
	err := c.OnBr(0)
	require.Error(t, err)

	c.BeginFunction(nil)
	require.NoError(t, c.OnBlock([]wasm.ValueType{i32}))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnBr(0))
	assert.True(t, c.IsUnreachable())
}

func TestBrToLoopNeedsNoValues(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnLoop([]wasm.ValueType{i32}))
	require.NoError(t, c.OnBr(0))
}

func TestInvalidDepth(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	_, err := c.GetLabel(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid depth")
}

func TestBrTableInconsistentTargets(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnBlock([]wasm.ValueType{i32}))
	require.NoError(t, c.OnBlock(nil))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.BeginBrTable())
	require.NoError(t, c.OnBrTableTarget(0))
	err := c.OnBrTableTarget(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "br_table labels have inconsistent types")
}

func TestUnreachableCodeIsPolymorphic(t *testing.T) {
	c := New()
	c.BeginFunction([]wasm.ValueType{i32})
	require.NoError(t, c.OnUnreachable())
	assert.True(t, c.IsUnreachable())
	// Operands materialise as needed below an unreachable point.
	require.NoError(t, c.OnBinary(wasm.OpcodeI32Add))
	require.NoError(t, c.OnDrop())
	require.NoError(t, c.EndFunction())
}

func TestSelect(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnConst(i64))
	require.NoError(t, c.OnConst(i32))
	err := c.OnSelect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch in select")

	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(f32))
	require.NoError(t, c.OnConst(f32))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnSelect())
	require.Equal(t, 1, c.TypeStackSize())
}

func TestCall(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnCall([]wasm.ValueType{i32, i32}, []wasm.ValueType{i64}))
	require.NoError(t, c.OnLocalSet(i64))
	require.NoError(t, c.EndFunction())
}

func TestCallIndirectPopsIndexFirst(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i64))
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnCallIndirect([]wasm.ValueType{i64}, nil))
	require.NoError(t, c.EndFunction())
}

func TestReturn(t *testing.T) {
	c := New()
	c.BeginFunction([]wasm.ValueType{i32})
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnReturn())
	assert.True(t, c.IsUnreachable())
	require.NoError(t, c.EndFunction())
}

func TestLoadStore(t *testing.T) {
	c := New()
	c.BeginFunction(nil)
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnLoad(wasm.OpcodeI64Load))
	require.NoError(t, c.OnLocalSet(i64))

	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnConst(f32))
	err := c.OnStore(wasm.OpcodeI64Store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch in i64.store")
}

func TestLabelRecordsForBranchSizing(t *testing.T) {
	c := New()
	c.BeginFunction([]wasm.ValueType{i32})
	require.NoError(t, c.OnConst(i32))
	require.NoError(t, c.OnBlock([]wasm.ValueType{i32}))

	label, err := c.GetLabel(0)
	require.NoError(t, err)
	assert.Equal(t, LabelTypeBlock, label.LabelType)
	assert.Equal(t, 1, label.TypeStackLimit)
	assert.Len(t, label.Sig, 1)
	assert.False(t, label.IsLoop())

	outer, err := c.GetLabel(1)
	require.NoError(t, err)
	assert.Equal(t, LabelTypeFunc, outer.LabelType)
	assert.Equal(t, 0, outer.TypeStackLimit)
}
