package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionTypeString(t *testing.T) {
	for _, c := range []struct {
		sig *FunctionType
		exp string
	}{
		{sig: &FunctionType{}, exp: "null_null"},
		{sig: &FunctionType{Params: []ValueType{ValueTypeI32}}, exp: "i32_null"},
		{
			sig: &FunctionType{
				Params:  []ValueType{ValueTypeI64, ValueTypeF64},
				Results: []ValueType{ValueTypeI32},
			},
			exp: "i64f64_i32",
		},
	} {
		assert.Equal(t, c.exp, c.sig.String())
	}
}

func TestHasSameSignature(t *testing.T) {
	assert.True(t, HasSameSignature(nil, nil))
	assert.True(t, HasSameSignature([]ValueType{ValueTypeI32}, []ValueType{ValueTypeI32}))
	assert.False(t, HasSameSignature([]ValueType{ValueTypeI32}, []ValueType{ValueTypeI64}))
	assert.False(t, HasSameSignature([]ValueType{ValueTypeI32}, nil))
}

func TestMemoryAccessSize(t *testing.T) {
	for _, c := range []struct {
		op  Opcode
		exp uint32
	}{
		{op: OpcodeI32Load8U, exp: 1},
		{op: OpcodeI32Store16, exp: 2},
		{op: OpcodeI32Load, exp: 4},
		{op: OpcodeI64Load32S, exp: 4},
		{op: OpcodeF64Store, exp: 8},
		{op: OpcodeI64Load, exp: 8},
	} {
		size, ok := MemoryAccessSize(c.op)
		require.True(t, ok, OpcodeName(c.op))
		assert.Equal(t, c.exp, size, OpcodeName(c.op))
	}

	_, ok := MemoryAccessSize(OpcodeI32Add)
	assert.False(t, ok)
}

func TestOpcodeName(t *testing.T) {
	assert.Equal(t, "i32.add", OpcodeName(OpcodeI32Add))
	assert.Equal(t, "br_table", OpcodeName(OpcodeBrTable))
	assert.Equal(t, "f64.reinterpret_i64", OpcodeName(OpcodeF64ReinterpretI64))
	assert.Equal(t, "unknown", OpcodeName(0xff))
}
