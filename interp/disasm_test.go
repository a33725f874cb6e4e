package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guybedford/wabt/wasm"
)

func TestDisassemble(t *testing.T) {
	bin := mod(
		sec(wasm.SectionIDType, vec(funcType(nil, []wasm.ValueType{wasm.ValueTypeI32}))),
		sec(wasm.SectionIDFunction, vec(uleb(0))),
		sec(wasm.SectionIDCode, vec(fbody(noLocals, cat([]byte{wasm.OpcodeI32Const}, sleb32(42))...))),
	)

	env := NewEnvironment()
	module, err := ReadBinary(env, bin)
	require.NoError(t, err)

	assert.Equal(t,
		"00000000: i32.const 42\n"+
			"00000005: return\n",
		Disassemble(env.Istream, module.IstreamStart, module.IstreamEnd))
}

func TestDisassembleBranchesAndLocals(t *testing.T) {
	bin := mod(
		sec(wasm.SectionIDType, vec(funcType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32}))),
		sec(wasm.SectionIDFunction, vec(uleb(0))),
		sec(wasm.SectionIDCode, vec(fbody(noLocals,
			wasm.OpcodeLocalGet, 0x00,
			wasm.OpcodeIf, 0x40,
			wasm.OpcodeNop,
			wasm.OpcodeEnd,
			wasm.OpcodeLocalGet, 0x00,
		))),
	)

	env := NewEnvironment()
	module, err := ReadBinary(env, bin)
	require.NoError(t, err)

	assert.Equal(t,
		"00000000: local.get 1\n"+
			"00000005: br_unless 11\n"+
			"0000000a: nop\n"+
			"0000000b: local.get 1\n"+
			"00000010: drop_keep 1 1\n"+
			"00000016: return\n",
		Disassemble(env.Istream, module.IstreamStart, module.IstreamEnd))
}
