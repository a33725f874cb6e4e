package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guybedford/wabt/wasm"
)

func TestIstreamWriterEmit(t *testing.T) {
	w := newIstreamWriter(nil)
	require.Equal(t, uint32(0), w.offset())

	w.emitOpcode(wasm.OpcodeI32Const)
	w.emitI32(0x12345678)
	w.emitI8(0x7f)
	w.emitI64(0x1122334455667788)
	require.Equal(t, uint32(14), w.offset())

	assert.Equal(t, []byte{
		wasm.OpcodeI32Const,
		0x78, 0x56, 0x34, 0x12,
		0x7f,
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11,
	}, w.release())
}

func TestIstreamWriterAppendsToExistingBuffer(t *testing.T) {
	w := newIstreamWriter([]byte{0xaa, 0xbb})
	require.Equal(t, uint32(2), w.offset())
	w.emitOpcode(wasm.OpcodeReturn)
	assert.Equal(t, []byte{0xaa, 0xbb, wasm.OpcodeReturn}, w.release())
}

func TestIstreamWriterPatch(t *testing.T) {
	w := newIstreamWriter(nil)
	w.emitOpcode(OpcodeBrUnless)
	fixup := w.offset()
	w.emitI32(InvalidIstreamOffset)
	w.emitOpcode(wasm.OpcodeReturn)

	w.patchI32(fixup, 6)
	require.Equal(t, uint32(6), w.offset())
	assert.Equal(t, []byte{OpcodeBrUnless, 0x06, 0x00, 0x00, 0x00, wasm.OpcodeReturn}, w.release())
}

func TestEmitDropKeep(t *testing.T) {
	for _, c := range []struct {
		name string
		drop uint32
		keep uint8
		exp  []byte
	}{
		{name: "nothing", drop: 0, keep: 0, exp: nil},
		{name: "nothing with keep", drop: 0, keep: 1, exp: nil},
		{name: "single drop", drop: 1, keep: 0, exp: []byte{wasm.OpcodeDrop}},
		{name: "drop keeping top", drop: 1, keep: 1, exp: []byte{OpcodeDropKeep, 0x01, 0x00, 0x00, 0x00, 0x01}},
		{name: "many", drop: 3, keep: 0, exp: []byte{OpcodeDropKeep, 0x03, 0x00, 0x00, 0x00, 0x00}},
	} {
		t.Run(c.name, func(t *testing.T) {
			w := newIstreamWriter(nil)
			w.emitDropKeep(c.drop, c.keep)
			assert.Equal(t, c.exp, w.release())
		})
	}
}

func TestEmitDropKeepSentinelPanics(t *testing.T) {
	w := newIstreamWriter(nil)
	assert.Panics(t, func() { w.emitDropKeep(InvalidIstreamOffset, 0) })
}
