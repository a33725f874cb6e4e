package interp

import (
	"encoding/binary"

	"github.com/guybedford/wabt/wasm"
)

// istreamWriter appends little-endian data to the istream buffer and
// patches previously emitted int32 slots in place. The buffer is moved
// out of the environment for the duration of a translation, so offset
// zero is the start of the shared istream, not of this module.
type istreamWriter struct {
	buf []byte
}

func newIstreamWriter(buf []byte) *istreamWriter {
	return &istreamWriter{buf: buf}
}

// offset returns the absolute offset the next emit will write at.
func (w *istreamWriter) offset() uint32 {
	return uint32(len(w.buf))
}

// release hands the buffer back; the writer must not be used after.
func (w *istreamWriter) release() []byte {
	buf := w.buf
	w.buf = nil
	return buf
}

func (w *istreamWriter) emitOpcode(op Opcode) {
	w.buf = append(w.buf, op)
}

func (w *istreamWriter) emitI8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *istreamWriter) emitI32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *istreamWriter) emitI64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// patchI32 overwrites a previously emitted int32 slot without moving
// the current offset.
func (w *istreamWriter) patchI32(offset uint32, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[offset:], v)
}

// emitDropKeep emits the canonical encoding for discarding drop stack
// values while preserving the top keep values: nothing when drop is 0,
// a bare Drop when one value dies and none is kept, DropKeep otherwise. keep is
// always 0 or 1 in this subset.
func (w *istreamWriter) emitDropKeep(drop uint32, keep uint8) {
	if drop == InvalidIstreamOffset {
		panic("istream: drop count overflow")
	}
	if drop == 0 {
		return
	}
	if drop == 1 && keep == 0 {
		w.emitOpcode(wasm.OpcodeDrop)
		return
	}
	w.emitOpcode(OpcodeDropKeep)
	w.emitI32(drop)
	w.emitI8(keep)
}
