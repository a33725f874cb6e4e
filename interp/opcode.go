package interp

import (
	"github.com/guybedford/wabt/wasm"
)

// Opcode is one byte of the emitted istream. Opcodes shared with the
// source format keep the source numbering so that pure arithmetic
// operators pass through unchanged; interpreter-only opcodes occupy
// the bytes above the MVP opcode space.
type Opcode = byte

const (
	// OpcodeAlloca reserves stack space for a function's locals:
	// Alloca n:i32.
	OpcodeAlloca Opcode = 0xc0
	// OpcodeBrUnless branches when the popped condition is false:
	// BrUnless off:i32.
	OpcodeBrUnless Opcode = 0xc1
	// OpcodeCallHost invokes a host function by environment index:
	// CallHost fi:i32.
	OpcodeCallHost Opcode = 0xc2
	// OpcodeData annotates the raw br_table entries that follow:
	// Data len:i32. The interpreter never executes it.
	OpcodeData Opcode = 0xc3
	// OpcodeDropKeep discards drop values while preserving the top
	// keep values: DropKeep drop:i32 keep:i8.
	OpcodeDropKeep Opcode = 0xc4
)

// InvalidIstreamOffset is the sentinel emitted into branch offset
// slots until the forward reference resolves.
const InvalidIstreamOffset = ^uint32(0)

// brTableEntrySize is the istream footprint of one br_table entry:
// offset:i32, drop:i32, keep:i8.
const brTableEntrySize = 9

// OpcodeName returns the mnemonic of an istream opcode.
func OpcodeName(op Opcode) string {
	switch op {
	case OpcodeAlloca:
		return "alloca"
	case OpcodeBrUnless:
		return "br_unless"
	case OpcodeCallHost:
		return "call_host"
	case OpcodeData:
		return "data"
	case OpcodeDropKeep:
		return "drop_keep"
	}
	return wasm.OpcodeName(op)
}
