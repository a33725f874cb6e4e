package interp

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/guybedford/wabt/wasm"
)

// Disassemble renders the istream range [start, end) one instruction
// per line, in the form "offset: mnemonic operands".
func Disassemble(istream []byte, start, end uint32) string {
	var b strings.Builder
	d := &disassembler{istream: istream, pos: start, end: end}
	for d.pos < d.end {
		offset := d.pos
		text := d.instruction()
		fmt.Fprintf(&b, "%08x: %s\n", offset, text)
		if text == "<truncated>" {
			break
		}
	}
	return b.String()
}

type disassembler struct {
	istream []byte
	pos     uint32
	end     uint32
}

func (d *disassembler) instruction() string {
	op := d.istream[d.pos]
	d.pos++
	name := OpcodeName(op)

	switch op {
	case OpcodeAlloca, OpcodeCallHost, wasm.OpcodeCall,
		wasm.OpcodeBr, OpcodeBrUnless,
		wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee,
		wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet,
		wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow,
		wasm.OpcodeI32Const, wasm.OpcodeF32Const:
		v, ok := d.i32()
		if !ok {
			return "<truncated>"
		}
		return fmt.Sprintf("%s %d", name, v)

	case wasm.OpcodeI64Const, wasm.OpcodeF64Const:
		v, ok := d.i64()
		if !ok {
			return "<truncated>"
		}
		return fmt.Sprintf("%s %d", name, v)

	case wasm.OpcodeCallIndirect:
		tableIndex, ok1 := d.i32()
		sigIndex, ok2 := d.i32()
		if !ok1 || !ok2 {
			return "<truncated>"
		}
		return fmt.Sprintf("%s %d %d", name, tableIndex, sigIndex)

	case OpcodeDropKeep:
		drop, ok1 := d.i32()
		keep, ok2 := d.i8()
		if !ok1 || !ok2 {
			return "<truncated>"
		}
		return fmt.Sprintf("%s %d %d", name, drop, keep)

	case wasm.OpcodeBrTable:
		numTargets, ok1 := d.i32()
		tableOffset, ok2 := d.i32()
		if !ok1 || !ok2 {
			return "<truncated>"
		}
		return fmt.Sprintf("%s %d %d", name, numTargets, tableOffset)

	case OpcodeData:
		// Skip over the raw bytes the marker length describes.
		length, ok := d.i32()
		if !ok || d.pos+length > d.end {
			return "<truncated>"
		}
		d.pos += length
		return fmt.Sprintf("%s %d", name, length)
	}

	if _, isMemAccess := wasm.MemoryAccessSize(op); isMemAccess {
		memoryIndex, ok1 := d.i32()
		offset, ok2 := d.i32()
		if !ok1 || !ok2 {
			return "<truncated>"
		}
		return fmt.Sprintf("%s %d %d", name, memoryIndex, offset)
	}

	return name
}

func (d *disassembler) i8() (uint8, bool) {
	if d.pos+1 > d.end {
		return 0, false
	}
	v := d.istream[d.pos]
	d.pos++
	return v, true
}

func (d *disassembler) i32() (uint32, bool) {
	if d.pos+4 > d.end {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(d.istream[d.pos:])
	d.pos += 4
	return v, true
}

func (d *disassembler) i64() (uint64, bool) {
	if d.pos+8 > d.end {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(d.istream[d.pos:])
	d.pos += 8
	return v, true
}
