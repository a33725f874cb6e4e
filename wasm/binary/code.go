package binary

import (
	"fmt"

	"github.com/guybedford/wabt/wasm"
)

// readFunctionBody reads one code-section entry and dispatches the
// local declarations and one event per operator. The end opcode that
// closes the body is reported as EndFunctionBody, not OnEnd.
func (r *reader) readFunctionBody(funcIndex uint32) error {
	bodySize, err := r.readU32()
	if err != nil {
		return fmt.Errorf("read body size: %w", err)
	}
	bodyEnd := r.pos + int(bodySize)
	if bodyEnd > len(r.data) {
		return fmt.Errorf("body size %d exceeds binary", bodySize)
	}

	if err := r.h.BeginFunctionBody(funcIndex); err != nil {
		return err
	}

	declCount, err := r.readU32()
	if err != nil {
		return fmt.Errorf("read local declaration count: %w", err)
	}
	if err := r.h.OnLocalDeclCount(declCount); err != nil {
		return err
	}
	for i := uint32(0); i < declCount; i++ {
		count, err := r.readU32()
		if err != nil {
			return fmt.Errorf("local declaration %d: read count: %w", i, err)
		}
		valueType, err := r.readValueType()
		if err != nil {
			return fmt.Errorf("local declaration %d: %w", i, err)
		}
		if err := r.h.OnLocalDecl(i, count, valueType); err != nil {
			return err
		}
	}

	for {
		if r.pos >= bodyEnd {
			return fmt.Errorf("function body must end with the end opcode")
		}
		op, err := r.readByte()
		if err != nil {
			return err
		}
		if op == wasm.OpcodeEnd && r.pos == bodyEnd {
			return r.h.EndFunctionBody(funcIndex)
		}
		if err := r.readOperator(op); err != nil {
			return err
		}
	}
}

func (r *reader) readOperator(op wasm.Opcode) error {
	switch op {
	case wasm.OpcodeUnreachable:
		return r.h.OnUnreachable()
	case wasm.OpcodeNop:
		return r.h.OnNop()

	case wasm.OpcodeBlock:
		sig, err := r.readBlockType()
		if err != nil {
			return fmt.Errorf("block: %w", err)
		}
		return r.h.OnBlock(sig)
	case wasm.OpcodeLoop:
		sig, err := r.readBlockType()
		if err != nil {
			return fmt.Errorf("loop: %w", err)
		}
		return r.h.OnLoop(sig)
	case wasm.OpcodeIf:
		sig, err := r.readBlockType()
		if err != nil {
			return fmt.Errorf("if: %w", err)
		}
		return r.h.OnIf(sig)
	case wasm.OpcodeElse:
		return r.h.OnElse()
	case wasm.OpcodeEnd:
		return r.h.OnEnd()

	case wasm.OpcodeBr:
		depth, err := r.readU32()
		if err != nil {
			return fmt.Errorf("br: %w", err)
		}
		return r.h.OnBr(depth)
	case wasm.OpcodeBrIf:
		depth, err := r.readU32()
		if err != nil {
			return fmt.Errorf("br_if: %w", err)
		}
		return r.h.OnBrIf(depth)
	case wasm.OpcodeBrTable:
		numTargets, err := r.readU32()
		if err != nil {
			return fmt.Errorf("br_table: %w", err)
		}
		targets := make([]uint32, numTargets)
		for i := range targets {
			if targets[i], err = r.readU32(); err != nil {
				return fmt.Errorf("br_table target %d: %w", i, err)
			}
		}
		defaultDepth, err := r.readU32()
		if err != nil {
			return fmt.Errorf("br_table default target: %w", err)
		}
		return r.h.OnBrTable(targets, defaultDepth)
	case wasm.OpcodeReturn:
		return r.h.OnReturn()

	case wasm.OpcodeCall:
		funcIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("call: %w", err)
		}
		return r.h.OnCall(funcIndex)
	case wasm.OpcodeCallIndirect:
		sigIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("call_indirect: %w", err)
		}
		reserved, err := r.readByte()
		if err != nil {
			return fmt.Errorf("call_indirect: %w", err)
		}
		if reserved != 0 {
			return fmt.Errorf("call_indirect reserved byte must be zero")
		}
		return r.h.OnCallIndirect(sigIndex)

	case wasm.OpcodeDrop:
		return r.h.OnDrop()
	case wasm.OpcodeSelect:
		return r.h.OnSelect()

	case wasm.OpcodeLocalGet:
		index, err := r.readU32()
		if err != nil {
			return fmt.Errorf("local.get: %w", err)
		}
		return r.h.OnLocalGet(index)
	case wasm.OpcodeLocalSet:
		index, err := r.readU32()
		if err != nil {
			return fmt.Errorf("local.set: %w", err)
		}
		return r.h.OnLocalSet(index)
	case wasm.OpcodeLocalTee:
		index, err := r.readU32()
		if err != nil {
			return fmt.Errorf("local.tee: %w", err)
		}
		return r.h.OnLocalTee(index)
	case wasm.OpcodeGlobalGet:
		index, err := r.readU32()
		if err != nil {
			return fmt.Errorf("global.get: %w", err)
		}
		return r.h.OnGlobalGet(index)
	case wasm.OpcodeGlobalSet:
		index, err := r.readU32()
		if err != nil {
			return fmt.Errorf("global.set: %w", err)
		}
		return r.h.OnGlobalSet(index)

	case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
		wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
		wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		alignmentLog2, offset, err := r.readMemArg()
		if err != nil {
			return fmt.Errorf("%s: %w", wasm.OpcodeName(op), err)
		}
		return r.h.OnLoad(op, alignmentLog2, offset)
	case wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
		wasm.OpcodeI32Store8, wasm.OpcodeI32Store16,
		wasm.OpcodeI64Store8, wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
		alignmentLog2, offset, err := r.readMemArg()
		if err != nil {
			return fmt.Errorf("%s: %w", wasm.OpcodeName(op), err)
		}
		return r.h.OnStore(op, alignmentLog2, offset)

	case wasm.OpcodeMemorySize:
		if err := r.readReservedByte("memory.size"); err != nil {
			return err
		}
		return r.h.OnMemorySize()
	case wasm.OpcodeMemoryGrow:
		if err := r.readReservedByte("memory.grow"); err != nil {
			return err
		}
		return r.h.OnMemoryGrow()

	case wasm.OpcodeI32Const:
		v, err := r.readS32()
		if err != nil {
			return fmt.Errorf("i32.const: %w", err)
		}
		return r.h.OnI32Const(uint32(v))
	case wasm.OpcodeI64Const:
		v, err := r.readS64()
		if err != nil {
			return fmt.Errorf("i64.const: %w", err)
		}
		return r.h.OnI64Const(uint64(v))
	case wasm.OpcodeF32Const:
		bits, err := r.readFixedU32()
		if err != nil {
			return fmt.Errorf("f32.const: %w", err)
		}
		return r.h.OnF32Const(bits)
	case wasm.OpcodeF64Const:
		bits, err := r.readFixedU64()
		if err != nil {
			return fmt.Errorf("f64.const: %w", err)
		}
		return r.h.OnF64Const(bits)
	}

	switch {
	case op >= wasm.OpcodeI32Eqz && op <= wasm.OpcodeF64Ge:
		return r.h.OnCompare(op)
	case op == wasm.OpcodeI32Clz || op == wasm.OpcodeI32Ctz || op == wasm.OpcodeI32Popcnt ||
		op == wasm.OpcodeI64Clz || op == wasm.OpcodeI64Ctz || op == wasm.OpcodeI64Popcnt ||
		(op >= wasm.OpcodeF32Abs && op <= wasm.OpcodeF32Sqrt) ||
		(op >= wasm.OpcodeF64Abs && op <= wasm.OpcodeF64Sqrt):
		return r.h.OnUnary(op)
	case op >= wasm.OpcodeI32Add && op <= wasm.OpcodeF64Copysign:
		// The unary ranges above are carved out of this span.
		return r.h.OnBinary(op)
	case op >= wasm.OpcodeI32WrapI64 && op <= wasm.OpcodeF64ReinterpretI64:
		return r.h.OnConvert(op)
	}
	return fmt.Errorf("invalid opcode: %#x", op)
}

func (r *reader) readMemArg() (alignmentLog2, offset uint32, err error) {
	if alignmentLog2, err = r.readU32(); err != nil {
		return 0, 0, fmt.Errorf("read alignment: %w", err)
	}
	if offset, err = r.readU32(); err != nil {
		return 0, 0, fmt.Errorf("read offset: %w", err)
	}
	return
}

func (r *reader) readReservedByte(name string) error {
	b, err := r.readByte()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if b != 0 {
		return fmt.Errorf("%s reserved byte must be zero", name)
	}
	return nil
}
