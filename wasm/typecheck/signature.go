package typecheck

import (
	"fmt"

	"github.com/guybedford/wabt/wasm"
)

// opSignature describes how an opcode manipulates the value stack.
type opSignature struct {
	params, results []wasm.ValueType
}

var (
	sigNoneI32 = &opSignature{results: []wasm.ValueType{wasm.ValueTypeI32}}
	sigNoneI64 = &opSignature{results: []wasm.ValueType{wasm.ValueTypeI64}}
	sigNoneF32 = &opSignature{results: []wasm.ValueType{wasm.ValueTypeF32}}
	sigNoneF64 = &opSignature{results: []wasm.ValueType{wasm.ValueTypeF64}}

	sigI32I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI32},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigI32I64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI32},
		results: []wasm.ValueType{wasm.ValueTypeI64},
	}
	sigI32F32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI32},
		results: []wasm.ValueType{wasm.ValueTypeF32},
	}
	sigI32F64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI32},
		results: []wasm.ValueType{wasm.ValueTypeF64},
	}
	sigI64I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI64},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigI64I64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI64},
		results: []wasm.ValueType{wasm.ValueTypeI64},
	}
	sigI64F32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI64},
		results: []wasm.ValueType{wasm.ValueTypeF32},
	}
	sigI64F64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI64},
		results: []wasm.ValueType{wasm.ValueTypeF64},
	}
	sigF32I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF32},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigF32I64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF32},
		results: []wasm.ValueType{wasm.ValueTypeI64},
	}
	sigF32F32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF32},
		results: []wasm.ValueType{wasm.ValueTypeF32},
	}
	sigF32F64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF32},
		results: []wasm.ValueType{wasm.ValueTypeF64},
	}
	sigF64I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF64},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigF64I64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF64},
		results: []wasm.ValueType{wasm.ValueTypeI64},
	}
	sigF64F32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF64},
		results: []wasm.ValueType{wasm.ValueTypeF32},
	}
	sigF64F64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF64},
		results: []wasm.ValueType{wasm.ValueTypeF64},
	}

	sigI32I32None = &opSignature{
		params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
	}
	sigI32I64None = &opSignature{
		params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64},
	}
	sigI32F32None = &opSignature{
		params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeF32},
	}
	sigI32F64None = &opSignature{
		params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeF64},
	}

	sigI32I32I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigI64I64I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI64, wasm.ValueTypeI64},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigI64I64I64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeI64, wasm.ValueTypeI64},
		results: []wasm.ValueType{wasm.ValueTypeI64},
	}
	sigF32F32I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF32, wasm.ValueTypeF32},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigF32F32F32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF32, wasm.ValueTypeF32},
		results: []wasm.ValueType{wasm.ValueTypeF32},
	}
	sigF64F64I32 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF64, wasm.ValueTypeF64},
		results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	sigF64F64F64 = &opSignature{
		params:  []wasm.ValueType{wasm.ValueTypeF64, wasm.ValueTypeF64},
		results: []wasm.ValueType{wasm.ValueTypeF64},
	}
)

// opcodeSignature returns the stack signature of a numeric or memory
// opcode. Control, parametric and variable opcodes have context-
// dependent signatures and are handled by their dedicated hooks.
func opcodeSignature(op wasm.Opcode) (*opSignature, error) {
	switch op {
	case wasm.OpcodeI32Load, wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U,
		wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U:
		return sigI32I32, nil
	case wasm.OpcodeI64Load, wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U,
		wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		return sigI32I64, nil
	case wasm.OpcodeF32Load:
		return sigI32F32, nil
	case wasm.OpcodeF64Load:
		return sigI32F64, nil
	case wasm.OpcodeI32Store, wasm.OpcodeI32Store8, wasm.OpcodeI32Store16:
		return sigI32I32None, nil
	case wasm.OpcodeI64Store, wasm.OpcodeI64Store8, wasm.OpcodeI64Store16,
		wasm.OpcodeI64Store32:
		return sigI32I64None, nil
	case wasm.OpcodeF32Store:
		return sigI32F32None, nil
	case wasm.OpcodeF64Store:
		return sigI32F64None, nil

	case wasm.OpcodeMemorySize:
		return sigNoneI32, nil
	case wasm.OpcodeMemoryGrow:
		return sigI32I32, nil

	case wasm.OpcodeI32Const:
		return sigNoneI32, nil
	case wasm.OpcodeI64Const:
		return sigNoneI64, nil
	case wasm.OpcodeF32Const:
		return sigNoneF32, nil
	case wasm.OpcodeF64Const:
		return sigNoneF64, nil

	case wasm.OpcodeI32Eqz:
		return sigI32I32, nil
	case wasm.OpcodeI32Eq, wasm.OpcodeI32Ne, wasm.OpcodeI32LtS, wasm.OpcodeI32LtU,
		wasm.OpcodeI32GtS, wasm.OpcodeI32GtU, wasm.OpcodeI32LeS, wasm.OpcodeI32LeU,
		wasm.OpcodeI32GeS, wasm.OpcodeI32GeU:
		return sigI32I32I32, nil
	case wasm.OpcodeI64Eqz:
		return sigI64I32, nil
	case wasm.OpcodeI64Eq, wasm.OpcodeI64Ne, wasm.OpcodeI64LtS, wasm.OpcodeI64LtU,
		wasm.OpcodeI64GtS, wasm.OpcodeI64GtU, wasm.OpcodeI64LeS, wasm.OpcodeI64LeU,
		wasm.OpcodeI64GeS, wasm.OpcodeI64GeU:
		return sigI64I64I32, nil
	case wasm.OpcodeF32Eq, wasm.OpcodeF32Ne, wasm.OpcodeF32Lt, wasm.OpcodeF32Gt,
		wasm.OpcodeF32Le, wasm.OpcodeF32Ge:
		return sigF32F32I32, nil
	case wasm.OpcodeF64Eq, wasm.OpcodeF64Ne, wasm.OpcodeF64Lt, wasm.OpcodeF64Gt,
		wasm.OpcodeF64Le, wasm.OpcodeF64Ge:
		return sigF64F64I32, nil

	case wasm.OpcodeI32Clz, wasm.OpcodeI32Ctz, wasm.OpcodeI32Popcnt:
		return sigI32I32, nil
	case wasm.OpcodeI32Add, wasm.OpcodeI32Sub, wasm.OpcodeI32Mul,
		wasm.OpcodeI32DivS, wasm.OpcodeI32DivU, wasm.OpcodeI32RemS, wasm.OpcodeI32RemU,
		wasm.OpcodeI32And, wasm.OpcodeI32Or, wasm.OpcodeI32Xor,
		wasm.OpcodeI32Shl, wasm.OpcodeI32ShrS, wasm.OpcodeI32ShrU,
		wasm.OpcodeI32Rotl, wasm.OpcodeI32Rotr:
		return sigI32I32I32, nil
	case wasm.OpcodeI64Clz, wasm.OpcodeI64Ctz, wasm.OpcodeI64Popcnt:
		return sigI64I64, nil
	case wasm.OpcodeI64Add, wasm.OpcodeI64Sub, wasm.OpcodeI64Mul,
		wasm.OpcodeI64DivS, wasm.OpcodeI64DivU, wasm.OpcodeI64RemS, wasm.OpcodeI64RemU,
		wasm.OpcodeI64And, wasm.OpcodeI64Or, wasm.OpcodeI64Xor,
		wasm.OpcodeI64Shl, wasm.OpcodeI64ShrS, wasm.OpcodeI64ShrU,
		wasm.OpcodeI64Rotl, wasm.OpcodeI64Rotr:
		return sigI64I64I64, nil
	case wasm.OpcodeF32Abs, wasm.OpcodeF32Neg, wasm.OpcodeF32Ceil, wasm.OpcodeF32Floor,
		wasm.OpcodeF32Trunc, wasm.OpcodeF32Nearest, wasm.OpcodeF32Sqrt:
		return sigF32F32, nil
	case wasm.OpcodeF32Add, wasm.OpcodeF32Sub, wasm.OpcodeF32Mul, wasm.OpcodeF32Div,
		wasm.OpcodeF32Min, wasm.OpcodeF32Max, wasm.OpcodeF32Copysign:
		return sigF32F32F32, nil
	case wasm.OpcodeF64Abs, wasm.OpcodeF64Neg, wasm.OpcodeF64Ceil, wasm.OpcodeF64Floor,
		wasm.OpcodeF64Trunc, wasm.OpcodeF64Nearest, wasm.OpcodeF64Sqrt:
		return sigF64F64, nil
	case wasm.OpcodeF64Add, wasm.OpcodeF64Sub, wasm.OpcodeF64Mul, wasm.OpcodeF64Div,
		wasm.OpcodeF64Min, wasm.OpcodeF64Max, wasm.OpcodeF64Copysign:
		return sigF64F64F64, nil

	case wasm.OpcodeI32WrapI64:
		return sigI64I32, nil
	case wasm.OpcodeI32TruncF32S, wasm.OpcodeI32TruncF32U:
		return sigF32I32, nil
	case wasm.OpcodeI32TruncF64S, wasm.OpcodeI32TruncF64U:
		return sigF64I32, nil
	case wasm.OpcodeI64ExtendI32S, wasm.OpcodeI64ExtendI32U:
		return sigI32I64, nil
	case wasm.OpcodeI64TruncF32S, wasm.OpcodeI64TruncF32U:
		return sigF32I64, nil
	case wasm.OpcodeI64TruncF64S, wasm.OpcodeI64TruncF64U:
		return sigF64I64, nil
	case wasm.OpcodeF32ConvertI32S, wasm.OpcodeF32ConvertI32U:
		return sigI32F32, nil
	case wasm.OpcodeF32ConvertI64S, wasm.OpcodeF32ConvertI64U:
		return sigI64F32, nil
	case wasm.OpcodeF32DemoteF64:
		return sigF64F32, nil
	case wasm.OpcodeF64ConvertI32S, wasm.OpcodeF64ConvertI32U:
		return sigI32F64, nil
	case wasm.OpcodeF64ConvertI64S, wasm.OpcodeF64ConvertI64U:
		return sigI64F64, nil
	case wasm.OpcodeF64PromoteF32:
		return sigF32F64, nil
	case wasm.OpcodeI32ReinterpretF32:
		return sigF32I32, nil
	case wasm.OpcodeI64ReinterpretF64:
		return sigF64I64, nil
	case wasm.OpcodeF32ReinterpretI32:
		return sigI32F32, nil
	case wasm.OpcodeF64ReinterpretI64:
		return sigI64F64, nil
	}
	return nil, fmt.Errorf("no stack signature for opcode %#x", op)
}
