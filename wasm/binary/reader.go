// Package binary reads the WebAssembly 1.0 (MVP) binary format and
// reports its contents as a stream of semantic events.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/guybedford/wabt/wasm"
	"github.com/guybedford/wabt/wasm/leb128"
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Read walks the given module binary and dispatches one event per
// entity to h. It stops at the first error, either the handler's or a
// malformed-binary error, and wraps it with the byte offset at which
// it was raised.
func Read(data []byte, h EventHandler) error {
	r := &reader{data: data, h: h}
	if err := r.readModule(); err != nil {
		return fmt.Errorf("offset 0x%06x: %w", r.pos, err)
	}
	return nil
}

type reader struct {
	data []byte
	pos  int
	h    EventHandler

	numFuncImports   uint32
	numTableImports  uint32
	numMemoryImports uint32
	numGlobalImports uint32

	numFunctions uint32
	numBodies    uint32
}

func (r *reader) readModule() error {
	header, err := r.readBytes(8)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header[:4], magic) {
		return fmt.Errorf("invalid magic number")
	}
	if !bytes.Equal(header[4:], version) {
		return fmt.Errorf("invalid version header")
	}

	if err := r.h.BeginModule(); err != nil {
		return err
	}

	lastSectionID := -1
	for r.pos < len(r.data) {
		sectionID, err := r.readByte()
		if err != nil {
			return fmt.Errorf("read section id: %w", err)
		}
		sectionSize, err := r.readU32()
		if err != nil {
			return fmt.Errorf("get size of section for id=%d: %w", sectionID, err)
		}
		sectionStart := r.pos

		if sectionID != wasm.SectionIDCustom {
			if int(sectionID) <= lastSectionID {
				return fmt.Errorf("section %s out of order", wasm.SectionIDName(sectionID))
			}
			lastSectionID = int(sectionID)
		}

		switch sectionID {
		case wasm.SectionIDCustom:
			// Custom sections carry no semantics for translation.
			if _, err = r.readBytes(int(sectionSize)); err != nil {
				err = fmt.Errorf("skip custom section: %w", err)
			}
		case wasm.SectionIDType:
			err = r.readTypeSection()
		case wasm.SectionIDImport:
			err = r.readImportSection()
		case wasm.SectionIDFunction:
			err = r.readFunctionSection()
		case wasm.SectionIDTable:
			err = r.readTableSection()
		case wasm.SectionIDMemory:
			err = r.readMemorySection()
		case wasm.SectionIDGlobal:
			err = r.readGlobalSection()
		case wasm.SectionIDExport:
			err = r.readExportSection()
		case wasm.SectionIDStart:
			err = r.readStartSection()
		case wasm.SectionIDElement:
			err = r.readElementSection()
		case wasm.SectionIDCode:
			err = r.readCodeSection()
		case wasm.SectionIDData:
			err = r.readDataSection()
		default:
			err = fmt.Errorf("invalid section id: %d", sectionID)
		}
		if err != nil {
			return fmt.Errorf("section %s: %w", wasm.SectionIDName(sectionID), err)
		}

		if read := r.pos - sectionStart; read != int(sectionSize) {
			return fmt.Errorf("section %s: invalid section length: expected to be %d but got %d",
				wasm.SectionIDName(sectionID), sectionSize, read)
		}
	}

	if r.numFunctions != r.numBodies {
		return fmt.Errorf("function and code section have inconsistent lengths")
	}
	return r.h.EndModule()
}

func (r *reader) readTypeSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get type count: %w", err)
	}
	if err := r.h.OnTypeCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		form, err := r.readByte()
		if err != nil {
			return fmt.Errorf("type %d: read form: %w", i, err)
		}
		if form != 0x60 {
			return fmt.Errorf("type %d: expected function form 0x60, got %#x", i, form)
		}
		params, err := r.readValueTypes()
		if err != nil {
			return fmt.Errorf("type %d: read params: %w", i, err)
		}
		results, err := r.readValueTypes()
		if err != nil {
			return fmt.Errorf("type %d: read results: %w", i, err)
		}
		if err := r.h.OnType(i, params, results); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readImportSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get import count: %w", err)
	}
	if err := r.h.OnImportCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		moduleName, err := r.readName()
		if err != nil {
			return fmt.Errorf("import %d: read module name: %w", i, err)
		}
		fieldName, err := r.readName()
		if err != nil {
			return fmt.Errorf("import %d: read field name: %w", i, err)
		}
		if err := r.h.OnImport(i, moduleName, fieldName); err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return fmt.Errorf("import %d: read kind: %w", i, err)
		}
		switch kind {
		case wasm.ExternalKindFunc:
			sigIndex, err := r.readU32()
			if err != nil {
				return fmt.Errorf("import %d: read signature index: %w", i, err)
			}
			err = r.h.OnImportFunc(i, moduleName, fieldName, r.numFuncImports, sigIndex)
			if err != nil {
				return err
			}
			r.numFuncImports++
		case wasm.ExternalKindTable:
			elemType, limits, err := r.readTableType()
			if err != nil {
				return fmt.Errorf("import %d: %w", i, err)
			}
			err = r.h.OnImportTable(i, moduleName, fieldName, r.numTableImports, elemType, limits)
			if err != nil {
				return err
			}
			r.numTableImports++
		case wasm.ExternalKindMemory:
			limits, err := r.readLimits()
			if err != nil {
				return fmt.Errorf("import %d: %w", i, err)
			}
			err = r.h.OnImportMemory(i, moduleName, fieldName, r.numMemoryImports, limits)
			if err != nil {
				return err
			}
			r.numMemoryImports++
		case wasm.ExternalKindGlobal:
			valueType, mutable, err := r.readGlobalType()
			if err != nil {
				return fmt.Errorf("import %d: %w", i, err)
			}
			err = r.h.OnImportGlobal(i, moduleName, fieldName, r.numGlobalImports, valueType, mutable)
			if err != nil {
				return err
			}
			r.numGlobalImports++
		default:
			return fmt.Errorf("import %d: invalid kind: %#x", i, kind)
		}
	}
	return nil
}

func (r *reader) readFunctionSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get function count: %w", err)
	}
	r.numFunctions = count
	if err := r.h.OnFunctionCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		sigIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("function %d: read signature index: %w", i, err)
		}
		if err := r.h.OnFunction(i, sigIndex); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readTableSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get table count: %w", err)
	}
	if err := r.h.OnTableCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		elemType, limits, err := r.readTableType()
		if err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
		if err := r.h.OnTable(i, elemType, limits); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readMemorySection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get memory count: %w", err)
	}
	if err := r.h.OnMemoryCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		limits, err := r.readLimits()
		if err != nil {
			return fmt.Errorf("memory %d: %w", i, err)
		}
		if err := r.h.OnMemory(i, limits); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readGlobalSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get global count: %w", err)
	}
	if err := r.h.OnGlobalCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		// Global indices are module-wide, counting imported globals first.
		globalIndex := r.numGlobalImports + i
		valueType, mutable, err := r.readGlobalType()
		if err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
		if err := r.h.BeginGlobal(globalIndex, valueType, mutable); err != nil {
			return err
		}
		if err := r.readInitExpr(globalIndex); err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
		if err := r.h.EndGlobalInitExpr(globalIndex); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readExportSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get export count: %w", err)
	}
	if err := r.h.OnExportCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return fmt.Errorf("export %d: read name: %w", i, err)
		}
		kind, err := r.readByte()
		if err != nil {
			return fmt.Errorf("export %d: read kind: %w", i, err)
		}
		if kind > wasm.ExternalKindGlobal {
			return fmt.Errorf("export %d: invalid kind: %#x", i, kind)
		}
		itemIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("export %d: read index: %w", i, err)
		}
		if err := r.h.OnExport(i, kind, itemIndex, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readStartSection() error {
	funcIndex, err := r.readU32()
	if err != nil {
		return fmt.Errorf("read start function index: %w", err)
	}
	return r.h.OnStartFunction(funcIndex)
}

func (r *reader) readElementSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get element segment count: %w", err)
	}
	if err := r.h.OnElemSegmentCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		tableIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("element segment %d: read table index: %w", i, err)
		}
		if err := r.h.BeginElemSegment(i, tableIndex); err != nil {
			return err
		}
		if err := r.readInitExpr(i); err != nil {
			return fmt.Errorf("element segment %d: %w", i, err)
		}
		if err := r.h.EndElemSegmentInitExpr(i); err != nil {
			return err
		}
		numFuncs, err := r.readU32()
		if err != nil {
			return fmt.Errorf("element segment %d: read function count: %w", i, err)
		}
		for j := uint32(0); j < numFuncs; j++ {
			funcIndex, err := r.readU32()
			if err != nil {
				return fmt.Errorf("element segment %d: read function index: %w", i, err)
			}
			if err := r.h.OnElemSegmentFunctionIndex(i, funcIndex); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *reader) readCodeSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get code count: %w", err)
	}
	if count != r.numFunctions {
		return fmt.Errorf("function and code section have inconsistent lengths")
	}
	for i := uint32(0); i < count; i++ {
		if err := r.readFunctionBody(r.numFuncImports + i); err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
		r.numBodies++
	}
	return nil
}

func (r *reader) readDataSection() error {
	count, err := r.readU32()
	if err != nil {
		return fmt.Errorf("get data segment count: %w", err)
	}
	if err := r.h.OnDataSegmentCount(count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		memoryIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("data segment %d: read memory index: %w", i, err)
		}
		if err := r.h.BeginDataSegment(i, memoryIndex); err != nil {
			return err
		}
		if err := r.readInitExpr(i); err != nil {
			return fmt.Errorf("data segment %d: %w", i, err)
		}
		if err := r.h.EndDataSegmentInitExpr(i); err != nil {
			return err
		}
		size, err := r.readU32()
		if err != nil {
			return fmt.Errorf("data segment %d: read size: %w", i, err)
		}
		data, err := r.readBytes(int(size))
		if err != nil {
			return fmt.Errorf("data segment %d: read data: %w", i, err)
		}
		if err := r.h.OnDataSegmentData(i, data); err != nil {
			return err
		}
	}
	return nil
}

// readInitExpr reads one constant expression and dispatches the
// matching OnInitExpr* event, then consumes the closing end opcode.
func (r *reader) readInitExpr(index uint32) error {
	op, err := r.readByte()
	if err != nil {
		return fmt.Errorf("read initializer expression: %w", err)
	}
	switch op {
	case wasm.OpcodeI32Const:
		v, err := r.readS32()
		if err != nil {
			return fmt.Errorf("read i32.const value: %w", err)
		}
		if err := r.h.OnInitExprI32Const(index, uint32(v)); err != nil {
			return err
		}
	case wasm.OpcodeI64Const:
		v, err := r.readS64()
		if err != nil {
			return fmt.Errorf("read i64.const value: %w", err)
		}
		if err := r.h.OnInitExprI64Const(index, uint64(v)); err != nil {
			return err
		}
	case wasm.OpcodeF32Const:
		bits, err := r.readFixedU32()
		if err != nil {
			return fmt.Errorf("read f32.const value: %w", err)
		}
		if err := r.h.OnInitExprF32Const(index, bits); err != nil {
			return err
		}
	case wasm.OpcodeF64Const:
		bits, err := r.readFixedU64()
		if err != nil {
			return fmt.Errorf("read f64.const value: %w", err)
		}
		if err := r.h.OnInitExprF64Const(index, bits); err != nil {
			return err
		}
	case wasm.OpcodeGlobalGet:
		globalIndex, err := r.readU32()
		if err != nil {
			return fmt.Errorf("read global.get index: %w", err)
		}
		if err := r.h.OnInitExprGlobalGet(index, globalIndex); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unexpected opcode in initializer expression: %#x", op)
	}

	end, err := r.readByte()
	if err != nil {
		return fmt.Errorf("read end of initializer expression: %w", err)
	}
	if end != wasm.OpcodeEnd {
		return fmt.Errorf("expected end of initializer expression, got %#x", end)
	}
	return nil
}

// primitive reads

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of binary")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("unexpected end of binary")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) rest() []byte {
	return r.data[r.pos:]
}

func (r *reader) readU32() (uint32, error) {
	v, num, err := leb128.DecodeUint32(bytes.NewReader(r.rest()))
	if err != nil {
		return 0, err
	}
	r.pos += int(num)
	return v, nil
}

func (r *reader) readS32() (int32, error) {
	v, num, err := leb128.DecodeInt32(bytes.NewReader(r.rest()))
	if err != nil {
		return 0, err
	}
	r.pos += int(num)
	return v, nil
}

func (r *reader) readS64() (int64, error) {
	v, num, err := leb128.DecodeInt64(bytes.NewReader(r.rest()))
	if err != nil {
		return 0, err
	}
	r.pos += int(num)
	return v, nil
}

func (r *reader) readFixedU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readFixedU64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readName() (string, error) {
	size, err := r.readU32()
	if err != nil {
		return "", fmt.Errorf("read name size: %w", err)
	}
	b, err := r.readBytes(int(size))
	if err != nil {
		return "", fmt.Errorf("read name: %w", err)
	}
	return string(b), nil
}

func (r *reader) readValueType() (wasm.ValueType, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return b, nil
	}
	return 0, fmt.Errorf("invalid value type: %#x", b)
}

func (r *reader) readValueTypes() ([]wasm.ValueType, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	types := make([]wasm.ValueType, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := r.readValueType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (r *reader) readLimits() (*wasm.Limits, error) {
	flags, err := r.readByte()
	if err != nil {
		return nil, fmt.Errorf("read limits flags: %w", err)
	}
	if flags > 1 {
		return nil, fmt.Errorf("invalid limits flags: %#x", flags)
	}
	min, err := r.readU32()
	if err != nil {
		return nil, fmt.Errorf("read limits minimum: %w", err)
	}
	limits := &wasm.Limits{Min: min}
	if flags == 1 {
		max, err := r.readU32()
		if err != nil {
			return nil, fmt.Errorf("read limits maximum: %w", err)
		}
		limits.Max = &max
	}
	return limits, nil
}

func (r *reader) readTableType() (byte, *wasm.Limits, error) {
	elemType, err := r.readByte()
	if err != nil {
		return 0, nil, fmt.Errorf("read element type: %w", err)
	}
	if elemType != wasm.ElemTypeFuncref {
		return 0, nil, fmt.Errorf("invalid element type: %#x", elemType)
	}
	limits, err := r.readLimits()
	if err != nil {
		return 0, nil, err
	}
	return elemType, limits, nil
}

func (r *reader) readGlobalType() (wasm.ValueType, bool, error) {
	valueType, err := r.readValueType()
	if err != nil {
		return 0, false, fmt.Errorf("read global value type: %w", err)
	}
	mutable, err := r.readByte()
	if err != nil {
		return 0, false, fmt.Errorf("read global mutability: %w", err)
	}
	if mutable > 1 {
		return 0, false, fmt.Errorf("invalid global mutability: %#x", mutable)
	}
	return valueType, mutable == 1, nil
}

// readBlockType reads the signature of a block, loop or if scope: the
// empty marker 0x40 or a single value type.
func (r *reader) readBlockType() ([]wasm.ValueType, error) {
	b, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if b == 0x40 {
		return nil, nil
	}
	switch b {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return []wasm.ValueType{b}, nil
	}
	return nil, fmt.Errorf("invalid block type: %#x", b)
}
