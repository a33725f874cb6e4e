package binary

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guybedford/wabt/wasm"
)

// test binary builders

func uleb(v uint32) (out []byte) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return
		}
	}
}

func sleb32(v int32) (out []byte) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func cat(chunks ...[]byte) (out []byte) {
	for _, c := range chunks {
		out = append(out, c...)
	}
	return
}

func section(id wasm.SectionID, content []byte) []byte {
	return cat([]byte{id}, uleb(uint32(len(content))), content)
}

func vec(entries ...[]byte) []byte {
	return cat(append([][]byte{uleb(uint32(len(entries)))}, entries...)...)
}

func name(s string) []byte {
	return cat(uleb(uint32(len(s))), []byte(s))
}

func module(sections ...[]byte) []byte {
	return cat(append([][]byte{magic, version}, sections...)...)
}

// recorder logs every event it receives as one line.
type recorder struct {
	NopHandler
	log []string
}

func (r *recorder) add(format string, args ...interface{}) error {
	r.log = append(r.log, fmt.Sprintf(format, args...))
	return nil
}

func (r *recorder) OnTypeCount(count uint32) error { return r.add("type count %d", count) }
func (r *recorder) OnType(index uint32, params, results []wasm.ValueType) error {
	return r.add("type %d %v -> %v", index, params, results)
}
func (r *recorder) OnImport(index uint32, moduleName, fieldName string) error {
	return r.add("import %d %s.%s", index, moduleName, fieldName)
}
func (r *recorder) OnImportFunc(importIndex uint32, moduleName, fieldName string, funcIndex, sigIndex uint32) error {
	return r.add("import func %d sig %d", funcIndex, sigIndex)
}
func (r *recorder) OnFunctionCount(count uint32) error { return r.add("function count %d", count) }
func (r *recorder) OnFunction(index, sigIndex uint32) error {
	return r.add("function %d sig %d", index, sigIndex)
}
func (r *recorder) OnMemory(index uint32, limits *wasm.Limits) error {
	if limits.Max != nil {
		return r.add("memory %d min %d max %d", index, limits.Min, *limits.Max)
	}
	return r.add("memory %d min %d", index, limits.Min)
}
func (r *recorder) BeginGlobal(index uint32, valueType wasm.ValueType, mutable bool) error {
	return r.add("global %d %s mutable=%v", index, wasm.ValueTypeName(valueType), mutable)
}
func (r *recorder) OnInitExprI32Const(index uint32, value uint32) error {
	return r.add("init i32.const %d", int32(value))
}
func (r *recorder) EndGlobalInitExpr(index uint32) error { return r.add("global %d end", index) }
func (r *recorder) OnExport(index uint32, kind wasm.ExternalKind, itemIndex uint32, name string) error {
	return r.add("export %q %s %d", name, wasm.ExternalKindName(kind), itemIndex)
}
func (r *recorder) BeginFunctionBody(funcIndex uint32) error { return r.add("body %d", funcIndex) }
func (r *recorder) OnLocalDeclCount(count uint32) error { return r.add("local decls %d", count) }
func (r *recorder) OnLocalDecl(declIndex, count uint32, valueType wasm.ValueType) error {
	return r.add("local decl %d count %d %s", declIndex, count, wasm.ValueTypeName(valueType))
}
func (r *recorder) OnI32Const(value uint32) error { return r.add("i32.const %d", int32(value)) }
func (r *recorder) OnLocalGet(index uint32) error { return r.add("local.get %d", index) }
func (r *recorder) OnBinary(op wasm.Opcode) error { return r.add("binary %s", wasm.OpcodeName(op)) }
func (r *recorder) OnCompare(op wasm.Opcode) error {
	return r.add("compare %s", wasm.OpcodeName(op))
}
func (r *recorder) OnConvert(op wasm.Opcode) error {
	return r.add("convert %s", wasm.OpcodeName(op))
}
func (r *recorder) OnUnary(op wasm.Opcode) error { return r.add("unary %s", wasm.OpcodeName(op)) }
func (r *recorder) OnLoad(op wasm.Opcode, alignmentLog2, offset uint32) error {
	return r.add("load %s align %d offset %d", wasm.OpcodeName(op), alignmentLog2, offset)
}
func (r *recorder) OnEnd() error { return r.add("end") }
func (r *recorder) EndFunctionBody(funcIndex uint32) error {
	return r.add("body %d end", funcIndex)
}
func (r *recorder) EndModule() error { return r.add("module end") }

func TestReadEmptyModule(t *testing.T) {
	r := &recorder{}
	require.NoError(t, Read(module(), r))
	assert.Equal(t, []string{"module end"}, r.log)
}

func TestReadEventSequence(t *testing.T) {
	bin := module(
		// (type (func (param i32 i32) (result i32)))
		section(wasm.SectionIDType, vec(
			cat([]byte{0x60}, vec([]byte{wasm.ValueTypeI32}, []byte{wasm.ValueTypeI32}), vec([]byte{wasm.ValueTypeI32})),
		)),
		section(wasm.SectionIDFunction, vec(uleb(0))),
		section(wasm.SectionIDMemory, vec(cat([]byte{0x01}, uleb(1), uleb(2)))),
		// (global i32 (i32.const -5))
		section(wasm.SectionIDGlobal, vec(
			cat([]byte{wasm.ValueTypeI32, 0x00, wasm.OpcodeI32Const}, sleb32(-5), []byte{wasm.OpcodeEnd}),
		)),
		section(wasm.SectionIDExport, vec(
			cat(name("add"), []byte{wasm.ExternalKindFunc}, uleb(0)),
		)),
		// (func (param i32 i32) (result i32) (local i64) local.get 0 local.get 1 i32.add)
		section(wasm.SectionIDCode, vec(
			func() []byte {
				body := cat(
					vec(cat(uleb(1), []byte{wasm.ValueTypeI64})),
					[]byte{wasm.OpcodeLocalGet}, uleb(0),
					[]byte{wasm.OpcodeLocalGet}, uleb(1),
					[]byte{wasm.OpcodeI32Add},
					[]byte{wasm.OpcodeEnd},
				)
				return cat(uleb(uint32(len(body))), body)
			}(),
		)),
	)

	r := &recorder{}
	require.NoError(t, Read(bin, r))
	assert.Equal(t, []string{
		"type count 1",
		"type 0 [127 127] -> [127]",
		"function count 1",
		"function 0 sig 0",
		"memory 0 min 1 max 2",
		"global 0 i32 mutable=false",
		"init i32.const -5",
		"global 0 end",
		`export "add" func 0`,
		"body 0",
		"local decls 1",
		"local decl 0 count 1 i64",
		"local.get 0",
		"local.get 1",
		"binary i32.add",
		"body 0 end",
		"module end",
	}, r.log)
}

func TestReadImportFuncIndices(t *testing.T) {
	bin := module(
		section(wasm.SectionIDType, vec(cat([]byte{0x60}, vec(), vec()))),
		section(wasm.SectionIDImport, vec(
			cat(name("env"), name("f"), []byte{wasm.ExternalKindFunc}, uleb(0)),
			cat(name("env"), name("g"), []byte{wasm.ExternalKindFunc}, uleb(0)),
		)),
		section(wasm.SectionIDFunction, vec(uleb(0))),
		section(wasm.SectionIDCode, vec(cat(uleb(2), uleb(0), []byte{wasm.OpcodeEnd}))),
	)

	r := &recorder{}
	require.NoError(t, Read(bin, r))
	assert.Contains(t, r.log, "import func 0 sig 0")
	assert.Contains(t, r.log, "import func 1 sig 0")
	// The lone body belongs to module function index 2, after the imports.
	assert.Contains(t, r.log, "body 2")
}

func TestReadErrors(t *testing.T) {
	for _, c := range []struct {
		name        string
		bin         []byte
		expectedErr string
	}{
		{
			name:        "bad magic",
			bin:         []byte{0x01, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
			expectedErr: "invalid magic number",
		},
		{
			name:        "bad version",
			bin:         cat(magic, []byte{0x02, 0x00, 0x00, 0x00}),
			expectedErr: "invalid version header",
		},
		{
			name: "out of order sections",
			bin: module(
				section(wasm.SectionIDFunction, vec()),
				section(wasm.SectionIDType, vec()),
			),
			expectedErr: "section type out of order",
		},
		{
			name: "section length mismatch",
			bin: cat(magic, version,
				[]byte{wasm.SectionIDType}, uleb(10), vec()),
			expectedErr: "invalid section length",
		},
		{
			name: "code without function section",
			bin: module(
				section(wasm.SectionIDCode, vec(cat(uleb(2), uleb(0), []byte{wasm.OpcodeEnd}))),
			),
			expectedErr: "function and code section have inconsistent lengths",
		},
		{
			name: "body not terminated by end",
			bin: module(
				section(wasm.SectionIDType, vec(cat([]byte{0x60}, vec(), vec()))),
				section(wasm.SectionIDFunction, vec(uleb(0))),
				section(wasm.SectionIDCode, vec(cat(uleb(2), uleb(0), []byte{wasm.OpcodeNop}))),
			),
			expectedErr: "function body must end with the end opcode",
		},
		{
			name: "call_indirect reserved byte",
			bin: module(
				section(wasm.SectionIDType, vec(cat([]byte{0x60}, vec(), vec()))),
				section(wasm.SectionIDFunction, vec(uleb(0))),
				section(wasm.SectionIDCode, vec(cat(uleb(6),
					uleb(0),
					[]byte{wasm.OpcodeI32Const, 0x00},
					[]byte{wasm.OpcodeCallIndirect}, uleb(0), []byte{0x01},
				))),
			),
			expectedErr: "call_indirect reserved byte must be zero",
		},
		{
			name: "init expr non constant opcode",
			bin: module(
				section(wasm.SectionIDGlobal, vec(
					cat([]byte{wasm.ValueTypeI32, 0x00, wasm.OpcodeI32Add, wasm.OpcodeEnd}),
				)),
			),
			expectedErr: "unexpected opcode in initializer expression",
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			err := Read(c.bin, &recorder{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.expectedErr)
		})
	}
}
