package binary

import (
	"github.com/guybedford/wabt/wasm"
)

// EventHandler receives semantic events while Read walks a module
// binary. Events arrive in the binary's section order; within a
// function body, operator events arrive in program order. Returning a
// non-nil error from any event aborts decoding immediately.
//
// Embed NopHandler to only implement the events you care about.
type EventHandler interface {
	BeginModule() error
	EndModule() error

	OnTypeCount(count uint32) error
	OnType(index uint32, params, results []wasm.ValueType) error

	OnImportCount(count uint32) error
	// OnImport fires before the kind-specific OnImport* event of the
	// same entry.
	OnImport(index uint32, moduleName, fieldName string) error
	OnImportFunc(importIndex uint32, moduleName, fieldName string, funcIndex, sigIndex uint32) error
	OnImportTable(importIndex uint32, moduleName, fieldName string, tableIndex uint32, elemType byte, limits *wasm.Limits) error
	OnImportMemory(importIndex uint32, moduleName, fieldName string, memoryIndex uint32, limits *wasm.Limits) error
	OnImportGlobal(importIndex uint32, moduleName, fieldName string, globalIndex uint32, valueType wasm.ValueType, mutable bool) error

	OnFunctionCount(count uint32) error
	OnFunction(index, sigIndex uint32) error

	OnTableCount(count uint32) error
	OnTable(index uint32, elemType byte, limits *wasm.Limits) error

	OnMemoryCount(count uint32) error
	OnMemory(index uint32, limits *wasm.Limits) error

	OnGlobalCount(count uint32) error
	BeginGlobal(index uint32, valueType wasm.ValueType, mutable bool) error
	EndGlobalInitExpr(index uint32) error

	OnExportCount(count uint32) error
	OnExport(index uint32, kind wasm.ExternalKind, itemIndex uint32, name string) error

	OnStartFunction(funcIndex uint32) error

	OnElemSegmentCount(count uint32) error
	BeginElemSegment(index, tableIndex uint32) error
	EndElemSegmentInitExpr(index uint32) error
	OnElemSegmentFunctionIndex(index, funcIndex uint32) error

	OnDataSegmentCount(count uint32) error
	BeginDataSegment(index, memoryIndex uint32) error
	EndDataSegmentInitExpr(index uint32) error
	// OnDataSegmentData receives a view into the input binary; the
	// handler must copy data if it outlives the event.
	OnDataSegmentData(index uint32, data []byte) error

	// Init-expression events fire between Begin*/End* of globals,
	// element segments and data segments. index identifies the entry
	// being initialised.
	OnInitExprI32Const(index uint32, value uint32) error
	OnInitExprI64Const(index uint32, value uint64) error
	OnInitExprF32Const(index uint32, valueBits uint32) error
	OnInitExprF64Const(index uint32, valueBits uint64) error
	OnInitExprGlobalGet(index, globalIndex uint32) error

	// BeginFunctionBody receives the module-wide function index,
	// counting imported functions first.
	BeginFunctionBody(funcIndex uint32) error
	OnLocalDeclCount(count uint32) error
	OnLocalDecl(declIndex, count uint32, valueType wasm.ValueType) error
	// EndFunctionBody replaces the OnEnd event for the end opcode that
	// closes the function body.
	EndFunctionBody(funcIndex uint32) error

	OnUnreachable() error
	OnNop() error
	OnBlock(sig []wasm.ValueType) error
	OnLoop(sig []wasm.ValueType) error
	OnIf(sig []wasm.ValueType) error
	OnElse() error
	OnEnd() error
	OnBr(depth uint32) error
	OnBrIf(depth uint32) error
	OnBrTable(targetDepths []uint32, defaultDepth uint32) error
	OnReturn() error
	OnCall(funcIndex uint32) error
	OnCallIndirect(sigIndex uint32) error

	OnDrop() error
	OnSelect() error

	OnLocalGet(localIndex uint32) error
	OnLocalSet(localIndex uint32) error
	OnLocalTee(localIndex uint32) error
	OnGlobalGet(globalIndex uint32) error
	OnGlobalSet(globalIndex uint32) error

	OnLoad(op wasm.Opcode, alignmentLog2, offset uint32) error
	OnStore(op wasm.Opcode, alignmentLog2, offset uint32) error
	OnMemorySize() error
	OnMemoryGrow() error

	OnI32Const(value uint32) error
	OnI64Const(value uint64) error
	OnF32Const(valueBits uint32) error
	OnF64Const(valueBits uint64) error

	OnUnary(op wasm.Opcode) error
	OnBinary(op wasm.Opcode) error
	OnCompare(op wasm.Opcode) error
	OnConvert(op wasm.Opcode) error
}

// NopHandler implements every EventHandler event as a no-op.
type NopHandler struct{}

var _ EventHandler = NopHandler{}

func (NopHandler) BeginModule() error { return nil }
func (NopHandler) EndModule() error { return nil }

func (NopHandler) OnTypeCount(uint32) error { return nil }
func (NopHandler) OnType(uint32, []wasm.ValueType, []wasm.ValueType) error { return nil }

func (NopHandler) OnImportCount(uint32) error { return nil }
func (NopHandler) OnImport(uint32, string, string) error { return nil }
func (NopHandler) OnImportFunc(uint32, string, string, uint32, uint32) error {
	return nil
}
func (NopHandler) OnImportTable(uint32, string, string, uint32, byte, *wasm.Limits) error {
	return nil
}
func (NopHandler) OnImportMemory(uint32, string, string, uint32, *wasm.Limits) error {
	return nil
}
func (NopHandler) OnImportGlobal(uint32, string, string, uint32, wasm.ValueType, bool) error {
	return nil
}

func (NopHandler) OnFunctionCount(uint32) error { return nil }
func (NopHandler) OnFunction(uint32, uint32) error { return nil }

func (NopHandler) OnTableCount(uint32) error { return nil }
func (NopHandler) OnTable(uint32, byte, *wasm.Limits) error { return nil }
func (NopHandler) OnMemoryCount(uint32) error { return nil }
func (NopHandler) OnMemory(uint32, *wasm.Limits) error { return nil }

func (NopHandler) OnGlobalCount(uint32) error { return nil }
func (NopHandler) BeginGlobal(uint32, wasm.ValueType, bool) error { return nil }
func (NopHandler) EndGlobalInitExpr(uint32) error { return nil }

func (NopHandler) OnExportCount(uint32) error { return nil }
func (NopHandler) OnExport(uint32, wasm.ExternalKind, uint32, string) error { return nil }
func (NopHandler) OnStartFunction(uint32) error { return nil }

func (NopHandler) OnElemSegmentCount(uint32) error { return nil }
func (NopHandler) BeginElemSegment(uint32, uint32) error { return nil }
func (NopHandler) EndElemSegmentInitExpr(uint32) error { return nil }
func (NopHandler) OnElemSegmentFunctionIndex(uint32, uint32) error { return nil }

func (NopHandler) OnDataSegmentCount(uint32) error { return nil }
func (NopHandler) BeginDataSegment(uint32, uint32) error { return nil }
func (NopHandler) EndDataSegmentInitExpr(uint32) error { return nil }
func (NopHandler) OnDataSegmentData(uint32, []byte) error { return nil }

func (NopHandler) OnInitExprI32Const(uint32, uint32) error { return nil }
func (NopHandler) OnInitExprI64Const(uint32, uint64) error { return nil }
func (NopHandler) OnInitExprF32Const(uint32, uint32) error { return nil }
func (NopHandler) OnInitExprF64Const(uint32, uint64) error { return nil }
func (NopHandler) OnInitExprGlobalGet(uint32, uint32) error { return nil }

func (NopHandler) BeginFunctionBody(uint32) error { return nil }
func (NopHandler) OnLocalDeclCount(uint32) error { return nil }
func (NopHandler) OnLocalDecl(uint32, uint32, wasm.ValueType) error { return nil }
func (NopHandler) EndFunctionBody(uint32) error { return nil }

func (NopHandler) OnUnreachable() error { return nil }
func (NopHandler) OnNop() error { return nil }
func (NopHandler) OnBlock([]wasm.ValueType) error { return nil }
func (NopHandler) OnLoop([]wasm.ValueType) error { return nil }
func (NopHandler) OnIf([]wasm.ValueType) error { return nil }
func (NopHandler) OnElse() error { return nil }
func (NopHandler) OnEnd() error { return nil }
func (NopHandler) OnBr(uint32) error { return nil }
func (NopHandler) OnBrIf(uint32) error { return nil }
func (NopHandler) OnBrTable([]uint32, uint32) error { return nil }
func (NopHandler) OnReturn() error { return nil }
func (NopHandler) OnCall(uint32) error { return nil }
func (NopHandler) OnCallIndirect(uint32) error { return nil }

func (NopHandler) OnDrop() error { return nil }
func (NopHandler) OnSelect() error { return nil }

func (NopHandler) OnLocalGet(uint32) error { return nil }
func (NopHandler) OnLocalSet(uint32) error { return nil }
func (NopHandler) OnLocalTee(uint32) error { return nil }
func (NopHandler) OnGlobalGet(uint32) error { return nil }
func (NopHandler) OnGlobalSet(uint32) error { return nil }

func (NopHandler) OnLoad(wasm.Opcode, uint32, uint32) error { return nil }
func (NopHandler) OnStore(wasm.Opcode, uint32, uint32) error { return nil }
func (NopHandler) OnMemorySize() error { return nil }
func (NopHandler) OnMemoryGrow() error { return nil }

func (NopHandler) OnI32Const(uint32) error { return nil }
func (NopHandler) OnI64Const(uint64) error { return nil }
func (NopHandler) OnF32Const(uint32) error { return nil }
func (NopHandler) OnF64Const(uint64) error { return nil }

func (NopHandler) OnUnary(wasm.Opcode) error { return nil }
func (NopHandler) OnBinary(wasm.Opcode) error { return nil }
func (NopHandler) OnCompare(wasm.Opcode) error { return nil }
func (NopHandler) OnConvert(wasm.Opcode) error { return nil }
