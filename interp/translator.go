package interp

import (
	"fmt"

	"github.com/guybedford/wabt/wasm"
	"github.com/guybedford/wabt/wasm/binary"
	"github.com/guybedford/wabt/wasm/typecheck"
)

// label is the translator's record of one open control scope: the
// istream offset a backward branch targets (loops only) and the single
// pending forward-fixup slot used by if/else.
type label struct {
	offset      uint32
	fixupOffset uint32
}

type (
	// elemSegmentInfo is one deferred table edit: FuncIndexes[dst] = funcIndex.
	elemSegmentInfo struct {
		table     *Table
		dst       uint32
		funcIndex uint32
	}
	// dataSegmentInfo is one deferred memory edit: copy data at addr.
	dataSegmentInfo struct {
		memory *Memory
		addr   uint32
		data   []byte
	}
)

// translator handles the decoder's events for one module: it
// type-checks each operator, links module-local indices into the
// environment, and emits the interpreter's istream. Table and memory
// edits are buffered until EndModule so a late validation error cannot
// leave the environment partially written.
type translator struct {
	binary.NopHandler

	env    *Environment
	module *DefinedModule

	tc          *typecheck.TypeChecker
	currentFunc *DefinedFunc
	labelStack  []label

	// depthFixups is indexed by open-scope position counted from the
	// outermost open scope; funcFixups by defined-function index.
	depthFixups [][]uint32
	funcFixups  [][]uint32

	writer *istreamWriter

	// Mappings from the module index space to the environment index
	// space. Imports resolve into the low entries, defined items fill
	// the remainder.
	sigIndexMapping    []uint32
	funcIndexMapping   []uint32
	globalIndexMapping []uint32

	numFuncImports   uint32
	numGlobalImports uint32

	elemSegmentInfos []elemSegmentInfo
	dataSegmentInfos []dataSegmentInfo

	// Values shared between consecutive events.
	initExprValue    TypedValue
	tableOffset      uint32
	isHostImport     bool
	hostImportModule *HostModule
	importEnvIndex   uint32
}

// newTranslator takes ownership of the environment's istream until
// releaseBuffer is called.
func newTranslator(env *Environment, module *DefinedModule) *translator {
	t := &translator{
		env:    env,
		module: module,
		tc:     typecheck.New(),
		writer: newIstreamWriter(env.Istream),
	}
	env.Istream = nil
	return t
}

func (t *translator) releaseBuffer() []byte {
	return t.writer.release()
}

func (t *translator) istreamOffset() uint32 {
	return t.writer.offset()
}

// index translation

func (t *translator) translateSigIndexToEnv(sigIndex uint32) (uint32, error) {
	if sigIndex >= uint32(len(t.sigIndexMapping)) {
		return 0, fmt.Errorf("invalid signature index: %d (max %d)", sigIndex, len(t.sigIndexMapping))
	}
	return t.sigIndexMapping[sigIndex], nil
}

func (t *translator) getSignatureByModuleIndex(sigIndex uint32) (*wasm.FunctionType, uint32, error) {
	envIndex, err := t.translateSigIndexToEnv(sigIndex)
	if err != nil {
		return nil, 0, err
	}
	return t.env.Sigs[envIndex], envIndex, nil
}

func (t *translator) translateFuncIndexToEnv(funcIndex uint32) (uint32, error) {
	if funcIndex >= uint32(len(t.funcIndexMapping)) {
		return 0, fmt.Errorf("invalid func_index: %d (max %d)", funcIndex, len(t.funcIndexMapping))
	}
	return t.funcIndexMapping[funcIndex], nil
}

func (t *translator) getFuncByModuleIndex(funcIndex uint32) (Func, error) {
	envIndex, err := t.translateFuncIndexToEnv(funcIndex)
	if err != nil {
		return nil, err
	}
	return t.env.Funcs[envIndex], nil
}

// translateModuleFuncIndexToDefined maps a module-wide function index
// to its defined-function index, past the imports.
func (t *translator) translateModuleFuncIndexToDefined(funcIndex uint32) uint32 {
	return funcIndex - t.numFuncImports
}

func (t *translator) checkGlobal(globalIndex uint32) error {
	if globalIndex >= uint32(len(t.globalIndexMapping)) {
		return fmt.Errorf("invalid global_index: %d (max %d)", globalIndex, len(t.globalIndexMapping))
	}
	return nil
}

func (t *translator) translateGlobalIndexToEnv(globalIndex uint32) uint32 {
	return t.globalIndexMapping[globalIndex]
}

func (t *translator) getGlobalByModuleIndex(globalIndex uint32) (*Global, error) {
	if err := t.checkGlobal(globalIndex); err != nil {
		return nil, err
	}
	return t.env.Globals[t.translateGlobalIndexToEnv(globalIndex)], nil
}

// labels and fixups

func (t *translator) getLabel(depth uint32) *label {
	return &t.labelStack[uint32(len(t.labelStack))-depth-1]
}

func (t *translator) topLabel() *label {
	return t.getLabel(0)
}

func (t *translator) pushLabel(offset, fixupOffset uint32) {
	t.labelStack = append(t.labelStack, label{offset: offset, fixupOffset: fixupOffset})
}

func (t *translator) popLabel() {
	t.labelStack = t.labelStack[:len(t.labelStack)-1]
	// depthFixups may be shorter than the label stack, so only shrink
	// when it reaches past the new top.
	if len(t.depthFixups) > len(t.labelStack) {
		t.depthFixups = t.depthFixups[:len(t.labelStack)]
	}
}

func appendFixup(fixups *[][]uint32, index uint32, offset uint32) {
	for uint32(len(*fixups)) <= index {
		*fixups = append(*fixups, nil)
	}
	(*fixups)[index] = append((*fixups)[index], offset)
}

// emitBrOffset writes a branch target slot. An unresolved target emits
// the sentinel and records a fixup under the label's open-scope
// position, counted up from the function scope at zero.
func (t *translator) emitBrOffset(depth, offset uint32) {
	if offset == InvalidIstreamOffset {
		pos := uint32(len(t.labelStack)) - 1 - depth
		appendFixup(&t.depthFixups, pos, t.writer.offset())
	}
	t.writer.emitI32(offset)
}

// getBrDropKeepCount computes how many stack values a branch to depth
// discards and whether it preserves the top value, using the
// typechecker's view of the stack.
func (t *translator) getBrDropKeepCount(depth uint32) (drop uint32, keep uint8, err error) {
	label, err := t.tc.GetLabel(depth)
	if err != nil {
		return 0, 0, err
	}
	if !label.IsLoop() {
		keep = uint8(len(label.Sig))
	}
	if t.tc.IsUnreachable() {
		drop = 0
	} else {
		drop = uint32(t.tc.TypeStackSize()-label.TypeStackLimit) - uint32(keep)
	}
	return drop, keep, nil
}

// getReturnDropKeepCount additionally drops the parameters and locals,
// which live on the value stack below the function's values.
func (t *translator) getReturnDropKeepCount() (drop uint32, keep uint8, err error) {
	drop, keep, err = t.getBrDropKeepCount(uint32(len(t.labelStack)) - 1)
	if err != nil {
		return 0, 0, err
	}
	drop += uint32(len(t.currentFunc.ParamAndLocalTypes))
	return drop, keep, nil
}

func (t *translator) emitBr(depth uint32, drop uint32, keep uint8) {
	t.writer.emitDropKeep(drop, keep)
	t.writer.emitOpcode(wasm.OpcodeBr)
	t.emitBrOffset(depth, t.getLabel(depth).offset)
}

func (t *translator) emitBrTableOffset(depth uint32) error {
	drop, keep, err := t.getBrDropKeepCount(depth)
	if err != nil {
		return err
	}
	t.emitBrOffset(depth, t.getLabel(depth).offset)
	t.writer.emitI32(drop)
	t.writer.emitI8(keep)
	return nil
}

// fixupTopLabel patches every pending branch to the top label's end.
func (t *translator) fixupTopLabel() {
	offset := t.writer.offset()
	top := len(t.labelStack) - 1
	if top < 0 || top >= len(t.depthFixups) {
		return
	}
	for _, fixup := range t.depthFixups[top] {
		t.writer.patchI32(fixup, offset)
	}
	t.depthFixups[top] = t.depthFixups[top][:0]
}

// emitFuncOffset writes a call target slot, recording a fixup when the
// callee's body has not been emitted yet.
func (t *translator) emitFuncOffset(f *DefinedFunc, funcIndex uint32) {
	if f.Offset == InvalidIstreamOffset {
		definedIndex := t.translateModuleFuncIndexToDefined(funcIndex)
		appendFixup(&t.funcFixups, definedIndex, t.writer.offset())
	}
	t.writer.emitI32(f.Offset)
}

// type section

func (t *translator) OnTypeCount(count uint32) error {
	base := uint32(len(t.env.Sigs))
	for i := uint32(0); i < count; i++ {
		t.sigIndexMapping = append(t.sigIndexMapping, base+i)
		t.env.Sigs = append(t.env.Sigs, &wasm.FunctionType{})
	}
	return nil
}

func (t *translator) OnType(index uint32, params, results []wasm.ValueType) error {
	sig, _, err := t.getSignatureByModuleIndex(index)
	if err != nil {
		return err
	}
	sig.Params = append(sig.Params, params...)
	sig.Results = append(sig.Results, results...)
	return nil
}

// import section

func (t *translator) OnImportCount(count uint32) error {
	t.module.Imports = make([]*Import, count)
	return nil
}

func (t *translator) OnImport(index uint32, moduleName, fieldName string) error {
	imp := &Import{ModuleName: moduleName, FieldName: fieldName}
	t.module.Imports[index] = imp

	m, ok := t.env.registeredModule(moduleName)
	if !ok {
		return fmt.Errorf("unknown import module %q", moduleName)
	}
	if host, isHost := m.(*HostModule); isHost {
		// The kind of a host import is unknown until the kind-specific
		// event; assume it exists and materialise it there.
		t.isHostImport = true
		t.hostImportModule = host
		return nil
	}
	export := m.GetExport(fieldName)
	if export == nil {
		return fmt.Errorf("unknown module field %q", fieldName)
	}
	imp.Kind = export.Kind
	t.isHostImport = false
	t.importEnvIndex = export.Index
	return nil
}

func (t *translator) checkImportKind(imp *Import, expected wasm.ExternalKind) error {
	if imp.Kind != expected {
		return fmt.Errorf("expected import %q.%q to have kind %s, not %s",
			imp.ModuleName, imp.FieldName,
			wasm.ExternalKindName(expected), wasm.ExternalKindName(imp.Kind))
	}
	return nil
}

func checkImportLimits(declared, actual *wasm.Limits) error {
	if actual.Min < declared.Min {
		return fmt.Errorf("actual size (%d) smaller than declared (%d)", actual.Min, declared.Min)
	}
	if declared.Max != nil {
		if actual.Max == nil {
			return fmt.Errorf("max size (unspecified) larger than declared (%d)", *declared.Max)
		} else if *actual.Max > *declared.Max {
			return fmt.Errorf("max size (%d) larger than declared (%d)", *actual.Max, *declared.Max)
		}
	}
	return nil
}

func (t *translator) OnImportFunc(importIndex uint32, moduleName, fieldName string, funcIndex, sigIndex uint32) error {
	imp := t.module.Imports[importIndex]
	sigEnvIndex, err := t.translateSigIndexToEnv(sigIndex)
	if err != nil {
		return err
	}
	imp.SigIndex = sigEnvIndex

	var funcEnvIndex uint32
	if t.isHostImport {
		f := &HostFunc{SigIndex: sigEnvIndex, ModuleName: moduleName, FieldName: fieldName}
		t.env.Funcs = append(t.env.Funcs, f)

		delegate := &t.hostImportModule.Delegate
		if delegate.ImportFunc == nil {
			return fmt.Errorf("host module %q has no function import delegate", t.hostImportModule.Name)
		}
		if err := delegate.ImportFunc(imp, f, t.env.Sigs[sigEnvIndex]); err != nil {
			return err
		}
		if f.Callback == nil {
			return fmt.Errorf("host delegate did not install a callback for %q.%q", moduleName, fieldName)
		}

		funcEnvIndex = uint32(len(t.env.Funcs)) - 1
		// The host module accumulates an export per materialised
		// import; a repeated field name keeps the first entry.
		_ = t.hostImportModule.AppendExport(wasm.ExternalKindFunc, funcEnvIndex, fieldName)
	} else {
		if err := t.checkImportKind(imp, wasm.ExternalKindFunc); err != nil {
			return err
		}
		f := t.env.Funcs[t.importEnvIndex]
		if !t.env.sigsEqual(imp.SigIndex, f.SignatureIndex()) {
			return fmt.Errorf("import signature mismatch")
		}
		funcEnvIndex = t.importEnvIndex
	}
	t.funcIndexMapping = append(t.funcIndexMapping, funcEnvIndex)
	t.numFuncImports++
	return nil
}

func (t *translator) OnImportTable(importIndex uint32, moduleName, fieldName string, tableIndex uint32, elemType byte, limits *wasm.Limits) error {
	if t.module.TableIndex != InvalidIndex {
		return fmt.Errorf("only one table allowed")
	}
	imp := t.module.Imports[importIndex]
	imp.Limits = *limits

	if t.isHostImport {
		table := NewTable(*limits)
		t.env.Tables = append(t.env.Tables, table)

		delegate := &t.hostImportModule.Delegate
		if delegate.ImportTable == nil {
			return fmt.Errorf("host module %q has no table import delegate", t.hostImportModule.Name)
		}
		if err := delegate.ImportTable(imp, table); err != nil {
			return err
		}
		if err := checkImportLimits(limits, &table.Limits); err != nil {
			return err
		}
		t.module.TableIndex = uint32(len(t.env.Tables)) - 1
		_ = t.hostImportModule.AppendExport(wasm.ExternalKindTable, t.module.TableIndex, fieldName)
	} else {
		if err := t.checkImportKind(imp, wasm.ExternalKindTable); err != nil {
			return err
		}
		table := t.env.Tables[t.importEnvIndex]
		if err := checkImportLimits(limits, &table.Limits); err != nil {
			return err
		}
		t.module.TableIndex = t.importEnvIndex
	}
	return nil
}

func (t *translator) OnImportMemory(importIndex uint32, moduleName, fieldName string, memoryIndex uint32, limits *wasm.Limits) error {
	if t.module.MemoryIndex != InvalidIndex {
		return fmt.Errorf("only one memory allowed")
	}
	imp := t.module.Imports[importIndex]
	imp.Limits = *limits

	if t.isHostImport {
		memory := &Memory{}
		t.env.Memories = append(t.env.Memories, memory)

		delegate := &t.hostImportModule.Delegate
		if delegate.ImportMemory == nil {
			return fmt.Errorf("host module %q has no memory import delegate", t.hostImportModule.Name)
		}
		if err := delegate.ImportMemory(imp, memory); err != nil {
			return err
		}
		if err := checkImportLimits(limits, &memory.Limits); err != nil {
			return err
		}
		t.module.MemoryIndex = uint32(len(t.env.Memories)) - 1
		_ = t.hostImportModule.AppendExport(wasm.ExternalKindMemory, t.module.MemoryIndex, fieldName)
	} else {
		if err := t.checkImportKind(imp, wasm.ExternalKindMemory); err != nil {
			return err
		}
		memory := t.env.Memories[t.importEnvIndex]
		if err := checkImportLimits(limits, &memory.Limits); err != nil {
			return err
		}
		t.module.MemoryIndex = t.importEnvIndex
	}
	return nil
}

func (t *translator) OnImportGlobal(importIndex uint32, moduleName, fieldName string, globalIndex uint32, valueType wasm.ValueType, mutable bool) error {
	imp := t.module.Imports[importIndex]
	imp.GlobalType = valueType
	imp.GlobalMutable = mutable

	var globalEnvIndex uint32
	if t.isHostImport {
		g := &Global{Value: TypedValue{Type: valueType}, Mutable: mutable}
		t.env.Globals = append(t.env.Globals, g)

		delegate := &t.hostImportModule.Delegate
		if delegate.ImportGlobal == nil {
			return fmt.Errorf("host module %q has no global import delegate", t.hostImportModule.Name)
		}
		if err := delegate.ImportGlobal(imp, g); err != nil {
			return err
		}
		globalEnvIndex = uint32(len(t.env.Globals)) - 1
		_ = t.hostImportModule.AppendExport(wasm.ExternalKindGlobal, globalEnvIndex, fieldName)
	} else {
		if err := t.checkImportKind(imp, wasm.ExternalKindGlobal); err != nil {
			return err
		}
		g := t.env.Globals[t.importEnvIndex]
		if g.Value.Type != valueType {
			return fmt.Errorf("type mismatch in imported global, expected %s but got %s",
				wasm.ValueTypeName(valueType), wasm.ValueTypeName(g.Value.Type))
		}
		if g.Mutable != mutable {
			return fmt.Errorf("mutability mismatch in imported global %q.%q", moduleName, fieldName)
		}
		globalEnvIndex = t.importEnvIndex
	}
	t.globalIndexMapping = append(t.globalIndexMapping, globalEnvIndex)
	t.numGlobalImports++
	return nil
}

// function, table, memory and global sections

func (t *translator) OnFunctionCount(count uint32) error {
	base := uint32(len(t.env.Funcs))
	for i := uint32(0); i < count; i++ {
		t.funcIndexMapping = append(t.funcIndexMapping, base+i)
	}
	t.funcFixups = make([][]uint32, count)
	return nil
}

func (t *translator) OnFunction(index, sigIndex uint32) error {
	sigEnvIndex, err := t.translateSigIndexToEnv(sigIndex)
	if err != nil {
		return err
	}
	t.env.Funcs = append(t.env.Funcs, &DefinedFunc{
		SigIndex: sigEnvIndex,
		Offset:   InvalidIstreamOffset,
	})
	return nil
}

func (t *translator) OnTable(index uint32, elemType byte, limits *wasm.Limits) error {
	if t.module.TableIndex != InvalidIndex {
		return fmt.Errorf("only one table allowed")
	}
	t.env.Tables = append(t.env.Tables, NewTable(*limits))
	t.module.TableIndex = uint32(len(t.env.Tables)) - 1
	return nil
}

func (t *translator) OnMemory(index uint32, limits *wasm.Limits) error {
	if t.module.MemoryIndex != InvalidIndex {
		return fmt.Errorf("only one memory allowed")
	}
	t.env.Memories = append(t.env.Memories, NewMemory(*limits))
	t.module.MemoryIndex = uint32(len(t.env.Memories)) - 1
	return nil
}

func (t *translator) OnGlobalCount(count uint32) error {
	base := uint32(len(t.env.Globals))
	for i := uint32(0); i < count; i++ {
		t.globalIndexMapping = append(t.globalIndexMapping, base+i)
		t.env.Globals = append(t.env.Globals, &Global{})
	}
	return nil
}

func (t *translator) BeginGlobal(index uint32, valueType wasm.ValueType, mutable bool) error {
	g, err := t.getGlobalByModuleIndex(index)
	if err != nil {
		return err
	}
	g.Value.Type = valueType
	g.Mutable = mutable
	t.initExprValue = TypedValue{}
	return nil
}

func (t *translator) EndGlobalInitExpr(index uint32) error {
	g, err := t.getGlobalByModuleIndex(index)
	if err != nil {
		return err
	}
	if t.initExprValue.Type != g.Value.Type {
		return fmt.Errorf("type mismatch in global, expected %s but got %s",
			wasm.ValueTypeName(g.Value.Type), wasm.ValueTypeName(t.initExprValue.Type))
	}
	g.Value = t.initExprValue
	return nil
}

// init expressions

func (t *translator) OnInitExprI32Const(index uint32, value uint32) error {
	t.initExprValue = TypedValue{Type: wasm.ValueTypeI32, Bits: uint64(value)}
	return nil
}

func (t *translator) OnInitExprI64Const(index uint32, value uint64) error {
	t.initExprValue = TypedValue{Type: wasm.ValueTypeI64, Bits: value}
	return nil
}

func (t *translator) OnInitExprF32Const(index uint32, valueBits uint32) error {
	t.initExprValue = TypedValue{Type: wasm.ValueTypeF32, Bits: uint64(valueBits)}
	return nil
}

func (t *translator) OnInitExprF64Const(index uint32, valueBits uint64) error {
	t.initExprValue = TypedValue{Type: wasm.ValueTypeF64, Bits: valueBits}
	return nil
}

func (t *translator) OnInitExprGlobalGet(index, globalIndex uint32) error {
	if globalIndex >= t.numGlobalImports {
		return fmt.Errorf("initializer expression can only reference an imported global")
	}
	g, err := t.getGlobalByModuleIndex(globalIndex)
	if err != nil {
		return err
	}
	if g.Mutable {
		return fmt.Errorf("initializer expression cannot reference a mutable global")
	}
	t.initExprValue = g.Value
	return nil
}

// export and start sections

func (t *translator) OnExport(index uint32, kind wasm.ExternalKind, itemIndex uint32, name string) error {
	switch kind {
	case wasm.ExternalKindFunc:
		envIndex, err := t.translateFuncIndexToEnv(itemIndex)
		if err != nil {
			return err
		}
		itemIndex = envIndex
	case wasm.ExternalKindTable:
		itemIndex = t.module.TableIndex
	case wasm.ExternalKindMemory:
		itemIndex = t.module.MemoryIndex
	case wasm.ExternalKindGlobal:
		g, err := t.getGlobalByModuleIndex(itemIndex)
		if err != nil {
			return err
		}
		if g.Mutable {
			return fmt.Errorf("mutable globals cannot be exported")
		}
		itemIndex = t.translateGlobalIndexToEnv(itemIndex)
	}
	return t.module.AppendExport(kind, itemIndex, name)
}

func (t *translator) OnStartFunction(funcIndex uint32) error {
	envIndex, err := t.translateFuncIndexToEnv(funcIndex)
	if err != nil {
		return err
	}
	sig := t.env.Sigs[t.env.Funcs[envIndex].SignatureIndex()]
	if len(sig.Params) != 0 {
		return fmt.Errorf("start function must be nullary")
	}
	if len(sig.Results) != 0 {
		return fmt.Errorf("start function must not return anything")
	}
	t.module.StartFuncIndex = envIndex
	return nil
}

// element and data segments

func (t *translator) BeginElemSegment(index, tableIndex uint32) error {
	if t.module.TableIndex == InvalidIndex {
		return fmt.Errorf("element segment requires an imported or defined table")
	}
	return nil
}

func (t *translator) EndElemSegmentInitExpr(index uint32) error {
	if t.initExprValue.Type != wasm.ValueTypeI32 {
		return fmt.Errorf("type mismatch in elem segment, expected i32 but got %s",
			wasm.ValueTypeName(t.initExprValue.Type))
	}
	t.tableOffset = uint32(t.initExprValue.Bits)
	return nil
}

func (t *translator) OnElemSegmentFunctionIndex(index, funcIndex uint32) error {
	table := t.env.Tables[t.module.TableIndex]
	if t.tableOffset >= uint32(len(table.FuncIndexes)) {
		return fmt.Errorf("elem segment offset is out of bounds: %d >= max value %d",
			t.tableOffset, len(table.FuncIndexes))
	}
	envIndex, err := t.translateFuncIndexToEnv(funcIndex)
	if err != nil {
		return err
	}
	t.elemSegmentInfos = append(t.elemSegmentInfos, elemSegmentInfo{
		table:     table,
		dst:       t.tableOffset,
		funcIndex: envIndex,
	})
	t.tableOffset++
	return nil
}

func (t *translator) OnDataSegmentData(index uint32, data []byte) error {
	if t.module.MemoryIndex == InvalidIndex {
		return fmt.Errorf("data segment requires an imported or defined memory")
	}
	memory := t.env.Memories[t.module.MemoryIndex]
	if t.initExprValue.Type != wasm.ValueTypeI32 {
		return fmt.Errorf("type mismatch in data segment, expected i32 but got %s",
			wasm.ValueTypeName(t.initExprValue.Type))
	}
	address := uint32(t.initExprValue.Bits)
	endAddress := uint64(address) + uint64(len(data))
	if endAddress > uint64(len(memory.Data)) {
		return fmt.Errorf("data segment is out of bounds: [%d, %d) >= max value %d",
			address, endAddress, len(memory.Data))
	}
	if len(data) > 0 {
		// The decoder's slice aliases the input binary; keep a copy
		// for the commit phase.
		src := make([]byte, len(data))
		copy(src, data)
		t.dataSegmentInfos = append(t.dataSegmentInfos, dataSegmentInfo{
			memory: memory,
			addr:   address,
			data:   src,
		})
	}
	return nil
}

// EndModule commits the buffered element and data segment edits; these
// are the only table/memory writes translation performs.
func (t *translator) EndModule() error {
	for _, info := range t.elemSegmentInfos {
		info.table.FuncIndexes[info.dst] = info.funcIndex
	}
	for _, info := range t.dataSegmentInfos {
		copy(info.memory.Data[info.addr:], info.data)
	}
	return nil
}

// function bodies

func (t *translator) BeginFunctionBody(funcIndex uint32) error {
	fn, err := t.getFuncByModuleIndex(funcIndex)
	if err != nil {
		return err
	}
	f, ok := fn.(*DefinedFunc)
	if !ok {
		return fmt.Errorf("cannot define the body of an imported function")
	}
	sig := t.env.Sigs[f.SigIndex]

	f.Offset = t.writer.offset()
	f.LocalDeclCount = 0
	f.LocalCount = 0

	t.currentFunc = f
	t.depthFixups = t.depthFixups[:0]
	t.labelStack = t.labelStack[:0]

	// Resolve calls emitted before this body was seen.
	definedIndex := t.translateModuleFuncIndexToDefined(funcIndex)
	if definedIndex < uint32(len(t.funcFixups)) {
		for _, fixup := range t.funcFixups[definedIndex] {
			t.writer.patchI32(fixup, f.Offset)
		}
		t.funcFixups[definedIndex] = t.funcFixups[definedIndex][:0]
	}

	f.ParamAndLocalTypes = append(f.ParamAndLocalTypes, sig.Params...)

	t.tc.BeginFunction(sig.Results)

	// The implicit function label, equivalent to a return target.
	t.pushLabel(InvalidIstreamOffset, InvalidIstreamOffset)
	return nil
}

func (t *translator) EndFunctionBody(funcIndex uint32) error {
	t.fixupTopLabel()
	drop, keep, err := t.getReturnDropKeepCount()
	if err != nil {
		return err
	}
	if err := t.tc.EndFunction(); err != nil {
		return err
	}
	t.writer.emitDropKeep(drop, keep)
	t.writer.emitOpcode(wasm.OpcodeReturn)
	t.popLabel()
	t.currentFunc = nil
	return nil
}

func (t *translator) OnLocalDeclCount(count uint32) error {
	t.currentFunc.LocalDeclCount = count
	return nil
}

func (t *translator) OnLocalDecl(declIndex, count uint32, valueType wasm.ValueType) error {
	t.currentFunc.LocalCount += count
	for i := uint32(0); i < count; i++ {
		t.currentFunc.ParamAndLocalTypes = append(t.currentFunc.ParamAndLocalTypes, valueType)
	}
	if declIndex == t.currentFunc.LocalDeclCount-1 {
		// Last declaration; reserve interpreter stack space for all locals.
		t.writer.emitOpcode(OpcodeAlloca)
		t.writer.emitI32(t.currentFunc.LocalCount)
	}
	return nil
}

// structural checks shared by operators

func (t *translator) checkLocal(localIndex uint32) error {
	if max := uint32(len(t.currentFunc.ParamAndLocalTypes)); localIndex >= max {
		return fmt.Errorf("invalid local_index: %d (max %d)", localIndex, max)
	}
	return nil
}

func (t *translator) checkHasMemory(op wasm.Opcode) error {
	if t.module.MemoryIndex == InvalidIndex {
		return fmt.Errorf("%s requires an imported or defined memory", wasm.OpcodeName(op))
	}
	return nil
}

func checkAlign(alignmentLog2, naturalAlignment uint32) error {
	if alignmentLog2 >= 32 || 1<<alignmentLog2 > naturalAlignment {
		return fmt.Errorf("alignment must not be larger than natural alignment (%d)", naturalAlignment)
	}
	return nil
}

// control operators

func (t *translator) OnBlock(sig []wasm.ValueType) error {
	if err := t.tc.OnBlock(sig); err != nil {
		return err
	}
	t.pushLabel(InvalidIstreamOffset, InvalidIstreamOffset)
	return nil
}

func (t *translator) OnLoop(sig []wasm.ValueType) error {
	if err := t.tc.OnLoop(sig); err != nil {
		return err
	}
	t.pushLabel(t.writer.offset(), InvalidIstreamOffset)
	return nil
}

func (t *translator) OnIf(sig []wasm.ValueType) error {
	if err := t.tc.OnIf(sig); err != nil {
		return err
	}
	t.writer.emitOpcode(OpcodeBrUnless)
	fixupOffset := t.writer.offset()
	t.writer.emitI32(InvalidIstreamOffset)
	t.pushLabel(InvalidIstreamOffset, fixupOffset)
	return nil
}

func (t *translator) OnElse() error {
	if err := t.tc.OnElse(); err != nil {
		return err
	}
	label := t.topLabel()
	fixupCondOffset := label.fixupOffset
	t.writer.emitOpcode(wasm.OpcodeBr)
	label.fixupOffset = t.writer.offset()
	t.writer.emitI32(InvalidIstreamOffset)
	t.writer.patchI32(fixupCondOffset, t.writer.offset())
	return nil
}

func (t *translator) OnEnd() error {
	tcLabel, err := t.tc.GetLabel(0)
	if err != nil {
		return err
	}
	labelType := tcLabel.LabelType
	if err := t.tc.OnEnd(); err != nil {
		return err
	}
	if labelType == typecheck.LabelTypeIf || labelType == typecheck.LabelTypeElse {
		t.writer.patchI32(t.topLabel().fixupOffset, t.writer.offset())
	}
	t.fixupTopLabel()
	t.popLabel()
	return nil
}

func (t *translator) OnBr(depth uint32) error {
	drop, keep, err := t.getBrDropKeepCount(depth)
	if err != nil {
		return err
	}
	if err := t.tc.OnBr(depth); err != nil {
		return err
	}
	t.emitBr(depth, drop, keep)
	return nil
}

func (t *translator) OnBrIf(depth uint32) error {
	if err := t.tc.OnBrIf(depth); err != nil {
		return err
	}
	drop, keep, err := t.getBrDropKeepCount(depth)
	if err != nil {
		return err
	}
	// Flip the branch so a true condition can drop values from the stack.
	t.writer.emitOpcode(OpcodeBrUnless)
	fixupBrOffset := t.writer.offset()
	t.writer.emitI32(InvalidIstreamOffset)
	t.emitBr(depth, drop, keep)
	t.writer.patchI32(fixupBrOffset, t.writer.offset())
	return nil
}

func (t *translator) OnBrTable(targetDepths []uint32, defaultDepth uint32) error {
	if err := t.tc.BeginBrTable(); err != nil {
		return err
	}
	numTargets := uint32(len(targetDepths))
	t.writer.emitOpcode(wasm.OpcodeBrTable)
	t.writer.emitI32(numTargets)
	fixupTableOffset := t.writer.offset()
	t.writer.emitI32(InvalidIstreamOffset)
	// The Data marker is unnecessary for execution but makes the entry
	// block self-describing for disassembly.
	t.writer.emitOpcode(OpcodeData)
	t.writer.emitI32((numTargets + 1) * brTableEntrySize)
	t.writer.patchI32(fixupTableOffset, t.writer.offset())

	for i := uint32(0); i <= numTargets; i++ {
		depth := defaultDepth
		if i != numTargets {
			depth = targetDepths[i]
		}
		if err := t.tc.OnBrTableTarget(depth); err != nil {
			return err
		}
		if err := t.emitBrTableOffset(depth); err != nil {
			return err
		}
	}

	return t.tc.EndBrTable()
}

func (t *translator) OnReturn() error {
	drop, keep, err := t.getReturnDropKeepCount()
	if err != nil {
		return err
	}
	if err := t.tc.OnReturn(); err != nil {
		return err
	}
	t.writer.emitDropKeep(drop, keep)
	t.writer.emitOpcode(wasm.OpcodeReturn)
	return nil
}

func (t *translator) OnUnreachable() error {
	if err := t.tc.OnUnreachable(); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeUnreachable)
	return nil
}

func (t *translator) OnNop() error {
	t.writer.emitOpcode(wasm.OpcodeNop)
	return nil
}

// calls

func (t *translator) OnCall(funcIndex uint32) error {
	fn, err := t.getFuncByModuleIndex(funcIndex)
	if err != nil {
		return err
	}
	sig := t.env.Sigs[fn.SignatureIndex()]
	if err := t.tc.OnCall(sig.Params, sig.Results); err != nil {
		return err
	}
	switch f := fn.(type) {
	case *HostFunc:
		t.writer.emitOpcode(OpcodeCallHost)
		envIndex, _ := t.translateFuncIndexToEnv(funcIndex)
		t.writer.emitI32(envIndex)
	case *DefinedFunc:
		t.writer.emitOpcode(wasm.OpcodeCall)
		t.emitFuncOffset(f, funcIndex)
	}
	return nil
}

func (t *translator) OnCallIndirect(sigIndex uint32) error {
	if t.module.TableIndex == InvalidIndex {
		return fmt.Errorf("found call_indirect operator, but no table")
	}
	sig, sigEnvIndex, err := t.getSignatureByModuleIndex(sigIndex)
	if err != nil {
		return err
	}
	if err := t.tc.OnCallIndirect(sig.Params, sig.Results); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeCallIndirect)
	t.writer.emitI32(t.module.TableIndex)
	t.writer.emitI32(sigEnvIndex)
	return nil
}

// parametric operators

func (t *translator) OnDrop() error {
	if err := t.tc.OnDrop(); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeDrop)
	return nil
}

func (t *translator) OnSelect() error {
	if err := t.tc.OnSelect(); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeSelect)
	return nil
}

// variable operators

// translateLocalIndex converts a local index into the distance from
// the interpreter's stack top at runtime.
func (t *translator) translateLocalIndex(localIndex uint32) uint32 {
	return uint32(t.tc.TypeStackSize()+len(t.currentFunc.ParamAndLocalTypes)) - localIndex
}

func (t *translator) OnLocalGet(localIndex uint32) error {
	if err := t.checkLocal(localIndex); err != nil {
		return err
	}
	valueType := t.currentFunc.ParamAndLocalTypes[localIndex]
	// Translate before the typechecker pushes: the runtime index is
	// relative to the pre-operator stack height.
	translatedIndex := t.translateLocalIndex(localIndex)
	if err := t.tc.OnLocalGet(valueType); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeLocalGet)
	t.writer.emitI32(translatedIndex)
	return nil
}

func (t *translator) OnLocalSet(localIndex uint32) error {
	if err := t.checkLocal(localIndex); err != nil {
		return err
	}
	valueType := t.currentFunc.ParamAndLocalTypes[localIndex]
	if err := t.tc.OnLocalSet(valueType); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeLocalSet)
	t.writer.emitI32(t.translateLocalIndex(localIndex))
	return nil
}

func (t *translator) OnLocalTee(localIndex uint32) error {
	if err := t.checkLocal(localIndex); err != nil {
		return err
	}
	valueType := t.currentFunc.ParamAndLocalTypes[localIndex]
	if err := t.tc.OnLocalTee(valueType); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeLocalTee)
	t.writer.emitI32(t.translateLocalIndex(localIndex))
	return nil
}

func (t *translator) OnGlobalGet(globalIndex uint32) error {
	g, err := t.getGlobalByModuleIndex(globalIndex)
	if err != nil {
		return err
	}
	if err := t.tc.OnGlobalGet(g.Value.Type); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeGlobalGet)
	t.writer.emitI32(t.translateGlobalIndexToEnv(globalIndex))
	return nil
}

func (t *translator) OnGlobalSet(globalIndex uint32) error {
	g, err := t.getGlobalByModuleIndex(globalIndex)
	if err != nil {
		return err
	}
	if !g.Mutable {
		return fmt.Errorf("can't global.set on immutable global at index %d", globalIndex)
	}
	if err := t.tc.OnGlobalSet(g.Value.Type); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeGlobalSet)
	t.writer.emitI32(t.translateGlobalIndexToEnv(globalIndex))
	return nil
}

// memory operators

func (t *translator) OnLoad(op wasm.Opcode, alignmentLog2, offset uint32) error {
	if err := t.checkHasMemory(op); err != nil {
		return err
	}
	natural, _ := wasm.MemoryAccessSize(op)
	if err := checkAlign(alignmentLog2, natural); err != nil {
		return err
	}
	if err := t.tc.OnLoad(op); err != nil {
		return err
	}
	t.writer.emitOpcode(op)
	t.writer.emitI32(t.module.MemoryIndex)
	t.writer.emitI32(offset)
	return nil
}

func (t *translator) OnStore(op wasm.Opcode, alignmentLog2, offset uint32) error {
	if err := t.checkHasMemory(op); err != nil {
		return err
	}
	natural, _ := wasm.MemoryAccessSize(op)
	if err := checkAlign(alignmentLog2, natural); err != nil {
		return err
	}
	if err := t.tc.OnStore(op); err != nil {
		return err
	}
	t.writer.emitOpcode(op)
	t.writer.emitI32(t.module.MemoryIndex)
	t.writer.emitI32(offset)
	return nil
}

func (t *translator) OnMemorySize() error {
	if err := t.checkHasMemory(wasm.OpcodeMemorySize); err != nil {
		return err
	}
	if err := t.tc.OnMemorySize(); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeMemorySize)
	t.writer.emitI32(t.module.MemoryIndex)
	return nil
}

func (t *translator) OnMemoryGrow() error {
	if err := t.checkHasMemory(wasm.OpcodeMemoryGrow); err != nil {
		return err
	}
	if err := t.tc.OnMemoryGrow(); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeMemoryGrow)
	t.writer.emitI32(t.module.MemoryIndex)
	return nil
}

// constants

func (t *translator) OnI32Const(value uint32) error {
	if err := t.tc.OnConst(wasm.ValueTypeI32); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeI32Const)
	t.writer.emitI32(value)
	return nil
}

func (t *translator) OnI64Const(value uint64) error {
	if err := t.tc.OnConst(wasm.ValueTypeI64); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeI64Const)
	t.writer.emitI64(value)
	return nil
}

func (t *translator) OnF32Const(valueBits uint32) error {
	if err := t.tc.OnConst(wasm.ValueTypeF32); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeF32Const)
	t.writer.emitI32(valueBits)
	return nil
}

func (t *translator) OnF64Const(valueBits uint64) error {
	if err := t.tc.OnConst(wasm.ValueTypeF64); err != nil {
		return err
	}
	t.writer.emitOpcode(wasm.OpcodeF64Const)
	t.writer.emitI64(valueBits)
	return nil
}

// numeric operators pass through with the source opcode numbering

func (t *translator) OnUnary(op wasm.Opcode) error {
	if err := t.tc.OnUnary(op); err != nil {
		return err
	}
	t.writer.emitOpcode(op)
	return nil
}

func (t *translator) OnBinary(op wasm.Opcode) error {
	if err := t.tc.OnBinary(op); err != nil {
		return err
	}
	t.writer.emitOpcode(op)
	return nil
}

func (t *translator) OnCompare(op wasm.Opcode) error {
	if err := t.tc.OnCompare(op); err != nil {
		return err
	}
	t.writer.emitOpcode(op)
	return nil
}

func (t *translator) OnConvert(op wasm.Opcode) error {
	if err := t.tc.OnConvert(op); err != nil {
		return err
	}
	t.writer.emitOpcode(op)
	return nil
}
