package interp

import (
	"fmt"

	"github.com/guybedford/wabt/wasm"
)

type (
	// Export binds a name to an environment-wide index of some kind.
	Export struct {
		Name  string
		Kind  wasm.ExternalKind
		Index uint32
	}

	// Import is one declared import of a defined module, with the
	// kind-specific payload recorded during resolution.
	Import struct {
		ModuleName string
		FieldName  string
		Kind       wasm.ExternalKind

		// SigIndex is the environment signature index of a function import.
		SigIndex uint32
		// Limits are the declared limits of a table or memory import.
		Limits wasm.Limits
		// GlobalType and GlobalMutable describe a global import.
		GlobalType    wasm.ValueType
		GlobalMutable bool
	}
)

// Module is either a DefinedModule produced by translation or a
// HostModule supplied by the embedder.
type Module interface {
	// GetExport resolves an export by name, or nil.
	GetExport(name string) *Export
	// AppendExport adds an export, rejecting duplicate names.
	AppendExport(kind wasm.ExternalKind, index uint32, name string) error
}

// exportList is the export table shared by both module variants.
type exportList struct {
	Exports  []*Export
	bindings map[string]int
}

func (l *exportList) GetExport(name string) *Export {
	if i, ok := l.bindings[name]; ok {
		return l.Exports[i]
	}
	return nil
}

func (l *exportList) AppendExport(kind wasm.ExternalKind, index uint32, name string) error {
	if _, ok := l.bindings[name]; ok {
		return fmt.Errorf("duplicate export %q", name)
	}
	if l.bindings == nil {
		l.bindings = map[string]int{}
	}
	l.Exports = append(l.Exports, &Export{Name: name, Kind: kind, Index: index})
	l.bindings[name] = len(l.Exports) - 1
	return nil
}

// DefinedModule is a module decoded from a binary. Table/memory/start
// indices are InvalidIndex when absent.
type DefinedModule struct {
	exportList

	Imports []*Import

	TableIndex     uint32
	MemoryIndex    uint32
	StartFuncIndex uint32

	// IstreamStart and IstreamEnd delimit the istream range the
	// module's code occupies.
	IstreamStart uint32
	IstreamEnd   uint32
}

// NewDefinedModule returns a DefinedModule whose code will begin at
// istreamStart.
func NewDefinedModule(istreamStart uint32) *DefinedModule {
	return &DefinedModule{
		TableIndex:     InvalidIndex,
		MemoryIndex:    InvalidIndex,
		StartFuncIndex: InvalidIndex,
		IstreamStart:   istreamStart,
		IstreamEnd:     istreamStart,
	}
}

// HostModule is a module whose contents the embedder materialises on
// demand through the import delegate.
type HostModule struct {
	exportList

	Name     string
	Delegate HostImportDelegate

	TableIndex  uint32
	MemoryIndex uint32
}

// HostImportDelegate materialises host imports. Each callback receives
// the import record and the freshly created environment slot to
// populate; a non-nil error fails the translation.
type HostImportDelegate struct {
	ImportFunc   func(imp *Import, f *HostFunc, sig *wasm.FunctionType) error
	ImportTable  func(imp *Import, t *Table) error
	ImportMemory func(imp *Import, m *Memory) error
	ImportGlobal func(imp *Import, g *Global) error
}

// HostFuncCallback executes a host function: args are the parameter
// values in signature order, and results must match the signature's
// result types.
type HostFuncCallback func(args []TypedValue) ([]TypedValue, error)

// Func is either a *DefinedFunc with bytecode in the istream or a
// *HostFunc dispatched to the embedder.
type Func interface {
	// SignatureIndex returns the environment signature index.
	SignatureIndex() uint32
}

// DefinedFunc is a function whose body was translated into the
// istream. Offset is InvalidIstreamOffset until the body is emitted.
type DefinedFunc struct {
	SigIndex uint32
	Offset   uint32

	LocalDeclCount     uint32
	LocalCount         uint32
	ParamAndLocalTypes []wasm.ValueType
}

func (f *DefinedFunc) SignatureIndex() uint32 { return f.SigIndex }

// HostFunc carries the embedder's callback for one host function.
type HostFunc struct {
	SigIndex   uint32
	ModuleName string
	FieldName  string
	Callback   HostFuncCallback
}

func (f *HostFunc) SignatureIndex() uint32 { return f.SigIndex }
