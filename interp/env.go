// Package interp translates decoded WebAssembly modules into the
// instruction stream executed by the stack interpreter, together with
// the runtime metadata the interpreter needs. Modules share one
// Environment: signatures, functions, tables, memories and globals
// all live in environment-wide index spaces.
package interp

import (
	"fmt"

	"github.com/guybedford/wabt/wasm"
)

// InvalidIndex marks an absent table/memory/start-function index.
const InvalidIndex = ^uint32(0)

type (
	// Environment owns the state shared across all translated modules,
	// including the istream buffer the translator appends to.
	Environment struct {
		Sigs     []*wasm.FunctionType
		Funcs    []Func
		Tables   []*Table
		Memories []*Memory
		Globals  []*Global
		Modules  []Module
		Istream  []byte

		// registered maps a module name to its index in Modules.
		registered map[string]int
	}

	// TypedValue is a value tagged with its type; non-64-bit values
	// occupy the low bits.
	TypedValue struct {
		Type wasm.ValueType
		Bits uint64
	}

	// Global is a typed value plus a mutability flag.
	Global struct {
		Value   TypedValue
		Mutable bool
	}

	// Table holds element limits and a function-index vector sized to
	// the initial limit. Unset entries are InvalidIndex.
	Table struct {
		Limits      wasm.Limits
		FuncIndexes []uint32
	}

	// Memory holds page limits and the memory bytes, sized to the
	// initial limit.
	Memory struct {
		Limits wasm.Limits
		Data   []byte
	}
)

// NewEnvironment returns an empty Environment.
func NewEnvironment() *Environment {
	return &Environment{registered: map[string]int{}}
}

// NewTable returns a table sized to the initial limit with every entry
// unset.
func NewTable(limits wasm.Limits) *Table {
	t := &Table{Limits: limits, FuncIndexes: make([]uint32, limits.Min)}
	for i := range t.FuncIndexes {
		t.FuncIndexes[i] = InvalidIndex
	}
	return t
}

// NewMemory returns a memory sized to the initial page limit.
func NewMemory(limits wasm.Limits) *Memory {
	return &Memory{Limits: limits, Data: make([]byte, limits.Min*wasm.MemoryPageSize)}
}

// RegisterModule makes m importable under name.
func (e *Environment) RegisterModule(name string, m Module) error {
	if _, ok := e.registered[name]; ok {
		return fmt.Errorf("module %q already registered", name)
	}
	for i := range e.Modules {
		if e.Modules[i] == m {
			e.registered[name] = i
			return nil
		}
	}
	return fmt.Errorf("module %q does not belong to this environment", name)
}

// registeredModule resolves a registered module by name.
func (e *Environment) registeredModule(name string) (Module, bool) {
	i, ok := e.registered[name]
	if !ok {
		return nil, false
	}
	return e.Modules[i], true
}

// AppendHostModule creates an empty host module, appends it to the
// environment and registers it under name.
func (e *Environment) AppendHostModule(name string) (*HostModule, error) {
	if _, ok := e.registered[name]; ok {
		return nil, fmt.Errorf("module %q already registered", name)
	}
	m := &HostModule{
		Name:        name,
		TableIndex:  InvalidIndex,
		MemoryIndex: InvalidIndex,
	}
	e.Modules = append(e.Modules, m)
	e.registered[name] = len(e.Modules) - 1
	return m, nil
}

// Snapshot records the environment's extent so a failed translation
// can be rolled back without copying. Only lengths are stored; the
// translator appends but never mutates entries below them until the
// commit phase, apart from the exports it adds to host modules, which
// ReadBinary removes itself when a translation fails.
type Snapshot struct {
	numSigs     int
	numFuncs    int
	numTables   int
	numMemories int
	numGlobals  int
	numModules  int
	istreamLen  int
}

// Mark captures the current extent of every environment sequence.
func (e *Environment) Mark() Snapshot {
	return Snapshot{
		numSigs:     len(e.Sigs),
		numFuncs:    len(e.Funcs),
		numTables:   len(e.Tables),
		numMemories: len(e.Memories),
		numGlobals:  len(e.Globals),
		numModules:  len(e.Modules),
		istreamLen:  len(e.Istream),
	}
}

// ResetToMark truncates every sequence back to the snapshot,
// discarding everything appended since Mark.
func (e *Environment) ResetToMark(s Snapshot) {
	e.Sigs = e.Sigs[:s.numSigs]
	e.Funcs = e.Funcs[:s.numFuncs]
	e.Tables = e.Tables[:s.numTables]
	e.Memories = e.Memories[:s.numMemories]
	e.Globals = e.Globals[:s.numGlobals]
	e.Modules = e.Modules[:s.numModules]
	if len(e.Istream) > s.istreamLen {
		e.Istream = e.Istream[:s.istreamLen]
	}
	for name, i := range e.registered {
		if i >= s.numModules {
			delete(e.registered, name)
		}
	}
}

// sigsEqual reports structural equality of two environment signatures.
func (e *Environment) sigsEqual(a, b uint32) bool {
	return e.Sigs[a].Equals(e.Sigs[b])
}
