// Package wasm holds the WebAssembly-level data shared between the
// binary decoder and the interpreter translator: value types, external
// kinds, limits and function types.
package wasm

// ValueType is the binary encoding of a value type such as i32.
// See https://www.w3.org/TR/wasm-core-1/#binary-valtype
//
// Note: This is a type alias as it is easier to encode and decode in the binary format.
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name used in the WebAssembly text
// format, or "unknown" for an undefined ValueType.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// ExternalKind classifies an import or export entry.
type ExternalKind = byte

const (
	ExternalKindFunc ExternalKind = iota
	ExternalKindTable
	ExternalKindMemory
	ExternalKindGlobal
)

// ExternalKindName returns the name of an import/export kind as used
// in the text format.
func ExternalKindName(k ExternalKind) string {
	switch k {
	case ExternalKindFunc:
		return "func"
	case ExternalKindTable:
		return "table"
	case ExternalKindMemory:
		return "memory"
	case ExternalKindGlobal:
		return "global"
	}
	return "unknown"
}

// ElemTypeFuncref is the only element type of the MVP table.
const ElemTypeFuncref = 0x70

// MemoryPageSize is the size in bytes of one linear memory page.
const MemoryPageSize = 65536

// Limits describes the size bounds of a table (in elements) or a
// memory (in pages). Max is nil when no maximum is declared.
type Limits struct {
	Min uint32
	Max *uint32
}

// FunctionType is a function signature: ordered parameter types and
// ordered result types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (t *FunctionType) String() (ret string) {
	for _, b := range t.Params {
		ret += ValueTypeName(b)
	}
	if len(t.Params) == 0 {
		ret += "null"
	}
	ret += "_"
	for _, b := range t.Results {
		ret += ValueTypeName(b)
	}
	if len(t.Results) == 0 {
		ret += "null"
	}
	return
}

// HasSameSignature returns true if the two type vectors are equal
// element by element.
func HasSameSignature(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equals reports structural equality of two function types.
func (t *FunctionType) Equals(other *FunctionType) bool {
	return HasSameSignature(t.Params, other.Params) &&
		HasSameSignature(t.Results, other.Results)
}
