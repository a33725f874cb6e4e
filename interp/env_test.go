package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guybedford/wabt/wasm"
)

func TestMarkAndReset(t *testing.T) {
	env := NewEnvironment()
	env.Sigs = append(env.Sigs, &wasm.FunctionType{})
	env.Istream = append(env.Istream, 0x0f)

	mark := env.Mark()

	env.Sigs = append(env.Sigs, &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}})
	env.Funcs = append(env.Funcs, &DefinedFunc{SigIndex: 1})
	env.Globals = append(env.Globals, &Global{})
	env.Tables = append(env.Tables, NewTable(wasm.Limits{Min: 2}))
	env.Memories = append(env.Memories, NewMemory(wasm.Limits{Min: 1}))
	env.Istream = append(env.Istream, 0x41, 0x00)

	m := NewDefinedModule(uint32(len(env.Istream)))
	env.Modules = append(env.Modules, m)
	require.NoError(t, env.RegisterModule("m", m))

	env.ResetToMark(mark)

	assert.Len(t, env.Sigs, 1)
	assert.Empty(t, env.Funcs)
	assert.Empty(t, env.Globals)
	assert.Empty(t, env.Tables)
	assert.Empty(t, env.Memories)
	assert.Empty(t, env.Modules)
	assert.Len(t, env.Istream, 1)

	_, ok := env.registeredModule("m")
	assert.False(t, ok)
}

func TestRegisterModule(t *testing.T) {
	env := NewEnvironment()
	m := NewDefinedModule(0)

	err := env.RegisterModule("m", m)
	require.Error(t, err, "module not appended to the environment yet")

	env.Modules = append(env.Modules, m)
	require.NoError(t, env.RegisterModule("m", m))

	err = env.RegisterModule("m", m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	got, ok := env.registeredModule("m")
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestAppendHostModule(t *testing.T) {
	env := NewEnvironment()
	host, err := env.AppendHostModule("host")
	require.NoError(t, err)
	assert.Equal(t, InvalidIndex, host.TableIndex)

	got, ok := env.registeredModule("host")
	require.True(t, ok)
	assert.Same(t, host, got)

	_, err = env.AppendHostModule("host")
	require.Error(t, err)
}

func TestNewTable(t *testing.T) {
	table := NewTable(wasm.Limits{Min: 3})
	require.Len(t, table.FuncIndexes, 3)
	for _, fi := range table.FuncIndexes {
		assert.Equal(t, InvalidIndex, fi)
	}
}

func TestExportList(t *testing.T) {
	m := NewDefinedModule(0)
	require.NoError(t, m.AppendExport(wasm.ExternalKindFunc, 7, "f"))
	err := m.AppendExport(wasm.ExternalKindGlobal, 8, "f")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate export "f"`)

	export := m.GetExport("f")
	require.NotNil(t, export)
	assert.Equal(t, uint32(7), export.Index)
	assert.Nil(t, m.GetExport("missing"))
}
