package interp

import (
	"go.uber.org/zap"

	"github.com/guybedford/wabt/wasm/binary"
)

// ReadBinary translates a validated module binary into env. On success
// the returned module is appended to env.Modules and its code occupies
// the istream range [IstreamStart, IstreamEnd). On failure the
// environment is reset to its pre-call state and the error describes
// the first problem the decoder or translator hit.
//
// The environment's istream buffer is moved into the translator for
// the duration of the call; env must not be used concurrently.
func ReadBinary(env *Environment, data []byte) (*DefinedModule, error) {
	istreamStart := uint32(len(env.Istream))
	module := NewDefinedModule(istreamStart)

	// Mark before constructing the translator: construction moves the
	// istream out of the environment.
	mark := env.Mark()
	// Host modules gain an export per materialised import; record their
	// export counts so a failed translation can drop those exports too.
	hostExports := map[*HostModule]int{}
	for _, m := range env.Modules {
		if h, ok := m.(*HostModule); ok {
			hostExports[h] = len(h.Exports)
		}
	}
	t := newTranslator(env, module)
	env.Modules = append(env.Modules, module)

	log := Logger()
	log.Debug("translating module", zap.Int("size", len(data)), zap.Uint32("istream_start", istreamStart))

	err := binary.Read(data, t)
	istreamEnd := t.istreamOffset()
	env.Istream = t.releaseBuffer()
	if err != nil {
		env.ResetToMark(mark)
		for h, n := range hostExports {
			for _, e := range h.Exports[n:] {
				delete(h.bindings, e.Name)
			}
			h.Exports = h.Exports[:n]
		}
		log.Debug("translation rolled back", zap.Error(err))
		return nil, err
	}

	env.Istream = env.Istream[:istreamEnd]
	module.IstreamEnd = uint32(len(env.Istream))
	log.Debug("translation committed",
		zap.Uint32("istream_end", module.IstreamEnd),
		zap.Int("exports", len(module.Exports)))
	return module, nil
}
