// SPDX-License-Identifier: MIT

package matrix

// OptionsSnapshot exposes the effective options to external tests.
type OptionsSnapshot struct {
	Eps            float64
	ValidateNaNInf bool
	BlockSize      int
	Workers        int
}

// GatherOptionsSnapshot applies opts over the defaults.
func GatherOptionsSnapshot(opts ...Option) OptionsSnapshot {
	o := gatherOptions(opts...)

	return OptionsSnapshot{
		Eps:            o.eps,
		ValidateNaNInf: o.validateNaNInf,
		BlockSize:      o.blockSize,
		Workers:        o.exec.Workers(),
	}
}

// TransposeConsistent reports whether the transpose cache mirrors the data.
func TransposeConsistent(m *Dense) bool { return m.transposeConsistent() }

// HasTransposeCache reports whether the cache is currently built.
func HasTransposeCache(m *Dense) bool {
	m.tmu.Lock()
	defer m.tmu.Unlock()

	return m.t != nil
}
