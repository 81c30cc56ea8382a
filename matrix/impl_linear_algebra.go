// SPDX-License-Identifier: MIT
// Package matrix provides the linear-algebra kernels over *Dense: element-wise
// addition, subtraction and Hadamard product, scalar scaling, blocked parallel
// multiplication, transpose and norms. All functions perform strict fail-fast
// validation and return wrapped sentinels on shape violations.
//
// Purpose:
//   - Define operation tags and shared constants for determinism and error reporting.
//   - Keep the hot loops on flat row-major slices; no At/Set inside kernels.
//
// Notes:
//   - Results are always freshly allocated; operands are never mutated or aliased.

package matrix

import (
	"fmt"
	"math"
	"time"

	"github.com/katalvlaran/pcimg/metrics"
	"github.com/katalvlaran/pcimg/parallel"
)

// NormZero is the additive identity for norm and accumulation operations.
const NormZero = 0.0

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opAdd             = "Add"
	opSub             = "Sub"
	opMul             = "Mul"
	opMulNaive        = "MulNaive"
	opTranspose       = "Transpose"
	opScale           = "Scale"
	opHadamard        = "Hadamard"
	opNorm            = "Norm"
	opOffDiagonalNorm = "OffDiagonalNorm"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// The wrapper keeps a stable "Op: underlying" shape for uniform reporting across kernels.
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
//
// Inputs:
//   - tag: operation name/label (use package-level op* constants; no magic strings).
//   - err: underlying non-nil error to wrap.
//
// Returns:
//   - error: a non-nil error that formats as "<tag>: <underlying>" and still matches Is/As.
//
// Complexity:
//   - Time O(1), Space O(1).
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// observe records the latency of a heavy kernel.
func observe(op string, start time.Time) {
	metrics.MatrixOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// elementwise computes out[i] = f(a[i], b[i]) over identical shapes.
// Internal helper for Add/Sub/Hadamard to share validation, allocation and the flat loop.
//
// Implementation:
//   - Stage 1: ValidateBinarySameShape(a, b).
//   - Stage 2: single flat loop 0..r*c-1 into a fresh buffer.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch wrapped with opTag.
//
// Complexity:
//   - Time O(r*c), Space O(r*c) for the new result.
func elementwise(a, b *Dense, opTag string, f func(x, y float64) float64) (*Dense, error) {
	if err := ValidateBinarySameShape(a, b); err != nil {
		return nil, matrixErrorf(opTag, err)
	}
	out := make([]float64, len(a.data))
	for i := range out {
		out[i] = f(a.data[i], b.data[i])
	}
	res := newDenseFrom(a.r, a.c, out)
	res.validateNaNInf = a.validateNaNInf

	return res, nil
}

// Add returns a + b. Shapes must be identical; nothing is broadcast.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "Add").
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func Add(a, b *Dense) (*Dense, error) {
	return elementwise(a, b, opAdd, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b. Shapes must be identical; nothing is broadcast.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "Sub").
func Sub(a, b *Dense) (*Dense, error) {
	return elementwise(a, b, opSub, func(x, y float64) float64 { return x - y })
}

// Hadamard returns the element-wise product a ∘ b.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "Hadamard").
func Hadamard(a, b *Dense) (*Dense, error) {
	return elementwise(a, b, opHadamard, func(x, y float64) float64 { return x * y })
}

// Scale returns alpha*m as a new matrix. A built transpose cache of m is
// scaled in the same pass so the result keeps it.
//
// Errors:
//   - ErrNilMatrix (wrapped with "Scale").
//
// Complexity:
//   - Time O(r*c), Space O(r*c) (doubled when the cache is present).
func Scale(m *Dense, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	out := make([]float64, len(m.data))
	for i, v := range m.data {
		out[i] = alpha * v
	}
	res := newDenseFrom(m.r, m.c, out)
	res.validateNaNInf = m.validateNaNInf

	m.tmu.Lock()
	if m.t != nil {
		res.t = make([]float64, len(m.t))
		for i, v := range m.t {
			res.t[i] = alpha * v
		}
	}
	m.tmu.Unlock()

	return res, nil
}

// Mul computes the matrix product a × b with a cache-blocked, parallel kernel.
//
// Implementation:
//   - Stage 1: ValidateMulCompatible(a, b) (a.Cols == b.Rows).
//   - Stage 2: split output rows into tiles of blockSize; each tile is one work unit on
//     the executor and owns a disjoint band of rows of the result.
//   - Stage 3: inside a unit iterate k0 → j0 → i → k → j so an A-tile and a B-tile stay
//     hot while the inner j-loop streams contiguous memory.
//   - Stage 4: join, then build the result transpose cache in one parallel pass.
//
// Behavior highlights:
//   - No synchronization in the compute loop: units never share output rows.
//   - Agrees with MulNaive within floating-point tolerance (summation order may differ
//     across tiles of k).
//
// Inputs:
//   - a: n×k, b: k×p; opts: WithBlockSize, WithExecutor.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "Mul").
//
// Complexity:
//   - Time O(n*k*p) spread over Workers(); Space O(n*p) (+O(n*p) for the cache).
func Mul(a, b *Dense, opts ...Option) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	defer observe(opMul, time.Now())

	o := gatherOptions(opts...)
	n, kd, p := a.r, a.c, b.c
	bs := o.blockSize
	out := make([]float64, n*p)
	ad, bd := a.data, b.data
	tiles := (n + bs - 1) / bs

	err := o.exec.Run(tiles, func(tile int) error {
		i0 := tile * bs
		i1 := min(i0+bs, n)
		var (
			aik    float64
			ci, bk []float64
		)
		for k0 := 0; k0 < kd; k0 += bs {
			k1 := min(k0+bs, kd)
			for j0 := 0; j0 < p; j0 += bs {
				j1 := min(j0+bs, p)
				for i := i0; i < i1; i++ {
					ci = out[i*p+j0 : i*p+j1]
					for k := k0; k < k1; k++ {
						aik = ad[i*kd+k]
						bk = bd[k*p+j0 : k*p+j1]
						for j, bkj := range bk {
							ci[j] += aik * bkj
						}
					}
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	res := newDenseFrom(n, p, out)
	if res.t, err = buildTranspose(n, p, out, o.exec); err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	return res, nil
}

// MulNaive is the sequential i-k-j reference product used to validate Mul.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "MulNaive").
//
// Complexity:
//   - Time O(n*k*p), Space O(n*p).
func MulNaive(a, b *Dense) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMulNaive, err)
	}
	n, kd, p := a.r, a.c, b.c
	out := make([]float64, n*p)
	for i := 0; i < n; i++ {
		for k := 0; k < kd; k++ {
			aik := a.data[i*kd+k]
			for j := 0; j < p; j++ {
				out[i*p+j] += aik * b.data[k*p+j]
			}
		}
	}

	return newDenseFrom(n, p, out), nil
}

// buildTranspose returns the c×r row-major transpose of an r×c buffer.
// Source rows are copied in chunks of DefaultTransposeRowChunk, one unit per chunk;
// each chunk writes a disjoint set of columns of the destination.
func buildTranspose(r, c int, data []float64, exec *parallel.Executor) ([]float64, error) {
	t := make([]float64, r*c)
	err := exec.Range(r, DefaultTransposeRowChunk, func(lo, hi int) error {
		for y := lo; y < hi; y++ {
			row := data[y*c : (y+1)*c]
			for x, v := range row {
				t[x*r+y] = v
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Transpose returns mᵀ as a new matrix.
//
// Implementation:
//   - Stage 1: make sure m's transpose cache is built (parallel, once).
//   - Stage 2: copy both buffers and swap their roles: the result's primary storage is
//     m's cache and its cache is m's primary storage.
//
// Behavior highlights:
//   - Once the cache exists the cost is one structural copy; nothing is recomputed.
//   - Transpose(Transpose(m)) equals m element for element.
//
// Errors:
//   - ErrNilMatrix (wrapped with "Transpose").
//
// Complexity:
//   - Time O(r*c), Space O(2*r*c).
func Transpose(m *Dense, opts ...Option) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	o := gatherOptions(opts...)
	t, err := m.transposed(o.exec)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	m.tmu.Lock()
	res := &Dense{
		r:              m.c,
		c:              m.r,
		data:           append([]float64(nil), t...),
		t:              append([]float64(nil), m.data...),
		validateNaNInf: m.validateNaNInf,
	}
	m.tmu.Unlock()

	return res, nil
}

// Norm returns the Frobenius norm sqrt(Σ m[i,j]²).
//
// Errors:
//   - ErrNilMatrix (wrapped with "Norm").
func Norm(m *Dense) (float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return NormZero, matrixErrorf(opNorm, err)
	}

	return frobenius(m.data), nil
}

// frobenius uses hypot-style scaling to avoid overflow on large entries.
func frobenius(data []float64) float64 {
	var scale, ssq float64 = 0, 1
	for _, v := range data {
		if v == 0 {
			continue
		}
		av := math.Abs(v)
		if scale < av {
			ssq = 1 + ssq*(scale/av)*(scale/av)
			scale = av
		} else {
			ssq += (av / scale) * (av / scale)
		}
	}

	return scale * math.Sqrt(ssq)
}

// OffDiagonalNorm returns sqrt(Σ_{i≠j} m[i,j]²) for a square matrix.
// It is the convergence signal of the iterative eigen solvers.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare (wrapped with "OffDiagonalNorm").
func OffDiagonalNorm(m *Dense) (float64, error) {
	if err := ValidateSquare(m); err != nil {
		return NormZero, matrixErrorf(opOffDiagonalNorm, err)
	}
	n := m.r
	sum := NormZero
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				v := m.data[i*n+j]
				sum += v * v
			}
		}
	}

	return math.Sqrt(sum), nil
}
