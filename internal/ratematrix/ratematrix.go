// Package ratematrix provides continuous-time substitution rate matrices with
// eigendecomposition-based exponential and logarithm.
package ratematrix

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// AcceptedError is the tolerance used for eigenvalue sign checks and for
// discarding imaginary parts of eigenvalues.
const AcceptedError = 1e-4

var (
	// ErrNumericalInvariant is returned by Exp when the rate-matrix check is
	// enabled and the dominant eigenvalue is positive beyond AcceptedError.
	ErrNumericalInvariant = errors.New("rate matrix has a positive eigenvalue")
	// ErrNonPositiveEigenvalue is returned by Log when an eigenvalue is <= 0.
	ErrNonPositiveEigenvalue = errors.New("matrix logarithm undefined for non-positive eigenvalue")
	// ErrComplexEigenvalue is returned when a non-symmetric matrix has
	// eigenvalues with non-negligible imaginary parts.
	ErrComplexEigenvalue = errors.New("matrix has complex eigenvalues")
	// ErrNotSquare is returned when constructing from a non-square matrix.
	ErrNotSquare = errors.New("matrix is not square")
)

// Options controls validity checks and text parsing.
type Options struct {
	// CheckNegativeLambda makes Exp fail with ErrNumericalInvariant when
	// max(lambda) > AcceptedError.
	CheckNegativeLambda bool
	// Strict makes Load and Read fail on unparsable numbers instead of
	// reading them as 0.
	Strict bool
}

// TransitionMatrix is an immutable square matrix with a lazily computed,
// cached eigendecomposition. It is safe for concurrent use.
type TransitionMatrix struct {
	m    *mat.Dense
	opts Options

	once   sync.Once
	values []float64
	vecs   *mat.Dense
	inv    mat.Matrix // V^T for symmetric input, V^-1 otherwise
	err    error
}

// New wraps a copy of m.
func New(m *mat.Dense, opts Options) (*TransitionMatrix, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	return &TransitionMatrix{m: mat.DenseCopyOf(m), opts: opts}, nil
}

// NewFromRows builds a matrix from row slices, which must form a square.
func NewFromRows(rows [][]float64, opts Options) (*TransitionMatrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty", ErrNotSquare)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, expecting %d", ErrNotSquare, i, len(row), n)
		}
		data = append(data, row...)
	}
	return &TransitionMatrix{m: mat.NewDense(n, n, data), opts: opts}, nil
}

// Dims returns the matrix dimension.
func (t *TransitionMatrix) Dims() int {
	n, _ := t.m.Dims()
	return n
}

// At returns element (i, j).
func (t *TransitionMatrix) At(i, j int) float64 {
	return t.m.At(i, j)
}

// Matrix returns a copy of the underlying matrix.
func (t *TransitionMatrix) Matrix() *mat.Dense {
	return mat.DenseCopyOf(t.m)
}

// Eigenvalues returns the (real) eigenvalues of the matrix.
func (t *TransitionMatrix) Eigenvalues() ([]float64, error) {
	if err := t.decompose(); err != nil {
		return nil, err
	}
	out := make([]float64, len(t.values))
	copy(out, t.values)
	return out, nil
}

// Exp returns exp(t*Q) = V * diag(exp(lambda*t)) * V^-1.
func (t *TransitionMatrix) Exp(time float64) (*mat.Dense, error) {
	if err := t.decompose(); err != nil {
		return nil, err
	}

	maxLambda := math.Inf(-1)
	d := make([]float64, len(t.values))
	for i, lambda := range t.values {
		maxLambda = math.Max(maxLambda, lambda)
		d[i] = math.Exp(lambda * time)
	}
	if t.opts.CheckNegativeLambda && maxLambda > AcceptedError {
		return nil, fmt.Errorf("%w: max(lambda) = %g", ErrNumericalInvariant, maxLambda)
	}

	return t.reconstruct(d), nil
}

// Log returns the natural matrix logarithm V * diag(ln(lambda)) * V^-1.
func (t *TransitionMatrix) Log() (*mat.Dense, error) {
	if err := t.decompose(); err != nil {
		return nil, err
	}

	d := make([]float64, len(t.values))
	for i, lambda := range t.values {
		if lambda <= 0 {
			return nil, fmt.Errorf("%w: lambda[%d] = %g", ErrNonPositiveEigenvalue, i, lambda)
		}
		d[i] = math.Log(lambda)
	}
	return t.reconstruct(d), nil
}

func (t *TransitionMatrix) reconstruct(diag []float64) *mat.Dense {
	n := len(diag)
	var vd, res mat.Dense
	vd.Mul(t.vecs, mat.NewDiagDense(n, diag))
	res.Mul(&vd, t.inv)
	return &res
}

func (t *TransitionMatrix) decompose() error {
	t.once.Do(func() {
		if isSymmetric(t.m) {
			t.err = t.decomposeSym()
		} else {
			t.err = t.decomposeGeneral()
		}
	})
	return t.err
}

func (t *TransitionMatrix) decomposeSym() error {
	n := t.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, t.m.At(i, j))
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return errors.New("symmetric eigendecomposition failed")
	}
	t.values = es.Values(nil)
	var v mat.Dense
	es.VectorsTo(&v)
	t.vecs = &v
	t.inv = v.T()
	return nil
}

func (t *TransitionMatrix) decomposeGeneral() error {
	n := t.Dims()

	var eig mat.Eigen
	if ok := eig.Factorize(t.m, mat.EigenRight); !ok {
		return errors.New("eigendecomposition failed")
	}

	cvals := eig.Values(nil)
	t.values = make([]float64, n)
	for i, c := range cvals {
		if math.Abs(imag(c)) > AcceptedError {
			return fmt.Errorf("%w: lambda[%d] = %v", ErrComplexEigenvalue, i, c)
		}
		t.values[i] = real(c)
	}

	var cv mat.CDense
	eig.VectorsTo(&cv)
	v := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v.Set(i, j, real(cv.At(i, j)))
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(v); err != nil {
		return fmt.Errorf("invert eigenvectors: %w", err)
	}
	t.vecs = v
	t.inv = &inv
	return nil
}

func isSymmetric(m *mat.Dense) bool {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Abs(a-b) > 1e-12*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return false
			}
		}
	}
	return true
}

// String pretty-prints the matrix one row per line.
func (t *TransitionMatrix) String() string {
	var sb strings.Builder
	n := t.Dims()
	for i := 0; i < n; i++ {
		sb.WriteString("| ")
		for j := 0; j < n; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatCell(t.m.At(i, j)))
		}
		sb.WriteString(" |\n")
	}
	return sb.String()
}

func formatCell(v float64) string {
	a := math.Abs(v)
	switch {
	case v == 0:
		return fmt.Sprintf("%10s", "0")
	case a >= 1e6 || a < 1e-6:
		return fmt.Sprintf("% 10.3e", v)
	case a >= 1:
		return fmt.Sprintf("% 10.3f", v)
	default:
		return fmt.Sprintf("% 10.6f", v)
	}
}
