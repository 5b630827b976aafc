package ratematrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Pseudocount is added to every transition count before normalization so
// that unobserved transitions keep a non-zero probability.
const Pseudocount = 1

// TransitionProbabilities row-normalizes counts (plus Pseudocount) into a
// probability matrix P, where P[a][b] estimates P(b | a).
func TransitionProbabilities(counts [][]int64) (*mat.Dense, error) {
	n := len(counts)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty", ErrNotSquare)
	}
	p := mat.NewDense(n, n, nil)
	for i, row := range counts {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, expecting %d", ErrNotSquare, i, len(row), n)
		}
		var total float64
		for _, c := range row {
			total += float64(c + Pseudocount)
		}
		for j, c := range row {
			p.Set(i, j, float64(c+Pseudocount)/total)
		}
	}
	return p, nil
}

// EstimateRate estimates a rate matrix from transition counts observed
// between two sequences separated by evolutionary distance time:
// Q = log(P) / time. Counts are symmetrized first so that P has real
// eigenvalues.
func EstimateRate(counts [][]int64, time float64) (*mat.Dense, error) {
	if time <= 0 {
		return nil, errors.New("distance must be positive")
	}
	p, err := TransitionProbabilities(Symmetrize(counts))
	if err != nil {
		return nil, err
	}
	tm, err := New(p, Options{})
	if err != nil {
		return nil, err
	}
	q, err := tm.Log()
	if err != nil {
		return nil, err
	}
	q.Scale(1/time, q)
	return q, nil
}

// Average returns the element-wise mean of equally sized matrices.
func Average(ms []*mat.Dense) (*mat.Dense, error) {
	if len(ms) == 0 {
		return nil, errors.New("no matrices to average")
	}
	r, c := ms[0].Dims()
	sum := mat.NewDense(r, c, nil)
	for i, m := range ms {
		mr, mc := m.Dims()
		if mr != r || mc != c {
			return nil, fmt.Errorf("matrix %d is %dx%d, expecting %dx%d", i, mr, mc, r, c)
		}
		sum.Add(sum, m)
	}
	sum.Scale(1/float64(len(ms)), sum)
	return sum, nil
}

// Symmetrize returns c + c^T. Non-square input is returned unchanged.
func Symmetrize(c [][]int64) [][]int64 {
	n := len(c)
	out := make([][]int64, n)
	for i := range c {
		if len(c[i]) != n {
			return c
		}
		out[i] = make([]int64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = c[i][j] + c[j][i]
		}
	}
	return out
}
