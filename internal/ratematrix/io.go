package ratematrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Load reads a tab-separated matrix file, one row per line.
func Load(path string, opts Options) (*TransitionMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix file: %w", err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load matrix %s: %w", path, err)
	}
	return t, nil
}

// Read parses a tab-separated matrix. Every row must have the same number
// of columns. Blank lines are ignored.
func Read(r io.Reader, opts Options) (*TransitionMatrix, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var rows [][]float64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(rows) > 0 && len(fields) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: %d columns, expecting %d", lineNum, len(fields), len(rows[0]))
		}

		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				if opts.Strict {
					return nil, fmt.Errorf("line %d, column %d: %w", lineNum, i+1, err)
				}
				v = 0
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}

	return NewFromRows(rows, opts)
}

// Save writes the matrix to path (see Write).
func (t *TransitionMatrix) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create matrix file: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the matrix as tab-separated rows using the shortest
// representation that reads back to the same float64.
func (t *TransitionMatrix) Write(w io.Writer) error {
	return WriteDense(w, t.m)
}

// WriteDense writes any matrix in the format read by Read.
func WriteDense(w io.Writer, m mat.Matrix) error {
	bw := bufio.NewWriter(w)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
