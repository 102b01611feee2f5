package prep

import "gonum.org/v1/gonum/mat"

// Matrix is the transformed, fixed-width numeric output. gonum refuses
// zero-sized dense matrices, so the empty shape is tracked separately.
type Matrix struct {
	rows, cols int
	dense      *mat.Dense
	names      []string
}

func newMatrix(rows, cols int, names []string) *Matrix {
	m := &Matrix{rows: rows, cols: cols, names: names}
	if rows > 0 && cols > 0 {
		m.dense = mat.NewDense(rows, cols, nil)
	}
	return m
}

func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// Shape returns [rows, columns].
func (m *Matrix) Shape() [2]int { return [2]int{m.rows, m.cols} }

func (m *Matrix) At(i, j int) float64 { return m.dense.At(i, j) }

func (m *Matrix) set(i, j int, v float64) { m.dense.Set(i, j, v) }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, m.cols)
	if m.dense != nil {
		mat.Row(out, i, m.dense)
	}
	return out
}

// Head returns up to n rows, for response samples.
func (m *Matrix) Head(n int) [][]float64 {
	if n > m.rows {
		n = m.rows
	}
	out := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m.Row(i))
	}
	return out
}

// FeatureNames labels each output column: the numeric column name, or
// "column=category" for one-hot outputs.
func (m *Matrix) FeatureNames() []string { return append([]string(nil), m.names...) }

// Dense exposes the backing gonum matrix; nil when the matrix is empty.
func (m *Matrix) Dense() *mat.Dense { return m.dense }
