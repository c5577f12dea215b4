package scene

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense float64 matrix backed by gonum.
// Shapes with a zero dimension are legal (an empty roster) and carry no
// backing storage, since mat.NewDense rejects them.
type Matrix struct {
	rows, cols int
	dense      *mat.Dense // nil when rows or cols is 0
}

// NewMatrix returns a zero matrix of the given shape.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("scene: negative matrix shape %dx%d", rows, cols))
	}
	m := &Matrix{rows: rows, cols: cols}
	if rows > 0 && cols > 0 {
		m.dense = mat.NewDense(rows, cols, nil)
	}
	return m
}

// MatrixFromRows copies a rectangular [][]float64 into a Matrix.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(r), cols)
		}
		if m.dense != nil {
			m.dense.SetRow(i, r)
		}
	}
	return m, nil
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) At(i, j int) float64 {
	return m.dense.At(i, j)
}

func (m *Matrix) Set(i, j int, v float64) {
	m.dense.Set(i, j, v)
}

// Row returns row i as a slice sharing the matrix storage.
func (m *Matrix) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("scene: row %d out of range for %d rows", i, m.rows))
	}
	if m.dense == nil {
		return nil
	}
	return m.dense.RawRowView(i)
}

// RowMax returns the largest entry in row i, or 0 for an empty row.
func (m *Matrix) RowMax(i int) float64 {
	row := m.Row(i)
	if len(row) == 0 {
		return 0
	}
	return floats.Max(row)
}

// RowArgMax returns the first column holding the row maximum, or -1 for an empty row.
func (m *Matrix) RowArgMax(i int) int {
	row := m.Row(i)
	if len(row) == 0 {
		return -1
	}
	return floats.MaxIdx(row)
}

// RowDot returns Σⱼ m[i][j]·other[i][j]. Both matrices must share a shape.
func (m *Matrix) RowDot(i int, other *Matrix) float64 {
	m.mustMatch(other)
	if m.dense == nil {
		return 0
	}
	return mat.Dot(m.dense.RowView(i), other.dense.RowView(i))
}

// Dot returns the elementwise (Frobenius) product Σᵢⱼ m[i][j]·other[i][j].
func (m *Matrix) Dot(other *Matrix) float64 {
	m.mustMatch(other)
	if m.dense == nil {
		return 0
	}
	var prod mat.Dense
	prod.MulElem(m.dense, other.dense)
	return mat.Sum(&prod)
}

// IsZero reports whether every entry is 0.
func (m *Matrix) IsZero() bool {
	for i := 0; i < m.rows; i++ {
		for _, v := range m.Row(i) {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols}
	if m.dense != nil {
		c.dense = mat.DenseCopyOf(m.dense)
	}
	return c
}

// ToRows copies the matrix into a [][]float64.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = append([]float64(nil), m.Row(i)...)
	}
	return out
}

func (m *Matrix) mustMatch(other *Matrix) {
	if m.rows != other.rows || m.cols != other.cols {
		panic(fmt.Sprintf("scene: shape mismatch %dx%d vs %dx%d", m.rows, m.cols, other.rows, other.cols))
	}
}
