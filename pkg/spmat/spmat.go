// Package spmat provides a compressed sparse row matrix of complex values.
// It is the container for admittance matrices: matrix-vector products, row
// slicing and submatrix extraction are done here, factorization is not.
package spmat

import (
	"fmt"
	"sort"
)

// CMatrix is a complex matrix in CSR form. RowPtr has Rows+1 entries; the
// column indices of row i live in ColIdx[RowPtr[i]:RowPtr[i+1]], sorted
// ascending, with the matching values in Data.
type CMatrix struct {
	Rows, Cols int
	RowPtr     []int
	ColIdx     []int
	Data       []complex128
}

// Builder accumulates triplets. Duplicate (i,j) entries are summed, which is
// what admittance stamping needs.
type Builder struct {
	rows, cols int
	entries    []map[int]complex128
}

func NewBuilder(rows, cols int) *Builder {
	b := &Builder{rows: rows, cols: cols, entries: make([]map[int]complex128, rows)}
	for i := range b.entries {
		b.entries[i] = make(map[int]complex128)
	}
	return b
}

func (b *Builder) Add(i, j int, v complex128) {
	if i < 0 || i >= b.rows || j < 0 || j >= b.cols {
		panic(fmt.Sprintf("spmat: entry (%d,%d) out of bounds for %dx%d matrix", i, j, b.rows, b.cols))
	}
	b.entries[i][j] += v
}

func (b *Builder) Build() *CMatrix {
	m := &CMatrix{
		Rows:   b.rows,
		Cols:   b.cols,
		RowPtr: make([]int, b.rows+1),
	}
	nnz := 0
	for i := range b.entries {
		nnz += len(b.entries[i])
	}
	m.ColIdx = make([]int, 0, nnz)
	m.Data = make([]complex128, 0, nnz)

	cols := make([]int, 0, 16)
	for i := 0; i < b.rows; i++ {
		cols = cols[:0]
		for j := range b.entries[i] {
			cols = append(cols, j)
		}
		sort.Ints(cols)
		for _, j := range cols {
			m.ColIdx = append(m.ColIdx, j)
			m.Data = append(m.Data, b.entries[i][j])
		}
		m.RowPtr[i+1] = len(m.ColIdx)
	}
	return m
}

// NNZ returns the number of stored entries.
func (m *CMatrix) NNZ() int { return len(m.Data) }

// Row returns the column indices and values of row i as slices into the
// matrix storage. Callers must not modify them.
func (m *CMatrix) Row(i int) ([]int, []complex128) {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	return m.ColIdx[lo:hi], m.Data[lo:hi]
}

// At returns the (i,j) entry, zero if not stored.
func (m *CMatrix) At(i, j int) complex128 {
	cols, vals := m.Row(i)
	k := sort.SearchInts(cols, j)
	if k < len(cols) && cols[k] == j {
		return vals[k]
	}
	return 0
}

// MulVec computes y = M*x.
func (m *CMatrix) MulVec(x []complex128) []complex128 {
	if len(x) != m.Cols {
		panic(fmt.Sprintf("spmat: MulVec dimension mismatch: %d columns, %d vector", m.Cols, len(x)))
	}
	y := make([]complex128, m.Rows)
	for i := 0; i < m.Rows; i++ {
		var sum complex128
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			sum += m.Data[k] * x[m.ColIdx[k]]
		}
		y[i] = sum
	}
	return y
}

// RowSums returns the sum of each row. For an admittance matrix built from
// pi-model branches, the series contributions cancel in the row sum, leaving
// the shunt admittance connected at each bus.
func (m *CMatrix) RowSums() []complex128 {
	s := make([]complex128, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s[i] += m.Data[k]
		}
	}
	return s
}

// Diagonal returns the main diagonal as a dense vector.
func (m *CMatrix) Diagonal() []complex128 {
	n := m.Rows
	if m.Cols < n {
		n = m.Cols
	}
	d := make([]complex128, n)
	for i := 0; i < n; i++ {
		d[i] = m.At(i, i)
	}
	return d
}

// Submatrix extracts the rows and columns given by the index sets, in the
// given order. Used to slice Ybus per island and to build reduced systems.
func (m *CMatrix) Submatrix(rows, cols []int) *CMatrix {
	colPos := make(map[int]int, len(cols))
	for p, j := range cols {
		colPos[j] = p
	}
	b := NewBuilder(len(rows), len(cols))
	for p, i := range rows {
		cc, vv := m.Row(i)
		for k, j := range cc {
			if q, ok := colPos[j]; ok {
				b.Add(p, q, vv[k])
			}
		}
	}
	return b.Build()
}
