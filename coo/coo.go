/*
Copyright © 2019 the GridCouple authors.
This file is part of GridCouple.

GridCouple is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GridCouple is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GridCouple.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package coo provides a coordinate-format sparse matrix that accumulates
// (row, column, value) entries. It is the output format of every
// regridding operator.
package coo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridcouple/internal/ncio"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrOutOfRange is returned when an entry lies outside of a matrix.
	ErrOutOfRange = errors.New("coo: index out of range")

	// ErrDimensionMismatch is returned when matrix or vector shapes
	// are incompatible.
	ErrDimensionMismatch = ncio.ErrDimensionMismatch
)

// OutOfRangeError reports an entry that lies outside of a matrix.
type OutOfRangeError struct {
	Row, Col   int
	NRow, NCol int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("coo: entry (%d, %d) is outside of %dx%d matrix", e.Row, e.Col, e.NRow, e.NCol)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// DimensionMismatchError reports incompatible shapes.
type DimensionMismatchError struct {
	Op               string
	Expected, Actual [2]int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("coo: %s: shape %v does not match %v", e.Op, e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// Entry is a single matrix element.
type Entry struct {
	Row, Col int
	Val      float64
}

// Matrix is a sparse matrix in coordinate format. Entries with the same
// coordinates are allowed and are summed by SumDuplicates.
// A Matrix must not be modified concurrently.
type Matrix struct {
	NRow, NCol int
	rows, cols []int
	vals       []float64
}

// New returns an empty nrow by ncol matrix.
func New(nrow, ncol int) *Matrix {
	return &Matrix{NRow: nrow, NCol: ncol}
}

// Add appends an entry. It panics if the entry is out of range.
func (m *Matrix) Add(row, col int, val float64) {
	if err := m.AddChecked(row, col, val); err != nil {
		panic(err)
	}
}

// AddChecked appends an entry, returning an *OutOfRangeError if the
// entry is outside of the matrix.
func (m *Matrix) AddChecked(row, col int, val float64) error {
	if row < 0 || row >= m.NRow || col < 0 || col >= m.NCol {
		return &OutOfRangeError{Row: row, Col: col, NRow: m.NRow, NCol: m.NCol}
	}
	m.rows = append(m.rows, row)
	m.cols = append(m.cols, col)
	m.vals = append(m.vals, val)
	return nil
}

// Len returns the number of stored entries.
func (m *Matrix) Len() int { return len(m.vals) }

// At returns the i'th stored entry.
func (m *Matrix) At(i int) Entry {
	return Entry{Row: m.rows[i], Col: m.cols[i], Val: m.vals[i]}
}

// Entries returns a copy of the stored entries.
func (m *Matrix) Entries() []Entry {
	o := make([]Entry, len(m.vals))
	for i := range m.vals {
		o[i] = m.At(i)
	}
	return o
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{
		NRow: m.NRow,
		NCol: m.NCol,
		rows: append([]int(nil), m.rows...),
		cols: append([]int(nil), m.cols...),
		vals: append([]float64(nil), m.vals...),
	}
}

// SumDuplicates merges entries with the same coordinates by summing them.
// Afterwards the entries are sorted by row and then by column. Entries
// that sum to zero are kept.
func (m *Matrix) SumDuplicates() {
	idx := make([]int, len(m.vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if m.rows[a] != m.rows[b] {
			return m.rows[a] < m.rows[b]
		}
		return m.cols[a] < m.cols[b]
	})
	rows := make([]int, 0, len(idx))
	cols := make([]int, 0, len(idx))
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		n := len(vals)
		if n > 0 && rows[n-1] == m.rows[i] && cols[n-1] == m.cols[i] {
			vals[n-1] += m.vals[i]
			continue
		}
		rows = append(rows, m.rows[i])
		cols = append(cols, m.cols[i])
		vals = append(vals, m.vals[i])
	}
	m.rows, m.cols, m.vals = rows, cols, vals
}

// Transpose returns the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	return &Matrix{
		NRow: m.NCol,
		NCol: m.NRow,
		rows: append([]int(nil), m.cols...),
		cols: append([]int(nil), m.rows...),
		vals: append([]float64(nil), m.vals...),
	}
}

// Multiply returns the product a×b with duplicates summed.
func Multiply(a, b *Matrix) (*Matrix, error) {
	if a.NCol != b.NRow {
		return nil, &DimensionMismatchError{
			Op:       "multiply",
			Expected: [2]int{a.NCol, b.NCol},
			Actual:   [2]int{b.NRow, b.NCol},
		}
	}
	byRow := make(map[int][]int)
	for i, r := range b.rows {
		byRow[r] = append(byRow[r], i)
	}
	o := New(a.NRow, b.NCol)
	for i := range a.vals {
		for _, j := range byRow[a.cols[i]] {
			o.rows = append(o.rows, a.rows[i])
			o.cols = append(o.cols, b.cols[j])
			o.vals = append(o.vals, a.vals[i]*b.vals[j])
		}
	}
	o.SumDuplicates()
	return o, nil
}

// SumPerRow returns the sum of the entries in each row.
func (m *Matrix) SumPerRow() *sparse.SparseArray {
	o := sparse.ZerosSparse(m.NRow)
	for i, r := range m.rows {
		o.AddVal(m.vals[i], r)
	}
	return o
}

// SumPerCol returns the sum of the entries in each column.
func (m *Matrix) SumPerCol() *sparse.SparseArray {
	o := sparse.ZerosSparse(m.NCol)
	for i, c := range m.cols {
		o.AddVal(m.vals[i], c)
	}
	return o
}

// Append adds the entries of o to m. The two matrices must have the same
// shape.
func (m *Matrix) Append(o *Matrix) error {
	if m.NRow != o.NRow || m.NCol != o.NCol {
		return &DimensionMismatchError{
			Op:       "append",
			Expected: [2]int{m.NRow, m.NCol},
			Actual:   [2]int{o.NRow, o.NCol},
		}
	}
	m.rows = append(m.rows, o.rows...)
	m.cols = append(m.cols, o.cols...)
	m.vals = append(m.vals, o.vals...)
	return nil
}

// Scale multiplies every entry by f.
func (m *Matrix) Scale(f float64) {
	for i := range m.vals {
		m.vals[i] *= f
	}
}

// ScaleRows multiplies each row i by w[i].
func (m *Matrix) ScaleRows(w []float64) error {
	if len(w) != m.NRow {
		return &DimensionMismatchError{Op: "scale rows", Expected: [2]int{m.NRow, 1}, Actual: [2]int{len(w), 1}}
	}
	for i, r := range m.rows {
		m.vals[i] *= w[r]
	}
	return nil
}

// DivideRowsBy divides each row i by w[i]. Entries in rows whose weight is
// zero are removed.
func (m *Matrix) DivideRowsBy(w []float64) error {
	if len(w) != m.NRow {
		return &DimensionMismatchError{Op: "divide rows", Expected: [2]int{m.NRow, 1}, Actual: [2]int{len(w), 1}}
	}
	m.filter(func(r, _ int, v float64) (float64, bool) {
		if w[r] == 0 {
			return 0, false
		}
		return v / w[r], true
	})
	return nil
}

// filter replaces each entry with the value returned by f, dropping it
// when f returns false.
func (m *Matrix) filter(f func(row, col int, val float64) (float64, bool)) {
	n := 0
	for i := range m.vals {
		v, ok := f(m.rows[i], m.cols[i], m.vals[i])
		if !ok {
			continue
		}
		m.rows[n], m.cols[n], m.vals[n] = m.rows[i], m.cols[i], v
		n++
	}
	m.rows, m.cols, m.vals = m.rows[:n], m.cols[:n], m.vals[:n]
}

// LowerTriangle returns the entries of m that are on or below the
// diagonal.
func (m *Matrix) LowerTriangle() *Matrix {
	o := m.Clone()
	o.filter(func(r, c int, v float64) (float64, bool) { return v, r >= c })
	return o
}

// Apply returns m·x. If ignoreNaN is true, entries whose corresponding
// element of x is NaN are skipped; otherwise NaN values propagate to the
// result.
func (m *Matrix) Apply(x []float64, ignoreNaN bool) ([]float64, error) {
	if len(x) != m.NCol {
		return nil, &DimensionMismatchError{Op: "apply", Expected: [2]int{m.NCol, 1}, Actual: [2]int{len(x), 1}}
	}
	y := make([]float64, m.NRow)
	for i, c := range m.cols {
		if ignoreNaN && math.IsNaN(x[c]) {
			continue
		}
		y[m.rows[i]] += m.vals[i] * x[c]
	}
	return y, nil
}

// ToDense returns m as a dense matrix with duplicates summed.
func (m *Matrix) ToDense() *mat.Dense {
	o := mat.NewDense(m.NRow, m.NCol, nil)
	for i, v := range m.vals {
		r, c := m.rows[i], m.cols[i]
		o.Set(r, c, o.At(r, c)+v)
	}
	return o
}

func (m *Matrix) String() string {
	return fmt.Sprintf("coo.Matrix(%dx%d, nnz=%d)", m.NRow, m.NCol, len(m.vals))
}
