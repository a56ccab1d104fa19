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

package coo

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// RowSumViolation is a row of an interpolation matrix whose weights do not
// sum to one.
type RowSumViolation struct {
	Row int
	Sum float64
}

// CheckRowSums returns the rows whose entries do not sum to 1 within tol,
// in ascending row order. Rows without any entries are not checked.
func (m *Matrix) CheckRowSums(tol float64) []RowSumViolation {
	sums := make(map[int]float64)
	for i, r := range m.rows {
		sums[r] += m.vals[i]
	}
	var o []RowSumViolation
	for r, s := range sums {
		if !(math.Abs(s-1) <= tol) {
			o = append(o, RowSumViolation{Row: r, Sum: s})
		}
	}
	sort.Slice(o, func(i, j int) bool { return o[i].Row < o[j].Row })
	return o
}

// Checksum logs every row of m whose weights do not sum to 1 within tol
// and returns the violations. The matrix is not modified; it is up to the
// caller to decide whether a violation is fatal.
func (m *Matrix) Checksum(name string, tol float64, log logrus.FieldLogger) []RowSumViolation {
	if log == nil {
		log = logrus.StandardLogger()
	}
	v := m.CheckRowSums(tol)
	for _, r := range v {
		log.WithFields(logrus.Fields{
			"matrix": name,
			"row":    r.Row,
			"sum":    r.Sum,
		}).Warn("row sum != 1")
	}
	return v
}

// RemoveSmallConstraints returns a copy of the constraint matrix m without
// constraints (rows) that have fewer than minRowCount variables (columns).
// Each removed row also removes the first of its variables from every
// other constraint, so removal is repeated until no row is too small.
func (m *Matrix) RemoveSmallConstraints(minRowCount int) *Matrix {
	deleteRow := make(map[int]bool)
	deleteCol := make(map[int]bool)
	skip := func(i int) bool { return deleteRow[m.rows[i]] || deleteCol[m.cols[i]] }

	rowCount := make([]int, m.NRow)
	for {
		for i := range rowCount {
			rowCount[i] = 0
		}
		for i, r := range m.rows {
			if !skip(i) {
				rowCount[r]++
			}
		}
		ndeleted := 0
		for i, r := range m.rows {
			if skip(i) {
				continue
			}
			if rowCount[r] < minRowCount {
				ndeleted++
				deleteRow[r] = true
				deleteCol[m.cols[i]] = true
			}
		}
		if ndeleted == 0 {
			break
		}
	}

	o := New(m.NRow, m.NCol)
	for i := range m.vals {
		if !skip(i) {
			o.rows = append(o.rows, m.rows[i])
			o.cols = append(o.cols, m.cols[i])
			o.vals = append(o.vals, m.vals[i])
		}
	}
	return o
}
