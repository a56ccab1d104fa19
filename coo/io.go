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
	"fmt"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/gridcouple/internal/ncio"
)

type ticket struct {
	vname      string
	rows, cols []int32
	vals       []float64
}

// Define declares the variables needed to store m under the prefix vname
// and returns a ticket that writes them. The matrix is snapshotted when
// Define is called. Empty matrices cannot be stored.
func (m *Matrix) Define(d *ncio.Definer, vname string) (ncio.Ticket, error) {
	if m.Len() == 0 {
		return nil, fmt.Errorf("coo: writing %s: %w", vname,
			&DimensionMismatchError{Op: "define", Expected: [2]int{1, 1}, Actual: [2]int{0, 0}})
	}
	t := &ticket{
		vname: vname,
		rows:  make([]int32, m.Len()),
		cols:  make([]int32, m.Len()),
		vals:  append([]float64(nil), m.vals...),
	}
	for i := range m.vals {
		t.rows[i] = int32(m.rows[i])
		t.cols[i] = int32(m.cols[i])
	}
	nnz := vname + ".nnz"
	if err := d.AddDim("one", 1); err != nil {
		return nil, err
	}
	if err := d.AddDim(nnz, m.Len()); err != nil {
		return nil, err
	}
	for _, v := range []struct {
		name string
		dims []string
		zero interface{}
	}{
		{vname + ".info", []string{"one"}, []int32{0}},
		{vname + ".rows", []string{nnz}, []int32{0}},
		{vname + ".cols", []string{nnz}, []int32{0}},
		{vname + ".vals", []string{nnz}, []float64{0}},
	} {
		if err := d.AddVar(v.name, v.dims, v.zero); err != nil {
			return nil, err
		}
	}
	d.AddAttr(vname+".info", "nrow", []int32{int32(m.NRow)})
	d.AddAttr(vname+".info", "ncol", []int32{int32(m.NCol)})
	return t, nil
}

// Write implements ncio.Ticket.
func (t *ticket) Write(f *cdf.File) error {
	if err := ncio.Write(f, t.vname+".info", []int32{0}); err != nil {
		return err
	}
	if err := ncio.Write(f, t.vname+".rows", t.rows); err != nil {
		return err
	}
	if err := ncio.Write(f, t.vname+".cols", t.cols); err != nil {
		return err
	}
	return ncio.Write(f, t.vname+".vals", t.vals)
}

// ReadMatrix reads the matrix stored under the prefix vname.
func ReadMatrix(f *cdf.File, vname string) (*Matrix, error) {
	nrow, err := ncio.AttrInt(f, vname+".info", "nrow")
	if err != nil {
		return nil, fmt.Errorf("coo: reading %s: %v", vname, err)
	}
	ncol, err := ncio.AttrInt(f, vname+".info", "ncol")
	if err != nil {
		return nil, fmt.Errorf("coo: reading %s: %v", vname, err)
	}
	rows, err := ncio.ReadInt32(f, vname+".rows", -1)
	if err != nil {
		return nil, fmt.Errorf("coo: reading %s: %w", vname, err)
	}
	cols, err := ncio.ReadInt32(f, vname+".cols", len(rows))
	if err != nil {
		return nil, fmt.Errorf("coo: reading %s: %w", vname, err)
	}
	vals, err := ncio.ReadFloat64(f, vname+".vals", len(rows))
	if err != nil {
		return nil, fmt.Errorf("coo: reading %s: %w", vname, err)
	}
	m := New(int(nrow), int(ncol))
	for i, v := range vals {
		if err := m.AddChecked(int(rows[i]), int(cols[i]), v); err != nil {
			return nil, fmt.Errorf("coo: reading %s: %w", vname, err)
		}
	}
	return m, nil
}
