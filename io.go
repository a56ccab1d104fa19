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

package gridcouple

import (
	"fmt"
	"math"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/gridcouple/internal/ncio"
)

// Version is the grid file format version written by this package.
// Files with any other version are rejected on read.
const Version = 2

const (
	typeComment             = "0=GENERIC, 1=XY, 2=LONLAT, 3=EXCHANGE"
	coordinatesComment      = "0=XY, 1=LONLAT"
	parameterizationComment = "0=L0 (constant per cell), 1=L1 (linear on vertices)"
)

// gridTicket holds a snapshot of a grid, flattened into the arrays that
// are written to the file.
type gridTicket struct {
	vname     string
	vertIndex []int32
	vertXY    []float64
	cellIndex []int32
	cellIJK   []int32
	cellArea  []float64
	refs      []int32
	refsStart []int32
}

// Define declares the variables needed to store g under the prefix vname
// and returns a ticket that writes them once the file has been created.
// The grid is snapshotted when Define is called.
func (g *Grid) Define(d *ncio.Definer, vname string) (ncio.Ticket, error) {
	t, err := g.flatten(vname)
	if err != nil {
		return nil, err
	}
	nv, nc := len(t.vertIndex), len(t.cellIndex)
	if nv == 0 {
		return nil, fmt.Errorf("gridcouple: writing grid %s: %w", g.Name,
			&DimensionMismatchError{Name: "vertices", Expected: 1, Actual: 0})
	}
	if nc == 0 {
		return nil, fmt.Errorf("gridcouple: writing grid %s: %w", g.Name,
			&DimensionMismatchError{Name: "cells", Expected: 1, Actual: 0})
	}
	if len(t.refs) == 0 {
		return nil, fmt.Errorf("gridcouple: writing grid %s: %w", g.Name,
			&DimensionMismatchError{Name: "vertex_refs", Expected: 1, Actual: 0})
	}

	dims := []struct {
		name string
		n    int
	}{
		{"one", 1},
		{"two", 2},
		{"three", 3},
		{vname + ".vertices.nrealized", nv},
		{vname + ".cells.nrealized", nc},
		{vname + ".cells.nrealized_plus1", nc + 1},
		{vname + ".cells.nvertex_refs", len(t.refs)},
	}
	for _, dim := range dims {
		if err := d.AddDim(dim.name, dim.n); err != nil {
			return nil, err
		}
	}

	vars := []struct {
		name string
		dims []string
		zero interface{}
	}{
		{vname + ".info", []string{"one"}, []int32{0}},
		{vname + ".vertices.index", []string{vname + ".vertices.nrealized"}, []int32{0}},
		{vname + ".vertices.xy", []string{vname + ".vertices.nrealized", "two"}, []float64{0}},
		{vname + ".cells.index", []string{vname + ".cells.nrealized"}, []int32{0}},
		{vname + ".cells.ijk", []string{vname + ".cells.nrealized", "three"}, []int32{0}},
		{vname + ".cells.native_area", []string{vname + ".cells.nrealized"}, []float64{0}},
		{vname + ".cells.vertex_refs", []string{vname + ".cells.nvertex_refs"}, []int32{0}},
		{vname + ".cells.vertex_refs_start", []string{vname + ".cells.nrealized_plus1"}, []int32{0}},
	}
	for _, v := range vars {
		if err := d.AddVar(v.name, v.dims, v.zero); err != nil {
			return nil, err
		}
	}

	info := vname + ".info"
	if g.Name != "" {
		d.AddAttr(info, "name", g.Name)
	}
	d.AddAttr(info, "version", []int32{Version})
	d.AddAttr(info, "type", []int32{int32(g.Type)})
	d.AddAttr(info, "type.comment", typeComment)
	d.AddAttr(info, "coordinates", []int32{int32(g.Coordinates)})
	d.AddAttr(info, "coordinates.comment", coordinatesComment)
	d.AddAttr(info, "parameterization", []int32{int32(g.Parameterization)})
	d.AddAttr(info, "parameterization.comment", parameterizationComment)
	if g.Coordinates == CoordXY && g.Projection != "" {
		d.AddAttr(info, "projection", g.Projection)
	}
	// Classic NetCDF has no 64-bit integers.
	d.AddAttr(info, "cells.nfull", []float64{float64(g.Cells.NFull())})
	d.AddAttr(info, "vertices.nfull", []float64{float64(g.Vertices.NFull())})
	return t, nil
}

func (g *Grid) flatten(vname string) (*gridTicket, error) {
	t := &gridTicket{vname: vname}
	verts := g.Vertices.Sorted()
	t.vertIndex = make([]int32, len(verts))
	t.vertXY = make([]float64, 2*len(verts))
	for i, v := range verts {
		idx, err := toInt32("vertex index", v.Index)
		if err != nil {
			return nil, err
		}
		t.vertIndex[i] = idx
		t.vertXY[2*i] = v.X
		t.vertXY[2*i+1] = v.Y
	}

	cells := g.Cells.Sorted()
	t.cellIndex = make([]int32, len(cells))
	t.cellIJK = make([]int32, 3*len(cells))
	t.cellArea = make([]float64, len(cells))
	t.refsStart = make([]int32, len(cells)+1)
	for i, c := range cells {
		var err error
		if t.cellIndex[i], err = toInt32("cell index", c.Index); err != nil {
			return nil, err
		}
		for k, x := range [3]int64{c.I, c.J, c.K} {
			if t.cellIJK[3*i+k], err = toInt32("cell ijk", x); err != nil {
				return nil, err
			}
		}
		t.cellArea[i] = c.NativeArea
		t.refsStart[i] = int32(len(t.refs))
		for _, vi := range c.VertexRefs {
			ref, err := toInt32("vertex reference", vi)
			if err != nil {
				return nil, err
			}
			t.refs = append(t.refs, ref)
		}
	}
	t.refsStart[len(cells)] = int32(len(t.refs))
	return t, nil
}

func toInt32(name string, v int64) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("gridcouple: %s %d does not fit in a 32-bit integer", name, v)
	}
	return int32(v), nil
}

// Write implements ncio.Ticket.
func (t *gridTicket) Write(f *cdf.File) error {
	vars := []struct {
		name string
		data interface{}
	}{
		{".info", []int32{Version}},
		{".vertices.index", t.vertIndex},
		{".vertices.xy", t.vertXY},
		{".cells.index", t.cellIndex},
		{".cells.ijk", t.cellIJK},
		{".cells.native_area", t.cellArea},
		{".cells.vertex_refs", t.refs},
		{".cells.vertex_refs_start", t.refsStart},
	}
	for _, v := range vars {
		if err := ncio.Write(f, t.vname+v.name, v.data); err != nil {
			return fmt.Errorf("gridcouple: writing grid %s: %v", t.vname, err)
		}
	}
	return nil
}

// ReadGrid reads the grid stored under the prefix vname.
func ReadGrid(f *cdf.File, vname string) (*Grid, error) {
	info := vname + ".info"
	version, err := ncio.AttrInt(f, info, "version")
	if err != nil {
		return nil, fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
	}
	if version != Version {
		return nil, &UnsupportedVersionError{Name: vname, Expected: Version, Actual: version}
	}

	g := NewGrid(vname)
	if name, err := ncio.AttrString(f, info, "name"); err == nil {
		g.Name = name
	}
	enums := []struct {
		attr string
		max  int64
		set  func(int64)
	}{
		{"type", int64(Exchange), func(v int64) { g.Type = Type(v) }},
		{"coordinates", int64(CoordLonLat), func(v int64) { g.Coordinates = Coordinates(v) }},
		{"parameterization", int64(L1), func(v int64) { g.Parameterization = Parameterization(v) }},
	}
	for _, e := range enums {
		v, err := ncio.AttrInt(f, info, e.attr)
		if err != nil {
			return nil, fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
		}
		if v < 0 || v > e.max {
			return nil, fmt.Errorf("gridcouple: reading grid %s: invalid %s %d", vname, e.attr, v)
		}
		e.set(v)
	}
	if p, err := ncio.AttrString(f, info, "projection"); err == nil {
		g.Projection = p
	}
	cellsNFull, err := ncio.AttrInt(f, info, "cells.nfull")
	if err != nil {
		return nil, fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
	}
	vertsNFull, err := ncio.AttrInt(f, info, "vertices.nfull")
	if err != nil {
		return nil, fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
	}

	if err := readVertices(f, vname, g); err != nil {
		return nil, err
	}
	if err := readCells(f, vname, g); err != nil {
		return nil, err
	}
	g.Cells.SetNFull(cellsNFull)
	g.Vertices.SetNFull(vertsNFull)
	return g, nil
}

func readVertices(f *cdf.File, vname string, g *Grid) error {
	index, err := ncio.ReadInt32(f, vname+".vertices.index", -1)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
	}
	xy, err := ncio.ReadFloat64(f, vname+".vertices.xy", len(index), 2)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %w", vname, err)
	}
	for i, idx := range index {
		v := &Vertex{Index: int64(idx), X: xy[2*i], Y: xy[2*i+1]}
		if _, err := g.Vertices.Add(v); err != nil {
			return fmt.Errorf("gridcouple: reading grid %s: %w", vname, err)
		}
	}
	return nil
}

func readCells(f *cdf.File, vname string, g *Grid) error {
	index, err := ncio.ReadInt32(f, vname+".cells.index", -1)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
	}
	nc := len(index)
	ijk, err := ncio.ReadInt32(f, vname+".cells.ijk", nc, 3)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %w", vname, err)
	}
	area, err := ncio.ReadFloat64(f, vname+".cells.native_area", nc)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %w", vname, err)
	}
	refs, err := ncio.ReadInt32(f, vname+".cells.vertex_refs", -1)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %v", vname, err)
	}
	start, err := ncio.ReadInt32(f, vname+".cells.vertex_refs_start", nc+1)
	if err != nil {
		return fmt.Errorf("gridcouple: reading grid %s: %w", vname, err)
	}
	if start[0] != 0 {
		return fmt.Errorf("gridcouple: reading grid %s: %w", vname,
			&DimensionMismatchError{Name: "vertex_refs_start[0]", Expected: 0, Actual: int(start[0])})
	}
	if int(start[nc]) != len(refs) {
		return fmt.Errorf("gridcouple: reading grid %s: %w", vname,
			&DimensionMismatchError{Name: "vertex_refs", Expected: int(start[nc]), Actual: len(refs)})
	}
	for i := 1; i <= nc; i++ {
		if start[i] < start[i-1] || int(start[i]) > len(refs) {
			return fmt.Errorf("gridcouple: reading grid %s: %w", vname,
				&DimensionMismatchError{Name: fmt.Sprintf("vertex_refs_start[%d]", i), Expected: len(refs), Actual: int(start[i])})
		}
	}
	for i, idx := range index {
		c := &Cell{
			Index:      int64(idx),
			I:          int64(ijk[3*i]),
			J:          int64(ijk[3*i+1]),
			K:          int64(ijk[3*i+2]),
			NativeArea: area[i],
			VertexRefs: make([]int64, start[i+1]-start[i]),
		}
		for j, r := range refs[start[i]:start[i+1]] {
			c.VertexRefs[j] = int64(r)
		}
		if _, err := g.AddCell(c); err != nil {
			return fmt.Errorf("gridcouple: reading grid %s: %w", vname, err)
		}
	}
	return nil
}

// WriteGrid writes g to rw as a NetCDF file under the prefix vname.
func (g *Grid) WriteGrid(rw cdf.ReaderWriterAt, vname string) error {
	d := ncio.NewDefiner()
	t, err := g.Define(d, vname)
	if err != nil {
		return err
	}
	d.Register(t)
	_, err = d.Create(rw)
	return err
}

// OpenGrid reads the grid stored under the prefix vname in the NetCDF
// file rw.
func OpenGrid(rw cdf.ReaderWriterAt, vname string) (*Grid, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("gridcouple: opening grid file: %v", err)
	}
	return ReadGrid(f, vname)
}
