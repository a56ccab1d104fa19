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

// Package hntr conservatively regrids fields between regular
// latitude-longitude grids by computing the overlap of the cells of two
// grids separately along each axis.
package hntr

import (
	"fmt"
	"math"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/gridcouple"
	"github.com/spatialmodel/gridcouple/internal/ncio"
)

// EarthRadius is the radius of the Earth in meters used to compute
// cell areas.
const EarthRadius = 6371000.

// Grid describes a regular latitude-longitude grid covering the globe.
// Grids are immutable; use NewGrid to create one.
type Grid struct {
	im, jm int
	offi   float64
	dlat   float64
	sin    []float64 // sine of latitude of the northern edge of each row; sin[0] = -1
	dxyp   []float64
}

// NewGrid returns a grid with im cells in the east-west direction and jm
// cells in the north-south direction. offi is the number (fraction) of
// cells from the International Date Line to the western edge of the first
// cell, and dlat is the height in minutes of latitude of non-polar cells.
// The polar rows absorb whatever latitude the other rows do not cover.
func NewGrid(im, jm int, offi, dlat float64) (Grid, error) {
	if im <= 0 {
		return Grid{}, &MalformedGridError{Param: "im", Value: float64(im), Reason: "must be > 0"}
	}
	if jm <= 0 {
		return Grid{}, &MalformedGridError{Param: "jm", Value: float64(jm), Reason: "must be > 0"}
	}
	if math.IsNaN(offi) || math.IsInf(offi, 0) {
		return Grid{}, &MalformedGridError{Param: "offi", Value: offi, Reason: "must be finite"}
	}
	if !(dlat > 0) || math.IsInf(dlat, 0) {
		return Grid{}, &MalformedGridError{Param: "dlat", Value: dlat, Reason: "must be finite and > 0"}
	}
	if jm > 1 && dlat*(0.5*float64(jm)-1) >= 90*60 {
		return Grid{}, &MalformedGridError{Param: "dlat", Value: dlat,
			Reason: "interior latitude edges reach past the poles"}
	}
	g := Grid{im: im, jm: jm, offi: offi, dlat: dlat}
	g.sin = sinEdges(jm, dlat)
	for j := 1; j <= jm; j++ {
		if !(g.sin[j] > g.sin[j-1]) {
			return Grid{}, &MalformedGridError{Param: "dlat", Value: dlat,
				Reason: fmt.Sprintf("latitude edges are not increasing at row %d", j)}
		}
	}
	dlon := 2 * math.Pi / float64(im)
	g.dxyp = make([]float64, jm)
	for j := range g.dxyp {
		g.dxyp[j] = dlon * EarthRadius * EarthRadius * (g.sin[j+1] - g.sin[j])
	}
	return g, nil
}

// sinEdges returns the sines of the latitudes of the jm+1 row edges.
func sinEdges(jm int, dlat float64) []float64 {
	s := make([]float64, jm+1)
	// Convert minutes to radians.
	r := dlat * 2 * math.Pi / (360 * 60)
	s[0] = -1
	for j := 1; j < jm; j++ {
		s[j] = math.Sin(r * (float64(j) - 0.5*float64(jm)))
	}
	s[jm] = 1
	return s
}

// IM returns the number of cells in the east-west direction.
func (g Grid) IM() int { return g.im }

// JM returns the number of cells in the north-south direction.
func (g Grid) JM() int { return g.jm }

// Offi returns the offset of the western edge of the first cell from
// the date line, in cells.
func (g Grid) Offi() float64 { return g.offi }

// Dlat returns the height of non-polar cells in minutes of latitude.
func (g Grid) Dlat() float64 { return g.dlat }

// Size returns the number of cells in the grid.
func (g Grid) Size() int { return g.im * g.jm }

// Dxyp returns the area in square meters of a cell in 0-based row j.
func (g Grid) Dxyp(j int) float64 { return g.dxyp[j] }

// SinEdges returns the sines of the latitudes of the row edges, from
// south to north.
func (g Grid) SinEdges() []float64 { return append([]float64(nil), g.sin...) }

// Index returns the 0-based index of the cell in 0-based column i and
// row j. Fields on the grid are stored with i varying fastest.
func (g Grid) Index(i, j int) int { return j*g.im + i }

func (g Grid) String() string {
	return fmt.Sprintf("hntr.Grid(im=%d, jm=%d, offi=%g, dlat=%g)", g.im, g.jm, g.offi, g.dlat)
}

// LonLatGrid realizes g as a polygon grid in lon/lat coordinates. Cell
// I and J are the 0-based column and row, cell indices follow Index, and
// native areas are given by Dxyp.
func (g Grid) LonLatGrid(name string) (*gridcouple.Grid, error) {
	o := gridcouple.NewGrid(name)
	o.Type = gridcouple.LonLat
	o.Coordinates = gridcouple.CoordLonLat
	o.Parameterization = gridcouple.L0

	lat := make([]float64, g.jm+1)
	for j, s := range g.sin {
		lat[j] = math.Asin(s) * 180 / math.Pi
	}
	dlon := 360 / float64(g.im)
	vi := func(i, j int) int64 { return int64(j*(g.im+1) + i) }
	for j := 0; j <= g.jm; j++ {
		for i := 0; i <= g.im; i++ {
			v := &gridcouple.Vertex{
				Index: vi(i, j),
				X:     -180 + (float64(i)+g.offi)*dlon,
				Y:     lat[j],
			}
			if _, err := o.Vertices.Add(v); err != nil {
				return nil, err
			}
		}
	}
	for j := 0; j < g.jm; j++ {
		for i := 0; i < g.im; i++ {
			c := gridcouple.NewCell(vi(i, j), vi(i+1, j), vi(i+1, j+1), vi(i, j+1))
			c.Index = int64(g.Index(i, j))
			c.I, c.J = int64(i), int64(j)
			c.NativeArea = g.dxyp[j]
			if _, err := o.AddCell(c); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

type gridTicket struct{ vname string }

func (t gridTicket) Write(f *cdf.File) error {
	return ncio.Write(f, t.vname+".info", []int32{0})
}

// Define declares a variable that stores g under the name vname.
func (g Grid) Define(d *ncio.Definer, vname string) (ncio.Ticket, error) {
	if err := d.AddDim("one", 1); err != nil {
		return nil, err
	}
	info := vname + ".info"
	if err := d.AddVar(info, []string{"one"}, []int32{0}); err != nil {
		return nil, err
	}
	d.AddAttr(info, "im", []int32{int32(g.im)})
	d.AddAttr(info, "jm", []int32{int32(g.jm)})
	d.AddAttr(info, "offi", []float64{g.offi})
	d.AddAttr(info, "dlat", []float64{g.dlat})
	return gridTicket{vname: vname}, nil
}

// ReadGrid reads a grid stored by Define.
func ReadGrid(f *cdf.File, vname string) (Grid, error) {
	info := vname + ".info"
	im, err := ncio.AttrInt(f, info, "im")
	if err != nil {
		return Grid{}, fmt.Errorf("hntr: reading grid %s: %v", vname, err)
	}
	jm, err := ncio.AttrInt(f, info, "jm")
	if err != nil {
		return Grid{}, fmt.Errorf("hntr: reading grid %s: %v", vname, err)
	}
	offi, err := ncio.AttrFloat64(f, info, "offi")
	if err != nil {
		return Grid{}, fmt.Errorf("hntr: reading grid %s: %v", vname, err)
	}
	dlat, err := ncio.AttrFloat64(f, info, "dlat")
	if err != nil {
		return Grid{}, fmt.Errorf("hntr: reading grid %s: %v", vname, err)
	}
	return NewGrid(int(im), int(jm), offi, dlat)
}
