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

// Package gridcouple holds the polygon grid data model used to couple
// fields between grids of different resolution and topology.
package gridcouple

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Type is the topology of a grid.
type Type int

// Grid types. The numeric values are part of the file format.
const (
	Generic  Type = 0
	XY       Type = 1
	LonLat   Type = 2
	Exchange Type = 3
)

func (t Type) String() string {
	switch t {
	case Generic:
		return "GENERIC"
	case XY:
		return "XY"
	case LonLat:
		return "LONLAT"
	case Exchange:
		return "EXCHANGE"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Coordinates is the coordinate system that vertex positions are given in.
type Coordinates int

// Coordinate systems.
const (
	CoordXY     Coordinates = 0
	CoordLonLat Coordinates = 1
)

func (c Coordinates) String() string {
	switch c {
	case CoordXY:
		return "XY"
	case CoordLonLat:
		return "LONLAT"
	default:
		return fmt.Sprintf("Coordinates(%d)", int(c))
	}
}

// Parameterization specifies how field values are associated with a grid.
type Parameterization int

const (
	// L0 fields are constant within each cell.
	L0 Parameterization = 0
	// L1 fields are stored on vertices and interpolated linearly within cells.
	L1 Parameterization = 1
)

func (p Parameterization) String() string {
	switch p {
	case L0:
		return "L0"
	case L1:
		return "L1"
	default:
		return fmt.Sprintf("Parameterization(%d)", int(p))
	}
}

// Vertex is a point in the plane of a grid.
type Vertex struct {
	Index int64
	X, Y  float64
}

// NewVertex returns a vertex that will be assigned an index when it is
// added to a GridMap.
func NewVertex(x, y float64) *Vertex { return &Vertex{Index: -1, X: x, Y: y} }

func (*Vertex) kind() string { return "vertex" }
func (v *Vertex) indexPtr() *int64 { return &v.Index }
func (v *Vertex) String() string { return fmt.Sprintf("Vertex(%d: %g, %g)", v.Index, v.X, v.Y) }
func (v *Vertex) point() geom.Point { return geom.Point{X: v.X, Y: v.Y} }

// Cell is a polygonal grid cell. Cells refer to their vertices by index;
// the vertices themselves are owned by the Grid.
type Cell struct {
	Index int64

	// I, J and K are auxiliary coordinates, for example the row and column
	// of a structured grid or, for exchange grids, the indices of the two
	// cells that overlap to form this one. Unused coordinates are -1.
	I, J, K int64

	// NativeArea is the area of the cell in its original, unprojected
	// coordinate system.
	NativeArea float64

	// VertexRefs are the indices of the vertices bounding the cell,
	// in order. The ring is closed implicitly.
	VertexRefs []int64
}

// NewCell returns a cell bounded by the given vertices that will be
// assigned an index when it is added to a GridMap.
func NewCell(vertexRefs ...int64) *Cell {
	return &Cell{Index: -1, I: -1, J: -1, K: -1, VertexRefs: vertexRefs}
}

func (*Cell) kind() string { return "cell" }
func (c *Cell) indexPtr() *int64 { return &c.Index }

func (c *Cell) String() string {
	return fmt.Sprintf("Cell(%d: ijk=(%d, %d, %d), native_area=%g, vertices=%v)",
		c.Index, c.I, c.J, c.K, c.NativeArea, c.VertexRefs)
}

// Grid is a named collection of cells and the vertices that bound them.
type Grid struct {
	Name             string
	Type             Type
	Coordinates      Coordinates
	Parameterization Parameterization

	// Projection is a proj4 string. For grids whose vertices are in
	// lon/lat it specifies the projection used to compute planar areas.
	Projection string

	Vertices *GridMap[*Vertex]
	Cells    *GridMap[*Cell]

	// Log receives status messages. It defaults to logrus.StandardLogger().
	Log logrus.FieldLogger
}

// NewGrid returns an empty generic grid with planar coordinates and
// constant-per-cell parameterization.
func NewGrid(name string) *Grid {
	return &Grid{
		Name:     name,
		Vertices: NewGridMap[*Vertex](),
		Cells:    NewGridMap[*Cell](),
		Log:      logrus.StandardLogger(),
	}
}

func (g *Grid) log() logrus.FieldLogger {
	if g.Log == nil {
		return logrus.StandardLogger()
	}
	return g.Log
}

// AddVertex adds a vertex at (x, y) with the next available index.
func (g *Grid) AddVertex(x, y float64) (*Vertex, error) {
	return g.Vertices.Add(NewVertex(x, y))
}

// AddCell adds c to the grid. Every vertex that c refers to must already
// be present.
func (g *Grid) AddCell(c *Cell) (*Cell, error) {
	for _, vi := range c.VertexRefs {
		if !g.Vertices.Has(vi) {
			return nil, fmt.Errorf("gridcouple: adding cell %d: %w", c.Index, &NotFoundError{Kind: "vertex", Index: vi})
		}
	}
	return g.Cells.Add(c)
}

// CellVertices resolves the vertex references of c.
func (g *Grid) CellVertices(c *Cell) ([]*Vertex, error) {
	o := make([]*Vertex, len(c.VertexRefs))
	for i, vi := range c.VertexRefs {
		v, err := g.Vertices.At(vi)
		if err != nil {
			return nil, fmt.Errorf("gridcouple: cell %d: %w", c.Index, err)
		}
		o[i] = v
	}
	return o, nil
}

// NData returns the dimension of the vector space of fields on the grid.
func (g *Grid) NData() int64 {
	switch g.Parameterization {
	case L0:
		return g.Cells.NFull()
	case L1:
		return g.Vertices.NFull()
	default:
		panic(fmt.Errorf("gridcouple: invalid parameterization %d", g.Parameterization))
	}
}

// SignedProjArea returns the signed area of c after transforming its
// vertices with t, which may be nil. The area is positive when the
// vertices are ordered counter-clockwise.
func (g *Grid) SignedProjArea(c *Cell, t proj.Transformer) (float64, error) {
	verts, err := g.CellVertices(c)
	if err != nil {
		return math.NaN(), err
	}
	if len(verts) == 0 {
		return 0, nil
	}
	pts := make([]geom.Point, len(verts))
	for i, v := range verts {
		pts[i] = v.point()
		if t != nil {
			pts[i].X, pts[i].Y, err = t(v.X, v.Y)
			if err != nil {
				return math.NaN(), fmt.Errorf("gridcouple: projecting vertex %d: %v", v.Index, err)
			}
		}
	}
	var area float64
	prev := pts[len(pts)-1]
	for _, p := range pts {
		area += prev.X*p.Y - p.X*prev.Y
		prev = p
	}
	return area * 0.5, nil
}

// ProjArea returns the unsigned area of c after transforming its vertices
// with t, which may be nil.
func (g *Grid) ProjArea(c *Cell, t proj.Transformer) (float64, error) {
	a, err := g.SignedProjArea(c, t)
	return math.Abs(a), err
}

// Projector returns a transformer from lon/lat to the grid's Projection.
func (g *Grid) Projector() (proj.Transformer, error) {
	if g.Projection == "" {
		return nil, fmt.Errorf("gridcouple: grid %s has no projection", g.Name)
	}
	dst, err := proj.Parse(g.Projection)
	if err != nil {
		return nil, fmt.Errorf("gridcouple: parsing projection of grid %s: %v", g.Name, err)
	}
	src, err := proj.Parse("+proj=longlat")
	if err != nil {
		return nil, err
	}
	return src.NewTransform(dst)
}

// NativeAreas returns the native area of every realized cell, indexed by
// cell index in an array of length Cells.NFull().
func (g *Grid) NativeAreas() *sparse.SparseArray {
	o := sparse.ZerosSparse(int(g.Cells.NFull()))
	g.Cells.Each(func(c *Cell) {
		o.Set(c.NativeArea, int(c.Index))
	})
	return o
}

// Polygon returns the closed polygon bounding c.
func (g *Grid) Polygon(c *Cell) (geom.Polygon, error) {
	verts, err := g.CellVertices(c)
	if err != nil {
		return nil, err
	}
	path := make(geom.Path, 0, len(verts)+1)
	for _, v := range verts {
		path = append(path, v.point())
	}
	if len(verts) > 0 {
		path = append(path, verts[0].point())
	}
	return geom.Polygon{path}, nil
}

// FilterCells removes the cells for which keep returns false, along with
// any vertices that are no longer referenced by a remaining cell. The full
// index space sizes are frozen beforehand so that the grid still describes
// the original problem.
func (g *Grid) FilterCells(keep func(*Cell) bool) {
	ncells, nverts := g.Cells.NRealized(), g.Vertices.NRealized()
	g.Cells.SetNFull(g.Cells.NFull())
	g.Vertices.SetNFull(g.Vertices.NFull())

	g.Cells.Filter(keep)
	g.Cells.UpdateMaxIndex()

	used := make(map[int64]struct{})
	g.Cells.Each(func(c *Cell) {
		for _, vi := range c.VertexRefs {
			used[vi] = struct{}{}
		}
	})
	g.Vertices.Filter(func(v *Vertex) bool {
		_, ok := used[v.Index]
		return ok
	})
	g.Vertices.UpdateMaxIndex()

	g.log().WithFields(logrus.Fields{
		"grid":            g.Name,
		"cells_before":    ncells,
		"cells_after":     g.Cells.NRealized(),
		"vertices_before": nverts,
		"vertices_after":  g.Vertices.NRealized(),
	}).Info("filtered grid cells")
}

// Clear removes all cells and vertices.
func (g *Grid) Clear() {
	g.Cells.Clear()
	g.Vertices.Clear()
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%s: type=%s, coordinates=%s, parameterization=%s, %s, %s)",
		g.Name, g.Type, g.Coordinates, g.Parameterization, g.Vertices, g.Cells)
}
