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
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcouple/coo"
)

// indexedCell is a cell polygon that can be stored in an rtree.
type indexedCell struct {
	geom.Polygon
	c *Cell
}

// NewExchangeGrid returns a grid whose cells are the non-empty overlaps
// between the cells of a and b, which must share a coordinate system.
// Each exchange cell's I and J are the indices of the cells of a and b that
// overlap to form it, and its native area is the area of the overlap.
// Overlaps with an area not greater than minArea are skipped.
func NewExchangeGrid(name string, a, b *Grid, minArea float64) (*Grid, error) {
	if a.Coordinates != b.Coordinates {
		return nil, fmt.Errorf("gridcouple: exchange grid %s: grid %s has %s coordinates but grid %s has %s",
			name, a.Name, a.Coordinates, b.Name, b.Coordinates)
	}
	x := NewGrid(name)
	x.Type = Exchange
	x.Coordinates = a.Coordinates
	x.Projection = a.Projection
	x.Log = a.log()

	index := rtree.NewTree(25, 50)
	for _, c := range b.Cells.Sorted() {
		p, err := b.Polygon(c)
		if err != nil {
			return nil, err
		}
		index.Insert(&indexedCell{Polygon: p, c: c})
	}

	vertexIndex := make(map[geom.Point]int64)
	addVertex := func(p geom.Point) (int64, error) {
		if i, ok := vertexIndex[p]; ok {
			return i, nil
		}
		v, err := x.AddVertex(p.X, p.Y)
		if err != nil {
			return -1, err
		}
		vertexIndex[p] = v.Index
		return v.Index, nil
	}

	for _, ca := range a.Cells.Sorted() {
		pa, err := a.Polygon(ca)
		if err != nil {
			return nil, err
		}
		candidates := index.SearchIntersect(pa.Bounds())
		cbs := make([]*indexedCell, len(candidates))
		for i, cI := range candidates {
			cbs[i] = cI.(*indexedCell)
		}
		sort.Slice(cbs, func(i, j int) bool { return cbs[i].c.Index < cbs[j].c.Index })

		for _, cb := range cbs {
			for _, ring := range pa.Intersection(cb.Polygon) {
				area := geom.Polygon{ring}.Area()
				if area <= minArea {
					continue
				}
				cell := NewCell()
				cell.I, cell.J = ca.Index, cb.c.Index
				cell.NativeArea = area
				// Drop the closing point; cell rings are closed implicitly.
				for _, p := range ring[:len(ring)-1] {
					vi, err := addVertex(p)
					if err != nil {
						return nil, err
					}
					cell.VertexRefs = append(cell.VertexRefs, vi)
				}
				if _, err := x.AddCell(cell); err != nil {
					return nil, err
				}
			}
		}
	}
	x.log().WithFields(logrus.Fields{
		"grid":     name,
		"a":        a.Name,
		"b":        b.Name,
		"cells":    x.Cells.NRealized(),
		"vertices": x.Vertices.NRealized(),
	}).Info("built exchange grid")
	return x, nil
}

// Overlap returns the overlap matrix of an exchange grid: entry (i, j) is
// the area shared by cell i of the first grid and cell j of the second.
// nrow and ncol are the full index space sizes of the two grids.
func (g *Grid) Overlap(nrow, ncol int) (*coo.Matrix, error) {
	if g.Type != Exchange {
		return nil, fmt.Errorf("gridcouple: grid %s is of type %s, not EXCHANGE", g.Name, g.Type)
	}
	m := coo.New(nrow, ncol)
	for _, c := range g.Cells.Sorted() {
		if err := m.AddChecked(int(c.I), int(c.J), c.NativeArea); err != nil {
			return nil, fmt.Errorf("gridcouple: exchange cell %d: %w", c.Index, err)
		}
	}
	m.SumDuplicates()
	return m, nil
}
