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
	"os"
	"strings"

	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// NewRegularGrid creates a planar grid of nx by ny cells of size dx by dy
// whose lower left corner is at (x0, y0). Cell I and J are the column and
// row of the cell, and cell index is J*nx+I. Neighboring cells share
// vertices, and vertices are ordered counter-clockwise.
func NewRegularGrid(name string, nx, ny int, dx, dy, x0, y0 float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("gridcouple: regular grid %s: invalid size %dx%d", name, nx, ny)
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("gridcouple: regular grid %s: invalid spacing %gx%g", name, dx, dy)
	}
	g := NewGrid(name)
	g.Type = XY
	g.Coordinates = CoordXY
	for iy := 0; iy <= ny; iy++ {
		for ix := 0; ix <= nx; ix++ {
			v := &Vertex{
				Index: int64(iy*(nx+1) + ix),
				X:     x0 + float64(ix)*dx,
				Y:     y0 + float64(iy)*dy,
			}
			if _, err := g.Vertices.Add(v); err != nil {
				return nil, err
			}
		}
	}
	vi := func(ix, iy int) int64 { return int64(iy*(nx+1) + ix) }
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			c := NewCell(vi(ix, iy), vi(ix+1, iy), vi(ix+1, iy+1), vi(ix, iy+1))
			c.Index = int64(iy*nx + ix)
			c.I, c.J = int64(ix), int64(iy)
			c.NativeArea = dx * dy
			if _, err := g.AddCell(c); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// WriteShapefile writes the realized cells of g to the shapefile at path,
// which must end in ".shp". Each record carries the cell's index,
// auxiliary coordinates and native area.
func (g *Grid) WriteShapefile(path string) error {
	if !strings.HasSuffix(path, ".shp") {
		return fmt.Errorf("gridcouple: shapefile path %s must end in .shp", path)
	}
	base := strings.TrimSuffix(path, ".shp")
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
	fields := []goshp.Field{
		goshp.NumberField("index", 10),
		goshp.NumberField("i", 10),
		goshp.NumberField("j", 10),
		goshp.NumberField("k", 10),
		goshp.FloatField("area", 20, 6),
	}
	shpf, err := shp.NewEncoderFromFields(path, goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("gridcouple: creating shapefile: %v", err)
	}
	defer shpf.Close()
	for _, c := range g.Cells.Sorted() {
		p, err := g.Polygon(c)
		if err != nil {
			return err
		}
		data := []interface{}{int(c.Index), int(c.I), int(c.J), int(c.K), c.NativeArea}
		if err := shpf.EncodeFields(p, data...); err != nil {
			return fmt.Errorf("gridcouple: writing cell %d to shapefile: %v", c.Index, err)
		}
	}
	return nil
}
