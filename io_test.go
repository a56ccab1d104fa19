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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/gridcouple/internal/ncio"
)

// testGrid returns a grid with 5 cells and 8 vertices whose indices
// are not contiguous.
func testGrid(t *testing.T) *Grid {
	g := NewGrid("test")
	g.Type = XY
	g.Projection = "+proj=lcc +lat_1=33 +lat_2=45 +lat_0=40 +lon_0=-97 +x_0=0 +y_0=0 +a=6370997 +b=6370997 +units=m +no_defs"
	verts := []*Vertex{
		{Index: 0, X: 0, Y: 0},
		{Index: 1, X: 1, Y: 0},
		{Index: 2, X: 2, Y: 0},
		{Index: 5, X: 0, Y: 1},
		{Index: 6, X: 1, Y: 1},
		{Index: 7, X: 2, Y: 1.5},
		{Index: 10, X: 0.5, Y: 2},
		{Index: 11, X: 1.5, Y: 2.5},
	}
	for _, v := range verts {
		if _, err := g.Vertices.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	cells := []*Cell{
		{Index: 0, I: 0, J: 0, K: -1, NativeArea: 1, VertexRefs: []int64{0, 1, 6, 5}},
		{Index: 1, I: 1, J: 0, K: -1, NativeArea: 1.25, VertexRefs: []int64{1, 2, 7, 6}},
		{Index: 3, I: 0, J: 1, K: 2, NativeArea: 0.5, VertexRefs: []int64{5, 6, 10}},
		{Index: 4, I: 1, J: 1, K: 2, NativeArea: 0.75, VertexRefs: []int64{6, 7, 11}},
		{Index: 8, I: 2, J: 3, K: 4, NativeArea: 0.6, VertexRefs: []int64{6, 11, 10}},
	}
	for _, c := range cells {
		if _, err := g.AddCell(c); err != nil {
			t.Fatal(err)
		}
	}
	g.Cells.SetNFull(20)
	return g
}

func TestGridRoundTrip(t *testing.T) {
	g := testGrid(t)
	buf := new(ncio.Buffer)
	if err := g.WriteGrid(buf, "grid"); err != nil {
		t.Fatal(err)
	}
	g2, err := OpenGrid(buf, "grid")
	if err != nil {
		t.Fatal(err)
	}
	if g2.Name != g.Name {
		t.Errorf("name: want %s but have %s", g.Name, g2.Name)
	}
	if g2.Type != g.Type || g2.Coordinates != g.Coordinates || g2.Parameterization != g.Parameterization {
		t.Errorf("metadata: want %s but have %s", g, g2)
	}
	if g2.Projection != g.Projection {
		t.Errorf("projection: want %s but have %s", g.Projection, g2.Projection)
	}
	if g2.Cells.NFull() != 20 {
		t.Errorf("cells nfull: want 20 but have %d", g2.Cells.NFull())
	}
	if g2.Vertices.NFull() != 12 {
		t.Errorf("vertices nfull: want 12 but have %d", g2.Vertices.NFull())
	}
	if want, have := g.Vertices.Sorted(), g2.Vertices.Sorted(); !reflect.DeepEqual(want, have) {
		t.Errorf("vertices: want %v but have %v", want, have)
	}
	if want, have := g.Cells.Sorted(), g2.Cells.Sorted(); !reflect.DeepEqual(want, have) {
		t.Errorf("cells: want %v but have %v", want, have)
	}
}

func TestGridRoundTripFile(t *testing.T) {
	g, err := NewRegularGrid("regular", 3, 2, 10, 20, 100, 200)
	if err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(t.TempDir(), "grid.nc")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.WriteGrid(f, "reg"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g2, err := OpenGrid(f, "reg")
	if err != nil {
		t.Fatal(err)
	}
	if want, have := g.Cells.Sorted(), g2.Cells.Sorted(); !reflect.DeepEqual(want, have) {
		t.Errorf("cells: want %v but have %v", want, have)
	}
}

func TestGridTwoInOneFile(t *testing.T) {
	a, err := NewRegularGrid("a", 2, 2, 1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRegularGrid("b", 1, 3, 2, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	d := ncio.NewDefiner()
	for _, g := range []*Grid{a, b} {
		tk, err := g.Define(d, g.Name)
		if err != nil {
			t.Fatal(err)
		}
		d.Register(tk)
	}
	buf := new(ncio.Buffer)
	f, err := d.Create(buf)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range []*Grid{a, b} {
		g2, err := ReadGrid(f, g.Name)
		if err != nil {
			t.Fatal(err)
		}
		if g2.Cells.NRealized() != g.Cells.NRealized() {
			t.Errorf("%s: want %d cells but have %d", g.Name, g.Cells.NRealized(), g2.Cells.NRealized())
		}
	}
}

func TestGridWrongVersion(t *testing.T) {
	g := testGrid(t)
	d := ncio.NewDefiner()
	tk, err := g.Define(d, "grid")
	if err != nil {
		t.Fatal(err)
	}
	d.Register(tk)
	d.AddAttr("grid.info", "version", []int32{3})
	buf := new(ncio.Buffer)
	f, err := d.Create(buf)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ReadGrid(f, "grid")
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("want ErrUnsupportedVersion but have %v", err)
	}
}

func TestGridBadRefsStart(t *testing.T) {
	tests := []struct {
		name  string
		start []int32
	}{
		{"last", []int32{0, 4, 8, 11, 14, 99}},
		{"past end", []int32{0, 40, 8, 11, 14, 17}},
		{"decreasing", []int32{0, 8, 4, 11, 14, 17}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGrid(t)
			buf := new(ncio.Buffer)
			if err := g.WriteGrid(buf, "grid"); err != nil {
				t.Fatal(err)
			}
			f, err := cdf.Open(buf)
			if err != nil {
				t.Fatal(err)
			}
			if err := ncio.Write(f, "grid.cells.vertex_refs_start", tt.start); err != nil {
				t.Fatal(err)
			}
			_, err = ReadGrid(f, "grid")
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("want ErrDimensionMismatch but have %v", err)
			}
		})
	}
}

func TestGridEmpty(t *testing.T) {
	g := NewGrid("empty")
	_, err := g.Define(ncio.NewDefiner(), "empty")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
}
