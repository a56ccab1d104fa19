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

package hntr

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridcouple/coo"
	"github.com/spatialmodel/gridcouple/internal/ncio"
)

const datmis = -1e30

func mustGrid(t *testing.T, im, jm int, offi, dlat float64) Grid {
	g, err := NewGrid(im, jm, offi, dlat)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func mustHntr(t *testing.T, a, b Grid) *Hntr {
	h, err := New(a, b, datmis)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func ones(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = 1
	}
	return o
}

func similar(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestNewGridMalformed(t *testing.T) {
	tests := []struct {
		name       string
		im, jm     int
		offi, dlat float64
	}{
		{"im", 0, 2, 0, 60},
		{"jm", 4, -1, 0, 60},
		{"dlat", 4, 2, 0, 0},
		{"offi", 4, 2, math.NaN(), 60},
		{"overlapping rows", 4, 6, 0, 60 * 60},
		{"past the pole", 4, 4, 0, 100 * 60},
		{"edge at the pole", 4, 4, 0, 90 * 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.im, tt.jm, tt.offi, tt.dlat)
			if !errors.Is(err, ErrMalformedGrid) {
				t.Errorf("want ErrMalformedGrid but have %v", err)
			}
		})
	}
	if _, err := New(Grid{}, mustGrid(t, 1, 1, 0, 60), datmis); !errors.Is(err, ErrMalformedGrid) {
		t.Errorf("zero grid: want ErrMalformedGrid but have %v", err)
	}
}

func TestDxyp(t *testing.T) {
	g := mustGrid(t, 72, 46, 0, 4*60)
	var total float64
	for j := 0; j < g.JM(); j++ {
		total += g.Dxyp(j) * float64(g.IM())
	}
	if want := 4 * math.Pi * EarthRadius * EarthRadius; !similar(total, want, 1e-12) {
		t.Errorf("want %g but have %g", want, total)
	}
	s := g.SinEdges()
	if s[0] != -1 || s[46] != 1 {
		t.Errorf("polar edges: have %g and %g", s[0], s[46])
	}
	if want := math.Sin(-88 * math.Pi / 180); !similar(s[1], want, 1e-12) {
		t.Errorf("first interior edge: want %g but have %g", want, s[1])
	}
}

func TestEndToEnd(t *testing.T) {
	a := mustGrid(t, 2, 1, 0, 180)
	b := mustGrid(t, 1, 1, 0, 180)
	h := mustHntr(t, a, b)
	out, err := h.Regrid1([]float64{1, 1}, []float64{2, 4}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != 3 {
		t.Errorf("want [3] but have %v", out)
	}
}

func TestMatrixRowSums(t *testing.T) {
	tests := []struct {
		name string
		a, b [4]float64
	}{
		{"4x2 to 2x2", [4]float64{4, 2, 0, 90 * 60}, [4]float64{2, 2, 0, 90 * 60}},
		{"coarse to fine", [4]float64{72, 46, 0, 4 * 60}, [4]float64{144, 90, 0, 2 * 60}},
		{"offset", [4]float64{36, 24, 0.5, 8 * 60}, [4]float64{50, 30, 0.25, 6 * 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustGrid(t, int(tt.a[0]), int(tt.a[1]), tt.a[2], tt.a[3])
			b := mustGrid(t, int(tt.b[0]), int(tt.b[1]), tt.b[2], tt.b[3])
			h := mustHntr(t, a, b)
			m := coo.New(b.Size(), a.Size())
			if err := h.Matrix(m, nil, nil); err != nil {
				t.Fatal(err)
			}
			if v := m.CheckRowSums(1e-9); len(v) != 0 {
				t.Errorf("rows do not sum to 1: %v", v)
			}
			if n := len(m.SumPerRow().Elements); n != b.Size() {
				t.Errorf("want %d rows but have %d", b.Size(), n)
			}
		})
	}
}

func TestConservation(t *testing.T) {
	a := mustGrid(t, 36, 24, 0.5, 8*60)
	b := mustGrid(t, 50, 30, 0.25, 6*60)
	h := mustHntr(t, a, b)
	field := make([]float64, a.Size())
	for i := range field {
		field[i] = math.Sin(float64(i)) + 2
	}
	out, err := h.Regrid1(ones(a.Size()), field, false)
	if err != nil {
		t.Fatal(err)
	}
	var totalA, totalB float64
	for j := 0; j < a.JM(); j++ {
		for i := 0; i < a.IM(); i++ {
			totalA += field[a.Index(i, j)] * a.Dxyp(j)
		}
	}
	for j := 0; j < b.JM(); j++ {
		for i := 0; i < b.IM(); i++ {
			totalB += out[b.Index(i, j)] * b.Dxyp(j)
		}
	}
	if !similar(totalA, totalB, 1e-9) {
		t.Errorf("integral not conserved: %g != %g", totalA, totalB)
	}
}

func TestMeanPolar(t *testing.T) {
	a := mustGrid(t, 4, 2, 0, 90*60)
	b := mustGrid(t, 2, 2, 0, 90*60)
	h := mustHntr(t, a, b)
	field := []float64{5, 5, 5, 5, 1, 2, 3, 8}

	out, err := h.Regrid1(ones(8), field, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{5, 5, 1.5, 5.5}; !equal(want, out) {
		t.Errorf("without mean: want %v but have %v", want, out)
	}

	out, err = h.Regrid1(ones(8), field, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{5, 5, 3.5, 3.5}; !equal(want, out) {
		t.Errorf("with mean: want %v but have %v", want, out)
	}

	// Weights shift the mean toward the heavier cell.
	wta := []float64{1, 1, 1, 1, 1, 1, 1, 3}
	out, err = h.Regrid1(wta, field, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := (1 + 2 + 3 + 3*8) / 6.; !similar(out[2], want, 1e-12) || out[2] != out[3] {
		t.Errorf("weighted mean: want %g but have %v", want, out[2:])
	}
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !similar(a[i], b[i], 1e-12) {
			return false
		}
	}
	return true
}

func TestDateLine(t *testing.T) {
	a := mustGrid(t, 4, 1, 0, 60)
	b := mustGrid(t, 2, 1, 0.5, 60)
	h := mustHntr(t, a, b)
	out, err := h.Regrid1(ones(4), []float64{1, 2, 3, 10}, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{2.5, 5.5}; !equal(want, out) {
		t.Errorf("want %v but have %v", want, out)
	}
}

func TestMissing(t *testing.T) {
	a := mustGrid(t, 4, 1, 0, 60)
	b := mustGrid(t, 2, 1, 0, 60)
	h := mustHntr(t, a, b)
	out, err := h.Regrid1([]float64{0, 0, 1, 1}, []float64{math.NaN(), 7, 3, 5}, false)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != datmis || out[1] != 4 {
		t.Errorf("want [%g 4] but have %v", datmis, out)
	}
}

func TestRegridErrors(t *testing.T) {
	a := mustGrid(t, 4, 1, 0, 60)
	b := mustGrid(t, 2, 1, 0, 60)
	h := mustHntr(t, a, b)

	_, err := h.Regrid1([]float64{1, 1, math.NaN(), 1}, ones(4), false)
	var nan *NaNInInputError
	if !errors.As(err, &nan) || nan.Field != "wta" || nan.Index != 2 {
		t.Errorf("want NaN in wta[2] but have %v", err)
	}
	_, err = h.Regrid1(ones(4), []float64{1, math.NaN(), 1, 1}, false)
	if !errors.Is(err, ErrNaNInInput) {
		t.Errorf("want ErrNaNInInput but have %v", err)
	}
	_, err = h.Regrid1(ones(3), ones(4), false)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
	if err := h.Matrix(coo.New(2, 4), nil, ones(3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("matrix: want ErrDimensionMismatch but have %v", err)
	}
}

func TestRegrid2D(t *testing.T) {
	a := mustGrid(t, 4, 2, 0, 90*60)
	b := mustGrid(t, 2, 2, 0, 90*60)
	h := mustHntr(t, a, b)
	wta := sparse.ZerosDense(2, 4)
	field := sparse.ZerosDense(2, 4)
	for i := range wta.Elements {
		wta.Elements[i] = 1
		field.Elements[i] = float64(i)
	}
	out, err := h.Regrid(wta, field, false)
	if err != nil {
		t.Fatal(err)
	}
	if out.Shape[0] != 2 || out.Shape[1] != 2 {
		t.Fatalf("want shape [2 2] but have %v", out.Shape)
	}
	if have := out.Get(1, 0); have != 4.5 {
		t.Errorf("want 4.5 but have %g", have)
	}
	if _, err := h.Regrid(sparse.ZerosDense(4, 2), field, false); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
}

func TestMatrixClipWeights(t *testing.T) {
	a := mustGrid(t, 4, 1, 0, 60)
	b := mustGrid(t, 2, 1, 0, 60)
	h := mustHntr(t, a, b)
	m := coo.New(2, 4)
	clip := func(ijb int) bool { return ijb == 0 }
	if err := h.Matrix(m, clip, []float64{2, 1}); err != nil {
		t.Fatal(err)
	}
	rows := m.SumPerRow()
	if rows.Get(0) != 2 || rows.Get(1) != 0 {
		t.Errorf("want row sums [2 0] but have [%g %g]", rows.Get(0), rows.Get(1))
	}
}

func TestScaledMatrix(t *testing.T) {
	a := mustGrid(t, 36, 24, 0.5, 8*60)
	b := mustGrid(t, 50, 30, 0.25, 6*60)
	h := mustHntr(t, a, b)
	wta := make([]float64, a.Size())
	field := make([]float64, a.Size())
	for i := range wta {
		if i%7 != 0 {
			wta[i] = 1 + math.Cos(float64(i))
		}
		field[i] = float64(i % 13)
	}
	m, err := h.ScaledMatrix(wta)
	if err != nil {
		t.Fatal(err)
	}
	if v := m.CheckRowSums(1e-9); len(v) != 0 {
		t.Errorf("rows do not sum to 1: %v", v)
	}
	y, err := m.Apply(field, false)
	if err != nil {
		t.Fatal(err)
	}
	want, err := h.Regrid1(wta, field, false)
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range want {
		if w == datmis {
			continue
		}
		if !similar(w, y[i], 1e-9) {
			t.Errorf("cell %d: want %g but have %g", i, w, y[i])
		}
	}
}

func TestLonLatGrid(t *testing.T) {
	g := mustGrid(t, 8, 6, 0.5, 30*60)
	ll, err := g.LonLatGrid("ll")
	if err != nil {
		t.Fatal(err)
	}
	if ll.Cells.NRealized() != 48 {
		t.Errorf("want 48 cells but have %d", ll.Cells.NRealized())
	}
	if have := ll.NativeAreas().Sum(); !similar(have, 4*math.Pi*EarthRadius*EarthRadius, 1e-12) {
		t.Errorf("total area %g", have)
	}
	c, err := ll.Cells.At(int64(g.Index(0, 0)))
	if err != nil {
		t.Fatal(err)
	}
	verts, err := ll.CellVertices(c)
	if err != nil {
		t.Fatal(err)
	}
	if verts[0].X != -157.5 || verts[0].Y != -90 {
		t.Errorf("want first vertex at (-157.5, -90) but have %v", verts[0])
	}
	if a, err := ll.SignedProjArea(c, nil); err != nil || a <= 0 {
		t.Errorf("cells should be counter-clockwise: area=%g, err=%v", a, err)
	}
}

func TestGridRoundTrip(t *testing.T) {
	g := mustGrid(t, 72, 46, 0.5, 240)
	d := ncio.NewDefiner()
	tk, err := g.Define(d, "hntr.A")
	if err != nil {
		t.Fatal(err)
	}
	d.Register(tk)
	f, err := d.Create(new(ncio.Buffer))
	if err != nil {
		t.Fatal(err)
	}
	g2, err := ReadGrid(f, "hntr.A")
	if err != nil {
		t.Fatal(err)
	}
	if g2.String() != g.String() || !equal(g.SinEdges(), g2.SinEdges()) {
		t.Errorf("want %v but have %v", g, g2)
	}
}

func TestCache(t *testing.T) {
	a := mustGrid(t, 4, 2, 0, 90*60)
	b := mustGrid(t, 2, 2, 0, 90*60)
	c := NewCache(10)
	ctx := context.Background()
	h1, err := c.Get(ctx, a, b, datmis)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := c.Get(ctx, a, b, datmis)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("repeated requests should return the cached interpolator")
	}
	h3, err := c.Get(ctx, b, a, datmis)
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("different grids should not share an interpolator")
	}
	if h3.A().String() != b.String() || h3.B().String() != a.String() || h3.Datmis() != datmis {
		t.Errorf("want grids %v -> %v with datmis %g but have %v -> %v with %g",
			b, a, datmis, h3.A(), h3.B(), h3.Datmis())
	}
}
