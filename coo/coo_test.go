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
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/spatialmodel/gridcouple/internal/ncio"
)

func TestSumDuplicates(t *testing.T) {
	m := New(3, 3)
	m.Add(2, 1, 1)
	m.Add(0, 2, 3)
	m.Add(2, 1, 2)
	m.Add(0, 0, 1)
	m.Add(1, 1, 5)
	m.Add(1, 1, -5)
	m.SumDuplicates()
	want := []Entry{
		{Row: 0, Col: 0, Val: 1},
		{Row: 0, Col: 2, Val: 3},
		{Row: 1, Col: 1, Val: 0},
		{Row: 2, Col: 1, Val: 3},
	}
	if have := m.Entries(); !reflect.DeepEqual(want, have) {
		t.Errorf("want %v but have %v", want, have)
	}
}

func TestAddOutOfRange(t *testing.T) {
	m := New(2, 3)
	err := m.AddChecked(2, 0, 1)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("want ErrOutOfRange but have %v", err)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Add should panic")
			}
		}()
		m.Add(0, 3, 1)
	}()
	if m.Len() != 0 {
		t.Errorf("want no entries but have %d", m.Len())
	}
}

func TestTransposeMultiply(t *testing.T) {
	a := New(2, 3)
	a.Add(0, 0, 1)
	a.Add(0, 2, 2)
	a.Add(1, 1, 3)
	b := New(3, 2)
	b.Add(0, 1, 4)
	b.Add(1, 0, 5)
	b.Add(2, 1, 6)

	p, err := Multiply(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{
		{Row: 0, Col: 1, Val: 1*4 + 2*6},
		{Row: 1, Col: 0, Val: 15},
	}
	if have := p.Entries(); !reflect.DeepEqual(want, have) {
		t.Errorf("want %v but have %v", want, have)
	}

	if _, err := Multiply(a, a); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}

	at := a.Transpose()
	if at.NRow != 3 || at.NCol != 2 {
		t.Errorf("transpose shape: want 3x2 but have %dx%d", at.NRow, at.NCol)
	}
	ad, atd := a.ToDense(), at.ToDense()
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if ad.At(i, j) != atd.At(j, i) {
				t.Errorf("(%d, %d): %g != %g", i, j, ad.At(i, j), atd.At(j, i))
			}
		}
	}
}

func TestSumPerRowAppend(t *testing.T) {
	a := New(2, 4)
	a.Add(0, 0, 0.25)
	a.Add(0, 1, 0.75)
	b := New(2, 4)
	b.Add(1, 2, 0.5)
	b.Add(1, 3, 0.5)
	if err := a.Append(b); err != nil {
		t.Fatal(err)
	}
	s := a.SumPerRow()
	for i := 0; i < 2; i++ {
		if s.Get(i) != 1 {
			t.Errorf("row %d: want 1 but have %g", i, s.Get(i))
		}
	}
	if v := a.CheckRowSums(1e-12); len(v) != 0 {
		t.Errorf("want no violations but have %v", v)
	}
	if err := a.Append(New(3, 4)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
}

func TestChecksum(t *testing.T) {
	m := New(3, 2)
	m.Add(0, 0, 1)
	m.Add(1, 0, 0.5)
	m.Add(1, 1, 0.6)
	m.Add(2, 1, math.NaN())
	v := m.Checksum("test", 1e-9, nil)
	want := []RowSumViolation{{Row: 1, Sum: 1.1}}
	if len(v) != 2 || v[0].Row != want[0].Row || math.Abs(v[0].Sum-want[0].Sum) > 1e-12 || v[1].Row != 2 {
		t.Errorf("want rows 1 and 2 but have %v", v)
	}
	if m.Len() != 4 {
		t.Errorf("checksum should not modify matrix")
	}
}

func TestApply(t *testing.T) {
	m := New(2, 3)
	m.Add(0, 0, 1)
	m.Add(0, 1, 2)
	m.Add(1, 2, 3)
	x := []float64{1, math.NaN(), 2}

	y, err := m.Apply(x, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 6}; !reflect.DeepEqual(want, y) {
		t.Errorf("ignore NaN: want %v but have %v", want, y)
	}
	y, err = m.Apply(x, false)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(y[0]) || y[1] != 6 {
		t.Errorf("propagate NaN: have %v", y)
	}
	if _, err := m.Apply([]float64{1}, false); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
}

func TestScaleDivide(t *testing.T) {
	m := New(2, 2)
	m.Add(0, 0, 2)
	m.Add(1, 1, 4)
	m.Add(1, 0, 8)
	if err := m.DivideRowsBy([]float64{2, 0}); err != nil {
		t.Fatal(err)
	}
	if want := []Entry{{Row: 0, Col: 0, Val: 1}}; !reflect.DeepEqual(want, m.Entries()) {
		t.Errorf("want %v but have %v", want, m.Entries())
	}
	if err := m.ScaleRows([]float64{3, 1}); err != nil {
		t.Fatal(err)
	}
	m.Scale(2)
	if have := m.At(0).Val; have != 6 {
		t.Errorf("want 6 but have %g", have)
	}
	if err := m.ScaleRows([]float64{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
}

func TestLowerTriangle(t *testing.T) {
	m := New(2, 2)
	m.Add(0, 0, 1)
	m.Add(0, 1, 2)
	m.Add(1, 0, 2)
	m.Add(1, 1, 3)
	l := m.LowerTriangle()
	want := []Entry{{Row: 0, Col: 0, Val: 1}, {Row: 1, Col: 0, Val: 2}, {Row: 1, Col: 1, Val: 3}}
	if !reflect.DeepEqual(want, l.Entries()) {
		t.Errorf("want %v but have %v", want, l.Entries())
	}
	if m.Len() != 4 {
		t.Errorf("original matrix should not be modified")
	}
}

func TestRemoveSmallConstraints(t *testing.T) {
	// Row 0 constrains a single variable, which removes it and column 0.
	// That leaves row 1 with a single variable, so it is removed too.
	m := New(3, 4)
	m.Add(0, 0, 1)
	m.Add(1, 0, 1)
	m.Add(1, 1, 1)
	m.Add(2, 2, 1)
	m.Add(2, 3, 1)
	o := m.RemoveSmallConstraints(2)
	want := []Entry{{Row: 2, Col: 2, Val: 1}, {Row: 2, Col: 3, Val: 1}}
	if !reflect.DeepEqual(want, o.Entries()) {
		t.Errorf("want %v but have %v", want, o.Entries())
	}
}

func TestBuildAll(t *testing.T) {
	sub := func(col int) Builder {
		return func(ctx context.Context, m *Matrix) error {
			for r := 0; r < 2; r++ {
				m.Add(r, col, 0.5)
			}
			return nil
		}
	}
	m, err := BuildAll(context.Background(), 2, 2, sub(0), sub(1))
	if err != nil {
		t.Fatal(err)
	}
	if v := m.CheckRowSums(1e-12); len(v) != 0 {
		t.Errorf("want no violations but have %v", v)
	}
	if m.At(0).Col != 0 || m.At(2).Col != 1 {
		t.Errorf("entries should be appended in builder order: %v", m.Entries())
	}

	fail := errors.New("fail")
	_, err = BuildAll(context.Background(), 2, 2, sub(0), func(context.Context, *Matrix) error { return fail })
	if !errors.Is(err, fail) {
		t.Errorf("want %v but have %v", fail, err)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	m := New(3, 5)
	m.Add(0, 4, 0.5)
	m.Add(2, 1, 1.5)
	m.Add(2, 1, -2)
	d := ncio.NewDefiner()
	tk, err := m.Define(d, "M")
	if err != nil {
		t.Fatal(err)
	}
	d.Register(tk)
	f, err := d.Create(new(ncio.Buffer))
	if err != nil {
		t.Fatal(err)
	}
	m2, err := ReadMatrix(f, "M")
	if err != nil {
		t.Fatal(err)
	}
	if m2.NRow != 3 || m2.NCol != 5 {
		t.Errorf("shape: want 3x5 but have %dx%d", m2.NRow, m2.NCol)
	}
	if !reflect.DeepEqual(m.Entries(), m2.Entries()) {
		t.Errorf("want %v but have %v", m.Entries(), m2.Entries())
	}
}
