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

package ncio

import (
	"errors"
	"io"
	"testing"

	"github.com/ctessum/cdf"
)

func TestBuffer(t *testing.T) {
	b := new(Buffer)
	if _, err := b.WriteAt([]byte("world"), 6); err != nil {
		t.Fatal(err)
	}
	if _, err := b.WriteAt([]byte("hello "), 0); err != nil {
		t.Fatal(err)
	}
	if have := string(b.Bytes()); have != "hello world" {
		t.Errorf("want %q but have %q", "hello world", have)
	}
	p := make([]byte, 8)
	n, err := b.ReadAt(p, 6)
	if n != 5 || err != io.EOF {
		t.Errorf("want 5, EOF but have %d, %v", n, err)
	}
	if string(p[:n]) != "world" {
		t.Errorf("want %q but have %q", "world", p[:n])
	}
}

func TestAddDim(t *testing.T) {
	d := NewDefiner()
	if err := d.AddDim("two", 2); err != nil {
		t.Fatal(err)
	}
	if err := d.AddDim("two", 2); err != nil {
		t.Errorf("redefining with the same length: %v", err)
	}
	if err := d.AddDim("two", 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
	if err := d.AddDim("none", 0); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
	if err := d.AddVar("x", []string{"three"}, []float64{0}); err == nil {
		t.Error("undefined dimension should be an error")
	}
}

type valuesTicket struct {
	ints   []int32
	floats []float64
}

func (v valuesTicket) Write(f *cdf.File) error {
	if err := Write(f, "ints", v.ints); err != nil {
		return err
	}
	return Write(f, "floats", v.floats)
}

func TestRoundTrip(t *testing.T) {
	d := NewDefiner()
	if err := d.AddDim("n", 3); err != nil {
		t.Fatal(err)
	}
	if err := d.AddDim("two", 2); err != nil {
		t.Fatal(err)
	}
	if err := d.AddVar("ints", []string{"n"}, []int32{0}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddVar("floats", []string{"n", "two"}, []float64{0}); err != nil {
		t.Fatal(err)
	}
	d.AddAttr("ints", "name", "counts")
	d.AddAttr("ints", "size", []int32{7})
	d.AddAttr("ints", "size", []int32{3})
	d.AddAttr("floats", "scale", []float64{0.5})
	d.AddAttr("floats", "count", []float64{12})
	d.Register(valuesTicket{
		ints:   []int32{1, 2, 3},
		floats: []float64{1, 2, 3, 4, 5, 6},
	})

	buf := new(Buffer)
	if _, err := d.Create(buf); err != nil {
		t.Fatal(err)
	}
	f, err := cdf.Open(buf)
	if err != nil {
		t.Fatal(err)
	}

	ints, err := ReadInt32(f, "ints", 3)
	if err != nil {
		t.Fatal(err)
	}
	if ints[0] != 1 || ints[2] != 3 {
		t.Errorf("want [1 2 3] but have %v", ints)
	}
	floats, err := ReadFloat64(f, "floats", -1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(floats) != 6 || floats[5] != 6 {
		t.Errorf("want [1 2 3 4 5 6] but have %v", floats)
	}
	if _, err := ReadFloat64(f, "floats", 2, 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
	if _, err := ReadFloat64(f, "floats", 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("rank: want ErrDimensionMismatch but have %v", err)
	}

	if s, err := AttrString(f, "ints", "name"); err != nil || s != "counts" {
		t.Errorf("want counts but have %q (%v)", s, err)
	}
	if n, err := AttrInt(f, "ints", "size"); err != nil || n != 3 {
		t.Errorf("want 3 but have %d (%v)", n, err)
	}
	if n, err := AttrInt(f, "floats", "count"); err != nil || n != 12 {
		t.Errorf("want 12 but have %d (%v)", n, err)
	}
	if _, err := AttrInt(f, "floats", "scale"); err == nil {
		t.Error("non-integral attribute should not be read as an integer")
	}
	if x, err := AttrFloat64(f, "floats", "scale"); err != nil || x != 0.5 {
		t.Errorf("want 0.5 but have %g (%v)", x, err)
	}
	if _, err := AttrString(f, "ints", "missing"); err == nil {
		t.Error("missing attribute should be an error")
	}
}

func TestCreateUndefinedVar(t *testing.T) {
	d := NewDefiner()
	if err := d.AddDim("one", 1); err != nil {
		t.Fatal(err)
	}
	d.AddAttr("nothing", "a", "b")
	if _, err := d.Create(new(Buffer)); err == nil {
		t.Error("attribute of undefined variable should be an error")
	}
	if _, err := NewDefiner().Create(new(Buffer)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("want ErrDimensionMismatch but have %v", err)
	}
}
