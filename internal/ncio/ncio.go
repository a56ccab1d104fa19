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

// Package ncio declares and writes NetCDF files in two phases: a define
// phase in which each component declares the dimensions, variables and
// attributes it needs and hands back a Ticket, and a write phase in which
// the tickets are executed in the order they were registered.
package ncio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ctessum/cdf"
)

// ErrDimensionMismatch is returned when a dimension is declared twice with
// different lengths or when stored data does not have the expected shape.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// A Ticket writes data for variables that were declared during the define
// phase. Tickets hold the data they are going to write so that nothing about
// the caller's state is captured implicitly.
type Ticket interface {
	Write(f *cdf.File) error
}

type variable struct {
	name string
	dims []string
	zero interface{}
}

type attribute struct {
	v, name string
	val     interface{}
}

// Definer accumulates the header of a NetCDF file.
type Definer struct {
	dims    []string
	lengths []int
	vars    []variable
	attrs   []attribute
	tickets []Ticket
}

// NewDefiner returns an empty Definer.
func NewDefiner() *Definer { return new(Definer) }

// AddDim declares a dimension. Declaring an existing dimension with the same
// length is allowed so that components can share dimensions such as "two".
// Zero-length dimensions are rejected because they would be interpreted as
// the record dimension.
func (d *Definer) AddDim(name string, length int) error {
	if length <= 0 {
		return fmt.Errorf("%w: dimension %s has length %d; must be > 0", ErrDimensionMismatch, name, length)
	}
	for i, dd := range d.dims {
		if dd == name {
			if d.lengths[i] != length {
				return fmt.Errorf("%w: dimension %s already defined with length %d, not %d",
					ErrDimensionMismatch, name, d.lengths[i], length)
			}
			return nil
		}
	}
	d.dims = append(d.dims, name)
	d.lengths = append(d.lengths, length)
	return nil
}

// AddVar declares a variable. zero determines the variable type and must be
// one of []int16, []int32, []float32, []float64, []uint8 or string.
func (d *Definer) AddVar(name string, dims []string, zero interface{}) error {
	for _, v := range d.vars {
		if v.name == name {
			return fmt.Errorf("ncio: variable %s defined twice", name)
		}
	}
	for _, dim := range dims {
		if !d.hasDim(dim) {
			return fmt.Errorf("ncio: variable %s uses undefined dimension %s", name, dim)
		}
	}
	d.vars = append(d.vars, variable{name: name, dims: dims, zero: zero})
	return nil
}

// AddAttr declares an attribute of variable v, or a global attribute
// if v == "". Declaring an existing attribute replaces its value.
func (d *Definer) AddAttr(v, name string, val interface{}) {
	for i, a := range d.attrs {
		if a.v == v && a.name == name {
			d.attrs[i].val = val
			return
		}
	}
	d.attrs = append(d.attrs, attribute{v: v, name: name, val: val})
}

// Register adds a ticket to be run after the file has been created.
func (d *Definer) Register(t Ticket) { d.tickets = append(d.tickets, t) }

func (d *Definer) hasVar(name string) bool {
	for _, v := range d.vars {
		if v.name == name {
			return true
		}
	}
	return false
}

func (d *Definer) hasDim(name string) bool {
	for _, dd := range d.dims {
		if dd == name {
			return true
		}
	}
	return false
}

// Create writes the header to rw and then runs all registered
// tickets in order.
func (d *Definer) Create(rw cdf.ReaderWriterAt) (*cdf.File, error) {
	if len(d.dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions defined", ErrDimensionMismatch)
	}
	for _, a := range d.attrs {
		if a.v != "" && !d.hasVar(a.v) {
			return nil, fmt.Errorf("ncio: attribute %s of undefined variable %s", a.name, a.v)
		}
	}
	h := cdf.NewHeader(d.dims, d.lengths)
	for _, v := range d.vars {
		h.AddVariable(v.name, v.dims, v.zero)
	}
	for _, a := range d.attrs {
		h.AddAttribute(a.v, a.name, a.val)
	}
	h.Define()
	for _, err := range h.Check() {
		return nil, fmt.Errorf("ncio: creating netcdf header: %v", err)
	}
	f, err := cdf.Create(rw, h)
	if err != nil {
		return nil, fmt.Errorf("ncio: creating netcdf file: %v", err)
	}
	for _, t := range d.tickets {
		if err := t.Write(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Write writes the full contents of variable v. The strider reports io.EOF
// once it reaches the end of a fixed-size variable, which is not an error
// when every element was written.
func Write(f *cdf.File, v string, data interface{}) error {
	w := f.Writer(v, nil, nil)
	if w == nil {
		return fmt.Errorf("ncio: writing undefined variable %s", v)
	}
	n, err := w.Write(data)
	if err != nil && !(err == io.EOF && n == length(data)) {
		return fmt.Errorf("ncio: writing variable %s: %v", v, err)
	}
	return nil
}

func length(data interface{}) int {
	switch d := data.(type) {
	case []int32:
		return len(d)
	case []float64:
		return len(d)
	case []float32:
		return len(d)
	case []int16:
		return len(d)
	case []uint8:
		return len(d)
	case string:
		return len(d)
	}
	return -1
}
