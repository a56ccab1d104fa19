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
	"errors"
	"fmt"

	"github.com/spatialmodel/gridcouple/internal/ncio"
)

var (
	// ErrMalformedGrid is returned when a grid description is invalid.
	ErrMalformedGrid = errors.New("hntr: malformed grid")

	// ErrNaNInInput is returned when an input field contains NaN where a
	// finite value is required.
	ErrNaNInInput = errors.New("hntr: NaN in input")

	// ErrDimensionMismatch is returned when an input field does not have
	// the size of its grid.
	ErrDimensionMismatch = ncio.ErrDimensionMismatch
)

// MalformedGridError describes an invalid grid parameter.
type MalformedGridError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *MalformedGridError) Error() string {
	return fmt.Sprintf("hntr: invalid grid %s=%g: %s", e.Param, e.Value, e.Reason)
}

func (e *MalformedGridError) Unwrap() error { return ErrMalformedGrid }

// NaNInInputError reports the first NaN in an input field.
type NaNInInputError struct {
	Field string
	Index int
}

func (e *NaNInInputError) Error() string {
	return fmt.Sprintf("hntr: %s[%d] is NaN", e.Field, e.Index)
}

func (e *NaNInInputError) Unwrap() error { return ErrNaNInInput }

// DimensionMismatchError reports an input of the wrong length.
type DimensionMismatchError struct {
	Field            string
	Expected, Actual int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("hntr: %s has length %d; expected %d", e.Field, e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }
