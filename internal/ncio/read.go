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
	"fmt"
	"math"

	"github.com/ctessum/cdf"
)

// ReadInt32 reads the full contents of an INT variable and checks that its
// shape matches shape, where a negative entry matches any length.
func ReadInt32(f *cdf.File, v string, shape ...int) ([]int32, error) {
	buf, err := read(f, v, shape)
	if err != nil {
		return nil, err
	}
	d, ok := buf.([]int32)
	if !ok {
		return nil, fmt.Errorf("ncio: variable %s has type %T, not []int32", v, buf)
	}
	return d, nil
}

// ReadFloat64 reads the full contents of a DOUBLE variable and checks that
// its shape matches shape, where a negative entry matches any length.
func ReadFloat64(f *cdf.File, v string, shape ...int) ([]float64, error) {
	buf, err := read(f, v, shape)
	if err != nil {
		return nil, err
	}
	d, ok := buf.([]float64)
	if !ok {
		return nil, fmt.Errorf("ncio: variable %s has type %T, not []float64", v, buf)
	}
	return d, nil
}

func read(f *cdf.File, v string, shape []int) (interface{}, error) {
	lengths := f.Header.Lengths(v)
	if lengths == nil {
		return nil, fmt.Errorf("ncio: variable %s not found", v)
	}
	if len(shape) > 0 {
		if len(shape) != len(lengths) {
			return nil, fmt.Errorf("%w: variable %s has rank %d, expected rank %d",
				ErrDimensionMismatch, v, len(lengths), len(shape))
		}
		for i, s := range shape {
			if s >= 0 && s != lengths[i] {
				return nil, fmt.Errorf("%w: variable %s dimension %d has length %d, expected %d",
					ErrDimensionMismatch, v, i, lengths[i], s)
			}
		}
	}
	n := 1
	for _, l := range lengths {
		n *= l
	}
	buf := f.Header.ZeroValue(v, n)
	r := f.Reader(v, nil, nil)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncio: reading variable %s: %v", v, err)
	}
	return buf, nil
}

// Lengths returns the dimension lengths of variable v, or an error if it does
// not exist.
func Lengths(f *cdf.File, v string) ([]int, error) {
	l := f.Header.Lengths(v)
	if l == nil {
		return nil, fmt.Errorf("ncio: variable %s not found", v)
	}
	return l, nil
}

// AttrString returns string attribute a of variable v.
func AttrString(f *cdf.File, v, a string) (string, error) {
	switch val := f.Header.GetAttribute(v, a).(type) {
	case string:
		return val, nil
	case nil:
		return "", fmt.Errorf("ncio: attribute %s:%s not found", v, a)
	default:
		return "", fmt.Errorf("ncio: attribute %s:%s has type %T, not string", v, a, val)
	}
}

// AttrInt returns integer attribute a of variable v. INT and integral
// DOUBLE attributes are accepted.
func AttrInt(f *cdf.File, v, a string) (int64, error) {
	switch val := f.Header.GetAttribute(v, a).(type) {
	case []int32:
		if len(val) != 1 {
			return 0, fmt.Errorf("%w: attribute %s:%s has %d values, expected 1", ErrDimensionMismatch, v, a, len(val))
		}
		return int64(val[0]), nil
	case []float64:
		if len(val) != 1 {
			return 0, fmt.Errorf("%w: attribute %s:%s has %d values, expected 1", ErrDimensionMismatch, v, a, len(val))
		}
		if val[0] != math.Trunc(val[0]) || math.IsInf(val[0], 0) {
			return 0, fmt.Errorf("ncio: attribute %s:%s = %g is not an integer", v, a, val[0])
		}
		return int64(val[0]), nil
	case nil:
		return 0, fmt.Errorf("ncio: attribute %s:%s not found", v, a)
	default:
		return 0, fmt.Errorf("ncio: attribute %s:%s has type %T, not an integer", v, a, val)
	}
}

// AttrFloat64 returns DOUBLE attribute a of variable v.
func AttrFloat64(f *cdf.File, v, a string) (float64, error) {
	switch val := f.Header.GetAttribute(v, a).(type) {
	case []float64:
		if len(val) != 1 {
			return 0, fmt.Errorf("%w: attribute %s:%s has %d values, expected 1", ErrDimensionMismatch, v, a, len(val))
		}
		return val[0], nil
	case nil:
		return 0, fmt.Errorf("ncio: attribute %s:%s not found", v, a)
	default:
		return 0, fmt.Errorf("ncio: attribute %s:%s has type %T, not []float64", v, a, val)
	}
}
