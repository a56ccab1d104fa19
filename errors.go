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
	"fmt"

	"github.com/spatialmodel/gridcouple/internal/ncio"
)

var (
	// ErrDuplicateIdentifier is returned when an entity is added to a
	// GridMap with an index that is already in use.
	ErrDuplicateIdentifier = errors.New("gridcouple: duplicate identifier")

	// ErrNotFound is returned when an entity is looked up by an index
	// that has not been realized.
	ErrNotFound = errors.New("gridcouple: not found")

	// ErrDimensionMismatch is returned when stored or supplied data
	// does not have the expected shape.
	ErrDimensionMismatch = ncio.ErrDimensionMismatch

	// ErrUnsupportedVersion is returned when reading a grid that was
	// written with an unsupported file format version.
	ErrUnsupportedVersion = errors.New("gridcouple: unsupported version")
)

// DuplicateIdentifierError reports an index collision in a GridMap.
type DuplicateIdentifierError struct {
	Kind  string // "vertex" or "cell"
	Index int64
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("gridcouple: %s index %d already exists", e.Kind, e.Index)
}

func (e *DuplicateIdentifierError) Unwrap() error { return ErrDuplicateIdentifier }

// NotFoundError reports a lookup of an index that does not exist.
type NotFoundError struct {
	Kind  string
	Index int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("gridcouple: %s index %d not found", e.Kind, e.Index)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DimensionMismatchError reports a shape inconsistency.
type DimensionMismatchError struct {
	Name             string
	Expected, Actual int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("gridcouple: %s has length %d; expected %d", e.Name, e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// UnsupportedVersionError reports a file format version mismatch.
type UnsupportedVersionError struct {
	Name             string
	Expected, Actual int64
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("gridcouple: grid %s has version %d; only version %d is supported",
		e.Name, e.Actual, e.Expected)
}

func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }
