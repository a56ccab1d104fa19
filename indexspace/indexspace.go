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

// Package indexspace translates between full index spaces, which may be
// large and sparsely used, and packed index spaces, which number only the
// indices actually in use from zero.
package indexspace

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

var (
	// ErrNotFound is returned when translating a full index that is not in
	// the used set.
	ErrNotFound = errors.New("indexspace: index not found")

	// ErrOutOfRange is returned for packed indices outside of [0, Size()) and
	// for full indices outside of the full index space.
	ErrOutOfRange = errors.New("indexspace: index out of range")
)

// NotFoundError reports a full index that is not in the used set.
type NotFoundError struct {
	Index int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("indexspace: full index %d is not in use", e.Index)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// OutOfRangeError reports an index outside of [0, Size).
type OutOfRangeError struct {
	Space string // "full" or "packed"
	Index int64
	Size  int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("indexspace: %s index %d is outside of [0, %d)", e.Space, e.Index, e.Size)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// Space is a bijection between the used indices of a full index space and
// the packed indices [0, Size()). Packed indices are assigned in ascending
// order of full index.
type Space struct {
	nfull int64
	used  *roaring64.Bitmap
}

// New returns a Space over the full index space [0, nfull) in which the
// indices in used are in use. Duplicates in used are ignored.
func New(nfull int64, used []int64) (*Space, error) {
	b := NewBuilder(nfull)
	for _, i := range used {
		if err := b.Add(i); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// ToPacked returns the packed index of full index i.
func (s *Space) ToPacked(i int64) (int, error) {
	if i < 0 || i >= s.nfull {
		return -1, &OutOfRangeError{Space: "full", Index: i, Size: s.nfull}
	}
	if !s.used.Contains(uint64(i)) {
		return -1, &NotFoundError{Index: i}
	}
	return int(s.used.Rank(uint64(i))) - 1, nil
}

// ToFull returns the full index of packed index p.
func (s *Space) ToFull(p int) (int64, error) {
	if p < 0 || p >= s.Size() {
		return -1, &OutOfRangeError{Space: "packed", Index: int64(p), Size: int64(s.Size())}
	}
	i, err := s.used.Select(uint64(p))
	if err != nil {
		return -1, fmt.Errorf("indexspace: selecting packed index %d: %v", p, err)
	}
	return int64(i), nil
}

// Size returns the number of used indices.
func (s *Space) Size() int { return int(s.used.GetCardinality()) }

// NFull returns the size of the full index space.
func (s *Space) NFull() int64 { return s.nfull }

// Used returns the used full indices in packed order.
func (s *Space) Used() []int64 {
	a := s.used.ToArray()
	o := make([]int64, len(a))
	for i, v := range a {
		o[i] = int64(v)
	}
	return o
}

// Builder accumulates the used indices of a Space.
type Builder struct {
	nfull int64
	used  *roaring64.Bitmap
}

// NewBuilder returns a Builder for the full index space [0, nfull).
func NewBuilder(nfull int64) *Builder {
	return &Builder{nfull: nfull, used: roaring64.New()}
}

// Add marks full index i as used.
func (b *Builder) Add(i int64) error {
	if i < 0 || i >= b.nfull {
		return &OutOfRangeError{Space: "full", Index: i, Size: b.nfull}
	}
	b.used.Add(uint64(i))
	return nil
}

// Contains reports whether i has been marked as used.
func (b *Builder) Contains(i int64) bool {
	return i >= 0 && b.used.Contains(uint64(i))
}

// Build returns a Space over the indices added so far. The Builder may
// continue to be used afterwards without affecting the returned Space.
func (b *Builder) Build() *Space {
	return &Space{nfull: b.nfull, used: b.used.Clone()}
}
