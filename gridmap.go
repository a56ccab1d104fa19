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
	"sort"
)

// entity is implemented by the types that can be stored in a GridMap.
type entity interface {
	kind() string
	indexPtr() *int64
}

// GridMap owns a set of grid entities keyed by index. A grid need only
// realize the entities relevant to its sub-domain, so the number of
// entities actually stored (NRealized) can be smaller than the size of the
// full index space (NFull).
type GridMap[T entity] struct {
	m        map[int64]T
	maxIndex int64
	nfull    int64
}

// NewGridMap returns an empty GridMap.
func NewGridMap[T entity]() *GridMap[T] {
	return &GridMap[T]{
		m:        make(map[int64]T),
		maxIndex: -1,
		nfull:    -1,
	}
}

// Add inserts e into the map. If e's index is negative, the next index
// after the largest one seen so far is assigned to it. Adding an entity
// whose index already exists returns a *DuplicateIdentifierError and leaves
// the map unchanged.
func (gm *GridMap[T]) Add(e T) (T, error) {
	idx := e.indexPtr()
	if *idx < 0 {
		*idx = gm.maxIndex + 1
	}
	if _, ok := gm.m[*idx]; ok {
		var zero T
		return zero, &DuplicateIdentifierError{Kind: e.kind(), Index: *idx}
	}
	gm.m[*idx] = e
	if *idx > gm.maxIndex {
		gm.maxIndex = *idx
	}
	return e, nil
}

// At returns the entity with the given index.
func (gm *GridMap[T]) At(index int64) (T, error) {
	e, ok := gm.m[index]
	if !ok {
		var zero T
		return zero, &NotFoundError{Kind: zero.kind(), Index: index}
	}
	return e, nil
}

// Has reports whether an entity with the given index has been realized.
func (gm *GridMap[T]) Has(index int64) bool {
	_, ok := gm.m[index]
	return ok
}

// Erase removes the entity with the given index. The maximum index tracker
// is not updated; call UpdateMaxIndex after a batch of removals.
func (gm *GridMap[T]) Erase(index int64) error {
	if _, ok := gm.m[index]; !ok {
		var zero T
		return &NotFoundError{Kind: zero.kind(), Index: index}
	}
	delete(gm.m, index)
	return nil
}

// Filter removes every entity for which keep returns false and returns
// the number of entities removed.
func (gm *GridMap[T]) Filter(keep func(T) bool) int {
	n := 0
	for i, e := range gm.m {
		if !keep(e) {
			delete(gm.m, i)
			n++
		}
	}
	return n
}

// UpdateMaxIndex recomputes the largest realized index.
func (gm *GridMap[T]) UpdateMaxIndex() {
	gm.maxIndex = -1
	for i := range gm.m {
		if i > gm.maxIndex {
			gm.maxIndex = i
		}
	}
}

// Sorted returns the realized entities in ascending index order.
func (gm *GridMap[T]) Sorted() []T {
	o := make([]T, 0, len(gm.m))
	for _, e := range gm.m {
		o = append(o, e)
	}
	sort.Slice(o, func(i, j int) bool {
		return *o[i].indexPtr() < *o[j].indexPtr()
	})
	return o
}

// Each calls f for every realized entity in unspecified order.
func (gm *GridMap[T]) Each(f func(T)) {
	for _, e := range gm.m {
		f(e)
	}
}

// NRealized returns the number of entities stored in the map.
func (gm *GridMap[T]) NRealized() int { return len(gm.m) }

// MaxIndex returns the largest realized index, or -1 if the map is empty.
func (gm *GridMap[T]) MaxIndex() int64 { return gm.maxIndex }

// NFull returns the size of the full index space: the value set with
// SetNFull, or one more than the largest index seen so far.
func (gm *GridMap[T]) NFull() int64 {
	if gm.nfull >= 0 {
		return gm.nfull
	}
	return gm.maxIndex + 1
}

// SetNFull fixes the size of the full index space. A negative n reverts to
// inferring it from the realized entities.
func (gm *GridMap[T]) SetNFull(n int64) { gm.nfull = n }

// Clear removes all entities and resets the index trackers.
func (gm *GridMap[T]) Clear() {
	gm.m = make(map[int64]T)
	gm.maxIndex = -1
	gm.nfull = -1
}

func (gm *GridMap[T]) String() string {
	var zero T
	return fmt.Sprintf("%ss(nrealized=%d, nfull=%d)", zero.kind(), gm.NRealized(), gm.NFull())
}
