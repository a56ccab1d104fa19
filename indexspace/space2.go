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

package indexspace

import (
	"fmt"
	"sort"
)

// Space2 is a bijection between used (group, local) index pairs and the
// packed indices [0, Size()), for index spaces that are decomposed into
// several groups such as the sheets of a multi-sheet grid. Groups are laid
// out in ascending group id order, so packed indices are ordered first by
// group and then by local index.
type Space2 struct {
	groups  []int
	sizes   []int64
	offsets []int64 // offset of each group in the concatenated space
	space   *Space
}

func newLayout(sizes map[int]int64) (groups []int, gsizes, offsets []int64, err error) {
	for g, n := range sizes {
		if n < 0 {
			return nil, nil, nil, fmt.Errorf("indexspace: group %d has negative size %d", g, n)
		}
		groups = append(groups, g)
	}
	sort.Ints(groups)
	gsizes = make([]int64, len(groups))
	offsets = make([]int64, len(groups)+1)
	for i, g := range groups {
		gsizes[i] = sizes[g]
		offsets[i+1] = offsets[i] + sizes[g]
	}
	return groups, gsizes, offsets, nil
}

// New2 returns a Space2 in which group g has a local index space of size
// sizes[g] and the pairs in used are in use.
func New2(sizes map[int]int64, used [][2]int64) (*Space2, error) {
	b, err := NewBuilder2(sizes)
	if err != nil {
		return nil, err
	}
	for _, u := range used {
		if err := b.Add(int(u[0]), u[1]); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func (s *Space2) group(g int) (int, bool) {
	i := sort.SearchInts(s.groups, g)
	return i, i < len(s.groups) && s.groups[i] == g
}

func concat(groups []int, sizes, offsets []int64, g int, local int64) (int64, error) {
	i := sort.SearchInts(groups, g)
	if i == len(groups) || groups[i] != g {
		return -1, fmt.Errorf("indexspace: group %d is not declared: %w", g, ErrNotFound)
	}
	if local < 0 || local >= sizes[i] {
		return -1, &OutOfRangeError{Space: fmt.Sprintf("group %d", g), Index: local, Size: sizes[i]}
	}
	return offsets[i] + local, nil
}

// ToPacked returns the packed index of the pair (g, local).
func (s *Space2) ToPacked(g int, local int64) (int, error) {
	i, err := concat(s.groups, s.sizes, s.offsets, g, local)
	if err != nil {
		return -1, err
	}
	p, err := s.space.ToPacked(i)
	if err != nil {
		return -1, fmt.Errorf("indexspace: group %d local index %d: %w", g, local, ErrNotFound)
	}
	return p, nil
}

// ToFull returns the (group, local) pair of packed index p.
func (s *Space2) ToFull(p int) (g int, local int64, err error) {
	i, err := s.space.ToFull(p)
	if err != nil {
		return 0, -1, err
	}
	k := sort.Search(len(s.groups), func(k int) bool { return s.offsets[k+1] > i })
	return s.groups[k], i - s.offsets[k], nil
}

// Size returns the number of used pairs.
func (s *Space2) Size() int { return s.space.Size() }

// Groups returns the group ids in ascending order.
func (s *Space2) Groups() []int { return append([]int(nil), s.groups...) }

// GroupSize returns the size of the local index space of group g, or -1
// if there is no such group.
func (s *Space2) GroupSize(g int) int64 {
	if i, ok := s.group(g); ok {
		return s.sizes[i]
	}
	return -1
}

// Builder2 accumulates the used pairs of a Space2.
type Builder2 struct {
	groups  []int
	sizes   []int64
	offsets []int64
	b       *Builder
}

// NewBuilder2 returns a Builder2 in which group g has a local index
// space of size sizes[g].
func NewBuilder2(sizes map[int]int64) (*Builder2, error) {
	groups, gsizes, offsets, err := newLayout(sizes)
	if err != nil {
		return nil, err
	}
	return &Builder2{
		groups:  groups,
		sizes:   gsizes,
		offsets: offsets,
		b:       NewBuilder(offsets[len(offsets)-1]),
	}, nil
}

// Add marks the pair (g, local) as used.
func (b *Builder2) Add(g int, local int64) error {
	i, err := concat(b.groups, b.sizes, b.offsets, g, local)
	if err != nil {
		return err
	}
	return b.b.Add(i)
}

// Build returns a Space2 over the pairs added so far.
func (b *Builder2) Build() *Space2 {
	return &Space2{
		groups:  b.groups,
		sizes:   b.sizes,
		offsets: b.offsets,
		space:   b.b.Build(),
	}
}
