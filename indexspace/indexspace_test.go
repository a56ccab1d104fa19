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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaceBijection(t *testing.T) {
	tests := []struct {
		name  string
		nfull int64
		used  []int64
	}{
		{"empty", 10, nil},
		{"dense", 5, []int64{0, 1, 2, 3, 4}},
		{"sparse", 1 << 40, []int64{1 << 39, 7, 123456789012, 0}},
		{"duplicates", 20, []int64{3, 19, 3, 8, 19}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.nfull, tt.used)
			require.NoError(t, err)

			set := make(map[int64]bool)
			for _, x := range tt.used {
				set[x] = true
			}
			assert.Equal(t, len(set), s.Size())
			assert.Equal(t, tt.nfull, s.NFull())

			for x := range set {
				p, err := s.ToPacked(x)
				require.NoError(t, err)
				full, err := s.ToFull(p)
				require.NoError(t, err)
				assert.Equal(t, x, full)
			}
			for i := 0; i < s.Size(); i++ {
				full, err := s.ToFull(i)
				require.NoError(t, err)
				p, err := s.ToPacked(full)
				require.NoError(t, err)
				assert.Equal(t, i, p)
			}
		})
	}
}

func TestSpaceRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	const nfull = 100000
	var used []int64
	for i := 0; i < 5000; i++ {
		used = append(used, r.Int63n(nfull))
	}
	s, err := New(nfull, used)
	require.NoError(t, err)
	prev := int64(-1)
	for i, x := range s.Used() {
		assert.Greater(t, x, prev, "packed order must follow full order")
		prev = x
		p, err := s.ToPacked(x)
		require.NoError(t, err)
		assert.Equal(t, i, p)
	}
}

func TestSpaceErrors(t *testing.T) {
	s, err := New(10, []int64{2, 4})
	require.NoError(t, err)

	_, err = s.ToPacked(3)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ToPacked(10)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.ToFull(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.ToFull(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = New(10, []int64{10})
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, int64(10), oor.Index)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(100)
	require.NoError(t, b.Add(50))
	s1 := b.Build()
	require.NoError(t, b.Add(10))
	assert.True(t, b.Contains(10))
	assert.False(t, b.Contains(11))
	s2 := b.Build()

	assert.Equal(t, 1, s1.Size())
	assert.Equal(t, 2, s2.Size())
	p, err := s2.ToPacked(50)
	require.NoError(t, err)
	assert.Equal(t, 1, p)
}

func TestSpace2(t *testing.T) {
	sizes := map[int]int64{3: 4, 1: 10, 7: 0}
	used := [][2]int64{{3, 0}, {1, 9}, {3, 3}, {1, 2}, {1, 9}}
	s, err := New2(sizes, used)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int{1, 3, 7}, s.Groups())
	assert.Equal(t, int64(4), s.GroupSize(3))
	assert.Equal(t, int64(-1), s.GroupSize(2))

	want := [][2]int64{{1, 2}, {1, 9}, {3, 0}, {3, 3}}
	for i, w := range want {
		g, local, err := s.ToFull(i)
		require.NoError(t, err)
		assert.Equal(t, int(w[0]), g)
		assert.Equal(t, w[1], local)

		p, err := s.ToPacked(g, local)
		require.NoError(t, err)
		assert.Equal(t, i, p)
	}

	_, err = s.ToPacked(3, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ToPacked(3, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.ToPacked(2, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrOutOfRange)
	_, _, err = s.ToFull(4)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = New2(map[int]int64{0: -1}, nil)
	assert.Error(t, err)
}
