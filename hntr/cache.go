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
	"context"
	"fmt"
	"runtime"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/gridcouple/internal/hash"
)

// Cache memoizes interpolators so that grids that are regridded
// repeatedly only have their overlap computed once. It is safe for
// concurrent use.
type Cache struct {
	c *requestcache.Cache
}

// NewCache returns a cache that holds up to size interpolators in memory.
func NewCache(size int) *Cache {
	return &Cache{
		c: requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(cacheRequest)
			return New(r.a, r.b, r.datmis)
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(size)),
	}
}

type cacheRequest struct {
	a, b   Grid
	datmis float64
}

// gridKey holds the parameters that identify a grid.
type gridKey struct {
	IM, JM     int
	Offi, Dlat float64
}

// Get returns the interpolator from a to b, computing it if necessary.
// The returned value is shared and must not be modified.
func (c *Cache) Get(ctx context.Context, a, b Grid, datmis float64) (*Hntr, error) {
	key := hash.Hash(struct {
		A, B   gridKey
		Datmis float64
	}{
		A:      gridKey{IM: a.im, JM: a.jm, Offi: a.offi, Dlat: a.dlat},
		B:      gridKey{IM: b.im, JM: b.jm, Offi: b.offi, Dlat: b.dlat},
		Datmis: datmis,
	})
	req := c.c.NewRequest(ctx, cacheRequest{a: a, b: b, datmis: datmis}, key)
	result, err := req.Result()
	if err != nil {
		return nil, fmt.Errorf("hntr: computing overlap from %v to %v: %w", a, b, err)
	}
	return result.(*Hntr), nil
}
