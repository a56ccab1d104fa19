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

package coo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// A Builder adds entries to a matrix.
type Builder func(ctx context.Context, m *Matrix) error

// BuildAll runs each builder concurrently on its own nrow by ncol matrix
// and then appends the results in the order the builders were given.
// It is meant for combining operators built independently for different
// sub-grids that share a destination index space.
func BuildAll(ctx context.Context, nrow, ncol int, builders ...Builder) (*Matrix, error) {
	parts := make([]*Matrix, len(builders))
	g, ctx := errgroup.WithContext(ctx)
	for i, b := range builders {
		parts[i] = New(nrow, ncol)
		g.Go(func() error {
			return b(ctx, parts[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	o := New(nrow, ncol)
	for _, p := range parts {
		if err := o.Append(p); err != nil {
			return nil, err
		}
	}
	return o, nil
}
