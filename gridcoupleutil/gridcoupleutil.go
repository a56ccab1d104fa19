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

package gridcoupleutil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcouple"
	"github.com/spatialmodel/gridcouple/coo"
	"github.com/spatialmodel/gridcouple/hntr"
	"github.com/spatialmodel/gridcouple/internal/ncio"
	"github.com/spf13/cast"
)

// interpolators holds interpolators that have already been computed.
var interpolators = hntr.NewCache(20)

// HntrGridConfig returns the lon/lat grid described by the IM, JM, Offi
// and Dlat options under prefix.
func HntrGridConfig(cfg *viper.Viper, prefix string) (hntr.Grid, error) {
	im, err := cast.ToIntE(cfg.Get(prefix + ".IM"))
	if err != nil {
		return hntr.Grid{}, fmt.Errorf("gridcouple: reading %s.IM: %v", prefix, err)
	}
	jm, err := cast.ToIntE(cfg.Get(prefix + ".JM"))
	if err != nil {
		return hntr.Grid{}, fmt.Errorf("gridcouple: reading %s.JM: %v", prefix, err)
	}
	offi, err := cast.ToFloat64E(cfg.Get(prefix + ".Offi"))
	if err != nil {
		return hntr.Grid{}, fmt.Errorf("gridcouple: reading %s.Offi: %v", prefix, err)
	}
	dlat, err := cast.ToFloat64E(cfg.Get(prefix + ".Dlat"))
	if err != nil {
		return hntr.Grid{}, fmt.Errorf("gridcouple: reading %s.Dlat: %v", prefix, err)
	}
	g, err := hntr.NewGrid(im, jm, offi, dlat)
	if err != nil {
		return hntr.Grid{}, fmt.Errorf("gridcouple: %s grid: %w", prefix, err)
	}
	return g, nil
}

// WriteLonLatGrid realizes g as a polygon grid and saves it, along with
// g itself under the name name+".hntr", to a new NetCDF file at path.
func WriteLonLatGrid(path, name string, g hntr.Grid) error {
	ll, err := g.LonLatGrid(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gridcouple: creating grid file: %v", err)
	}
	defer f.Close()

	d := ncio.NewDefiner()
	t, err := ll.Define(d, name)
	if err != nil {
		return err
	}
	d.Register(t)
	if t, err = g.Define(d, name+".hntr"); err != nil {
		return err
	}
	d.Register(t)
	if _, err := d.Create(f); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"grid":  name,
		"cells": ll.Cells.NRealized(),
		"file":  path,
	}).Info("wrote lon/lat grid")
	return f.Close()
}

// WriteMatrix computes the regridding matrix from grid a to grid b, checks
// that all of its rows sum to 1 within tol, and saves it to a new NetCDF
// file at path under the name "matrix", along with the grids as "A" and
// "B". The rows of b are split into the given number of latitude bands,
// which are computed concurrently.
func WriteMatrix(ctx context.Context, path string, a, b hntr.Grid, datmis, tol float64, bands int) error {
	h, err := interpolators.Get(ctx, a, b, datmis)
	if err != nil {
		return err
	}
	if bands < 1 {
		bands = 1
	}
	if bands > b.JM() {
		bands = b.JM()
	}
	builders := make([]coo.Builder, bands)
	for k := range builders {
		j0, j1 := k*b.JM()/bands, (k+1)*b.JM()/bands
		builders[k] = func(ctx context.Context, m *coo.Matrix) error {
			inBand := func(ijb int) bool {
				j := ijb / b.IM()
				return j >= j0 && j < j1
			}
			return h.Matrix(m, inBand, nil)
		}
	}
	m, err := coo.BuildAll(ctx, b.Size(), a.Size(), builders...)
	if err != nil {
		return err
	}
	m.SumDuplicates()
	if v := m.Checksum("matrix", tol, logrus.StandardLogger()); len(v) > 0 {
		return fmt.Errorf("gridcouple: %d rows of the regridding matrix do not sum to 1; row %d sums to %g",
			len(v), v[0].Row, v[0].Sum)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gridcouple: creating matrix file: %v", err)
	}
	defer f.Close()
	d := ncio.NewDefiner()
	t, err := m.Define(d, "matrix")
	if err != nil {
		return err
	}
	d.Register(t)
	for _, g := range []struct {
		name string
		g    hntr.Grid
	}{{"A", a}, {"B", b}} {
		t, err := g.g.Define(d, g.name)
		if err != nil {
			return err
		}
		d.Register(t)
	}
	if _, err := d.Create(f); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"source":  a.String(),
		"dest":    b.String(),
		"entries": m.Len(),
		"file":    path,
	}).Info("wrote regridding matrix")
	return f.Close()
}

// WriteShapefile reads the grid stored under vname in the NetCDF file
// at in and writes its cells to the shapefile at out.
func WriteShapefile(in, vname, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("gridcouple: opening grid file: %v", err)
	}
	defer f.Close()
	g, err := gridcouple.OpenGrid(f, vname)
	if err != nil {
		return err
	}
	return g.WriteShapefile(out)
}
