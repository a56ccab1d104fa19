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

package qp

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcouple/coo"
	"github.com/spatialmodel/gridcouple/indexspace"
)

// Sheet holds the fine-grid side of a Reducer: one of possibly several
// fine grids that together cover parts of the coarse grid.
type Sheet struct {
	// ID identifies the sheet. IDs must be unique within a Reducer.
	ID int

	// Size is the number of cells in the sheet's full index space.
	Size int64

	// S maps fields on the sheet to the coarse grid (coarse × fine).
	S *coo.Matrix

	// Area is the sheet's contribution to the area of each coarse cell.
	// If any sheet has a non-nil Area, the rows of every S are divided by
	// the accumulated coarse area. Area may be nil.
	Area []float64

	// XM maps the basis functions to the sheet (fine × basis).
	XM *coo.Matrix

	// F is the field on the sheet that is to be represented.
	F []float64
}

// NaNPolicy determines what a Reducer does with NaN values in the
// initial guess.
type NaNPolicy int

const (
	// NaNError causes Reduce to return a *NaNInInputError.
	NaNError NaNPolicy = iota
	// NaNZero replaces NaN values with zero.
	NaNZero
)

// Reducer finds the values of a set of basis functions that best
// reproduce fields on one or more fine grids in a least-squares sense,
// subject to conserving the integral of the fields on a coarse grid. Only
// the coarse cells, fine cells and basis functions that appear in at
// least one of the input matrices take part in the optimization.
type Reducer struct {
	// RM maps the basis functions to the coarse grid (coarse × basis).
	RM     *coo.Matrix
	Sheets []Sheet

	// Solver defaults to a KKTSolver.
	Solver   Solver
	NaN      NaNPolicy
	Infinity float64

	Log logrus.FieldLogger
}

// Reduced is a Problem in packed index space along with the index spaces
// needed to interpret it.
type Reduced struct {
	*Problem

	// Coarse, Fine and Basis map between full and packed indices for the
	// constraints, the fine cells and the variables.
	Coarse *indexspace.Space
	Fine   *indexspace.Space2
	Basis  *indexspace.Space
}

func (r *Reducer) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Reducer) check(x0 []float64) error {
	if r.RM == nil {
		return fmt.Errorf("qp: Reducer has no RM matrix")
	}
	n1, n3 := r.RM.NRow, r.RM.NCol
	if len(x0) != n3 {
		return &coo.DimensionMismatchError{Op: "initial guess", Expected: [2]int{n3, 1}, Actual: [2]int{len(x0), 1}}
	}
	ids := make(map[int]bool)
	for _, s := range r.Sheets {
		if ids[s.ID] {
			return fmt.Errorf("qp: duplicate sheet ID %d", s.ID)
		}
		ids[s.ID] = true
		n2 := int(s.Size)
		switch {
		case s.S == nil || s.XM == nil:
			return fmt.Errorf("qp: sheet %d is missing S or XM", s.ID)
		case s.S.NRow != n1 || s.S.NCol != n2:
			return &coo.DimensionMismatchError{Op: fmt.Sprintf("sheet %d S", s.ID), Expected: [2]int{n1, n2}, Actual: [2]int{s.S.NRow, s.S.NCol}}
		case s.XM.NRow != n2 || s.XM.NCol != n3:
			return &coo.DimensionMismatchError{Op: fmt.Sprintf("sheet %d XM", s.ID), Expected: [2]int{n2, n3}, Actual: [2]int{s.XM.NRow, s.XM.NCol}}
		case len(s.F) != n2:
			return &coo.DimensionMismatchError{Op: fmt.Sprintf("sheet %d F", s.ID), Expected: [2]int{n2, 1}, Actual: [2]int{len(s.F), 1}}
		case s.Area != nil && len(s.Area) != n1:
			return &coo.DimensionMismatchError{Op: fmt.Sprintf("sheet %d area", s.ID), Expected: [2]int{n1, 1}, Actual: [2]int{len(s.Area), 1}}
		}
	}
	return nil
}

// Reduce builds the packed Problem, using x0 (indexed by basis function)
// as the initial guess.
func (r *Reducer) Reduce(x0 []float64) (*Reduced, error) {
	if err := r.check(x0); err != nil {
		return nil, err
	}

	// Find the used indices.
	coarse := indexspace.NewBuilder(int64(r.RM.NRow))
	basis := indexspace.NewBuilder(int64(r.RM.NCol))
	sizes := make(map[int]int64, len(r.Sheets))
	for _, s := range r.Sheets {
		sizes[s.ID] = s.Size
	}
	fine, err := indexspace.NewBuilder2(sizes)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r.RM.Len(); i++ {
		e := r.RM.At(i)
		if err := coarse.Add(int64(e.Row)); err != nil {
			return nil, fmt.Errorf("qp: RM: %w", err)
		}
		if err := basis.Add(int64(e.Col)); err != nil {
			return nil, fmt.Errorf("qp: RM: %w", err)
		}
	}
	for _, s := range r.Sheets {
		for i := 0; i < s.S.Len(); i++ {
			e := s.S.At(i)
			if err := coarse.Add(int64(e.Row)); err != nil {
				return nil, fmt.Errorf("qp: sheet %d S: %w", s.ID, err)
			}
			if err := fine.Add(s.ID, int64(e.Col)); err != nil {
				return nil, fmt.Errorf("qp: sheet %d S: %w", s.ID, err)
			}
		}
		for i := 0; i < s.XM.Len(); i++ {
			e := s.XM.At(i)
			if err := fine.Add(s.ID, int64(e.Row)); err != nil {
				return nil, fmt.Errorf("qp: sheet %d XM: %w", s.ID, err)
			}
			if err := basis.Add(int64(e.Col)); err != nil {
				return nil, fmt.Errorf("qp: sheet %d XM: %w", s.ID, err)
			}
		}
	}
	o := &Reduced{
		Coarse: coarse.Build(),
		Fine:   fine.Build(),
		Basis:  basis.Build(),
	}
	n1p, n2p, n3p := o.Coarse.Size(), o.Fine.Size(), o.Basis.Size()

	// Translate the matrices into packed space.
	rmp := coo.New(n1p, n3p)
	if err := translate(rmp, r.RM, o.Coarse.ToPacked, o.Basis.ToPacked); err != nil {
		return nil, err
	}
	sp := coo.New(n1p, n2p)
	xmp := coo.New(n2p, n3p)
	var area []float64
	for _, s := range r.Sheets {
		id := s.ID
		finePacked := func(i int64) (int, error) { return o.Fine.ToPacked(id, i) }
		if err := translate(sp, s.S, o.Coarse.ToPacked, finePacked); err != nil {
			return nil, err
		}
		if err := translate(xmp, s.XM, finePacked, o.Basis.ToPacked); err != nil {
			return nil, err
		}
		if s.Area != nil {
			if area == nil {
				area = make([]float64, n1p)
			}
			for i, a := range s.Area {
				if a == 0 {
					continue
				}
				ip, err := o.Coarse.ToPacked(int64(i))
				if err != nil {
					continue // not part of the problem
				}
				area[ip] += a
			}
		}
	}
	if area != nil {
		if err := sp.DivideRowsBy(area); err != nil {
			return nil, err
		}
	}

	// The fine field in packed space.
	byID := make(map[int]*Sheet, len(r.Sheets))
	for i := range r.Sheets {
		byID[r.Sheets[i].ID] = &r.Sheets[i]
	}
	f2p := make([]float64, n2p)
	for i := range f2p {
		g, local, err := o.Fine.ToFull(i)
		if err != nil {
			return nil, err
		}
		f2p[i] = byID[g].F[local]
	}

	// Objective: ||XMp x - f2p||² = ½ xᵀ(2 XMpᵀXMp)x - 2 f2pᵀXMp x + f2p·f2p.
	h, err := coo.Multiply(xmp.Transpose(), xmp)
	if err != nil {
		return nil, err
	}
	h = h.LowerTriangle()
	h.Scale(2)
	g := make([]float64, n3p)
	for i := 0; i < xmp.Len(); i++ {
		e := xmp.At(i)
		g[e.Col] -= 2 * f2p[e.Row] * e.Val
	}
	var f float64
	for _, v := range f2p {
		f += v * v
	}

	// Constraints: RMp x = Sp f2p.
	c := make([]float64, n1p)
	for i := 0; i < sp.Len(); i++ {
		e := sp.At(i)
		c[e.Row] -= f2p[e.Col] * e.Val
	}

	xp := make([]float64, n3p)
	var nans []int64
	for i := range xp {
		id, err := o.Basis.ToFull(i)
		if err != nil {
			return nil, err
		}
		v := x0[id]
		if math.IsNaN(v) {
			nans = append(nans, id)
			v = 0
		}
		xp[i] = v
	}
	if len(nans) > 0 {
		if r.NaN != NaNZero {
			return nil, &NaNInInputError{Field: "initial guess", IDs: nans}
		}
		r.log().WithField("indices", nans).Warn("qp: NaN in initial guess replaced with zero")
	}

	o.Problem = &Problem{
		H:        h,
		G:        g,
		F:        f,
		A:        rmp,
		C:        c,
		X0:       xp,
		Infinity: r.Infinity,
	}
	r.log().WithFields(logrus.Fields{
		"coarse": fmt.Sprintf("%d/%d", n1p, r.RM.NRow),
		"fine":   n2p,
		"basis":  fmt.Sprintf("%d/%d", n3p, r.RM.NCol),
		"sheets": len(r.Sheets),
	}).Info("qp: reduced problem")
	return o, nil
}

// translate adds the entries of src to dst after mapping their row and
// column indices.
func translate(dst, src *coo.Matrix, row, col func(int64) (int, error)) error {
	for i := 0; i < src.Len(); i++ {
		e := src.At(i)
		r, err := row(int64(e.Row))
		if err != nil {
			return err
		}
		c, err := col(int64(e.Col))
		if err != nil {
			return err
		}
		dst.Add(r, c, e.Val)
	}
	return nil
}

// Expand maps a solution in packed space back to basis function indices.
func (rd *Reduced) Expand(x []float64) (map[int64]float64, error) {
	if len(x) != rd.Basis.Size() {
		return nil, &coo.DimensionMismatchError{Op: "expand", Expected: [2]int{rd.Basis.Size(), 1}, Actual: [2]int{len(x), 1}}
	}
	o := make(map[int64]float64, len(x))
	for i, v := range x {
		id, err := rd.Basis.ToFull(i)
		if err != nil {
			return nil, err
		}
		o[id] = v
	}
	return o, nil
}

// Solve reduces and solves the problem and returns the value of every
// basis function that takes part in it.
func (r *Reducer) Solve(ctx context.Context, x0 []float64) (map[int64]float64, error) {
	rd, err := r.Reduce(x0)
	if err != nil {
		return nil, err
	}
	s := r.Solver
	if s == nil {
		s = &KKTSolver{Log: r.Log}
	}
	x, err := s.Solve(ctx, rd.Problem)
	if err != nil {
		return nil, fmt.Errorf("qp: solving reduced problem: %w", err)
	}
	return rd.Expand(x)
}
