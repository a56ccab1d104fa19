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
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KKTSolver solves a Problem directly by forming the dense
// Karush-Kuhn-Tucker system
//
//	[ H  Aᵀ ] [ x ]   [ -G ]
//	[ A  0  ] [ λ ] = [ -C ]
//
// When the system is singular, for example because some constraints are
// redundant or some variables do not appear in the objective, the minimum
// norm least-squares solution is used instead.
// It is only suitable for problems with up to a few thousand variables.
type KKTSolver struct {
	// RCond is the relative singular value below which the least-squares
	// fallback treats the system as rank deficient. Zero means 1e-12.
	RCond float64

	Log logrus.FieldLogger
}

func (s *KKTSolver) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Solve implements Solver.
func (s *KKTSolver) Solve(ctx context.Context, p *Problem) ([]float64, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := p.N()
	if n == 0 {
		return []float64{}, nil
	}

	// Constraints with infinite constant terms are dropped.
	var active []int
	for i, c := range p.C {
		if p.Infinity > 0 && math.Abs(c) >= p.Infinity {
			continue
		}
		active = append(active, i)
	}
	row := make(map[int]int, len(active))
	for k, i := range active {
		row[i] = n + k
	}

	size := n + len(active)
	k := mat.NewDense(size, size, nil)
	for i := 0; i < p.H.Len(); i++ {
		e := p.H.At(i)
		k.Set(e.Row, e.Col, k.At(e.Row, e.Col)+e.Val)
		if e.Row != e.Col {
			k.Set(e.Col, e.Row, k.At(e.Col, e.Row)+e.Val)
		}
	}
	for i := 0; i < p.A.Len(); i++ {
		e := p.A.At(i)
		r, ok := row[e.Row]
		if !ok {
			continue
		}
		k.Set(r, e.Col, k.At(r, e.Col)+e.Val)
		k.Set(e.Col, r, k.At(e.Col, r)+e.Val)
	}
	rhs := mat.NewVecDense(size, nil)
	for i, g := range p.G {
		rhs.SetVec(i, -g)
	}
	for kk, i := range active {
		rhs.SetVec(n+kk, -p.C[i])
	}

	var sol mat.VecDense
	err := sol.SolveVec(k, rhs)
	var cond mat.Condition
	switch {
	case err == nil:
	case errors.As(err, &cond):
		s.log().WithField("condition", float64(cond)).Info("qp: KKT system is ill-conditioned; using least squares")
		if err := s.leastSquares(&sol, k, rhs); err != nil {
			return nil, err
		}
	default:
		return nil, &OptimizationError{Reason: err.Error()}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = sol.AtVec(i)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &OptimizationError{Reason: fmt.Sprintf("non-finite solution at variable %d", i)}
		}
	}
	if r, err := p.Residual(x); err == nil {
		s.log().WithFields(logrus.Fields{
			"variables":     n,
			"constraints":   len(active),
			"residual_norm": floats.Norm(r, 2),
			"objective":     p.Objective(x),
		}).Debug("qp: solved KKT system")
	}
	return x, nil
}

func (s *KKTSolver) leastSquares(dst *mat.VecDense, k *mat.Dense, rhs *mat.VecDense) error {
	var svd mat.SVD
	if !svd.Factorize(k, mat.SVDThin) {
		return &OptimizationError{Reason: "SVD factorization of KKT system did not converge"}
	}
	rcond := s.RCond
	if rcond == 0 {
		rcond = 1e-12
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return &OptimizationError{Reason: "KKT system is zero"}
	}
	svd.SolveVecTo(dst, rhs, rank)
	return nil
}
