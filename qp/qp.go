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

// Package qp describes the equality-constrained quadratic programs used to
// regrid fields from a fine grid onto a set of basis functions while
// conserving their integral on a coarse grid, and provides a dense solver
// for them.
package qp

import (
	"context"
	"errors"
	"fmt"

	"github.com/spatialmodel/gridcouple/coo"
)

var (
	// ErrOptimizationFailed is returned when a Solver cannot find a
	// solution.
	ErrOptimizationFailed = errors.New("qp: optimization failed")

	// ErrNaNInInput is returned when an input vector contains NaN.
	ErrNaNInInput = errors.New("qp: NaN in input")

	// ErrDimensionMismatch is returned when the parts of a problem have
	// incompatible shapes.
	ErrDimensionMismatch = coo.ErrDimensionMismatch
)

// OptimizationError reports why a Solver failed.
type OptimizationError struct {
	Reason string
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("qp: optimization failed: %s", e.Reason)
}

func (e *OptimizationError) Unwrap() error { return ErrOptimizationFailed }

// NaNInInputError lists the full indices at which an input vector
// contains NaN.
type NaNInInputError struct {
	Field string
	IDs   []int64
}

func (e *NaNInInputError) Error() string {
	return fmt.Sprintf("qp: NaN in %s at indices %v", e.Field, e.IDs)
}

func (e *NaNInInputError) Unwrap() error { return ErrNaNInInput }

// Problem is the quadratic program
//
//	minimize    ½ xᵀHx + Gᵀx + F
//	subject to  Ax + C = 0
//
// over n variables with m constraints.
type Problem struct {
	// H is the n×n Hessian. Only its lower triangle is stored.
	H *coo.Matrix
	G []float64
	F float64

	// A is the m×n constraint matrix.
	A *coo.Matrix
	C []float64

	// X0 is the initial guess.
	X0 []float64

	// Constraints whose constant term has a magnitude of at least
	// Infinity are ignored. Zero means no constraint is ignored.
	Infinity float64
}

// N returns the number of variables.
func (p *Problem) N() int { return len(p.G) }

// M returns the number of constraints.
func (p *Problem) M() int { return len(p.C) }

// Check returns an error if the parts of p are not consistent with each
// other.
func (p *Problem) Check() error {
	n, m := p.N(), p.M()
	if p.H == nil || p.A == nil {
		return fmt.Errorf("qp: problem is missing H or A")
	}
	if p.H.NRow != n || p.H.NCol != n {
		return &coo.DimensionMismatchError{Op: "qp H", Expected: [2]int{n, n}, Actual: [2]int{p.H.NRow, p.H.NCol}}
	}
	if p.A.NRow != m || p.A.NCol != n {
		return &coo.DimensionMismatchError{Op: "qp A", Expected: [2]int{m, n}, Actual: [2]int{p.A.NRow, p.A.NCol}}
	}
	if p.X0 != nil && len(p.X0) != n {
		return &coo.DimensionMismatchError{Op: "qp X0", Expected: [2]int{n, 1}, Actual: [2]int{len(p.X0), 1}}
	}
	for i := 0; i < p.H.Len(); i++ {
		if e := p.H.At(i); e.Col > e.Row {
			return fmt.Errorf("qp: H has an entry above the diagonal at (%d, %d)", e.Row, e.Col)
		}
	}
	return nil
}

// Objective evaluates the objective function at x.
func (p *Problem) Objective(x []float64) float64 {
	o := p.F
	for i, g := range p.G {
		o += g * x[i]
	}
	for i := 0; i < p.H.Len(); i++ {
		e := p.H.At(i)
		v := e.Val * x[e.Row] * x[e.Col]
		if e.Row == e.Col {
			v *= 0.5
		}
		o += v
	}
	return o
}

// Residual returns Ax + C.
func (p *Problem) Residual(x []float64) ([]float64, error) {
	r, err := p.A.Apply(x, false)
	if err != nil {
		return nil, err
	}
	for i, c := range p.C {
		r[i] += c
	}
	return r, nil
}

// A Solver finds the x that solves a Problem.
type Solver interface {
	Solve(ctx context.Context, p *Problem) ([]float64, error)
}
