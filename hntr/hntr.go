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
	"math"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridcouple/coo"
)

// Hntr holds the precomputed overlap between the cells of a source grid
// A and a destination grid B. The overlap tables depend only on the two
// grids, so a Hntr can be reused for any number of fields and is safe for
// concurrent use.
//
// Internally the tables use 1-based indices. For destination column ib
// and row jb:
//
//	imin[ib], imax[ib]: western- and eastern-most columns of A that overlap
//	    column ib. imax may exceed A.IM() when ib spans the date line.
//	fmin[ib], fmax[ib]: fraction of column imin[ib] west of ib and of
//	    column imax[ib] east of ib.
//	jmin[jb], jmax[jb]: southern- and northern-most rows of A that
//	    overlap row jb.
//	gmin[jb], gmax[jb]: sine-of-latitude extent of row jmin[jb] south of
//	    jb and of row jmax[jb] north of jb.
type Hntr struct {
	a, b   Grid
	datmis float64

	sina, sinb []float64
	fmin, fmax []float64
	imin, imax []int
	gmin, gmax []float64
	jmin, jmax []int
}

// A returns the source grid.
func (h *Hntr) A() Grid { return h.a }

// B returns the destination grid.
func (h *Hntr) B() Grid { return h.b }

// Datmis returns the value given to destination cells that receive no
// source weight.
func (h *Hntr) Datmis() float64 { return h.datmis }

// New precomputes the overlap between grids a and b.
func New(a, b Grid, datmis float64) (*Hntr, error) {
	for _, g := range []Grid{a, b} {
		if g.im <= 0 || g.jm <= 0 || len(g.sin) != g.jm+1 {
			return nil, &MalformedGridError{Param: "im", Value: float64(g.im), Reason: "grid was not created with NewGrid"}
		}
	}
	h := &Hntr{
		a:      a,
		b:      b,
		datmis: datmis,
		sina:   a.sin,
		sinb:   b.sin,
	}
	h.partitionEastWest()
	h.partitionNorthSouth()
	return h, nil
}

// partitionEastWest computes imin, imax, fmin and fmax. Longitudes are
// measured in units of 1/(ima*imb) of the globe so that cell edges of both
// grids fall on exact multiples.
func (h *Hntr) partitionEastWest() {
	ima, imb := h.a.im, h.b.im
	h.imin = make([]int, imb+1)
	h.imax = make([]int, imb+1)
	h.fmin = make([]float64, imb+1)
	h.fmax = make([]float64, imb+1)

	ia := 1
	ria := (float64(ia) + h.a.offi - float64(ima)) * float64(imb) // eastern edge of ia
	ib := imb
	for ibp1 := 1; ibp1 <= imb; ibp1++ {
		rib := (float64(ibp1-1) + h.b.offi) * float64(ima) // western edge of ibp1
		for ria < rib {
			ia++
			ria += float64(imb)
		}
		if ria == rib {
			// The eastern edge of ia is the western edge of ibp1.
			h.imax[ib] = ia
			h.fmax[ib] = 0
			ia++
			ria += float64(imb)
			h.imin[ibp1] = ia
			h.fmin[ibp1] = 0
		} else {
			// ia contains the western edge of ibp1.
			h.imax[ib] = ia
			h.fmax[ib] = (ria - rib) / float64(imb)
			h.imin[ibp1] = ia
			h.fmin[ibp1] = 1 - h.fmax[ib]
		}
		ib = ibp1
	}
	h.imax[imb] += ima
}

// partitionNorthSouth computes jmin, jmax, gmin and gmax.
func (h *Hntr) partitionNorthSouth() {
	jma, jmb := h.a.jm, h.b.jm
	h.jmin = make([]int, jmb+1)
	h.jmax = make([]int, jmb+1)
	h.gmin = make([]float64, jmb+1)
	h.gmax = make([]float64, jmb+1)

	h.jmin[1] = 1
	h.gmin[1] = 0
	ja := 1
	for jb := 1; jb < jmb; jb++ {
		for h.sina[ja] < h.sinb[jb] {
			ja++
		}
		if h.sina[ja] == h.sinb[jb] {
			// The northern edge of ja is the northern edge of jb.
			h.jmax[jb] = ja
			h.gmax[jb] = 0
			ja++
			h.jmin[jb+1] = ja
			h.gmin[jb+1] = 0
		} else {
			// ja contains the northern edge of jb.
			h.jmax[jb] = ja
			h.gmax[jb] = h.sina[ja] - h.sinb[jb]
			h.jmin[jb+1] = ja
			h.gmin[jb+1] = h.sinb[jb] - h.sina[ja-1]
		}
	}
	h.jmax[jmb] = jma
	h.gmax[jmb] = 0
}

// overlaps calls f with the 0-based index of every source cell that
// overlaps destination cell (ib, jb) (1-based) and the size of the overlap
// in units of source-cell longitude fraction times sine of latitude.
func (h *Hntr) overlaps(ib, jb int, f func(ija int, fg float64)) {
	jamin, jamax := h.jmin[jb], h.jmax[jb]
	iamin, iamax := h.imin[ib], h.imax[ib]
	for ja := jamin; ja <= jamax; ja++ {
		g := h.sina[ja] - h.sina[ja-1]
		if ja == jamin {
			g -= h.gmin[jb]
		}
		if ja == jamax {
			g -= h.gmax[jb]
		}
		for iarev := iamin; iarev <= iamax; iarev++ {
			ia := 1 + (iarev-1)%h.a.im
			ija := ia + h.a.im*(ja-1)
			fr := 1.
			if iarev == iamin {
				fr -= h.fmin[ib]
			}
			if iarev == iamax {
				fr -= h.fmax[ib]
			}
			f(ija-1, fr*g)
		}
	}
}

func checkField(name string, x []float64, n int) error {
	if len(x) != n {
		return &DimensionMismatchError{Field: name, Expected: n, Actual: len(x)}
	}
	return nil
}

// Regrid1 interpolates field a with weights wta from grid A to grid B.
// Both are stored with longitude varying fastest. The weighted integral of
// the field is conserved. Destination cells covered only by source cells
// with zero weight are set to Datmis. If meanPolar is true, the values in
// the southern- and northern-most rows of B are replaced by their
// weighted mean over the row.
func (h *Hntr) Regrid1(wta, a []float64, meanPolar bool) ([]float64, error) {
	if err := checkField("wta", wta, h.a.Size()); err != nil {
		return nil, err
	}
	if err := checkField("a", a, h.a.Size()); err != nil {
		return nil, err
	}
	for i, w := range wta {
		if math.IsNaN(w) {
			return nil, &NaNInInputError{Field: "wta", Index: i}
		}
		if w != 0 && math.IsNaN(a[i]) {
			return nil, &NaNInInputError{Field: "a", Index: i}
		}
	}

	imb, jmb := h.b.im, h.b.jm
	b := make([]float64, h.b.Size())
	rowValue := make([]float64, jmb+1)
	rowWeight := make([]float64, jmb+1)
	for jb := 1; jb <= jmb; jb++ {
		for ib := 1; ib <= imb; ib++ {
			var weight, value float64
			h.overlaps(ib, jb, func(ija int, fg float64) {
				if wta[ija] == 0 {
					return
				}
				weight += fg * wta[ija]
				value += fg * wta[ija] * a[ija]
			})
			ijb := ib + imb*(jb-1) - 1
			b[ijb] = h.datmis
			if weight != 0 {
				b[ijb] = value / weight
			}
			rowValue[jb] += value
			rowWeight[jb] += weight
		}
	}

	if meanPolar {
		for _, jb := range polarRows(jmb) {
			bb := h.datmis
			if rowWeight[jb] != 0 {
				bb = rowValue[jb] / rowWeight[jb]
			}
			for ib := 1; ib <= imb; ib++ {
				b[ib+imb*(jb-1)-1] = bb
			}
		}
	}
	return b, nil
}

func polarRows(jm int) []int {
	if jm == 1 {
		return []int{1}
	}
	return []int{1, jm}
}

// Regrid is like Regrid1 but takes and returns fields with shape
// (A.JM(), A.IM()) and (B.JM(), B.IM()).
func (h *Hntr) Regrid(wta, a *sparse.DenseArray, meanPolar bool) (*sparse.DenseArray, error) {
	for _, x := range []struct {
		name string
		arr  *sparse.DenseArray
	}{{"wta", wta}, {"a", a}} {
		if len(x.arr.Shape) != 2 || x.arr.Shape[0] != h.a.jm || x.arr.Shape[1] != h.a.im {
			return nil, &DimensionMismatchError{Field: x.name, Expected: h.a.Size(), Actual: len(x.arr.Elements)}
		}
	}
	b, err := h.Regrid1(wta.Elements, a.Elements, meanPolar)
	if err != nil {
		return nil, err
	}
	o := sparse.ZerosDense(h.b.jm, h.b.im)
	copy(o.Elements, b)
	return o, nil
}

// An Accumulator receives the entries of a regridding matrix.
// *coo.Matrix is an Accumulator.
type Accumulator interface {
	Add(row, col int, val float64)
}

// Matrix adds the regridding matrix from A to B to acc, with rows
// indexing cells of B and columns indexing cells of A. The entry for each
// overlapping pair is wtb times the fraction of the B cell's longitude span
// and the fraction of its sine-of-latitude span that the A cell covers, so
// every row sums to the corresponding element of wtb. wtb may be nil, in
// which case all destination weights are 1. If clip is not nil, only
// destination cells for which it returns true are included.
func (h *Hntr) Matrix(acc Accumulator, clip func(ijb int) bool, wtb []float64) error {
	if wtb != nil {
		if err := checkField("wtb", wtb, h.b.Size()); err != nil {
			return err
		}
	}
	imb, jmb := h.b.im, h.b.jm
	// Span of one B cell in units of A cell longitude.
	lonSpan := float64(h.a.im) / float64(imb)
	for jb := 1; jb <= jmb; jb++ {
		latSpan := h.sinb[jb] - h.sinb[jb-1]
		for ib := 1; ib <= imb; ib++ {
			ijb := ib + imb*(jb-1) - 1
			if clip != nil && !clip(ijb) {
				continue
			}
			w := 1.
			if wtb != nil {
				w = wtb[ijb]
			}
			h.overlaps(ib, jb, func(ija int, fg float64) {
				acc.Add(ijb, ija, w*fg/(lonSpan*latSpan))
			})
		}
	}
	return nil
}

// ScaledMatrix returns the matrix M such that M·a equals Regrid1(wta, a)
// without polar averaging, for every destination cell that receives
// nonzero source weight. Rows for destination cells without source weight
// are empty; all other rows sum to 1.
func (h *Hntr) ScaledMatrix(wta []float64) (*coo.Matrix, error) {
	if err := checkField("wta", wta, h.a.Size()); err != nil {
		return nil, err
	}
	for i, w := range wta {
		if math.IsNaN(w) {
			return nil, &NaNInInputError{Field: "wta", Index: i}
		}
	}
	m := coo.New(h.b.Size(), h.a.Size())
	var cols []int
	var vals []float64
	imb := h.b.im
	for jb := 1; jb <= h.b.jm; jb++ {
		for ib := 1; ib <= imb; ib++ {
			cols, vals = cols[:0], vals[:0]
			var weight float64
			h.overlaps(ib, jb, func(ija int, fg float64) {
				if wta[ija] == 0 {
					return
				}
				cols = append(cols, ija)
				vals = append(vals, fg*wta[ija])
				weight += fg * wta[ija]
			})
			if weight == 0 {
				continue
			}
			ijb := ib + imb*(jb-1) - 1
			for k, c := range cols {
				m.Add(ijb, c, vals[k]/weight)
			}
		}
	}
	m.SumDuplicates()
	return m, nil
}
