// Package rbf evaluates radial basis function control policies.
//
// A policy is encoded as a flat decision vector. For each basis function the
// vector holds NIn (center, radius) pairs followed by NOut weights, so the
// vector length is NRBF*(2*NIn+NOut).
package rbf

import (
	"fmt"
	"math"
)

// MinRadius is the floor substituted for radii at or below it.
const MinRadius = 1e-6

// Range is a closed [Min, Max] normalisation interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Width returns Max-Min.
func (r Range) Width() float64 {
	return r.Max - r.Min
}

// Shape fixes the dimensions of a policy.
type Shape struct {
	NRBF int `json:"n_rbf"`
	NIn  int `json:"n_in"`
	NOut int `json:"n_out"`
}

// DefaultShape is two basis functions mapping one input to one output.
func DefaultShape() Shape {
	return Shape{NRBF: 2, NIn: 1, NOut: 1}
}

// Stride is the number of decision variables per basis function.
func (s Shape) Stride() int {
	return 2*s.NIn + s.NOut
}

// Len is the required decision vector length.
func (s Shape) Len() int {
	return s.NRBF * s.Stride()
}

// InvalidDecisionVectorError reports a decision vector that does not match
// its shape.
type InvalidDecisionVectorError struct {
	Shape Shape
	Got   int
}

func (e *InvalidDecisionVectorError) Error() string {
	return fmt.Sprintf("decision vector has %d values, shape %dx(2*%d+%d) needs %d",
		e.Got, e.Shape.NRBF, e.Shape.NIn, e.Shape.NOut, e.Shape.Len())
}

// Validate checks the shape and the decision vector length. Evaluate does
// not validate; callers at API boundaries should.
func (s Shape) Validate(vars []float64) error {
	if s.NRBF < 0 || s.NIn < 1 || s.NOut < 1 {
		return fmt.Errorf("invalid shape: n_rbf=%d n_in=%d n_out=%d", s.NRBF, s.NIn, s.NOut)
	}
	if len(vars) != s.Len() {
		return &InvalidDecisionVectorError{Shape: s, Got: len(vars)}
	}
	for i, v := range vars {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("decision variable %d is not finite", i)
		}
	}
	return nil
}

// Params is an unpacked decision vector. C and R are indexed [input][rbf],
// W is indexed [output][rbf] and holds the normalised weights.
type Params struct {
	C [][]float64
	R [][]float64
	W [][]float64
}

// Unpack splits vars into centers, radii and weights and normalises every
// weight row with a positive sum. It panics if vars is shorter than the shape
// requires.
func (s Shape) Unpack(vars []float64) Params {
	p := Params{
		C: matrix(s.NIn, s.NRBF),
		R: matrix(s.NIn, s.NRBF),
		W: matrix(s.NOut, s.NRBF),
	}

	stride := s.Stride()
	for n := 0; n < s.NRBF; n++ {
		base := n * stride
		for m := 0; m < s.NIn; m++ {
			p.C[m][n] = vars[base+2*m]
			p.R[m][n] = vars[base+2*m+1]
		}
		for k := 0; k < s.NOut; k++ {
			p.W[k][n] = vars[base+2*s.NIn+k]
		}
	}

	for _, row := range p.W {
		var total float64
		for _, w := range row {
			total += w
		}
		if total > 0 {
			for n := range row {
				row[n] /= total
			}
		}
	}
	return p
}

// Evaluate maps inputs to outputs. Inputs are normalised with inRanges and
// outputs are de-normalised with outRanges. A zero-width input range yields
// non-finite outputs.
func (s Shape) Evaluate(inputs, vars []float64, inRanges, outRanges []Range) []float64 {
	return s.Unpack(vars).Evaluate(inputs, inRanges, outRanges)
}

// Evaluate applies unpacked parameters. Reusing Params avoids re-unpacking
// the decision vector on every call.
func (p Params) Evaluate(inputs []float64, inRanges, outRanges []Range) []float64 {
	norm := make([]float64, len(inputs))
	for m, x := range inputs {
		norm[m] = (x - inRanges[m].Min) / inRanges[m].Width()
	}

	out := make([]float64, len(p.W))
	for k, weights := range p.W {
		var u float64
		for n, w := range weights {
			var dist float64
			for m := range norm {
				r := p.R[m][n]
				if !(r > MinRadius) {
					r = MinRadius
				}
				d := (norm[m] - p.C[m][n]) / r
				dist += d * d
			}
			u += w * math.Exp(-dist)
		}
		out[k] = outRanges[k].Min + u*outRanges[k].Width()
	}
	return out
}

// Evaluate infers the shape from its arguments: NIn from inRanges, NOut from
// outRanges and NRBF from the vector length.
func Evaluate(inputs, vars []float64, inRanges, outRanges []Range) []float64 {
	s := Shape{NIn: len(inRanges), NOut: len(outRanges)}
	s.NRBF = len(vars) / s.Stride()
	return s.Evaluate(inputs, vars, inRanges, outRanges)
}

func matrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
