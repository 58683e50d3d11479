package rbf

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var unit = []Range{{Min: 0, Max: 1}}

func TestEvaluateMidpointBetweenCenters(t *testing.T) {
	// Centers at 0 and 1, radius 1, equal weights: both kernels give exp(-0.25).
	got := Evaluate([]float64{0.5}, []float64{0, 1, 0.5, 1, 1, 0.5}, unit, unit)
	require.Len(t, got, 1)
	require.InDelta(t, math.Exp(-0.25), got[0], 1e-15)
}

func TestEvaluateWeightsFromLayout(t *testing.T) {
	// [0,1,0, 1,0.5,0.5]: rbf0 (c=0,r=1,w=0), rbf1 (c=1,r=0.5,w=0.5).
	// After normalisation rbf1 carries all the weight: exp(-(0.5/0.5)^2).
	got := Evaluate([]float64{0.5}, []float64{0, 1, 0, 1, 0.5, 0.5}, unit, unit)
	require.InDelta(t, 0.36787944117144233, got[0], 1e-15)
}

func TestEvaluateDenormalisesOutput(t *testing.T) {
	got := Evaluate([]float64{0.25}, []float64{0.2, 0.5, 1.0, 0.8, 0.3, 1.0}, unit, []Range{{Min: 10, Max: 20}})
	require.InDelta(t, 15.123732596976623, got[0], 1e-12)
}

func TestEvaluateInputAtCenter(t *testing.T) {
	// Single basis function centred on the normalised input: kernel is 1.
	s := Shape{NRBF: 1, NIn: 2, NOut: 1}
	vars := []float64{0.3, 0.2, 0.7, 0.4, 2}
	in := []Range{{Min: 0, Max: 10}, {Min: -1, Max: 1}}
	got := s.Evaluate([]float64{3, 0.4}, vars, in, unit)
	require.InDelta(t, 1.0, got[0], 1e-15)
}

func TestEvaluateZeroWeightRow(t *testing.T) {
	vars := []float64{0, 1, 0, 1, 1, 0}
	out := []Range{{Min: 0.25, Max: 0.75}}
	for _, x := range []float64{0, 0.1, 0.5, 0.9, 1} {
		got := Evaluate([]float64{x}, vars, unit, out)
		require.Equal(t, 0.25, got[0], "input %v", x)
	}
}

func TestEvaluateNegativeWeightSumLeftUnnormalised(t *testing.T) {
	s := Shape{NRBF: 2, NIn: 1, NOut: 1}
	p := s.Unpack([]float64{0, 1, -1, 1, 1, 0.5})
	require.Equal(t, []float64{-1, 0.5}, p.W[0])
}

func TestEvaluateEmptyVectorReturnsLowerBounds(t *testing.T) {
	s := Shape{NRBF: 0, NIn: 1, NOut: 2}
	out := []Range{{Min: 3, Max: 5}, {Min: -2, Max: 2}}
	got := s.Evaluate([]float64{0.4}, nil, unit, out)
	require.Equal(t, []float64{3, -2}, got)
}

func TestEvaluateRadiusFloor(t *testing.T) {
	// A zero radius is replaced by MinRadius, so any offset from the center
	// drives the kernel to zero instead of dividing by zero.
	got := Evaluate([]float64{0.5}, []float64{0.4, 0, 1}, unit, unit)
	require.False(t, math.IsNaN(got[0]))
	require.Equal(t, 0.0, got[0])

	got = Evaluate([]float64{0.4}, []float64{0.4, 0, 1}, unit, unit)
	require.Equal(t, 1.0, got[0])
}

func TestEvaluateZeroWidthRangeIsNotFinite(t *testing.T) {
	got := Evaluate([]float64{0.5}, []float64{0, 1, 1}, []Range{{Min: 1, Max: 1}}, unit)
	require.True(t, math.IsNaN(got[0]) || math.IsInf(got[0], 0))
}

func TestUnpackLayout(t *testing.T) {
	s := Shape{NRBF: 2, NIn: 2, NOut: 2}
	vars := []float64{
		1, 2, 3, 4, 1, 3, // rbf0: (c,r) (c,r) w w
		5, 6, 7, 8, 3, 1, // rbf1
	}
	p := s.Unpack(vars)
	require.Equal(t, [][]float64{{1, 5}, {3, 7}}, p.C)
	require.Equal(t, [][]float64{{2, 6}, {4, 8}}, p.R)
	require.Equal(t, [][]float64{{0.25, 0.75}, {0.75, 0.25}}, p.W)
}

func TestUnpackDoesNotMutateInput(t *testing.T) {
	vars := []float64{0, 1, 2, 1, 1, 2}
	DefaultShape().Unpack(vars)
	require.Equal(t, []float64{0, 1, 2, 1, 1, 2}, vars)
}

func TestEvaluateShortVectorPanics(t *testing.T) {
	require.Panics(t, func() {
		DefaultShape().Evaluate([]float64{0.5}, []float64{0, 1, 1}, unit, unit)
	})
}

func TestShapeValidate(t *testing.T) {
	s := DefaultShape()
	require.Equal(t, 3, s.Stride())
	require.Equal(t, 6, s.Len())
	require.NoError(t, s.Validate(make([]float64, 6)))

	err := s.Validate(make([]float64, 4))
	var dvErr *InvalidDecisionVectorError
	require.True(t, errors.As(err, &dvErr))
	require.Equal(t, 4, dvErr.Got)

	require.Error(t, s.Validate([]float64{0, 1, math.NaN(), 0, 1, 1}))
	require.Error(t, Shape{NRBF: 1, NIn: 0, NOut: 1}.Validate(nil))
	require.NoError(t, Shape{NRBF: 0, NIn: 1, NOut: 1}.Validate(nil))
}

func TestEvaluateDeterministic(t *testing.T) {
	vars := []float64{0.2, 0.5, 1.0, 0.8, 0.3, 1.0}
	a := Evaluate([]float64{0.61}, vars, unit, unit)
	b := Evaluate([]float64{0.61}, vars, unit, unit)
	require.Equal(t, a, b)
}
