package fishery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDominates(t *testing.T) {
	require.True(t, Dominates([]float64{1, 2}, []float64{1, 3}))
	require.False(t, Dominates([]float64{1, 2}, []float64{1, 2}))
	require.False(t, Dominates([]float64{0, 4}, []float64{1, 3}))
}

func TestNonDominated(t *testing.T) {
	points := [][]float64{
		{-2000, 0.4}, // profit end
		{-1500, 0.2}, // robust end
		{-1400, 0.3}, // dominated by 1
		{-1800, 0.3}, // trade-off
		{-1500, 0.2}, // duplicate of 1
	}
	require.Equal(t, []int{0, 1, 3, 4}, NonDominated(points))
	require.Nil(t, NonDominated(nil))
	require.Equal(t, []int{0}, NonDominated([][]float64{{1, 1, 1}}))
}
