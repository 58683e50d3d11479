package fishery

import (
	"fmt"

	"github.com/msdbook/msdsim/internal/rbf"
	"github.com/msdbook/msdsim/pkg/utils"
)

// Bounds are the sampling ranges of the uncertain factors.
type Bounds struct {
	A      rbf.Range `json:"a"`
	B      rbf.Range `json:"b"`
	C      rbf.Range `json:"c"`
	D      rbf.Range `json:"d"`
	H      rbf.Range `json:"h"`
	K      rbf.Range `json:"k"`
	M      rbf.Range `json:"m"`
	SigmaX rbf.Range `json:"sigma_x"`
	SigmaY rbf.Range `json:"sigma_y"`
}

// DefaultBounds returns the default uncertainty ranges. b, h, K and m follow
// the sweep used to plot the predator-dominance surface, and a spans the
// [0, 2] window that surface is clipped to. c, d and the noise scales are
// bands around the baseline scenario.
func DefaultBounds() Bounds {
	return Bounds{
		A:      rbf.Range{Min: 0, Max: 2},
		B:      rbf.Range{Min: 0.005, Max: 1},
		C:      rbf.Range{Min: 0.2, Max: 1},
		D:      rbf.Range{Min: 0.05, Max: 0.2},
		H:      rbf.Range{Min: 0.001, Max: 1},
		K:      rbf.Range{Min: 100, Max: 2000},
		M:      rbf.Range{Min: 0.1, Max: 1.5},
		SigmaX: rbf.Range{Min: 0.001, Max: 0.01},
		SigmaY: rbf.Range{Min: 0.001, Max: 0.01},
	}
}

func (b Bounds) ranges() []*rbf.Range {
	return []*rbf.Range{&b.A, &b.B, &b.C, &b.D, &b.H, &b.K, &b.M, &b.SigmaX, &b.SigmaY}
}

// Validate checks that every range is ordered and non-negative and that
// carrying capacity stays positive.
func (b Bounds) Validate() error {
	names := []string{"a", "b", "c", "d", "h", "k", "m", "sigma_x", "sigma_y"}
	for i, r := range b.ranges() {
		if r.Min > r.Max {
			return fmt.Errorf("bounds %s: min %v exceeds max %v", names[i], r.Min, r.Max)
		}
		if r.Min < 0 {
			return fmt.Errorf("bounds %s: min cannot be negative", names[i])
		}
	}
	if b.K.Min <= 0 {
		return fmt.Errorf("bounds k: min must be positive")
	}
	return nil
}

// SampleStates draws n states of the world by Latin hypercube sampling:
// each factor's range is cut into n equal strata and every stratum is used
// exactly once. The strategy is copied from base.
func SampleStates(base Params, bounds Bounds, n int, rng *utils.RandSource) ([]Params, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	states := make([]Params, n)
	for i := range states {
		states[i] = base
	}

	setters := []func(*Params, float64){
		func(p *Params, v float64) { p.A = v },
		func(p *Params, v float64) { p.B = v },
		func(p *Params, v float64) { p.C = v },
		func(p *Params, v float64) { p.D = v },
		func(p *Params, v float64) { p.H = v },
		func(p *Params, v float64) { p.K = v },
		func(p *Params, v float64) { p.M = v },
		func(p *Params, v float64) { p.SigmaX = v },
		func(p *Params, v float64) { p.SigmaY = v },
	}

	stratum := 1 / float64(n)
	for f, r := range bounds.ranges() {
		perm := rng.Perm(n)
		for i := range states {
			lo := float64(perm[i]) * stratum
			u := rng.UniformFloat64(lo, lo+stratum)
			setters[f](&states[i], r.Min+u*r.Width())
		}
	}
	return states, nil
}
