// Package fishery simulates a harvested predator-prey system under a radial
// basis function harvesting policy and scores the policy on five objectives
// and one constraint.
package fishery

import (
	"math"

	"github.com/msdbook/msdsim/internal/rbf"
	"github.com/msdbook/msdsim/pkg/utils"
)

// Step is one recorded time step of one realization.
type Step struct {
	Realization int
	Step        int
	Prey        float64
	Predator    float64
	Effort      float64
	Harvest     float64
}

// Observer receives recorded steps in order. Simulate calls it from the
// calling goroutine only.
type Observer interface {
	ObserveStep(Step)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Step)

// ObserveStep calls f(s).
func (f ObserverFunc) ObserveStep(s Step) { f(s) }

// Summary holds the statistics of one realization.
type Summary struct {
	NPV                  float64 `json:"npv"`
	LowHarvestRun        int     `json:"low_harvest_run"`
	HarvestPercentile1   float64 `json:"harvest_p01"`
	HarvestVariance      float64 `json:"harvest_variance"`
	PredatorExtinctSteps int     `json:"predator_extinct_steps"`
}

// Simulation holds the trajectories of every realization, indexed
// [realization][step] with Steps+1 entries per realization.
type Simulation struct {
	K         float64
	Prey      [][]float64
	Predator  [][]float64
	Effort    [][]float64
	Harvest   [][]float64
	Summaries []Summary
}

var (
	unitRange = []rbf.Range{{Min: 0, Max: 1}}
)

// Simulate runs opts.Realizations independent realizations of the fishery.
// Noise is drawn from rng as all prey terms followed by all predator terms,
// one of each per realization, and reused at every step. A nil rng is
// replaced by a time-seeded source.
func Simulate(vars []float64, p Params, opts Options, rng *utils.RandSource) (*Simulation, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(vars); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	strategy, _ := ParseStrategy(string(p.Strategy))
	if rng == nil {
		rng = utils.NewRandSource(0)
	}

	n, steps := opts.Realizations, opts.Steps
	epsPrey := rng.NormSamples(n, 0, p.SigmaX)
	epsPredator := rng.NormSamples(n, 0, p.SigmaY)

	policy := opts.Shape.Unpack(vars)
	preyRange := []rbf.Range{{Min: 0, Max: p.K}}
	effortFor := func(prey float64) float64 {
		return policy.Evaluate([]float64{prey}, preyRange, unitRange)[0]
	}

	sim := &Simulation{
		K:         p.K,
		Prey:      grid(n, steps+1),
		Predator:  grid(n, steps+1),
		Effort:    grid(n, steps+1),
		Harvest:   grid(n, steps+1),
		Summaries: make([]Summary, n),
	}

	for i := 0; i < n; i++ {
		x, y, z, hv := sim.Prey[i], sim.Predator[i], sim.Effort[i], sim.Harvest[i]
		noiseX, noiseY := math.Exp(epsPrey[i]), math.Exp(epsPredator[i])

		x[0] = p.K
		y[0] = opts.InitialPredator
		z[0] = effortFor(x[0])
		hv[0] = z[0] * x[0]
		npv := hv[0]

		for t := 0; t < steps; t++ {
			if x[t] > 0 && y[t] > 0 {
				den := math.Pow(y[t], p.M) + p.A*p.H*x[t]
				x[t+1] = nonNegative((x[t] + p.B*x[t]*(1-x[t]/p.K) - p.A*x[t]*y[t]/den - z[t]*x[t]) * noiseX)
				y[t+1] = nonNegative((y[t] + p.C*p.A*x[t]*y[t]/den - p.D*y[t]) * noiseY)

				switch strategy {
				case StrategyPreviousPrey:
					z[t+1] = effortFor(x[t])
				case StrategyConstant:
					z[t+1] = z[t]
				}
				// StrategyInitialOnly leaves z[t+1] at zero.
			}
			// A collapsed realization leaves x, y and z at zero from here on.
			hv[t+1] = z[t+1] * x[t+1]
			npv += hv[t+1] * math.Pow(1+opts.DiscountRate, -float64(t+1))
		}

		sim.Summaries[i] = summarize(npv, x, y, hv, opts)

		if opts.Observer != nil && i < opts.RecordRealizations {
			for t := 0; t <= steps; t++ {
				opts.Observer.ObserveStep(Step{
					Realization: i,
					Step:        t,
					Prey:        x[t],
					Predator:    y[t],
					Effort:      z[t],
					Harvest:     hv[t],
				})
			}
		}
	}

	return sim, nil
}

func summarize(npv float64, prey, predator, harvest []float64, opts Options) Summary {
	low := make([]bool, len(harvest))
	extinct := 0
	for j := range harvest {
		low[j] = harvest[j] < opts.LowHarvestFraction*prey[j]
		if predator[j] < opts.ExtinctionThreshold {
			extinct++
		}
	}
	return Summary{
		NPV:                  npv,
		LowHarvestRun:        utils.LongestRun(low),
		HarvestPercentile1:   utils.Percentile(harvest, 1),
		HarvestVariance:      utils.Variance(harvest),
		PredatorExtinctSteps: extinct,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func grid(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	g := make([][]float64, rows)
	for i := range g {
		g[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return g
}
