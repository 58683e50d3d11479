package fishery

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/msdbook/msdsim/pkg/config"
)

// Strategy selects how harvest effort evolves after the first step.
type Strategy string

const (
	// StrategyPreviousPrey recomputes effort from the previous step's prey.
	StrategyPreviousPrey Strategy = "previous_prey"
	// StrategyInitialOnly applies the policy at the initial state only.
	// Effort is zero from the first step on, matching the legacy behaviour
	// of any tag other than Previous_Prey.
	StrategyInitialOnly Strategy = "initial_only"
	// StrategyConstant keeps the effort chosen at the initial state.
	StrategyConstant Strategy = "constant"
)

// UnknownStrategyError is returned for strategy tags that are not recognised.
type UnknownStrategyError struct {
	Tag string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q (must be previous_prey, initial_only or constant)", e.Tag)
}

// ParseStrategy accepts the canonical names and the legacy "Previous_Prey" tag.
func ParseStrategy(tag string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "previous_prey", "":
		return StrategyPreviousPrey, nil
	case "initial_only":
		return StrategyInitialOnly, nil
	case "constant":
		return StrategyConstant, nil
	}
	return "", &UnknownStrategyError{Tag: tag}
}

// UnmarshalText rejects unknown strategies at decode time.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Params is one state of the world: the strategy and the ecological
// constants of the predator-prey system.
type Params struct {
	Strategy Strategy `json:"strategy"`
	A        float64  `json:"a"` // predator attack rate
	B        float64  `json:"b"` // prey growth rate
	C        float64  `json:"c"` // conversion efficiency
	D        float64  `json:"d"` // predator death rate
	H        float64  `json:"h"` // handling time
	K        float64  `json:"k"` // prey carrying capacity
	M        float64  `json:"m"` // predator interference exponent
	SigmaX   float64  `json:"sigma_x"`
	SigmaY   float64  `json:"sigma_y"`
}

// DefaultParams returns the reference state of the world.
func DefaultParams() Params {
	p, _ := ParamsFromScenario(config.DefaultScenario())
	return p
}

// Validate checks that the parameters describe a usable system.
func (p Params) Validate() error {
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return err
	}
	for _, f := range p.fields() {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("parameter %s must be finite", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("parameter %s cannot be negative", f.name)
		}
	}
	if p.K == 0 {
		return fmt.Errorf("parameter k must be positive")
	}
	return nil
}

type namedValue struct {
	name  string
	value float64
}

func (p Params) fields() []namedValue {
	return []namedValue{
		{"a", p.A}, {"b", p.B}, {"c", p.C}, {"d", p.D}, {"h", p.H},
		{"k", p.K}, {"m", p.M}, {"sigma_x", p.SigmaX}, {"sigma_y", p.SigmaY},
	}
}

// ParamsFromStrings converts the text vector
// [strategy, a, b, c, d, h, K, m, sigmaX, sigmaY] used by external
// optimisation drivers.
func ParamsFromStrings(in []string) (Params, error) {
	if len(in) != 10 {
		return Params{}, fmt.Errorf("expected 10 scenario values, got %d", len(in))
	}
	strategy, err := ParseStrategy(in[0])
	if err != nil {
		return Params{}, err
	}

	names := []string{"a", "b", "c", "d", "h", "k", "m", "sigma_x", "sigma_y"}
	values := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(strings.TrimSpace(in[i+1]), 64)
		if err != nil {
			return Params{}, fmt.Errorf("parse %s: %w", name, err)
		}
		values[i] = v
	}

	p := Params{
		Strategy: strategy,
		A:        values[0],
		B:        values[1],
		C:        values[2],
		D:        values[3],
		H:        values[4],
		K:        values[5],
		M:        values[6],
		SigmaX:   values[7],
		SigmaY:   values[8],
	}
	return p, p.Validate()
}

// ParamsFromScenario converts a scenario file entry.
func ParamsFromScenario(s *config.Scenario) (Params, error) {
	strategy, err := ParseStrategy(s.Strategy)
	if err != nil {
		return Params{}, err
	}
	p := Params{
		Strategy: strategy,
		A:        s.A,
		B:        s.B,
		C:        s.C,
		D:        s.D,
		H:        s.H,
		K:        s.K,
		M:        s.M,
		SigmaX:   s.SigmaX,
		SigmaY:   s.SigmaY,
	}
	return p, p.Validate()
}
