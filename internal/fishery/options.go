package fishery

import (
	"fmt"

	"github.com/msdbook/msdsim/internal/rbf"
)

// Options configures one evaluation. Start from DefaultOptions: a zero
// DiscountRate, LowHarvestFraction or ExtinctionThreshold is used as given,
// while the other fields fall back to their defaults in WithDefaults.
type Options struct {
	Shape               rbf.Shape
	Realizations        int
	Steps               int
	DiscountRate        float64
	LowHarvestFraction  float64
	ExtinctionThreshold float64
	InitialPredator     float64

	// RecordRealizations is the number of leading realizations whose steps
	// are passed to Observer.
	RecordRealizations int
	Observer           Observer
}

// DefaultOptions returns the reference settings: 100 realizations of 100
// steps with a two-RBF policy.
func DefaultOptions() Options {
	return Options{
		Shape:               rbf.DefaultShape(),
		Realizations:        100,
		Steps:               100,
		DiscountRate:        0.05,
		LowHarvestFraction:  0.05,
		ExtinctionThreshold: 1,
		InitialPredator:     250,
	}
}

// WithDefaults fills the fields whose zero value is unusable from
// DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.Shape == (rbf.Shape{}) {
		o.Shape = def.Shape
	}
	if o.Realizations == 0 {
		o.Realizations = def.Realizations
	}
	if o.Steps == 0 {
		o.Steps = def.Steps
	}
	if o.InitialPredator == 0 {
		o.InitialPredator = def.InitialPredator
	}
	return o
}

// Validate checks the options and the decision vector against them.
func (o Options) Validate(vars []float64) error {
	if o.Shape.NIn != 1 || o.Shape.NOut != 1 {
		return fmt.Errorf("fishery policy needs one input and one output, got n_in=%d n_out=%d", o.Shape.NIn, o.Shape.NOut)
	}
	if err := o.Shape.Validate(vars); err != nil {
		return err
	}
	if o.Realizations <= 0 {
		return fmt.Errorf("realizations must be positive, got %d", o.Realizations)
	}
	if o.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", o.Steps)
	}
	if o.DiscountRate <= -1 {
		return fmt.Errorf("discount rate must be greater than -1, got %v", o.DiscountRate)
	}
	if o.LowHarvestFraction < 0 || o.ExtinctionThreshold < 0 {
		return fmt.Errorf("low harvest fraction and extinction threshold cannot be negative")
	}
	if o.InitialPredator <= 0 {
		return fmt.Errorf("initial predator population must be positive, got %v", o.InitialPredator)
	}
	if o.RecordRealizations < 0 {
		return fmt.Errorf("record realizations cannot be negative")
	}
	return nil
}
