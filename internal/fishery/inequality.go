package fishery

import "math"

// Inequality returns the attack rate above which predators dominate the
// system for the given prey growth rate, interference exponent, handling
// time and carrying capacity: b^m / (h*K)^(1-m).
func Inequality(b, m, h, k float64) float64 {
	return math.Pow(b, m) / math.Pow(h*k, 1-m)
}

// PredatorDominant reports whether the attack rate exceeds the
// predator-dominance threshold. States on that side of the surface are
// prone to predator collapse.
func (p Params) PredatorDominant() bool {
	return p.A > Inequality(p.B, p.M, p.H, p.K)
}
