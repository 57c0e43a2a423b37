package scenario

import (
	"fmt"
	"math"
	"slices"
)

// Distribution kinds.
const (
	KindFixed      = "fixed"
	KindUniform    = "uniform"
	KindNormal     = "normal"
	KindLogNormal  = "lognormal"
	KindGamma      = "gamma"
	KindTriangular = "triangular"
	KindDiscrete   = "discrete"
)

// DistributionSpec parameterises a one-dimensional distribution. Which fields
// apply depends on Kind:
//
//	fixed:      value
//	uniform:    min, max
//	normal:     mean, stddev
//	lognormal:  mean, stddev (of the distribution itself, not its log)
//	gamma:      shape, rate
//	triangular: min, mode, max
//	discrete:   values, weights
//
// Floor and Cap bound every draw. Draws outside the bounds are redrawn a
// limited number of times and then clamped.
type DistributionSpec struct {
	Kind    string    `json:"kind" yaml:"kind" validate:"required,oneof=fixed uniform normal lognormal gamma triangular discrete"` //nolint:lll // struct tags
	Value   float64   `json:"value,omitempty" yaml:"value,omitempty"`
	Min     float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max     float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Mode    float64   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Mean    float64   `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev  float64   `json:"stddev,omitempty" yaml:"stddev,omitempty"`
	Shape   float64   `json:"shape,omitempty" yaml:"shape,omitempty"`
	Rate    float64   `json:"rate,omitempty" yaml:"rate,omitempty"`
	Values  []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Weights []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Floor   *float64  `json:"floor,omitempty" yaml:"floor,omitempty"`
	Cap     *float64  `json:"cap,omitempty" yaml:"cap,omitempty"`
}

// Fixed returns a distribution that always yields v.
func Fixed(v float64) *DistributionSpec {
	return &DistributionSpec{Kind: KindFixed, Value: v}
}

// Clone returns a deep copy of d, or nil.
func (d *DistributionSpec) Clone() *DistributionSpec {
	if d == nil {
		return nil
	}
	out := *d
	out.Values = slices.Clone(d.Values)
	out.Weights = slices.Clone(d.Weights)
	if d.Floor != nil {
		v := *d.Floor
		out.Floor = &v
	}
	if d.Cap != nil {
		v := *d.Cap
		out.Cap = &v
	}
	return &out
}

// Bounds returns the effective [lo, hi] range of draws, narrowed by limit.
// The lower bound is never below zero.
func (d *DistributionSpec) Bounds(limit float64) (float64, float64) {
	lo, hi := 0.0, limit
	if d.Floor != nil && *d.Floor > lo {
		lo = *d.Floor
	}
	if d.Cap != nil && *d.Cap < hi {
		hi = *d.Cap
	}
	return lo, hi
}

// IsDegenerate reports whether every draw yields the same value.
func (d *DistributionSpec) IsDegenerate() bool {
	switch d.Kind {
	case KindFixed:
		return true
	case KindUniform:
		return d.Min == d.Max
	case KindNormal:
		return d.StdDev == 0
	default:
		return false
	}
}

// validate checks kind-specific parameters. limit is the largest value the
// quantity may take (+Inf for distances, days per week for WFH).
func (d *DistributionSpec) validate(field string, limit float64) []Problem {
	var problems []Problem
	add := func(format string, args ...any) {
		problems = append(problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	numbers := []float64{d.Value, d.Min, d.Max, d.Mode, d.Mean, d.StdDev, d.Shape, d.Rate}
	numbers = append(numbers, d.Values...)
	numbers = append(numbers, d.Weights...)
	for _, v := range numbers {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			add("parameters must be finite")
			return problems
		}
	}

	if d.Floor != nil && (*d.Floor < 0 || math.IsNaN(*d.Floor)) {
		add("floor must be >= 0")
	}
	if d.Cap != nil && (math.IsNaN(*d.Cap) || *d.Cap < 0) {
		add("cap must be >= 0")
	}
	lo, hi := d.Bounds(limit)
	if lo > hi {
		add("floor %g is above the upper bound %g", lo, hi)
		return problems
	}

	switch d.Kind {
	case KindFixed:
		if d.Value < lo || d.Value > hi {
			add("value %g is outside [%g, %g]", d.Value, lo, hi)
		}
	case KindUniform:
		if d.Max < d.Min {
			add("max %g is below min %g", d.Max, d.Min)
		} else if d.Max < lo || d.Min > hi {
			add("range [%g, %g] does not overlap [%g, %g]", d.Min, d.Max, lo, hi)
		}
	case KindNormal:
		if d.StdDev < 0 {
			add("stddev must be >= 0")
		}
	case KindLogNormal:
		if d.Mean <= 0 {
			add("mean must be > 0")
		}
		if d.StdDev < 0 {
			add("stddev must be >= 0")
		}
	case KindGamma:
		if d.Shape <= 0 {
			add("shape must be > 0")
		}
		if d.Rate <= 0 {
			add("rate must be > 0")
		}
	case KindTriangular:
		if d.Min >= d.Max {
			add("min %g must be below max %g", d.Min, d.Max)
		} else if d.Mode < d.Min || d.Mode > d.Max {
			add("mode %g is outside [%g, %g]", d.Mode, d.Min, d.Max)
		} else if d.Max < lo {
			add("range [%g, %g] lies below the floor %g", d.Min, d.Max, lo)
		}
	case KindDiscrete:
		problems = append(problems, validateDiscrete(field, d.Values, d.Weights)...)
	}

	return problems
}

func validateDiscrete(field string, values, weights []float64) []Problem {
	if len(values) == 0 {
		return []Problem{{Field: field, Message: "values must not be empty"}}
	}
	if len(values) != len(weights) {
		return []Problem{{Field: field, Message: fmt.Sprintf(
			"values and weights differ in length (%d vs %d)", len(values), len(weights))}}
	}
	var problems []Problem
	for _, v := range values {
		if v < 0 {
			problems = append(problems, Problem{Field: field, Message: "values must be >= 0"})
			break
		}
	}
	problems = append(problems, validateShares(field+".weights", weights)...)
	return problems
}

// validateShares checks a probability vector: non-negative and summing to one.
func validateShares(field string, shares []float64) []Problem {
	sum := 0.0
	for _, s := range shares {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return []Problem{{Field: field, Message: "probabilities must be finite and >= 0"}}
		}
		sum += s
	}
	if math.Abs(sum-1) > ShareTolerance {
		return []Problem{{Field: field, Message: fmt.Sprintf("probabilities sum to %g, want 1", sum)}}
	}
	return nil
}
