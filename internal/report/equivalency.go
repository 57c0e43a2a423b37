package report

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEmission is returned for negative or non-finite emissions.
var ErrInvalidEmission = errors.New("emission must be a finite non-negative number")

// EquivalencyType names a relatable comparison.
type EquivalencyType string

// Supported equivalencies.
const (
	EquivalencyKmDriven  EquivalencyType = "km_driven"
	EquivalencyHomeDays  EquivalencyType = "home_days"
	EquivalencySeedlings EquivalencyType = "tree_seedlings"
)

// Equivalency is one comparison of an emission.
type Equivalency struct {
	Type      EquivalencyType `json:"type" yaml:"type"`
	Value     float64         `json:"value" yaml:"value"`
	Formatted string          `json:"formatted" yaml:"formatted"`
	Label     string          `json:"label" yaml:"label"`
}

// Equivalencies is the set of comparisons for one emission.
type Equivalencies struct {
	InputKg float64       `json:"input_kg" yaml:"input_kg"`
	Results []Equivalency `json:"results,omitempty" yaml:"results,omitempty"`
	Text    string        `json:"text,omitempty" yaml:"text,omitempty"`
	Empty   bool          `json:"-" yaml:"-"`
}

// Calculate expresses kg CO2e as km driven, home-days of electricity and tree
// seedlings. Emissions below MinEquivalencyKg give an empty result.
func Calculate(kg float64) (Equivalencies, error) {
	if kg < 0 || math.IsNaN(kg) || math.IsInf(kg, 0) {
		return Equivalencies{Empty: true}, fmt.Errorf("%w: %v", ErrInvalidEmission, kg)
	}
	if kg < MinEquivalencyKg {
		return Equivalencies{InputKg: kg, Empty: true}, nil
	}

	results := []Equivalency{
		newEquivalency(EquivalencyKmDriven, kg/CarKgPerKm, "km driven by an average car"),
		newEquivalency(EquivalencyHomeDays, kg/HomeDayKg, "days of household electricity"),
		newEquivalency(EquivalencySeedlings, kg/TreeSeedlingKg, "tree seedlings grown for 10 years"),
	}

	return Equivalencies{
		InputKg: kg,
		Results: results,
		Text: fmt.Sprintf("Equivalent to driving ~%s km or powering a home for ~%s days",
			results[0].Formatted, results[1].Formatted),
	}, nil
}

func newEquivalency(t EquivalencyType, v float64, label string) Equivalency {
	return Equivalency{Type: t, Value: v, Formatted: formatEquivalency(v), Label: label}
}

func formatEquivalency(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
