package scenario

func ptr[T any](v T) *T { return &v }

// Example returns a small but complete scenario: a mixed-mode office with
// hybrid working and the heating supplement enabled. `commutesim init` writes
// it as a starting point.
func Example() Spec {
	return Spec{
		Name:               "example office",
		Population:         250,
		Region:             "united-kingdom",
		DistanceConvention: OneWay,
		Work:               WorkSpec{DaysPerWeek: DefaultDaysPerWeek, WeeksPerYear: DefaultWeeksPerYear},
		Modes: map[string]ModeSpec{
			"car": {
				Share:    0.45,
				Distance: &DistributionSpec{Kind: KindLogNormal, Mean: 18, StdDev: 12, Cap: ptr(120.0)},
				Fuels:    map[string]float64{"petrol": 0.5, "diesel": 0.25, "hybrid": 0.15, "electric": 0.1},
			},
			"bus": {
				Share:    0.15,
				Distance: &DistributionSpec{Kind: KindGamma, Shape: 2, Rate: 0.25},
			},
			"rail": {
				Share:    0.2,
				Distance: &DistributionSpec{Kind: KindTriangular, Min: 5, Mode: 25, Max: 80},
			},
			"cycle": {
				Share:        0.1,
				Distance:     &DistributionSpec{Kind: KindUniform, Min: 1, Max: 12},
				ZeroEmission: true,
			},
			"remote": {
				Share:  0.1,
				Remote: true,
			},
		},
		WFH: WFHSpec{
			Days: &DistributionSpec{
				Kind:    KindDiscrete,
				Values:  []float64{0, 1, 2, 3},
				Weights: []float64{0.2, 0.3, 0.4, 0.1},
			},
			KWhPerDay: ptr(DefaultKWhPerWFHDay),
		},
		Heating: &HeatingSpec{
			KWhPerDay:   20,
			Months:      map[string]float64{"none": 0.2, "winter": 0.7, "all_year": 0.1},
			Extent:      map[string]float64{"workspace": 0.5, "part": 0.3, "whole": 0.2},
			SharedShare: 0.4,
		},
		Runs: DefaultRuns,
	}
}
