package engine

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentiles reported by every Summary.
const (
	lowPercentile  = 0.05
	midPercentile  = 0.5
	highPercentile = 0.95
)

// Summary describes one quantity across runs.
type Summary struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	P05    float64 `json:"p05" yaml:"p05"`
	P50    float64 `json:"p50" yaml:"p50"`
	P95    float64 `json:"p95" yaml:"p95"`
	// SpreadDefined is false for a single run, where StdDev is reported as 0.
	SpreadDefined bool `json:"spread_defined" yaml:"spread_defined"`
}

// ModeSummary describes one mode across runs.
type ModeSummary struct {
	Individuals Summary `json:"individuals" yaml:"individuals"`
	Commute     Summary `json:"commute_kg" yaml:"commute_kg"`
	WFH         Summary `json:"wfh_kg" yaml:"wfh_kg"`
	DistanceKm  Summary `json:"distance_km" yaml:"distance_km"`
}

// AggregateResult summarises every run of an evaluation, in kg CO2e per year.
type AggregateResult struct {
	Scenario     string                 `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	FactorTable  string                 `json:"factor_table,omitempty" yaml:"factor_table,omitempty"`
	FactorDigest string                 `json:"factor_digest,omitempty" yaml:"factor_digest,omitempty"`
	Seed         uint64                 `json:"seed" yaml:"seed"`
	Runs         int                    `json:"runs" yaml:"runs"`
	Population   int                    `json:"population" yaml:"population"`
	Total        Summary                `json:"total_kg" yaml:"total_kg"`
	Commute      Summary                `json:"commute_kg" yaml:"commute_kg"`
	WFH          Summary                `json:"wfh_kg" yaml:"wfh_kg"`
	Heating      Summary                `json:"heating_kg" yaml:"heating_kg"`
	DistanceKm   Summary                `json:"distance_km" yaml:"distance_km"`
	PerCapita    Summary                `json:"per_capita_kg" yaml:"per_capita_kg"`
	ByMode       map[string]ModeSummary `json:"by_mode,omitempty" yaml:"by_mode,omitempty"`
	RunResults   []RunResult            `json:"run_results" yaml:"run_results"`
}

// Aggregate reduces run results. Results are ordered by run index first, so
// the order they arrive in never changes the outcome.
func Aggregate(results []RunResult) (*AggregateResult, error) {
	if err := CheckRuns(len(results)); err != nil {
		return nil, err
	}

	runs := slices.Clone(results)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Run < runs[j].Run })

	pick := func(f func(RunResult) float64) Summary {
		values := make([]float64, len(runs))
		for i, r := range runs {
			values[i] = f(r)
		}
		return Summarize(values)
	}

	agg := &AggregateResult{
		Runs:       len(runs),
		Population: runs[0].Individuals,
		Total:      pick(func(r RunResult) float64 { return r.Total }),
		Commute:    pick(func(r RunResult) float64 { return r.Commute }),
		WFH:        pick(func(r RunResult) float64 { return r.WFH }),
		Heating:    pick(func(r RunResult) float64 { return r.Heating }),
		DistanceKm: pick(func(r RunResult) float64 { return r.DistanceKm }),
		PerCapita: pick(func(r RunResult) float64 {
			if r.Individuals == 0 {
				return 0
			}
			return r.Total / float64(r.Individuals)
		}),
		RunResults: runs,
	}

	modes := map[string]bool{}
	for _, r := range runs {
		for name := range r.ByMode {
			modes[name] = true
		}
	}
	if len(modes) > 0 {
		agg.ByMode = make(map[string]ModeSummary, len(modes))
		for name := range modes {
			agg.ByMode[name] = ModeSummary{
				Individuals: pick(func(r RunResult) float64 { return float64(r.ByMode[name].Individuals) }),
				Commute:     pick(func(r RunResult) float64 { return r.ByMode[name].Commute }),
				WFH:         pick(func(r RunResult) float64 { return r.ByMode[name].WFH }),
				DistanceKm:  pick(func(r RunResult) float64 { return r.ByMode[name].DistanceKm }),
			}
		}
	}

	return agg, nil
}

// Summarize computes the mean, sample standard deviation (n-1), range and
// empirical percentiles of values. values must not be empty.
func Summarize(values []float64) Summary {
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	s := Summary{
		Min:           sorted[0],
		Max:           sorted[len(sorted)-1],
		P05:           stat.Quantile(lowPercentile, stat.Empirical, sorted, nil),
		P50:           stat.Quantile(midPercentile, stat.Empirical, sorted, nil),
		P95:           stat.Quantile(highPercentile, stat.Empirical, sorted, nil),
		SpreadDefined: len(values) > 1,
	}

	if s.Min == s.Max {
		s.Mean = s.Min
		return s
	}
	s.Mean = stat.Mean(values, nil)
	s.StdDev = stat.StdDev(values, nil)
	return s
}
