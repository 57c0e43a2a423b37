package engine

import (
	"maps"
	"sort"

	"github.com/rshade/commutesim/internal/emissions"
	"github.com/rshade/commutesim/internal/population"
)

// ModeTotals is one mode's share of a run, in kg CO2e per year.
type ModeTotals struct {
	Individuals int     `json:"individuals" yaml:"individuals"`
	Commute     float64 `json:"commute_kg" yaml:"commute_kg"`
	WFH         float64 `json:"wfh_kg" yaml:"wfh_kg"`
	DistanceKm  float64 `json:"distance_km" yaml:"distance_km"`
	// BySubtype splits commute emissions by fuel or vehicle subtype.
	BySubtype map[string]float64 `json:"by_subtype,omitempty" yaml:"by_subtype,omitempty"`
}

// RunResult is the organisation total of one run.
type RunResult struct {
	Run         int                   `json:"run" yaml:"run"`
	Seed        uint64                `json:"seed" yaml:"seed"`
	Individuals int                   `json:"individuals" yaml:"individuals"`
	Commute     float64               `json:"commute_kg" yaml:"commute_kg"`
	WFH         float64               `json:"wfh_kg" yaml:"wfh_kg"`
	Heating     float64               `json:"heating_kg" yaml:"heating_kg"`
	Total       float64               `json:"total_kg" yaml:"total_kg"`
	DistanceKm  float64               `json:"distance_km" yaml:"distance_km"`
	ByMode      map[string]ModeTotals `json:"by_mode,omitempty" yaml:"by_mode,omitempty"`
}

// RunAccumulator folds scored individuals into run totals. Partial
// accumulators from separate batches combine with Merge.
type RunAccumulator struct {
	individuals int
	commute     float64
	wfh         float64
	heating     float64
	distance    float64
	byMode      map[string]*ModeTotals
}

// NewRunAccumulator returns an empty accumulator.
func NewRunAccumulator() *RunAccumulator {
	return &RunAccumulator{byMode: make(map[string]*ModeTotals)}
}

// Add folds one scored individual in.
func (a *RunAccumulator) Add(ind population.Individual, s emissions.Score) {
	a.individuals++
	a.commute += s.Commute
	a.wfh += s.WFH
	a.heating += s.Heating
	a.distance += s.AnnualKm

	m := a.mode(ind.Mode)
	m.Individuals++
	m.Commute += s.Commute
	m.WFH += s.WFH
	m.DistanceKm += s.AnnualKm
	if ind.Subtype != "" {
		if m.BySubtype == nil {
			m.BySubtype = make(map[string]float64)
		}
		m.BySubtype[ind.Subtype] += s.Commute
	}
}

// Merge adds other's totals into a.
func (a *RunAccumulator) Merge(other *RunAccumulator) {
	a.individuals += other.individuals
	a.commute += other.commute
	a.wfh += other.wfh
	a.heating += other.heating
	a.distance += other.distance

	for _, name := range sortedNames(other.byMode) {
		src := other.byMode[name]
		dst := a.mode(name)
		dst.Individuals += src.Individuals
		dst.Commute += src.Commute
		dst.WFH += src.WFH
		dst.DistanceKm += src.DistanceKm
		for _, sub := range sortedNames(src.BySubtype) {
			if dst.BySubtype == nil {
				dst.BySubtype = make(map[string]float64)
			}
			dst.BySubtype[sub] += src.BySubtype[sub]
		}
	}
}

// Individuals returns how many individuals were added.
func (a *RunAccumulator) Individuals() int { return a.individuals }

// Result freezes the totals into a RunResult.
func (a *RunAccumulator) Result(run int, seed uint64) RunResult {
	r := RunResult{
		Run:         run,
		Seed:        seed,
		Individuals: a.individuals,
		Commute:     a.commute,
		WFH:         a.wfh,
		Heating:     a.heating,
		Total:       a.commute + a.wfh,
		DistanceKm:  a.distance,
	}
	if len(a.byMode) > 0 {
		r.ByMode = make(map[string]ModeTotals, len(a.byMode))
		for name, m := range a.byMode {
			mt := *m
			mt.BySubtype = maps.Clone(m.BySubtype)
			r.ByMode[name] = mt
		}
	}
	return r
}

func (a *RunAccumulator) mode(name string) *ModeTotals {
	m, ok := a.byMode[name]
	if !ok {
		m = &ModeTotals{}
		a.byMode[name] = m
	}
	return m
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
