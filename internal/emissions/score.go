package emissions

import (
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/population"
	"github.com/rshade/commutesim/internal/scenario"
)

// Score is one individual's annual footprint in kg CO2e.
type Score struct {
	Commute float64
	// WFH includes Equipment, Lighting and Heating.
	WFH       float64
	Equipment float64
	Lighting  float64
	Heating   float64
	AnnualKm  float64
}

// Total is Commute plus WFH.
func (s Score) Total() float64 { return s.Commute + s.WFH }

// Scorer runs both calculators over an individual.
type Scorer struct {
	commute *CommuteCalculator
	wfh     *WFHCalculator
}

// NewScorer builds both calculators for cfg.
func NewScorer(cfg *scenario.Config, table *factors.Table) *Scorer {
	return &Scorer{
		commute: NewCommuteCalculator(cfg, table),
		wfh:     NewWFHCalculator(cfg, table),
	}
}

// Score evaluates ind. The first missing factor aborts scoring.
func (s *Scorer) Score(ind population.Individual) (Score, error) {
	commute, err := s.commute.Emissions(ind)
	if err != nil {
		return Score{}, err
	}
	elec, err := s.wfh.Electricity(ind)
	if err != nil {
		return Score{}, err
	}
	equip, err := s.wfh.Equipment(ind)
	if err != nil {
		return Score{}, err
	}
	light, err := s.wfh.Lighting(ind)
	if err != nil {
		return Score{}, err
	}
	heat, err := s.wfh.Heating(ind)
	if err != nil {
		return Score{}, err
	}
	return Score{
		Commute:   commute,
		WFH:       elec + equip + light + heat,
		Equipment: equip,
		Lighting:  light,
		Heating:   heat,
		AnnualKm:  s.commute.AnnualKm(ind),
	}, nil
}
