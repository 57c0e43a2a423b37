// Package emissions converts sampled individuals into annual kg CO2e.
//
// Calculators are immutable and safe for concurrent use. They never
// substitute zero for a missing factor: a lookup that fails is returned as a
// *factors.MissingFactorError.
package emissions

import (
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/population"
	"github.com/rshade/commutesim/internal/scenario"
)

// CommuteCalculator scores the journey to work.
type CommuteCalculator struct {
	table        *factors.Table
	region       string
	trips        float64
	daysPerWeek  float64
	weeksPerYear float64
	attendance   float64
	zeroEmission map[string]bool
}

// NewCommuteCalculator binds cfg's working pattern to table.
func NewCommuteCalculator(cfg *scenario.Config, table *factors.Table) *CommuteCalculator {
	c := &CommuteCalculator{
		table:        table,
		region:       cfg.Region(),
		trips:        cfg.TripsPerOfficeDay(),
		daysPerWeek:  cfg.DaysPerWeek(),
		weeksPerYear: cfg.WeeksPerYear(),
		attendance:   cfg.Attendance(),
		zeroEmission: make(map[string]bool),
	}
	for _, m := range cfg.Modes() {
		if m.ZeroEmission {
			c.zeroEmission[m.Name] = true
		}
	}
	return c
}

// AnnualKm is distance x trips per office day x office days per year. Office
// days per year are thinned by leave and by the individual's part-time share.
func (c *CommuteCalculator) AnnualKm(ind population.Individual) float64 {
	if ind.Remote {
		return 0
	}
	return ind.DistanceKm * c.trips * ind.OfficeDays(c.daysPerWeek) * c.weeksPerYear *
		c.attendance * ind.WorkFraction()
}

// Emissions returns the annual commute emissions of ind. Remote individuals
// and zero-emission modes return exactly 0 without consulting the table.
func (c *CommuteCalculator) Emissions(ind population.Individual) (float64, error) {
	if ind.Remote || c.zeroEmission[ind.Mode] {
		return 0, nil
	}
	km := c.AnnualKm(ind)
	factor, err := c.table.Commute(ind.Mode, ind.Subtype, c.region)
	if err != nil {
		return 0, err
	}
	return km * factor, nil
}
