package emissions

import (
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/population"
	"github.com/rshade/commutesim/internal/scenario"
)

// WFHCalculator scores home working: incremental electricity, plus the
// equipment, lighting and heating supplements the scenario enables.
type WFHCalculator struct {
	table          *factors.Table
	region         string
	daysPerWeek    float64
	weeksPerYear   float64
	hoursPerDay    float64
	attendance     float64
	kwhPerDay      float64
	heatingKWh     float64
	heatingEnabled bool
	equipment      *scenario.Equipment
	lighting       *scenario.Lighting
}

// NewWFHCalculator binds cfg's home-working assumptions to table.
func NewWFHCalculator(cfg *scenario.Config, table *factors.Table) *WFHCalculator {
	c := &WFHCalculator{
		table:        table,
		region:       cfg.Region(),
		daysPerWeek:  cfg.DaysPerWeek(),
		weeksPerYear: cfg.WeeksPerYear(),
		hoursPerDay:  cfg.HoursPerDay(),
		attendance:   cfg.Attendance(),
		kwhPerDay:    cfg.KWhPerWFHDay(),
	}
	if h, ok := cfg.Heating(); ok {
		c.heatingEnabled = true
		c.heatingKWh = h.KWhPerDay
	}
	if e, ok := cfg.Equipment(); ok {
		c.equipment = &e
	}
	if l, ok := cfg.Lighting(); ok {
		c.lighting = &l
	}
	return c
}

// wfhDays is the number of days per year ind works from home.
func (c *WFHCalculator) wfhDays(ind population.Individual) float64 {
	return ind.WFHDays * c.weeksPerYear * c.attendance * ind.WorkFraction()
}

// electricity converts kWh with the regional grid factor. Zero kWh is exactly
// 0 and needs no factor.
func (c *WFHCalculator) electricity(kwh float64) (float64, error) {
	if kwh == 0 {
		return 0, nil
	}
	factor, err := c.table.Electricity(c.region)
	if err != nil {
		return 0, err
	}
	return kwh * factor, nil
}

// Electricity returns wfh days per year x kWh per day x the regional grid
// factor. Zero WFH days is exactly 0 and needs no factor.
func (c *WFHCalculator) Electricity(ind population.Individual) (float64, error) {
	if ind.WFHDays == 0 {
		return 0, nil
	}
	return c.electricity(c.wfhDays(ind) * c.kwhPerDay)
}

// Equipment returns home IT electricity: the individual's computer and
// monitor draw over their WFH hours, plus the home share of a work phone.
func (c *WFHCalculator) Equipment(ind population.Individual) (float64, error) {
	if c.equipment == nil || ind.WFHDays == 0 {
		return 0, nil
	}
	kwh := c.wfhDays(ind) * c.hoursPerDay * ind.EquipmentKW
	if ind.Phone && c.daysPerWeek > 0 {
		homeShare := ind.WFHDays / c.daysPerWeek
		kwh += c.equipment.PhoneKWhPerYear * homeShare * c.attendance * ind.WorkFraction()
	}
	return c.electricity(kwh)
}

// Lighting returns home lighting electricity over the lit share of WFH hours.
func (c *WFHCalculator) Lighting(ind population.Individual) (float64, error) {
	if c.lighting == nil || ind.WFHDays == 0 {
		return 0, nil
	}
	return c.electricity(c.wfhDays(ind) * c.hoursPerDay * c.lighting.KW * c.lighting.LitShare)
}

// Heating returns the heating supplement for ind, or 0 when heating is off,
// the individual never works from home, or their heating scale is zero.
func (c *WFHCalculator) Heating(ind population.Individual) (float64, error) {
	if !c.heatingEnabled || ind.WFHDays == 0 || ind.HeatingScale == 0 {
		return 0, nil
	}
	factor, err := c.table.Heating(c.region)
	if err != nil {
		return 0, err
	}
	return c.wfhDays(ind) * c.heatingKWh * ind.HeatingScale * factor, nil
}

// Emissions returns the sum of every WFH component.
func (c *WFHCalculator) Emissions(ind population.Individual) (float64, error) {
	var total float64
	for _, part := range []func(population.Individual) (float64, error){
		c.Electricity, c.Equipment, c.Lighting, c.Heating,
	} {
		kg, err := part(ind)
		if err != nil {
			return 0, err
		}
		total += kg
	}
	return total, nil
}
