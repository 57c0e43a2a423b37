package scenario

import (
	"reflect"
	"sort"
)

// Config is a validated scenario. It is immutable: accessors return copies and
// nothing can change a Config after New returns it.
type Config struct {
	spec    Spec
	modes   []Mode
	heating *Heating
}

// Mode is the validated view of one commute mode.
type Mode struct {
	Name         string
	Share        float64
	Distance     *DistributionSpec
	Fuels        []Weight
	ZeroEmission bool
	Remote       bool
}

// Travels reports whether individuals of this mode draw a commute distance.
func (m Mode) Travels() bool {
	return !m.Remote && m.Distance != nil
}

// Weight is one option of a categorical draw.
type Weight struct {
	Name  string
	Share float64
	Scale float64
}

// PartTime is the validated part-time block.
type PartTime struct {
	Share float64
	FTE   DistributionSpec
}

// Equipment is the validated home IT supplement.
type Equipment struct {
	LaptopShare     float64
	PhoneShare      float64
	MonitorShare    float64
	LaptopKW        float64
	DesktopKW       float64
	MonitorKW       float64
	PhoneKWhPerYear float64
}

// Lighting is the validated home lighting supplement.
type Lighting struct {
	KW       float64
	LitShare float64
}

// Heating is the validated heating supplement.
type Heating struct {
	KWhPerDay   float64
	Months      []Weight
	Extent      []Weight
	SharedShare float64
}

// New validates spec and builds a Config. All problems are reported together
// in a *ConfigurationError; no partially valid Config is ever returned.
func New(spec Spec) (*Config, error) {
	normalized, problems := spec.normalized()
	problems = sortProblems(append(problems, problemsFor(normalized)...))
	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	cfg := &Config{spec: normalized}

	names := make([]string, 0, len(normalized.Modes))
	for name := range normalized.Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := normalized.Modes[name]
		cfg.modes = append(cfg.modes, Mode{
			Name:         name,
			Share:        m.Share,
			Distance:     m.Distance,
			Fuels:        weights(m.Fuels, nil),
			ZeroEmission: m.ZeroEmission,
			Remote:       m.Remote,
		})
	}

	if h := normalized.Heating; h != nil {
		cfg.heating = &Heating{
			KWhPerDay:   h.KWhPerDay,
			Months:      weights(h.Months, monthScales),
			Extent:      weights(h.Extent, extentScales),
			SharedShare: h.SharedShare,
		}
	}

	return cfg, nil
}

// weights turns a share map into a name-sorted slice, attaching scales when given.
func weights(shares, scales map[string]float64) []Weight {
	if len(shares) == 0 {
		return nil
	}
	out := make([]Weight, 0, len(shares))
	for name, share := range shares {
		out = append(out, Weight{Name: name, Share: share, Scale: scales[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Name returns the scenario's descriptive name.
func (c *Config) Name() string { return c.spec.Name }

// Population returns the number of individuals per run.
func (c *Config) Population() int { return c.spec.Population }

// Region selects the electricity and heating factors.
func (c *Config) Region() string { return c.spec.Region }

// Runs returns the scenario's default run count.
func (c *Config) Runs() int { return c.spec.Runs }

// DistanceConvention is OneWay or RoundTrip.
func (c *Config) DistanceConvention() string { return c.spec.DistanceConvention }

// TripsPerOfficeDay is 2 for one-way distances and 1 for round-trip distances.
func (c *Config) TripsPerOfficeDay() float64 {
	if c.spec.DistanceConvention == RoundTrip {
		return 1
	}
	return 2
}

// DaysPerWeek is the working-week length.
func (c *Config) DaysPerWeek() float64 { return c.spec.Work.DaysPerWeek }

// WeeksPerYear is the number of working weeks per year.
func (c *Config) WeeksPerYear() float64 { return c.spec.Work.WeeksPerYear }

// WorkingDaysPerYear is DaysPerWeek times WeeksPerYear.
func (c *Config) WorkingDaysPerYear() float64 {
	return c.spec.Work.DaysPerWeek * c.spec.Work.WeeksPerYear
}

// HoursPerDay is the length of a full-time working day.
func (c *Config) HoursPerDay() float64 { return c.spec.Work.HoursPerDay }

// LeaveDays is the number of leave and absence days per year.
func (c *Config) LeaveDays() float64 { return c.spec.Work.LeaveDays }

// Attendance is the share of working days not lost to leave.
func (c *Config) Attendance() float64 {
	days := c.WorkingDaysPerYear()
	if days == 0 {
		return 1
	}
	return 1 - c.spec.Work.LeaveDays/days
}

// PartTime returns the part-time block, if configured.
func (c *Config) PartTime() (PartTime, bool) {
	p := c.spec.Work.PartTime
	if p == nil {
		return PartTime{}, false
	}
	return PartTime{Share: p.Share, FTE: *p.FTE.Clone()}, true
}

// Equipment returns the home IT supplement, if configured.
func (c *Config) Equipment() (Equipment, bool) {
	e := c.spec.WFH.Equipment
	if e == nil {
		return Equipment{}, false
	}
	return Equipment{
		LaptopShare:     e.LaptopShare,
		PhoneShare:      e.PhoneShare,
		MonitorShare:    e.MonitorShare,
		LaptopKW:        *e.LaptopKW,
		DesktopKW:       *e.DesktopKW,
		MonitorKW:       *e.MonitorKW,
		PhoneKWhPerYear: *e.PhoneKWhPerYear,
	}, true
}

// Lighting returns the home lighting supplement, if configured.
func (c *Config) Lighting() (Lighting, bool) {
	l := c.spec.WFH.Lighting
	if l == nil {
		return Lighting{}, false
	}
	return Lighting{KW: *l.KW, LitShare: *l.LitShare}, true
}

// KWhPerWFHDay is the incremental home electricity of one WFH day.
func (c *Config) KWhPerWFHDay() float64 { return *c.spec.WFH.KWhPerDay }

// WFHDays returns the WFH-days-per-week distribution.
func (c *Config) WFHDays() DistributionSpec { return *c.spec.WFH.Days.Clone() }

// Modes returns every mode sorted by name.
func (c *Config) Modes() []Mode {
	out := make([]Mode, len(c.modes))
	for i, m := range c.modes {
		out[i] = m.clone()
	}
	return out
}

// Mode returns a mode by name.
func (c *Config) Mode(name string) (Mode, bool) {
	name = normalizeName(name)
	i := sort.Search(len(c.modes), func(i int) bool { return c.modes[i].Name >= name })
	if i < len(c.modes) && c.modes[i].Name == name {
		return c.modes[i].clone(), true
	}
	return Mode{}, false
}

// Heating returns the heating supplement, if configured.
func (c *Config) Heating() (Heating, bool) {
	if c.heating == nil {
		return Heating{}, false
	}
	h := *c.heating
	h.Months = append([]Weight(nil), c.heating.Months...)
	h.Extent = append([]Weight(nil), c.heating.Extent...)
	return h, true
}

// Spec returns the normalised document this Config was built from. Passing it
// back to New yields an equal Config.
func (c *Config) Spec() Spec { return c.spec.Clone() }

// Equal reports whether two configs describe the same scenario.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return reflect.DeepEqual(c.spec, other.spec)
}

func (m Mode) clone() Mode {
	out := m
	out.Distance = m.Distance.Clone()
	out.Fuels = append([]Weight(nil), m.Fuels...)
	return out
}
