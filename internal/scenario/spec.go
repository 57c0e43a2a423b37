// Package scenario defines the user-facing scenario document and the validated,
// immutable Config the estimation engine consumes.
package scenario

import (
	"maps"
	"slices"
	"strings"
)

// Distance conventions.
const (
	// OneWay distances are doubled to get the daily commute.
	OneWay = "one_way"
	// RoundTrip distances already cover the full daily commute.
	RoundTrip = "round_trip"
)

// Defaults applied when a document leaves a field unset.
const (
	DefaultDaysPerWeek  = 5.0
	DefaultWeeksPerYear = 46.0
	DefaultKWhPerWFHDay = 2.5
	DefaultHoursPerDay  = 7.0
	DefaultRuns         = 10
	DefaultConvention   = OneWay
	MaxRuns             = 100_000
	MaxPopulation       = 10_000_000
	ShareTolerance      = 1e-6
)

// Defaults for the optional part-time, equipment and lighting blocks.
const (
	DefaultPartTimeFTE     = 0.5
	DefaultLaptopKW        = 0.05
	DefaultDesktopKW       = 0.2
	DefaultMonitorKW       = 0.03
	DefaultPhoneKWhPerYear = 2.0
	DefaultLightingKW      = 0.04
	DefaultLitShare        = 0.5
)

// Spec is a scenario document as written by a user. It is loose: fields may be
// unset and map keys may differ in case. New turns it into a Config.
type Spec struct {
	Name               string              `json:"name,omitempty" yaml:"name,omitempty"`
	Population         int                 `json:"population" yaml:"population" validate:"gte=0,lte=10000000"`
	Region             string              `json:"region" yaml:"region" validate:"required"`
	DistanceConvention string              `json:"distance_convention,omitempty" yaml:"distance_convention,omitempty" validate:"omitempty,oneof=one_way round_trip"` //nolint:lll // struct tags
	Work               WorkSpec            `json:"work" yaml:"work"`
	Modes              map[string]ModeSpec `json:"modes" yaml:"modes" validate:"required,min=1,dive"`
	WFH                WFHSpec             `json:"wfh" yaml:"wfh"`
	Heating            *HeatingSpec        `json:"heating,omitempty" yaml:"heating,omitempty"`
	Runs               int                 `json:"runs,omitempty" yaml:"runs,omitempty" validate:"gte=0,lte=100000"`
}

// WorkSpec describes the working pattern shared by every individual.
//
// LeaveDays are holiday and absence days per year on top of the weeks not
// worked. They thin office and WFH days alike.
type WorkSpec struct {
	DaysPerWeek  float64       `json:"days_per_week,omitempty" yaml:"days_per_week,omitempty" validate:"gte=0,lte=7"`
	WeeksPerYear float64       `json:"weeks_per_year,omitempty" yaml:"weeks_per_year,omitempty" validate:"gte=0,lte=52"`
	HoursPerDay  float64       `json:"hours_per_day,omitempty" yaml:"hours_per_day,omitempty" validate:"gte=0,lte=24"`
	LeaveDays    float64       `json:"leave_days,omitempty" yaml:"leave_days,omitempty" validate:"gte=0"`
	PartTime     *PartTimeSpec `json:"part_time,omitempty" yaml:"part_time,omitempty"`
}

// PartTimeSpec gives the share of staff working part time and the fraction
// of a full-time week they work. FTE draws are bounded to [0, 1].
type PartTimeSpec struct {
	Share float64           `json:"share" yaml:"share" validate:"gte=0,lte=1"`
	FTE   *DistributionSpec `json:"fte,omitempty" yaml:"fte,omitempty"`
}

// ModeSpec describes one commute mode.
type ModeSpec struct {
	Share        float64            `json:"share" yaml:"share" validate:"gte=0,lte=1"`
	Distance     *DistributionSpec  `json:"distance,omitempty" yaml:"distance,omitempty"`
	Fuels        map[string]float64 `json:"fuels,omitempty" yaml:"fuels,omitempty"`
	ZeroEmission bool               `json:"zero_emission,omitempty" yaml:"zero_emission,omitempty"`
	Remote       bool               `json:"remote,omitempty" yaml:"remote,omitempty"`
}

// WFHSpec describes how often people work from home and the extra home
// electricity that costs.
type WFHSpec struct {
	Days      *DistributionSpec `json:"days,omitempty" yaml:"days,omitempty"`
	KWhPerDay *float64          `json:"kwh_per_day,omitempty" yaml:"kwh_per_day,omitempty" validate:"omitempty,gte=0"`
	Equipment *EquipmentSpec    `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Lighting  *LightingSpec     `json:"lighting,omitempty" yaml:"lighting,omitempty"`
}

// EquipmentSpec adds home IT electricity. Shares are the fraction of staff
// with a laptop (the rest use a desktop), a work phone and an extra monitor.
// Power draws are kW while working from home; phones are charged per year and
// attributed by the share of working days spent at home.
type EquipmentSpec struct {
	LaptopShare     float64  `json:"laptop_share" yaml:"laptop_share" validate:"gte=0,lte=1"`
	PhoneShare      float64  `json:"phone_share" yaml:"phone_share" validate:"gte=0,lte=1"`
	MonitorShare    float64  `json:"monitor_share" yaml:"monitor_share" validate:"gte=0,lte=1"`
	LaptopKW        *float64 `json:"laptop_kw,omitempty" yaml:"laptop_kw,omitempty" validate:"omitempty,gte=0"`
	DesktopKW       *float64 `json:"desktop_kw,omitempty" yaml:"desktop_kw,omitempty" validate:"omitempty,gte=0"`
	MonitorKW       *float64 `json:"monitor_kw,omitempty" yaml:"monitor_kw,omitempty" validate:"omitempty,gte=0"`
	PhoneKWhPerYear *float64 `json:"phone_kwh_per_year,omitempty" yaml:"phone_kwh_per_year,omitempty" validate:"omitempty,gte=0"` //nolint:lll // struct tags
}

// LightingSpec adds home lighting for the share of WFH hours that need it.
// The default LitShare of 0.5 assumes lights are on for half the year.
type LightingSpec struct {
	KW       *float64 `json:"kw,omitempty" yaml:"kw,omitempty" validate:"omitempty,gte=0"`
	LitShare *float64 `json:"lit_share,omitempty" yaml:"lit_share,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// HeatingSpec enables the home heating supplement on WFH days.
//
// Months keys: none, winter, all_year. Extent keys: workspace, part, whole.
// KWhPerDay is the heating energy of one winter WFH day for the whole home.
type HeatingSpec struct {
	KWhPerDay   float64            `json:"kwh_per_day" yaml:"kwh_per_day" validate:"gte=0"`
	Months      map[string]float64 `json:"months" yaml:"months" validate:"required,min=1"`
	Extent      map[string]float64 `json:"extent" yaml:"extent" validate:"required,min=1"`
	SharedShare float64            `json:"shared_share,omitempty" yaml:"shared_share,omitempty" validate:"gte=0,lte=1"`
}

// Heating category scales.
//
//nolint:gochecknoglobals // Fixed lookup tables.
var (
	monthScales = map[string]float64{
		"none":     0,
		"winter":   1,
		"all_year": 2,
	}
	extentScales = map[string]float64{
		"workspace": 0.25,
		"part":      0.5,
		"whole":     1,
	}
)

// SharedHeatingScale is applied to people who share a heated space.
const SharedHeatingScale = 0.5

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	out := s
	if s.Modes != nil {
		out.Modes = make(map[string]ModeSpec, len(s.Modes))
		for name, m := range s.Modes {
			out.Modes[name] = m.Clone()
		}
	}
	out.WFH.Days = s.WFH.Days.Clone()
	out.WFH.KWhPerDay = clonePtr(s.WFH.KWhPerDay)
	if p := s.Work.PartTime; p != nil {
		out.Work.PartTime = &PartTimeSpec{Share: p.Share, FTE: p.FTE.Clone()}
	}
	if e := s.WFH.Equipment; e != nil {
		eq := *e
		eq.LaptopKW = clonePtr(e.LaptopKW)
		eq.DesktopKW = clonePtr(e.DesktopKW)
		eq.MonitorKW = clonePtr(e.MonitorKW)
		eq.PhoneKWhPerYear = clonePtr(e.PhoneKWhPerYear)
		out.WFH.Equipment = &eq
	}
	if l := s.WFH.Lighting; l != nil {
		out.WFH.Lighting = &LightingSpec{KW: clonePtr(l.KW), LitShare: clonePtr(l.LitShare)}
	}
	if s.Heating != nil {
		h := *s.Heating
		h.Months = maps.Clone(s.Heating.Months)
		h.Extent = maps.Clone(s.Heating.Extent)
		out.Heating = &h
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// orDefault returns p, or a pointer to def when p is nil.
func orDefault(p *float64, def float64) *float64 {
	if p != nil {
		return p
	}
	return &def
}

// Clone returns a deep copy of m.
func (m ModeSpec) Clone() ModeSpec {
	out := m
	out.Distance = m.Distance.Clone()
	out.Fuels = maps.Clone(m.Fuels)
	return out
}

// normalized returns a deep copy with defaults filled in and names lowercased.
// Names that collide after lowercasing are reported; the first name in byte
// order is kept so the outcome never depends on map iteration.
func (s Spec) normalized() (Spec, []Problem) {
	var problems []Problem
	out := s.Clone()

	out.Name = strings.TrimSpace(out.Name)
	out.Region = normalizeName(out.Region)
	if out.DistanceConvention == "" {
		out.DistanceConvention = DefaultConvention
	}
	if out.Work.DaysPerWeek == 0 {
		out.Work.DaysPerWeek = DefaultDaysPerWeek
	}
	if out.Work.WeeksPerYear == 0 {
		out.Work.WeeksPerYear = DefaultWeeksPerYear
	}
	if out.Work.HoursPerDay == 0 {
		out.Work.HoursPerDay = DefaultHoursPerDay
	}
	if p := out.Work.PartTime; p != nil && p.FTE == nil {
		p.FTE = Fixed(DefaultPartTimeFTE)
	}
	if out.Runs == 0 {
		out.Runs = DefaultRuns
	}
	if out.WFH.Days == nil {
		out.WFH.Days = &DistributionSpec{Kind: KindFixed}
	}
	if out.WFH.KWhPerDay == nil {
		v := DefaultKWhPerWFHDay
		out.WFH.KWhPerDay = &v
	}
	if e := out.WFH.Equipment; e != nil {
		e.LaptopKW = orDefault(e.LaptopKW, DefaultLaptopKW)
		e.DesktopKW = orDefault(e.DesktopKW, DefaultDesktopKW)
		e.MonitorKW = orDefault(e.MonitorKW, DefaultMonitorKW)
		e.PhoneKWhPerYear = orDefault(e.PhoneKWhPerYear, DefaultPhoneKWhPerYear)
	}
	if l := out.WFH.Lighting; l != nil {
		l.KW = orDefault(l.KW, DefaultLightingKW)
		l.LitShare = orDefault(l.LitShare, DefaultLitShare)
	}

	if out.Modes != nil {
		modes := make(map[string]ModeSpec, len(out.Modes))
		for _, name := range slices.Sorted(maps.Keys(out.Modes)) {
			m := out.Modes[name]
			key := normalizeName(name)
			if _, dup := modes[key]; dup {
				problems = append(problems, Problem{Field: "modes", Message: "duplicate mode " + key})
				continue
			}
			if len(m.Fuels) > 0 {
				var fuelProblems []Problem
				m.Fuels, fuelProblems = normalizeKeys("modes["+key+"].fuels", m.Fuels)
				problems = append(problems, fuelProblems...)
			} else {
				m.Fuels = nil
			}
			modes[key] = m
		}
		out.Modes = modes
	}

	if out.Heating != nil {
		var hp []Problem
		out.Heating.Months, hp = normalizeKeys("heating.months", out.Heating.Months)
		problems = append(problems, hp...)
		out.Heating.Extent, hp = normalizeKeys("heating.extent", out.Heating.Extent)
		problems = append(problems, hp...)
	}

	return out, problems
}

func normalizeKeys(field string, in map[string]float64) (map[string]float64, []Problem) {
	if len(in) == 0 {
		return nil, nil
	}
	var problems []Problem
	out := make(map[string]float64, len(in))
	for _, k := range slices.Sorted(maps.Keys(in)) {
		key := normalizeName(k)
		if _, dup := out[key]; dup {
			problems = append(problems, Problem{Field: field, Message: "duplicate key " + key})
			continue
		}
		out[key] = in[k]
	}
	return out, problems
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
