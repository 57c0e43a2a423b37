package scenario

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func carOnly() Spec {
	return Spec{
		Population:         1000,
		Region:             "United-Kingdom",
		DistanceConvention: RoundTrip,
		Modes: map[string]ModeSpec{
			"Car": {Share: 1, Distance: Fixed(10), Fuels: map[string]float64{"Petrol": 1}},
		},
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg, err := New(carOnly())
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Population())
	assert.Equal(t, "united-kingdom", cfg.Region())
	assert.Equal(t, RoundTrip, cfg.DistanceConvention())
	assert.InDelta(t, 1.0, cfg.TripsPerOfficeDay(), 0)
	assert.InDelta(t, 5.0, cfg.DaysPerWeek(), 0)
	assert.InDelta(t, 46.0, cfg.WeeksPerYear(), 0)
	assert.InDelta(t, 230.0, cfg.WorkingDaysPerYear(), 0)
	assert.InDelta(t, DefaultKWhPerWFHDay, cfg.KWhPerWFHDay(), 0)
	assert.Equal(t, DefaultRuns, cfg.Runs())
	assert.Equal(t, KindFixed, cfg.WFHDays().Kind)

	modes := cfg.Modes()
	require.Len(t, modes, 1)
	assert.Equal(t, "car", modes[0].Name)
	assert.True(t, modes[0].Travels())
	assert.Equal(t, []Weight{{Name: "petrol", Share: 1}}, modes[0].Fuels)

	m, ok := cfg.Mode(" CAR ")
	require.True(t, ok)
	assert.Equal(t, "car", m.Name)
	_, ok = cfg.Mode("bus")
	assert.False(t, ok)

	_, ok = cfg.Heating()
	assert.False(t, ok)
}

func TestNew_OneWayIsDefault(t *testing.T) {
	spec := carOnly()
	spec.DistanceConvention = ""
	cfg, err := New(spec)
	require.NoError(t, err)
	assert.Equal(t, OneWay, cfg.DistanceConvention())
	assert.InDelta(t, 2.0, cfg.TripsPerOfficeDay(), 0)
}

func TestNew_AccessorsReturnCopies(t *testing.T) {
	cfg, err := New(Example())
	require.NoError(t, err)

	modes := cfg.Modes()
	modes[0].Name = "mutated"
	modes[0].Distance.Mean = -1
	assert.NotEqual(t, "mutated", cfg.Modes()[0].Name)
	assert.NotEqual(t, -1.0, cfg.Modes()[0].Distance.Mean)

	spec := cfg.Spec()
	delete(spec.Modes, "car")
	_, ok := cfg.Mode("car")
	assert.True(t, ok)
}

func TestNew_Heating(t *testing.T) {
	cfg, err := New(Example())
	require.NoError(t, err)

	h, ok := cfg.Heating()
	require.True(t, ok)
	assert.InDelta(t, 20.0, h.KWhPerDay, 0)
	assert.InDelta(t, 0.4, h.SharedShare, 0)
	assert.Equal(t, []Weight{
		{Name: "all_year", Share: 0.1, Scale: 2},
		{Name: "none", Share: 0.2, Scale: 0},
		{Name: "winter", Share: 0.7, Scale: 1},
	}, h.Months)
	assert.Equal(t, "part", h.Extent[0].Name)
	assert.InDelta(t, 0.5, h.Extent[0].Scale, 0)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		field  string
	}{
		{
			name: "mode shares sum to 0.9",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{
					"car": {Share: 0.6, Distance: Fixed(10)},
					"bus": {Share: 0.3, Distance: Fixed(5)},
				}
			},
			field: "modes",
		},
		{
			name:   "negative population",
			mutate: func(s *Spec) { s.Population = -1 },
			field:  "population",
		},
		{
			name:   "missing region",
			mutate: func(s *Spec) { s.Region = " " },
			field:  "region",
		},
		{
			name:   "no modes",
			mutate: func(s *Spec) { s.Modes = nil },
			field:  "modes",
		},
		{
			name:   "bad convention",
			mutate: func(s *Spec) { s.DistanceConvention = "both_ways" },
			field:  "distance_convention",
		},
		{
			name:   "too many runs",
			mutate: func(s *Spec) { s.Runs = MaxRuns + 1 },
			field:  "runs",
		},
		{
			name: "negative mode share",
			mutate: func(s *Spec) {
				s.Modes["bus"] = ModeSpec{Share: -0.5, Distance: Fixed(1)}
			},
			field: "modes",
		},
		{
			name: "travelling mode without distance",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{"car": {Share: 1}}
			},
			field: "modes[car].distance",
		},
		{
			name: "remote mode with distance",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{"home": {Share: 1, Remote: true, Distance: Fixed(3)}}
			},
			field: "modes[home].distance",
		},
		{
			name: "fuel shares do not normalise",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{
					"car": {Share: 1, Distance: Fixed(10), Fuels: map[string]float64{"petrol": 0.5, "diesel": 0.2}},
				}
			},
			field: "modes[car].fuels",
		},
		{
			name: "duplicate mode after lowercasing",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{
					"car": {Share: 0.5, Distance: Fixed(10)},
					"CAR": {Share: 0.5, Distance: Fixed(10)},
				}
			},
			field: "modes",
		},
		{
			name: "nan distance",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{"car": {Share: 1, Distance: Fixed(math.NaN())}}
			},
			field: "modes[car].distance",
		},
		{
			name: "lognormal with zero mean",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{
					"car": {Share: 1, Distance: &DistributionSpec{Kind: KindLogNormal, StdDev: 2}},
				}
			},
			field: "modes[car].distance",
		},
		{
			name: "unknown distribution kind",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{"car": {Share: 1, Distance: &DistributionSpec{Kind: "poisson"}}}
			},
			field: "modes[car].distance.kind",
		},
		{
			name: "wfh above working week",
			mutate: func(s *Spec) {
				s.WFH.Days = Fixed(6)
			},
			field: "wfh.days",
		},
		{
			name: "discrete weights mismatch",
			mutate: func(s *Spec) {
				s.WFH.Days = &DistributionSpec{Kind: KindDiscrete, Values: []float64{0, 1}, Weights: []float64{1}}
			},
			field: "wfh.days",
		},
		{
			name: "triangular mode outside range",
			mutate: func(s *Spec) {
				s.Modes = map[string]ModeSpec{
					"car": {Share: 1, Distance: &DistributionSpec{Kind: KindTriangular, Min: 1, Mode: 9, Max: 5}},
				}
			},
			field: "modes[car].distance",
		},
		{
			name: "unknown heating month key",
			mutate: func(s *Spec) {
				s.Heating = &HeatingSpec{
					KWhPerDay: 10,
					Months:    map[string]float64{"summer": 1},
					Extent:    map[string]float64{"whole": 1},
				}
			},
			field: "heating.months",
		},
		{
			name:   "leave longer than the working year",
			mutate: func(s *Spec) { s.Work.LeaveDays = 300 },
			field:  "work.leave_days",
		},
		{
			name:   "negative leave",
			mutate: func(s *Spec) { s.Work.LeaveDays = -1 },
			field:  "work.leave_days",
		},
		{
			name:   "working day over 24 hours",
			mutate: func(s *Spec) { s.Work.HoursPerDay = 25 },
			field:  "work.hours_per_day",
		},
		{
			name:   "part-time share above one",
			mutate: func(s *Spec) { s.Work.PartTime = &PartTimeSpec{Share: 1.5} },
			field:  "work.part_time.share",
		},
		{
			name:   "part-time fte above one",
			mutate: func(s *Spec) { s.Work.PartTime = &PartTimeSpec{Share: 0.2, FTE: Fixed(1.2)} },
			field:  "work.part_time.fte",
		},
		{
			name:   "laptop share above one",
			mutate: func(s *Spec) { s.WFH.Equipment = &EquipmentSpec{LaptopShare: 2} },
			field:  "wfh.equipment.laptop_share",
		},
		{
			name:   "negative monitor power",
			mutate: func(s *Spec) { s.WFH.Equipment = &EquipmentSpec{MonitorKW: ptr(-1.0)} },
			field:  "wfh.equipment.monitor_kw",
		},
		{
			name:   "lit share above one",
			mutate: func(s *Spec) { s.WFH.Lighting = &LightingSpec{LitShare: ptr(1.5)} },
			field:  "wfh.lighting.lit_share",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := carOnly()
			tt.mutate(&spec)

			cfg, err := New(spec)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, ErrConfiguration)

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr))
			fields := make([]string, len(cerr.Problems))
			for i, p := range cerr.Problems {
				fields[i] = p.Field
			}
			assert.Contains(t, fields, tt.field, "problems: %v", cerr.Problems)
		})
	}
}

func TestNew_WorkingTimeAndSupplements(t *testing.T) {
	cfg, err := New(carOnly())
	require.NoError(t, err)
	assert.InDelta(t, DefaultHoursPerDay, cfg.HoursPerDay(), 0)
	assert.InDelta(t, 1.0, cfg.Attendance(), 0)
	_, ok := cfg.PartTime()
	assert.False(t, ok)
	_, ok = cfg.Equipment()
	assert.False(t, ok)
	_, ok = cfg.Lighting()
	assert.False(t, ok)

	spec := carOnly()
	spec.Work.LeaveDays = 23
	spec.Work.PartTime = &PartTimeSpec{Share: 0.25}
	spec.WFH.Equipment = &EquipmentSpec{LaptopShare: 0.75, PhoneShare: 0.5, LaptopKW: ptr(0.06)}
	spec.WFH.Lighting = &LightingSpec{}
	cfg, err = New(spec)
	require.NoError(t, err)

	assert.InDelta(t, 23.0, cfg.LeaveDays(), 0)
	assert.InDelta(t, 0.9, cfg.Attendance(), 1e-12)

	pt, ok := cfg.PartTime()
	require.True(t, ok)
	assert.InDelta(t, 0.25, pt.Share, 0)
	assert.Equal(t, *Fixed(DefaultPartTimeFTE), pt.FTE)

	eq, ok := cfg.Equipment()
	require.True(t, ok)
	assert.Equal(t, Equipment{
		LaptopShare:     0.75,
		PhoneShare:      0.5,
		LaptopKW:        0.06,
		DesktopKW:       DefaultDesktopKW,
		MonitorKW:       DefaultMonitorKW,
		PhoneKWhPerYear: DefaultPhoneKWhPerYear,
	}, eq)

	light, ok := cfg.Lighting()
	require.True(t, ok)
	assert.Equal(t, Lighting{KW: DefaultLightingKW, LitShare: DefaultLitShare}, light)

	again, err := New(cfg.Spec())
	require.NoError(t, err)
	assert.True(t, cfg.Equal(again), "defaults survive a round trip")

	// Editing the caller's spec afterwards must not reach the Config.
	*spec.WFH.Equipment.LaptopKW = 9
	eq, _ = cfg.Equipment()
	assert.InDelta(t, 0.06, eq.LaptopKW, 0)
}

func TestNew_CollectsEveryProblem(t *testing.T) {
	spec := carOnly()
	spec.Population = -5
	spec.Region = ""
	spec.Modes = map[string]ModeSpec{"car": {Share: 0.9, Distance: Fixed(10)}}

	err := Validate(spec)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.GreaterOrEqual(t, len(cerr.Problems), 3)
	assert.Contains(t, err.Error(), "problems:")
	assert.Contains(t, err.Error(), "probabilities sum to 0.9")
}

func TestNew_CaseCollisionsAreDeterministic(t *testing.T) {
	spec := carOnly()
	spec.Modes["car"] = ModeSpec{Share: 0.9, Distance: Fixed(10)}
	spec.Modes["Car"] = ModeSpec{Share: 1, Distance: Fixed(10), Fuels: map[string]float64{"Petrol": 0.5, "petrol": 0.5}}

	first := Validate(spec)
	var cerr *ConfigurationError
	require.ErrorAs(t, first, &cerr)
	assert.Contains(t, first.Error(), "duplicate mode car")
	assert.Contains(t, first.Error(), "duplicate key petrol")
	assert.NotContains(t, first.Error(), "sum to 0.9", "the first name in byte order is kept")

	for range 50 {
		assert.Equal(t, first.Error(), Validate(spec).Error())
	}
}

func TestNew_ZeroPopulationIsValid(t *testing.T) {
	spec := carOnly()
	spec.Population = 0
	require.NoError(t, Validate(spec))
}

func TestNew_ZeroEmissionModeNeedsNoDistance(t *testing.T) {
	spec := carOnly()
	spec.Modes = map[string]ModeSpec{"walk": {Share: 1, ZeroEmission: true}}
	cfg, err := New(spec)
	require.NoError(t, err)
	m, _ := cfg.Mode("walk")
	assert.False(t, m.Travels())
}

func TestConfig_SpecRoundTrip(t *testing.T) {
	cfg, err := New(Example())
	require.NoError(t, err)

	again, err := New(cfg.Spec())
	require.NoError(t, err)
	assert.True(t, cfg.Equal(again))

	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, cfg.Spec(), format))

			spec, err := Parse(buf.Bytes(), format)
			require.NoError(t, err)
			decoded, err := New(spec)
			require.NoError(t, err)
			assert.True(t, cfg.Equal(decoded))
		})
	}
}

func TestConfig_Equal(t *testing.T) {
	a, err := New(carOnly())
	require.NoError(t, err)
	spec := carOnly()
	spec.Population = 999
	b, err := New(spec)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	var nilCfg *Config
	assert.True(t, nilCfg.Equal(nil))
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("region: uk\npopulaton: 10\n"), FormatYAML)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Parse([]byte(`{"region":"uk","modez":{}}`), FormatJSON)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Parse(nil, FormatYAML)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "office.yaml")
	doc := `
population: 1000
region: united-kingdom
distance_convention: round_trip
modes:
  car:
    share: 1
    distance: {kind: fixed, value: 10}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Population())

	_, err = Load(filepath.Join(dir, "office.toml"))
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
