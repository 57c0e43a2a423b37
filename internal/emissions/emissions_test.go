package emissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/population"
	"github.com/rshade/commutesim/internal/scenario"
)

func ptr[T any](v T) *T { return &v }

func testTable(t *testing.T, entries ...factors.Entry) *factors.Table {
	t.Helper()
	table, err := factors.NewTable("test", entries)
	require.NoError(t, err)
	return table
}

func testConfig(t *testing.T, convention string, heating *scenario.HeatingSpec) *scenario.Config {
	t.Helper()
	cfg, err := scenario.New(scenario.Spec{
		Population:         1,
		Region:             "uk",
		DistanceConvention: convention,
		Modes: map[string]scenario.ModeSpec{
			"car":    {Share: 0.5, Distance: scenario.Fixed(10), Fuels: map[string]float64{"petrol": 1}},
			"walk":   {Share: 0.3, Distance: scenario.Fixed(2), ZeroEmission: true},
			"remote": {Share: 0.2, Remote: true},
		},
		Heating: heating,
	})
	require.NoError(t, err)
	return cfg
}

var (
	carPetrol = factors.Entry{Category: factors.CategoryCommute, Mode: "car", Subtype: "petrol", Value: 0.17}
	ukGrid    = factors.Entry{Category: factors.CategoryElectricity, Region: "uk", Value: 0.2}
	gas       = factors.Entry{Category: factors.CategoryHeating, Value: 0.18}
)

func TestCommuteCalculator(t *testing.T) {
	table := testTable(t, carPetrol)

	tests := []struct {
		name       string
		convention string
		ind        population.Individual
		want       float64
	}{
		{
			name:       "round trip full week",
			convention: scenario.RoundTrip,
			ind:        population.Individual{Mode: "car", Subtype: "petrol", DistanceKm: 10},
			want:       10 * 230 * 0.17,
		},
		{
			name:       "one way doubles the distance",
			convention: scenario.OneWay,
			ind:        population.Individual{Mode: "car", Subtype: "petrol", DistanceKm: 10},
			want:       10 * 2 * 230 * 0.17,
		},
		{
			name:       "wfh days reduce office days",
			convention: scenario.RoundTrip,
			ind:        population.Individual{Mode: "car", Subtype: "petrol", DistanceKm: 10, WFHDays: 2},
			want:       10 * 3 * 46 * 0.17,
		},
		{
			name:       "zero emission mode ignores distance",
			convention: scenario.OneWay,
			ind:        population.Individual{Mode: "walk", DistanceKm: 1000},
			want:       0,
		},
		{
			name:       "remote individual",
			convention: scenario.OneWay,
			ind:        population.Individual{Mode: "remote", Remote: true, WFHDays: 5},
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCommuteCalculator(testConfig(t, tt.convention, nil), table)
			got, err := calc.Emissions(tt.ind)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCommuteCalculator_Example391(t *testing.T) {
	cfg, err := scenario.New(scenario.Spec{
		Population:         1000,
		Region:             "uk",
		DistanceConvention: scenario.RoundTrip,
		Modes:              map[string]scenario.ModeSpec{"car": {Share: 1, Distance: scenario.Fixed(10)}},
	})
	require.NoError(t, err)
	table := testTable(t, factors.Entry{Category: factors.CategoryCommute, Mode: "car", Value: 0.17})

	got, err := NewCommuteCalculator(cfg, table).Emissions(population.Individual{Mode: "car", DistanceKm: 10})
	require.NoError(t, err)
	assert.InDelta(t, 391.0, got, 1e-9)
}

func TestCommuteCalculator_Monotonic(t *testing.T) {
	calc := NewCommuteCalculator(testConfig(t, scenario.OneWay, nil), testTable(t, carPetrol))

	prev := -1.0
	for d := 0.0; d <= 100; d += 0.5 {
		got, err := calc.Emissions(population.Individual{Mode: "car", Subtype: "petrol", DistanceKm: d, WFHDays: 1.5})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "distance %g", d)
		prev = got
	}
}

func TestCommuteCalculator_MissingFactor(t *testing.T) {
	calc := NewCommuteCalculator(testConfig(t, scenario.OneWay, nil), testTable(t, ukGrid))

	_, err := calc.Emissions(population.Individual{Mode: "car", Subtype: "diesel", DistanceKm: 3})
	require.ErrorIs(t, err, factors.ErrMissingFactor)

	var missing *factors.MissingFactorError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "diesel", missing.Key.Subtype)
	assert.Equal(t, "uk", missing.Key.Region)

	// Zero-emission modes never touch the table.
	got, err := calc.Emissions(population.Individual{Mode: "walk", DistanceKm: 3})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestWFHCalculator(t *testing.T) {
	heating := &scenario.HeatingSpec{
		KWhPerDay: 10,
		Months:    map[string]float64{"winter": 1},
		Extent:    map[string]float64{"whole": 1},
	}

	tests := []struct {
		name        string
		heating     *scenario.HeatingSpec
		entries     []factors.Entry
		ind         population.Individual
		wantElec    float64
		wantHeating float64
		wantErr     bool
	}{
		{
			name:     "no wfh needs no factor",
			entries:  []factors.Entry{carPetrol},
			ind:      population.Individual{Mode: "car"},
			wantElec: 0,
		},
		{
			name:     "two days a week",
			entries:  []factors.Entry{ukGrid},
			ind:      population.Individual{Mode: "car", WFHDays: 2},
			wantElec: 2 * 46 * 2.5 * 0.2,
		},
		{
			name:    "missing grid factor",
			entries: []factors.Entry{carPetrol},
			ind:     population.Individual{Mode: "car", WFHDays: 1},
			wantErr: true,
		},
		{
			name:        "heating supplement",
			heating:     heating,
			entries:     []factors.Entry{ukGrid, gas},
			ind:         population.Individual{Mode: "remote", Remote: true, WFHDays: 5, HeatingScale: 0.5},
			wantElec:    5 * 46 * 2.5 * 0.2,
			wantHeating: 5 * 46 * 10 * 0.5 * 0.18,
		},
		{
			name:     "zero heating scale skips the heating factor",
			heating:  heating,
			entries:  []factors.Entry{ukGrid},
			ind:      population.Individual{Mode: "car", WFHDays: 1},
			wantElec: 46 * 2.5 * 0.2,
		},
		{
			name:    "missing heating factor",
			heating: heating,
			entries: []factors.Entry{ukGrid},
			ind:     population.Individual{Mode: "car", WFHDays: 1, HeatingScale: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewWFHCalculator(testConfig(t, scenario.OneWay, tt.heating), testTable(t, tt.entries...))

			got, err := calc.Emissions(tt.ind)
			if tt.wantErr {
				require.ErrorIs(t, err, factors.ErrMissingFactor)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantElec+tt.wantHeating, got, 1e-9)

			heat, err := calc.Heating(tt.ind)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantHeating, heat, 1e-9)
		})
	}
}

func TestScorer(t *testing.T) {
	scorer := NewScorer(testConfig(t, scenario.RoundTrip, nil), testTable(t, carPetrol, ukGrid))

	score, err := scorer.Score(population.Individual{Mode: "car", Subtype: "petrol", DistanceKm: 10, WFHDays: 1})
	require.NoError(t, err)
	assert.InDelta(t, 10*4*46.0, score.AnnualKm, 1e-9)
	assert.InDelta(t, 10*4*46*0.17, score.Commute, 1e-9)
	assert.InDelta(t, 46*2.5*0.2, score.WFH, 1e-9)
	assert.Zero(t, score.Heating)
	assert.InDelta(t, score.Commute+score.WFH, score.Total(), 1e-12)

	_, err = NewScorer(testConfig(t, scenario.RoundTrip, nil), testTable(t, carPetrol)).
		Score(population.Individual{Mode: "car", Subtype: "petrol", WFHDays: 1})
	require.ErrorIs(t, err, factors.ErrMissingFactor)
}

func supplementConfig(t *testing.T, work scenario.WorkSpec, wfh scenario.WFHSpec) *scenario.Config {
	t.Helper()
	cfg, err := scenario.New(scenario.Spec{
		Population:         1,
		Region:             "uk",
		DistanceConvention: scenario.RoundTrip,
		Work:               work,
		Modes:              map[string]scenario.ModeSpec{"car": {Share: 1, Distance: scenario.Fixed(10)}},
		WFH:                wfh,
	})
	require.NoError(t, err)
	return cfg
}

func TestCommuteCalculator_LeaveAndPartTime(t *testing.T) {
	table := testTable(t, factors.Entry{Category: factors.CategoryCommute, Mode: "car", Value: 0.17})
	// 230 working days less 23 days of leave.
	calc := NewCommuteCalculator(supplementConfig(t, scenario.WorkSpec{LeaveDays: 23}, scenario.WFHSpec{}), table)

	tests := []struct {
		name string
		ind  population.Individual
		want float64
	}{
		{name: "full time", ind: population.Individual{Mode: "car", DistanceKm: 10}, want: 10 * 207 * 0.17},
		{name: "half time", ind: population.Individual{Mode: "car", DistanceKm: 10, PartTime: 0.5}, want: 10 * 103.5 * 0.17},
		{name: "hybrid half time", ind: population.Individual{Mode: "car", DistanceKm: 10, WFHDays: 1, PartTime: 0.5}, want: 10 * 4 * 46 * 0.9 * 0.5 * 0.17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Emissions(tt.ind)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestWFHCalculator_EquipmentAndLighting(t *testing.T) {
	equipment := &scenario.EquipmentSpec{
		LaptopShare:     1,
		PhoneShare:      1,
		MonitorShare:    1,
		LaptopKW:        ptr(0.05),
		MonitorKW:       ptr(0.03),
		PhoneKWhPerYear: ptr(5.0),
	}
	lighting := &scenario.LightingSpec{KW: ptr(0.04)}
	wfh := scenario.WFHSpec{KWhPerDay: ptr(0.0), Equipment: equipment, Lighting: lighting}

	tests := []struct {
		name          string
		work          scenario.WorkSpec
		ind           population.Individual
		wantEquipment float64
		wantLighting  float64
	}{
		{
			name: "no wfh days",
			ind:  population.Individual{Mode: "car", EquipmentKW: 0.08, Phone: true},
		},
		{
			name:          "laptop monitor and phone",
			ind:           population.Individual{Mode: "car", WFHDays: 2, EquipmentKW: 0.08, Phone: true},
			wantEquipment: (2*46*7*0.08 + 5*0.4) * 0.2,
			wantLighting:  2 * 46 * 7 * 0.04 * 0.5 * 0.2,
		},
		{
			name:          "part time on a longer day",
			work:          scenario.WorkSpec{HoursPerDay: 8},
			ind:           population.Individual{Mode: "car", WFHDays: 5, PartTime: 0.5, EquipmentKW: 0.2},
			wantEquipment: 5 * 46 * 0.5 * 8 * 0.2 * 0.2,
			wantLighting:  5 * 46 * 0.5 * 8 * 0.04 * 0.5 * 0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewWFHCalculator(supplementConfig(t, tt.work, wfh), testTable(t, ukGrid))

			equip, err := calc.Equipment(tt.ind)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantEquipment, equip, 1e-9)

			light, err := calc.Lighting(tt.ind)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLighting, light, 1e-9)

			total, err := calc.Emissions(tt.ind)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantEquipment+tt.wantLighting, total, 1e-9)
		})
	}
}

func TestWFHCalculator_SupplementsNeedGridFactor(t *testing.T) {
	cfg := supplementConfig(t, scenario.WorkSpec{}, scenario.WFHSpec{
		KWhPerDay: ptr(0.0),
		Equipment: &scenario.EquipmentSpec{},
		Lighting:  &scenario.LightingSpec{},
	})
	calc := NewWFHCalculator(cfg, testTable(t, carPetrol))

	_, err := calc.Equipment(population.Individual{Mode: "car", WFHDays: 1, EquipmentKW: scenario.DefaultDesktopKW})
	require.ErrorIs(t, err, factors.ErrMissingFactor)
	_, err = calc.Lighting(population.Individual{Mode: "car", WFHDays: 1})
	require.ErrorIs(t, err, factors.ErrMissingFactor)
}

func TestScorer_BreaksOutSupplements(t *testing.T) {
	cfg := supplementConfig(t, scenario.WorkSpec{}, scenario.WFHSpec{
		Equipment: &scenario.EquipmentSpec{},
		Lighting:  &scenario.LightingSpec{},
	})
	table := testTable(t, factors.Entry{Category: factors.CategoryCommute, Mode: "car", Value: 0.17}, ukGrid)

	score, err := NewScorer(cfg, table).Score(population.Individual{Mode: "car", DistanceKm: 10, WFHDays: 1, EquipmentKW: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 46*7*0.1*0.2, score.Equipment, 1e-9)
	assert.InDelta(t, 46*7*scenario.DefaultLightingKW*scenario.DefaultLitShare*0.2, score.Lighting, 1e-9)
	assert.InDelta(t, 46*2.5*0.2+score.Equipment+score.Lighting, score.WFH, 1e-9)
}
