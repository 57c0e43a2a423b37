package factors

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

func testEntries() []Entry {
	return []Entry{
		{Category: CategoryCommute, Mode: "car", Subtype: "petrol", Value: 0.17},
		{Category: CategoryCommute, Mode: "car", Subtype: "petrol", Region: "norway", Value: 0.15},
		{Category: CategoryCommute, Mode: "bus", Value: 0.1},
		{Category: CategoryElectricity, Region: "united-kingdom", Value: 0.2},
		{Category: CategoryHeating, Value: 0.18},
	}
}

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{name: "valid", entries: testEntries()},
		{
			name:    "unknown category",
			entries: []Entry{{Category: "flights", Mode: "plane", Value: 0.2}},
			wantErr: true,
		},
		{
			name:    "negative value",
			entries: []Entry{{Category: CategoryCommute, Mode: "car", Value: -1}},
			wantErr: true,
		},
		{
			name:    "NaN value",
			entries: []Entry{{Category: CategoryCommute, Mode: "car", Value: math.NaN()}},
			wantErr: true,
		},
		{
			name:    "commute without mode",
			entries: []Entry{{Category: CategoryCommute, Value: 0.1}},
			wantErr: true,
		},
		{
			name: "duplicate after normalisation",
			entries: []Entry{
				{Category: CategoryCommute, Mode: "Car", Value: 0.1},
				{Category: CategoryCommute, Mode: " car ", Value: 0.2},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable("test", tt.entries)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidFactor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.entries), table.Len())
		})
	}
}

func TestTable_Lookup(t *testing.T) {
	table, err := NewTable("test", testEntries())
	require.NoError(t, err)

	tests := []struct {
		name     string
		key      Key
		want     float64
		wantMiss bool
		wantUnit string
	}{
		{name: "wildcard region", key: NewKey(CategoryCommute, "car", "petrol", "united-kingdom"), want: 0.17, wantUnit: UnitPerKm},
		{name: "exact region wins", key: NewKey(CategoryCommute, "car", "petrol", "norway"), want: 0.15, wantUnit: UnitPerKm},
		{name: "case insensitive", key: NewKey(CategoryCommute, "BUS", "", "x"), want: 0.1, wantUnit: UnitPerKm},
		{name: "electricity", key: NewKey(CategoryElectricity, "", "", "United-Kingdom"), want: 0.2, wantUnit: UnitPerKWh},
		{name: "missing subtype", key: NewKey(CategoryCommute, "car", "diesel", "norway"), wantMiss: true},
		{name: "missing region", key: NewKey(CategoryElectricity, "", "", "france"), wantMiss: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := table.Lookup(tt.key)
			if tt.wantMiss {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMissingFactor)
				var missing *MissingFactorError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, tt.key, missing.Key)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, f.Value, 1e-12)
			assert.Equal(t, tt.wantUnit, f.Unit)
		})
	}
}

func TestTable_Helpers(t *testing.T) {
	table, err := NewTable("test", testEntries())
	require.NoError(t, err)

	v, err := table.Commute("car", "petrol", "anywhere")
	require.NoError(t, err)
	assert.InDelta(t, 0.17, v, 1e-12)

	v, err = table.Electricity("united-kingdom")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, v, 1e-12)

	v, err = table.Heating("france")
	require.NoError(t, err)
	assert.InDelta(t, 0.18, v, 1e-12)

	_, err = table.Electricity("mars")
	assert.ErrorIs(t, err, ErrMissingFactor)
}

func TestTable_DigestIsOrderIndependent(t *testing.T) {
	entries := testEntries()
	a, err := NewTable("a", entries)
	require.NoError(t, err)

	reversed := make([]Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	b, err := NewTable("b", reversed)
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), b.Digest())

	changed := append([]Entry{}, entries...)
	changed[0].Value = 0.18
	c, err := NewTable("c", changed)
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestDefault(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "default", table.Name())

	v, err := table.Commute("car", "petrol", "united-kingdom")
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)

	v, err = table.Electricity("united-kingdom")
	require.NoError(t, err)
	assert.InDelta(t, 0.20705, v, 1e-9)

	v, err = table.Commute("walk", "", "united-kingdom")
	require.NoError(t, err)
	assert.Zero(t, v)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestParseAndEncode(t *testing.T) {
	source, err := NewTable("roundtrip", testEntries())
	require.NoError(t, err)

	for _, format := range []string{FormatCSV, FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, source, format))

			parsed, err := Parse(buf.Bytes(), format, "roundtrip")
			require.NoError(t, err)
			assert.Equal(t, source.Digest(), parsed.Digest())
			assert.Equal(t, source.Entries(), parsed.Entries())
		})
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "header only", data: "category,mode,subtype,region,value\n"},
		{name: "short row", data: "category,mode,subtype,region,value\ncommute,car\n"},
		{name: "bad value", data: "category,mode,subtype,region,value\ncommute,car,,,abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatCSV, "bad")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFactor)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "factors.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
name: office
factors:
  - category: commute
    mode: car
    value: 0.17
  - category: electricity
    region: united-kingdom
    value: 0.2
`), 0o600))

	table, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "office", table.Name())
	assert.Equal(t, 2, table.Len())

	_, err = Load(filepath.Join(dir, "factors.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "absent.csv"))
	assert.Error(t, err)
}
