// Package factors holds the emission factor table consumed by the emission
// calculators. Tables are immutable once built and safe for concurrent reads.
package factors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Category groups factors by the activity they convert.
type Category string

// Known factor categories.
const (
	// CategoryCommute factors are kg CO2e per passenger-km.
	CategoryCommute Category = "commute"

	// CategoryElectricity factors are kg CO2e per kWh of grid electricity.
	CategoryElectricity Category = "electricity"

	// CategoryHeating factors are kg CO2e per kWh of home heating fuel.
	CategoryHeating Category = "heating"
)

// AnyRegion is the region value of an entry that applies to every region.
const AnyRegion = ""

// Default units per category.
const (
	UnitPerKm  = "kgCO2e/km"
	UnitPerKWh = "kgCO2e/kWh"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommute, CategoryElectricity, CategoryHeating:
		return true
	default:
		return false
	}
}

// DefaultUnit returns the unit a category's factors are expressed in.
func (c Category) DefaultUnit() string {
	if c == CategoryCommute {
		return UnitPerKm
	}
	return UnitPerKWh
}

// Key identifies a single factor.
type Key struct {
	Category Category
	Mode     string
	Subtype  string
	Region   string
}

// NewKey builds a normalised key.
func NewKey(category Category, mode, subtype, region string) Key {
	return Key{
		Category: Category(normalize(string(category))),
		Mode:     normalize(mode),
		Subtype:  normalize(subtype),
		Region:   normalize(region),
	}
}

func (k Key) String() string {
	parts := []string{string(k.Category)}
	if k.Mode != "" {
		parts = append(parts, k.Mode)
	}
	if k.Subtype != "" {
		parts = append(parts, k.Subtype)
	}
	region := k.Region
	if region == AnyRegion {
		region = "*"
	}
	return strings.Join(parts, "/") + "@" + region
}

// Factor is a single conversion factor.
type Factor struct {
	Value  float64
	Unit   string
	Source string
}

// Entry is the serialised form of one table row.
type Entry struct {
	Category Category `json:"category" yaml:"category"`
	Mode     string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Subtype  string   `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Region   string   `json:"region,omitempty" yaml:"region,omitempty"`
	Value    float64  `json:"value" yaml:"value"`
	Unit     string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Source   string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// Key returns the normalised lookup key of the entry.
func (e Entry) Key() Key {
	return NewKey(e.Category, e.Mode, e.Subtype, e.Region)
}

// Document is the on-disk shape of a YAML or JSON factor table.
type Document struct {
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Factors []Entry `json:"factors" yaml:"factors"`
}

// Table is an immutable emission factor lookup.
type Table struct {
	name    string
	entries map[Key]Factor
	digest  string
}

// NewTable validates entries and builds a table. Duplicate keys, unknown
// categories, and negative or non-finite values are rejected.
func NewTable(name string, entries []Entry) (*Table, error) {
	t := &Table{
		name:    name,
		entries: make(map[Key]Factor, len(entries)),
	}

	for i, e := range entries {
		key := e.Key()
		if !key.Category.Valid() {
			return nil, fmt.Errorf("%w: entry %d: unknown category %q", ErrInvalidFactor, i, e.Category)
		}
		if key.Category == CategoryCommute && key.Mode == "" {
			return nil, fmt.Errorf("%w: entry %d: commute factors need a mode", ErrInvalidFactor, i)
		}
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) || e.Value < 0 {
			return nil, fmt.Errorf("%w: entry %d (%s): value %v must be finite and non-negative",
				ErrInvalidFactor, i, key, e.Value)
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s", ErrInvalidFactor, key)
		}
		unit := e.Unit
		if unit == "" {
			unit = key.Category.DefaultUnit()
		}
		t.entries[key] = Factor{Value: e.Value, Unit: unit, Source: e.Source}
	}

	t.digest = t.computeDigest()
	return t, nil
}

// Name returns the table's descriptive name.
func (t *Table) Name() string { return t.name }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Digest returns a stable content hash, independent of entry order.
func (t *Table) Digest() string { return t.digest }

// Lookup resolves key. An entry for the exact region wins; otherwise an entry
// for AnyRegion with the same category, mode and subtype is used.
func (t *Table) Lookup(key Key) (Factor, error) {
	key = NewKey(key.Category, key.Mode, key.Subtype, key.Region)
	if f, ok := t.entries[key]; ok {
		return f, nil
	}
	if key.Region != AnyRegion {
		wildcard := key
		wildcard.Region = AnyRegion
		if f, ok := t.entries[wildcard]; ok {
			return f, nil
		}
	}
	return Factor{}, &MissingFactorError{Key: key}
}

// Commute returns the kg CO2e per passenger-km for a mode and subtype.
func (t *Table) Commute(mode, subtype, region string) (float64, error) {
	f, err := t.Lookup(NewKey(CategoryCommute, mode, subtype, region))
	return f.Value, err
}

// Electricity returns the grid factor for a region.
func (t *Table) Electricity(region string) (float64, error) {
	f, err := t.Lookup(NewKey(CategoryElectricity, "", "", region))
	return f.Value, err
}

// Heating returns the home heating fuel factor for a region.
func (t *Table) Heating(region string) (float64, error) {
	f, err := t.Lookup(NewKey(CategoryHeating, "", "", region))
	return f.Value, err
}

// Entries returns the table rows in a stable order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for k, f := range t.entries {
		out = append(out, Entry{
			Category: k.Category,
			Mode:     k.Mode,
			Subtype:  k.Subtype,
			Region:   k.Region,
			Value:    f.Value,
			Unit:     f.Unit,
			Source:   f.Source,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

// Document returns the table in its serialisable form.
func (t *Table) Document() Document {
	return Document{Name: t.name, Factors: t.Entries()}
}

func (t *Table) computeDigest() string {
	h := sha256.New()
	for _, e := range t.Entries() {
		_, _ = h.Write([]byte(e.Key().String()))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(strconv.FormatFloat(e.Value, 'g', -1, 64)))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(e.Unit))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
