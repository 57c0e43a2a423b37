package pagination

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rshade/commutesim/internal/factors"
)

// FactorSorter orders emission factor entries by a named field.
type FactorSorter struct {
	compare map[string]func(a, b factors.Entry) int
}

// NewFactorSorter creates a sorter for the category, mode, subtype, region
// and value fields.
func NewFactorSorter() *FactorSorter {
	return &FactorSorter{compare: map[string]func(a, b factors.Entry) int{
		"category": func(a, b factors.Entry) int { return cmp.Compare(a.Category, b.Category) },
		"mode":     func(a, b factors.Entry) int { return cmp.Compare(a.Mode, b.Mode) },
		"subtype":  func(a, b factors.Entry) int { return cmp.Compare(a.Subtype, b.Subtype) },
		"region":   func(a, b factors.Entry) int { return cmp.Compare(a.Region, b.Region) },
		"value":    func(a, b factors.Entry) int { return cmp.Compare(a.Value, b.Value) },
	}}
}

// IsValidField reports whether field can be sorted on.
func (s *FactorSorter) IsValidField(field string) bool {
	_, ok := s.compare[field]
	return ok
}

// ValidFields returns the sortable fields in alphabetical order.
func (s *FactorSorter) ValidFields() []string {
	fields := make([]string, 0, len(s.compare))
	for f := range s.compare {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

// Sort returns a stably sorted copy of entries. An empty spec returns the
// entries unchanged.
func (s *FactorSorter) Sort(entries []factors.Entry, spec string) ([]factors.Entry, error) {
	field, order, err := ParseSort(spec)
	if err != nil || field == "" {
		return entries, err
	}
	field = strings.ToLower(field)
	compare, ok := s.compare[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(s.ValidFields(), ", "))
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b factors.Entry) int {
		if order == SortOrderDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return sorted, nil
}
