package pagination

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validation limits and sort defaults.
const (
	MaxLimit         = 10000
	DefaultSortOrder = "asc"
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// Validation errors.
var (
	ErrInvalidLimit      = errors.New("limit must be between 0 and 10000")
	ErrInvalidOffset     = errors.New("offset must be non-negative")
	ErrInvalidPage       = errors.New("page must be >= 1")
	ErrMixedModes        = errors.New("cannot use both --offset and --page")
	ErrPageWithoutLimit  = errors.New("--page requires --limit")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'value:desc')")
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidSortField  = errors.New("invalid sort field")
)

// Params holds list flags. Limit 0 means no limit. Offset and Page are
// mutually exclusive; Page is 1-based and uses Limit as the page size.
type Params struct {
	Limit  int
	Offset int
	Page   int
	Sort   string
}

// Validate checks bounds and flag combinations.
func (p Params) Validate() error {
	switch {
	case p.Limit < 0 || p.Limit > MaxLimit:
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, p.Limit)
	case p.Offset < 0:
		return ErrInvalidOffset
	case p.Page < 0:
		return ErrInvalidPage
	case p.Page > 0 && p.Offset > 0:
		return ErrMixedModes
	case p.Page > 0 && p.Limit == 0:
		return ErrPageWithoutLimit
	}
	_, _, err := ParseSort(p.Sort)
	return err
}

// ParseSort parses "field" or "field:order". An empty string means no sort.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(s string) (field, order string, err error) {
	if s == "" {
		return "", DefaultSortOrder, nil
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		field, order = strings.TrimSpace(parts[0]), DefaultSortOrder
	case 2: //nolint:mnd // field and order
		field, order = strings.TrimSpace(parts[0]), strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, s)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}

// Window returns the start and end indexes of the selected items in a list
// of total items. An offset past the end yields an empty window.
//
//nolint:nonamedreturns // start and end read better named.
func (p Params) Window(total int) (start, end int) {
	start = p.Offset
	if p.Page > 0 {
		start = (p.Page - 1) * p.Limit
	}
	start = min(start, total)
	end = total
	if p.Limit > 0 {
		end = min(start+p.Limit, total)
	}
	return start, end
}

// Apply returns the window of items selected by p.
func Apply[T any](p Params, items []T) []T {
	start, end := p.Window(len(items))
	return items[start:end]
}

// Meta describes a window within the full list.
type Meta struct {
	TotalItems  int  `json:"total_items" yaml:"total_items"`
	Shown       int  `json:"shown" yaml:"shown"`
	CurrentPage int  `json:"current_page,omitempty" yaml:"current_page,omitempty"`
	TotalPages  int  `json:"total_pages,omitempty" yaml:"total_pages,omitempty"`
	HasNext     bool `json:"has_next" yaml:"has_next"`
}

// NewMeta describes the window p selects from total items.
func NewMeta(p Params, total int) Meta {
	start, end := p.Window(total)
	m := Meta{TotalItems: total, Shown: end - start, HasNext: end < total}
	if p.Page > 0 {
		m.CurrentPage = p.Page
		m.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return m
}
