package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/commutesim/internal/factors"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{name: "zero value", params: Params{}},
		{name: "offset mode", params: Params{Limit: 10, Offset: 20}},
		{name: "page mode", params: Params{Limit: 10, Page: 2}},
		{name: "negative limit", params: Params{Limit: -1}, wantErr: ErrInvalidLimit},
		{name: "limit too large", params: Params{Limit: MaxLimit + 1}, wantErr: ErrInvalidLimit},
		{name: "negative offset", params: Params{Offset: -1}, wantErr: ErrInvalidOffset},
		{name: "negative page", params: Params{Page: -1}, wantErr: ErrInvalidPage},
		{name: "page and offset", params: Params{Limit: 5, Page: 1, Offset: 3}, wantErr: ErrMixedModes},
		{name: "page without limit", params: Params{Page: 1}, wantErr: ErrPageWithoutLimit},
		{name: "bad sort order", params: Params{Sort: "value:up"}, wantErr: ErrInvalidSortOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in      string
		field   string
		order   string
		wantErr error
	}{
		{in: "", field: "", order: SortOrderAsc},
		{in: "value", field: "value", order: SortOrderAsc},
		{in: "value:DESC", field: "value", order: SortOrderDesc},
		{in: " mode : asc ", field: "mode", order: SortOrderAsc},
		{in: ":desc", wantErr: ErrEmptySortField},
		{in: "a:b:c", wantErr: ErrInvalidSortFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			field, order, err := ParseSort(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.order, order)
		})
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name   string
		params Params
		want   []int
	}{
		{name: "no limit", params: Params{}, want: items},
		{name: "limit", params: Params{Limit: 3}, want: []int{1, 2, 3}},
		{name: "offset", params: Params{Limit: 3, Offset: 5}, want: []int{6, 7}},
		{name: "offset past end", params: Params{Offset: 10}, want: []int{}},
		{name: "page", params: Params{Limit: 3, Page: 2}, want: []int{4, 5, 6}},
		{name: "last page", params: Params{Limit: 3, Page: 3}, want: []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.params, items))
		})
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Params{Limit: 3, Page: 2}, 7)
	assert.Equal(t, Meta{TotalItems: 7, Shown: 3, CurrentPage: 2, TotalPages: 3, HasNext: true}, m)

	m = NewMeta(Params{}, 7)
	assert.Equal(t, Meta{TotalItems: 7, Shown: 7}, m)
}

func TestFactorSorter(t *testing.T) {
	entries := []factors.Entry{
		{Category: factors.CategoryCommute, Mode: "car", Value: 0.17},
		{Category: factors.CategoryCommute, Mode: "bus", Value: 0.1},
		{Category: factors.CategoryHeating, Region: "uk", Value: 0.2},
	}
	s := NewFactorSorter()

	assert.Equal(t, []string{"category", "mode", "region", "subtype", "value"}, s.ValidFields())
	assert.True(t, s.IsValidField("value"))
	assert.False(t, s.IsValidField("unit"))

	sorted, err := s.Sort(entries, "value:desc")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, sorted[0].Value, 0)
	assert.InDelta(t, 0.1, sorted[2].Value, 0)
	assert.Equal(t, "car", entries[0].Mode, "input is not reordered")

	sorted, err = s.Sort(entries, "mode")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "bus", "car"}, []string{sorted[0].Mode, sorted[1].Mode, sorted[2].Mode})

	unchanged, err := s.Sort(entries, "")
	require.NoError(t, err)
	assert.Equal(t, entries, unchanged)

	_, err = s.Sort(entries, "unit")
	require.ErrorIs(t, err, ErrInvalidSortField)
}
