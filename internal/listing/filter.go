package listing

import (
	"fmt"
	"math"
)

// SortType selects the field adverts are ordered by.
type SortType int

// Sort fields understood by the catalog API.
const (
	SortPrice SortType = 0
	SortDate  SortType = 1
	SortYear  SortType = 2
)

// SortDirection selects ascending or descending order.
type SortDirection int

// Sort directions understood by the catalog API.
const (
	SortAscending  SortDirection = 0
	SortDescending SortDirection = 1
)

// String returns a human label for templates.
func (s SortType) String() string {
	switch s {
	case SortPrice:
		return "Price"
	case SortDate:
		return "Date"
	case SortYear:
		return "Year"
	default:
		return fmt.Sprintf("SortType(%d)", int(s))
	}
}

// String returns a human label for templates.
func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "Ascending"
	case SortDescending:
		return "Descending"
	default:
		return fmt.Sprintf("SortDirection(%d)", int(d))
	}
}

// Default filter values.
const (
	DefaultTake          = 20
	DefaultSkip          = 0
	DefaultSort          = SortDate
	DefaultSortDirection = SortDescending
)

// Filter is one snapshot of the listing query. Treat it as a value: setters
// and merges return a new Filter and never write through the optional
// pointers of an existing one.
type Filter struct {
	Take          int           `json:"take"`
	Skip          int           `json:"skip"`
	Sort          SortType      `json:"sort"`
	SortDirection SortDirection `json:"sortDirection"`
	MinDate       *string       `json:"minDate,omitempty"`
	MaxDate       *string       `json:"maxDate,omitempty"`
	MinYear       *int          `json:"minYear,omitempty"`
	MaxYear       *int          `json:"maxYear,omitempty"`
}

// DefaultFilter returns the canonical default filter.
func DefaultFilter() Filter {
	return Filter{
		Take:          DefaultTake,
		Skip:          DefaultSkip,
		Sort:          DefaultSort,
		SortDirection: DefaultSortDirection,
	}
}

// FilterOption expresses a partial filter update.
type FilterOption func(*Filter)

// WithTake sets the page size. Non-positive values are ignored.
func WithTake(take int) FilterOption {
	return func(f *Filter) {
		if take > 0 {
			f.Take = take
		}
	}
}

// WithSort sets the sort field.
func WithSort(sort SortType) FilterOption {
	return func(f *Filter) { f.Sort = sort }
}

// WithSortDirection sets the sort direction.
func WithSortDirection(dir SortDirection) FilterOption {
	return func(f *Filter) { f.SortDirection = dir }
}

// WithMinDate sets the lower date bound; an empty string clears it.
func WithMinDate(date string) FilterOption {
	return func(f *Filter) { f.MinDate = stringPtr(date) }
}

// WithMaxDate sets the upper date bound; an empty string clears it.
func WithMaxDate(date string) FilterOption {
	return func(f *Filter) { f.MaxDate = stringPtr(date) }
}

// WithMinYear sets the lower model year bound; nil clears it.
func WithMinYear(year *int) FilterOption {
	return func(f *Filter) { f.MinYear = intPtr(year) }
}

// WithMaxYear sets the upper model year bound; nil clears it.
func WithMaxYear(year *int) FilterOption {
	return func(f *Filter) { f.MaxYear = intPtr(year) }
}

// Merge applies opts to a copy of f.
func Merge(f Filter, opts ...FilterOption) Filter {
	out := f
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

// CurrentPage returns the 1-based page the filter points at. It panics when
// Take is not positive.
func CurrentPage(f Filter) int {
	if f.Take <= 0 {
		panic(fmt.Sprintf("listing: current page requires positive take, got %d", f.Take))
	}
	return f.Skip/f.Take + 1
}

// ActiveFilterCount reports how many optional bounds are set.
func ActiveFilterCount(f Filter) int {
	count := 0
	if f.MinDate != nil && *f.MinDate != "" {
		count++
	}
	if f.MaxDate != nil && *f.MaxDate != "" {
		count++
	}
	if f.MinYear != nil {
		count++
	}
	if f.MaxYear != nil {
		count++
	}
	return count
}

// WithPage returns f positioned at the given 1-based page.
func WithPage(f Filter, page int) Filter {
	if page < 1 {
		page = 1
	}
	skip, ok := skipFor(page, f.Take)
	if !ok {
		return f
	}
	out := f
	out.Skip = skip
	return out
}

// WithPageSize changes the page size while keeping the current page number.
// The page is derived from f before Take is replaced.
func WithPageSize(f Filter, take int) Filter {
	if take <= 0 {
		return f
	}
	skip, ok := skipFor(CurrentPage(f), take)
	if !ok {
		return f
	}
	out := f
	out.Take = take
	out.Skip = skip
	return out
}

// skipFor returns the offset of a 1-based page. It reports false for a
// non-positive page or take and when the offset does not fit in an int.
func skipFor(page, take int) (int, bool) {
	if page < 1 || take <= 0 || page-1 > math.MaxInt/take {
		return 0, false
	}
	return (page - 1) * take, true
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func intPtr(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
