package listing

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names shared by the browser URL and the catalog API.
const (
	ParamTake          = "take"
	ParamSkip          = "skip"
	ParamPage          = "page"
	ParamSort          = "sort"
	ParamSortDirection = "sortDirection"
	ParamMinDate       = "minDate"
	ParamMaxDate       = "maxDate"
	ParamMinYear       = "minYear"
	ParamMaxYear       = "maxYear"
)

// DecodeQuery builds a Filter from browser URL parameters. Pagination is
// read from the 1-based page parameter. Missing, malformed or overflowing
// values fall back to the defaults; unknown sort enum values are kept as given.
func DecodeQuery(q url.Values) Filter {
	f := DefaultFilter()

	if take, ok := parseInt(q, ParamTake); ok && take > 0 {
		f.Take = take
	}
	if p, ok := parseInt(q, ParamPage); ok {
		if skip, ok := skipFor(p, f.Take); ok {
			f.Skip = skip
		}
	}

	if sort, ok := parseInt(q, ParamSort); ok {
		f.Sort = SortType(sort)
	}
	if dir, ok := parseInt(q, ParamSortDirection); ok {
		f.SortDirection = SortDirection(dir)
	}

	f.MinDate = stringPtr(strings.TrimSpace(q.Get(ParamMinDate)))
	f.MaxDate = stringPtr(strings.TrimSpace(q.Get(ParamMaxDate)))
	if year, ok := parseInt(q, ParamMinYear); ok {
		f.MinYear = &year
	}
	if year, ok := parseInt(q, ParamMaxYear); ok {
		f.MaxYear = &year
	}
	return f
}

// EncodeQuery renders f as minimal browser URL parameters: values equal to
// the defaults are omitted and pagination is written as page when past the
// first page.
func EncodeQuery(f Filter) url.Values {
	q := url.Values{}
	if f.Take != DefaultTake {
		q.Set(ParamTake, strconv.Itoa(f.Take))
	}
	if page := CurrentPage(f); page > 1 {
		q.Set(ParamPage, strconv.Itoa(page))
	}
	if f.Sort != DefaultSort {
		q.Set(ParamSort, strconv.Itoa(int(f.Sort)))
	}
	if f.SortDirection != DefaultSortDirection {
		q.Set(ParamSortDirection, strconv.Itoa(int(f.SortDirection)))
	}
	setOptional(q, f)
	return q
}

// APIQuery renders f for the catalog API, which pages by raw skip and expects
// the sort and paging parameters on every request.
func APIQuery(f Filter) url.Values {
	q := url.Values{}
	q.Set(ParamSort, strconv.Itoa(int(f.Sort)))
	q.Set(ParamSortDirection, strconv.Itoa(int(f.SortDirection)))
	q.Set(ParamTake, strconv.Itoa(f.Take))
	q.Set(ParamSkip, strconv.Itoa(f.Skip))
	setOptional(q, f)
	return q
}

// URL returns the canonical browser path for f.
func URL(f Filter) string {
	encoded := EncodeQuery(f).Encode()
	if encoded == "" {
		return "/"
	}
	return "/?" + encoded
}

func setOptional(q url.Values, f Filter) {
	if f.MinDate != nil && *f.MinDate != "" {
		q.Set(ParamMinDate, *f.MinDate)
	}
	if f.MaxDate != nil && *f.MaxDate != "" {
		q.Set(ParamMaxDate, *f.MaxDate)
	}
	if f.MinYear != nil {
		q.Set(ParamMinYear, strconv.Itoa(*f.MinYear))
	}
	if f.MaxYear != nil {
		q.Set(ParamMaxYear, strconv.Itoa(*f.MaxYear))
	}
}

func parseInt(q url.Values, key string) (int, bool) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
