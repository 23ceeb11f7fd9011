package view

import "github.com/adverts-listing/adverts/internal/listing"

// Option is one entry of a select box.
type Option struct {
	Value int
	Label string
}

// ListingPage is the view model of the listing page.
type ListingPage struct {
	State listing.ListingState
	// Query is the encoded filter the forms post back.
	Query      string
	Sorts      []Option
	Directions []Option
	PageSizes  []int
}

// HasPrev reports whether a previous page link is rendered.
func (p ListingPage) HasPrev() bool {
	return p.State.CurrentPage > 1
}

// HasNext reports whether a next page link is rendered. The catalog API does
// not return a total, so a full page implies there may be more.
func (p ListingPage) HasNext() bool {
	return p.State.Filters.Take > 0 && len(p.State.Items) >= p.State.Filters.Take
}

// DetailPage is the view model of the detail page.
type DetailPage struct {
	ID      string
	State   listing.DetailState
	BackURL string
}

// SortOptions lists the sort fields offered in the filter form.
func SortOptions() []Option {
	return []Option{
		{Value: int(listing.SortPrice), Label: listing.SortPrice.String()},
		{Value: int(listing.SortDate), Label: listing.SortDate.String()},
		{Value: int(listing.SortYear), Label: listing.SortYear.String()},
	}
}

// DirectionOptions lists the sort directions offered in the filter form.
func DirectionOptions() []Option {
	return []Option{
		{Value: int(listing.SortAscending), Label: listing.SortAscending.String()},
		{Value: int(listing.SortDescending), Label: listing.SortDescending.String()},
	}
}

// PageSizeOptions lists the page sizes offered in the pager.
func PageSizeOptions() []int {
	return []int{10, 20, 50, 100}
}
