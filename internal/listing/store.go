package listing

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// ListingFetcher loads one page of adverts for an already encoded catalog
// API query string.
type ListingFetcher interface {
	Listing(ctx context.Context, rawQuery string) ([]Item, error)
}

// ListingFetcherFunc adapts a function to ListingFetcher.
type ListingFetcherFunc func(ctx context.Context, rawQuery string) ([]Item, error)

// Listing implements ListingFetcher.
func (fn ListingFetcherFunc) Listing(ctx context.Context, rawQuery string) ([]Item, error) {
	return fn(ctx, rawQuery)
}

// ErrListingFallback is the message shown when a fetch fails without one.
const ErrListingFallback = "An error occurred while loading the listings"

// ListingState is a read-only copy of the store used for rendering.
type ListingState struct {
	Items             []Item `json:"items"`
	Loading           bool   `json:"loading"`
	Error             string `json:"error,omitempty"`
	Filters           Filter `json:"filters"`
	CurrentPage       int    `json:"currentPage"`
	ActiveFilterCount int    `json:"activeFilterCount"`
}

// Store holds the listing page state: the current filter snapshot and the
// adverts fetched for it. Overlapping fetches are sequenced: only the most
// recently issued FetchItems may write its result.
type Store struct {
	fetcher ListingFetcher

	mu      sync.Mutex
	items   []Item
	loading bool
	err     string
	filters Filter
	seq     uint64
}

// NewStore creates a store positioned at filters.
func NewStore(fetcher ListingFetcher, filters Filter) *Store {
	return &Store{fetcher: fetcher, filters: filters, items: []Item{}}
}

// FetchItems loads adverts for the current filters. Failures are recorded in
// the store's error and never returned.
func (s *Store) FetchItems(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	ticket := s.seq
	s.loading = true
	s.err = ""
	filters := s.filters
	s.mu.Unlock()

	items, err := s.fetch(ctx, filters)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.seq {
		return
	}
	s.loading = false
	if err != nil {
		s.err = errorMessage(err, ErrListingFallback)
		return
	}
	if items == nil {
		items = []Item{}
	}
	s.items = items
	s.err = ""
}

func (s *Store) fetch(ctx context.Context, filters Filter) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listing: fetch panicked: %v", r)
		}
	}()
	if s.fetcher == nil {
		return nil, fmt.Errorf("listing: fetcher not configured")
	}
	return s.fetcher.Listing(ctx, APIQuery(filters).Encode())
}

// SetFilters replaces the filter snapshot as is, including skip.
func (s *Store) SetFilters(f Filter) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
}

// ApplyFilters merges a partial update and returns to the first page.
// Use SetPage or SetTake for changes that keep the page.
func (s *Store) ApplyFilters(opts ...FilterOption) {
	s.mu.Lock()
	next := Merge(s.filters, opts...)
	next.Skip = 0
	s.filters = next
	s.mu.Unlock()
}

// SetPage moves to the given 1-based page using the current take.
func (s *Store) SetPage(page int) {
	s.mu.Lock()
	s.filters = WithPage(s.filters, page)
	s.mu.Unlock()
}

// SetTake changes the page size, keeping the page number the user is on.
func (s *Store) SetTake(take int) {
	s.mu.Lock()
	s.filters = WithPageSize(s.filters, take)
	s.mu.Unlock()
}

// ResetFilters restores the default filter.
func (s *Store) ResetFilters() {
	s.mu.Lock()
	s.filters = DefaultFilter()
	s.mu.Unlock()
}

// Filters returns the current filter snapshot.
func (s *Store) Filters() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Items returns a copy of the fetched adverts.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Loading reports whether the latest fetch is still running.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the message of the last failed fetch, or "".
func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// CurrentPage derives the page from the current filters.
func (s *Store) CurrentPage() int {
	return CurrentPage(s.Filters())
}

// ActiveFilterCount derives the number of optional bounds in use.
func (s *Store) ActiveFilterCount() int {
	return ActiveFilterCount(s.Filters())
}

// Snapshot copies the full state in one critical section.
func (s *Store) Snapshot() ListingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ListingState{
		Items:             slices.Clone(s.items),
		Loading:           s.loading,
		Error:             s.err,
		Filters:           s.filters,
		CurrentPage:       CurrentPage(s.filters),
		ActiveFilterCount: ActiveFilterCount(s.filters),
	}
}

func errorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
