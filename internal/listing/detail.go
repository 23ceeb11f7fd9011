package listing

import (
	"context"
	"fmt"
	"sync"
)

// DetailFetcher loads a single advert by id.
type DetailFetcher interface {
	Detail(ctx context.Context, id string) (*Item, error)
}

// DetailFetcherFunc adapts a function to DetailFetcher.
type DetailFetcherFunc func(ctx context.Context, id string) (*Item, error)

// Detail implements DetailFetcher.
func (fn DetailFetcherFunc) Detail(ctx context.Context, id string) (*Item, error) {
	return fn(ctx, id)
}

// ErrDetailFallback is the message shown when a detail fetch fails without one.
const ErrDetailFallback = "An error occurred while loading the advert detail"

// DetailState is a read-only copy of the detail store.
type DetailState struct {
	Item    *Item  `json:"item"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// DetailStore holds one advert for the detail page.
type DetailStore struct {
	fetcher DetailFetcher

	mu      sync.Mutex
	item    *Item
	loading bool
	err     string
	seq     uint64
}

// NewDetailStore creates an empty detail store.
func NewDetailStore(fetcher DetailFetcher) *DetailStore {
	return &DetailStore{fetcher: fetcher}
}

// GetDetail fetches the advert with the given id. A failure keeps the
// previously loaded item and records the error.
func (s *DetailStore) GetDetail(ctx context.Context, id string) {
	s.mu.Lock()
	s.seq++
	ticket := s.seq
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	item, err := s.fetch(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.seq {
		return
	}
	s.loading = false
	if err != nil {
		s.err = errorMessage(err, ErrDetailFallback)
		return
	}
	s.item = item
}

func (s *DetailStore) fetch(ctx context.Context, id string) (item *Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listing: detail fetch panicked: %v", r)
		}
	}()
	if s.fetcher == nil {
		return nil, fmt.Errorf("listing: detail fetcher not configured")
	}
	return s.fetcher.Detail(ctx, id)
}

// ClearDetail drops the item and error. Loading is left as is.
func (s *DetailStore) ClearDetail() {
	s.mu.Lock()
	s.item = nil
	s.err = ""
	s.mu.Unlock()
}

// Snapshot copies the current state.
func (s *DetailStore) Snapshot() DetailState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := DetailState{Loading: s.loading, Error: s.err}
	if s.item != nil {
		item := *s.item
		state.Item = &item
	}
	return state
}
