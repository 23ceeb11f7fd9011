package catalogapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverts-listing/adverts/internal/listing"
	"github.com/adverts-listing/adverts/internal/platform/cache"
	"github.com/adverts-listing/adverts/internal/platform/httpx"
)

const listingBody = `[{"id":101,"title":"Family wagon","modelName":"Wagon 1.6","price":450000,"priceFormatted":"450.000 TL","location":{"cityName":"Izmir","townName":"Bornova"},"category":{"id":3,"name":"Otomobil"},"properties":[{"name":"km","value":"120000"},{"name":"year","value":"2016"}],"userInfo":{"id":9,"nameSurname":"Seller One","phone":"5550000000","phoneFormatted":"(555) 000 00 00"},"photo":"https://img.example.com/{0}/101.jpg"}]`

type observation struct {
	endpoint string
	status   int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{endpoint: endpoint, status: status})
}

func TestListingDecodesItems(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingBody))
	}))
	defer srv.Close()

	observer := &recordingObserver{}
	client := NewClient(srv.URL+"/", time.Second, WithObserver(observer))
	raw := listing.APIQuery(listing.DefaultFilter()).Encode()

	items, err := client.Listing(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/api/v1/listing", gotPath)
	assert.Equal(t, raw, gotQuery)

	item := items[0]
	assert.Equal(t, int64(101), item.ID)
	assert.Equal(t, "Bornova", item.Location.TownName)
	assert.Equal(t, "2016", item.Property("year"))
	assert.Equal(t, "(555) 000 00 00", item.UserInfo.PhoneFormatted)

	require.Len(t, observer.obs, 1)
	assert.Equal(t, observation{endpoint: "listing", status: http.StatusOK}, observer.obs[0])
}

func TestDetailEscapesID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.URL.Query().Get("id")
		_, _ = w.Write([]byte(`{"id":7,"title":"Coupe","text":"<p>One owner</p>","photos":["a","b"]}`))
	}))
	defer srv.Close()

	item, err := NewClient(srv.URL, time.Second).Detail(context.Background(), "7&x=1")
	require.NoError(t, err)
	assert.Equal(t, "7&x=1", gotID)
	assert.Equal(t, "Coupe", item.Title)
	assert.Len(t, item.Photos, 2)
}

func TestNonSuccessStatusReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Detail(context.Background(), "404")
	require.Error(t, err)
	assert.Equal(t, "http error: status 404", err.Error())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Listing(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, httpx.ErrNotFound)
	assert.Contains(t, err.Error(), "502")
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Listing(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalogapi: decode listing")
}

func TestStoreSurfacesClientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := listing.NewStore(NewClient(srv.URL, time.Second), listing.DefaultFilter())
	store.FetchItems(context.Background())

	state := store.Snapshot()
	assert.False(t, state.Loading)
	assert.Equal(t, "http error: status 500", state.Error)
	assert.Empty(t, state.Items)
}

func TestTransportErrorHidesUpstreamURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient(base, time.Second).Listing(context.Background(), "take=20")
	require.Error(t, err)
	assert.Equal(t, "catalogapi: listing unavailable", err.Error())
	assert.NotContains(t, err.Error(), base)
	assert.ErrorIs(t, err, httpx.ErrUpstream)
	var urlErr *url.Error
	require.ErrorAs(t, err, &urlErr)
	assert.Contains(t, urlErr.Error(), base)

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Warn("load listing", slog.Any("error", err))
	assert.Contains(t, buf.String(), base)

	store := listing.NewStore(NewClient(base, time.Second), listing.DefaultFilter())
	store.FetchItems(context.Background())
	state := store.Snapshot()
	assert.Equal(t, "catalogapi: listing unavailable", state.Error)
	assert.NotContains(t, state.Error, base)
}

type countingFetcher struct {
	listingCalls atomic.Int32
	detailCalls  atomic.Int32
	err          error
	gate         chan struct{}
}

func (f *countingFetcher) Listing(ctx context.Context, rawQuery string) ([]listing.Item, error) {
	f.listingCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []listing.Item{{ID: 1, Title: rawQuery}}, nil
}

func (f *countingFetcher) Detail(ctx context.Context, id string) (*listing.Item, error) {
	f.detailCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &listing.Item{ID: 2, Title: "detail " + id}, nil
}

func newCachedClient(t *testing.T, next Fetcher) (*CachedClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedClient(next, cache.NewCache(rdb, "test", time.Minute), nil), mr
}

func TestCachedClientServesFromCache(t *testing.T) {
	next := &countingFetcher{}
	client, _ := newCachedClient(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := client.Listing(ctx, "take=20")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "take=20", items[0].Title)
	}
	assert.Equal(t, int32(1), next.listingCalls.Load())

	item, err := client.Detail(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "detail 5", item.Title)
	_, err = client.Detail(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.detailCalls.Load())

	require.NoError(t, client.Invalidate(ctx))
	_, err = client.Listing(ctx, "take=20")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.listingCalls.Load())
}

func TestCachedClientPassesUpstreamErrors(t *testing.T) {
	next := &countingFetcher{err: &StatusError{Status: http.StatusServiceUnavailable}}
	client, mr := newCachedClient(t, next)

	_, err := client.Listing(context.Background(), "take=20")
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Len(t, mr.Keys(), 1, "only the version key is written")
}

func TestCachedClientFallsBackWhenRedisDown(t *testing.T) {
	next := &countingFetcher{}
	client, mr := newCachedClient(t, next)
	mr.Close()

	items, err := client.Listing(context.Background(), "take=20")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(1), next.listingCalls.Load())
}

func TestCachedClientCollapsesConcurrentCalls(t *testing.T) {
	next := &countingFetcher{gate: make(chan struct{})}
	client, _ := newCachedClient(t, next)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Listing(context.Background(), "take=20&skip=0")
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return next.listingCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(next.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), next.listingCalls.Load())
}

func TestCachedClientSharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	next := &countingFetcher{gate: make(chan struct{})}
	client, _ := newCachedClient(t, next)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Listing(firstCtx, "take=20&skip=0")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return next.listingCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		items []listing.Item
		err   error
	}
	second := make(chan result, 1)
	go func() {
		items, err := client.Listing(context.Background(), "take=20&skip=0")
		second <- result{items: items, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(next.gate)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Len(t, res.items, 1)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int32(1), next.listingCalls.Load())
}
