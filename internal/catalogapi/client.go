// Package catalogapi talks to the upstream advert catalog API.
package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/adverts-listing/adverts/internal/listing"
	"github.com/adverts-listing/adverts/internal/platform/httpx"
)

const apiPrefix = "/api/v1"

// StatusError reports a non-success response from the catalog API.
type StatusError struct {
	Status int
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error: status %d", e.Status)
}

// Is lets callers match a 404 against httpx.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == httpx.ErrNotFound && e.Status == http.StatusNotFound
}

// TransportError reports a catalog call that never produced a response.
// Its message names only the endpoint; the cause, which usually embeds the
// upstream URL, stays reachable through Unwrap and structured logs.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("catalogapi: %s unavailable", e.Endpoint)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets callers match transport failures against httpx.ErrUpstream.
func (e *TransportError) Is(target error) bool {
	return target == httpx.ErrUpstream
}

// LogValue keeps the cause in logs.
func (e *TransportError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("msg", e.Error()),
		slog.Any("cause", e.Err),
	)
}

// Observer receives one observation per upstream call.
type Observer interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
}

// Client wraps the catalog API endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The transport is used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver records upstream latency and status codes.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchJSON performs GET {base}/api/v1{path} and decodes the JSON body into
// dest. Non-2xx responses return a *StatusError and failed round trips a
// *TransportError.
func (c *Client) FetchJSON(ctx context.Context, path string, dest any) error {
	endpoint := endpointName(path)
	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer.ObserveUpstream(endpoint, status, time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+path, nil)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Status: resp.StatusCode, Path: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("catalogapi: decode %s: %w", endpoint, err)
	}
	return nil
}

// Listing returns one page of adverts for an encoded API query.
func (c *Client) Listing(ctx context.Context, rawQuery string) ([]listing.Item, error) {
	var items []listing.Item
	if err := c.FetchJSON(ctx, "/listing?"+rawQuery, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Detail returns a single advert.
func (c *Client) Detail(ctx context.Context, id string) (*listing.Item, error) {
	var item listing.Item
	if err := c.FetchJSON(ctx, "/detail?id="+url.QueryEscape(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Ping checks the API answers a minimal listing request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Listing(ctx, listing.APIQuery(listing.Merge(listing.DefaultFilter(), listing.WithTake(1))).Encode())
	return err
}

func endpointName(path string) string {
	name := strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return "root"
	}
	return name
}
