// Package listinghttp serves the listing and detail pages and their JSON
// counterparts.
package listinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/adverts-listing/adverts/internal/listing"
	"github.com/adverts-listing/adverts/internal/platform/httpx"
	"github.com/adverts-listing/adverts/internal/view"
)

const (
	listingTitle = "Used Vehicle Listings | Adverts Listing"
	detailTitle  = "Advert Detail | Adverts Listing"

	defaultRequestTimeout = 10 * time.Second
)

// Filter form actions.
const (
	ActionApply = "apply"
	ActionPage  = "page"
	ActionTake  = "take"
	ActionReset = "reset"
)

// Handler serves the catalog pages. Each request builds its own stores from
// the decoded URL so no state is shared between visitors.
type Handler struct {
	logger    *slog.Logger
	listings  listing.ListingFetcher
	details   listing.DetailFetcher
	templates *view.Engine
	validate  *validator.Validate
	timeout   time.Duration
}

// NewHandler builds the handler. timeout bounds each upstream fetch.
func NewHandler(logger *slog.Logger, listings listing.ListingFetcher, details listing.DetailFetcher, templates *view.Engine, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{
		logger:    logger,
		listings:  listings,
		details:   details,
		templates: templates,
		validate:  validator.New(),
		timeout:   timeout,
	}
}

type detailParams struct {
	ID string `validate:"required,numeric,max=20"`
}

type filterForm struct {
	Sort          string `validate:"omitempty,numeric"`
	SortDirection string `validate:"omitempty,numeric"`
	MinDate       string `validate:"omitempty,datetime=2006-01-02"`
	MaxDate       string `validate:"omitempty,datetime=2006-01-02"`
	MinYear       string `validate:"omitempty,numeric"`
	MaxYear       string `validate:"omitempty,numeric"`
	Page          string `validate:"omitempty,numeric"`
	Take          string `validate:"omitempty,numeric"`
}

func (h *Handler) handleListing(w http.ResponseWriter, r *http.Request) {
	filters := listing.DecodeQuery(r.URL.Query())
	state, err := h.loadListing(r.Context(), filters)
	if err != nil {
		h.logger.Warn("load listing", slog.String("query", r.URL.RawQuery), slog.Any("error", err))
	}

	data := view.TemplateData{
		Title:       listingTitle,
		CurrentPath: r.URL.Path,
		Data: view.ListingPage{
			State:      state,
			Query:      listing.EncodeQuery(filters).Encode(),
			Sorts:      view.SortOptions(),
			Directions: view.DirectionOptions(),
			PageSizes:  view.PageSizeOptions(),
		},
	}
	h.render(w, pageStatus(err), "pages/listing.html", data)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page := view.DetailPage{ID: id, BackURL: backURL(r.URL.Query().Get("back"))}
	if err := h.validate.Struct(detailParams{ID: id}); err != nil {
		page.State = listing.DetailState{Error: "Invalid advert id"}
		h.render(w, http.StatusBadRequest, "pages/detail.html", view.TemplateData{Title: detailTitle, CurrentPath: r.URL.Path, Data: page})
		return
	}

	state, err := h.loadDetail(r.Context(), id)
	if err != nil {
		h.logger.Warn("load detail", slog.String("id", id), slog.Any("error", err))
	}
	page.State = state
	h.render(w, pageStatus(err), "pages/detail.html", view.TemplateData{Title: detailTitle, CurrentPath: r.URL.Path, Data: page})
}

func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid form", err.Error())
		return
	}
	form := filterForm{
		Sort:          strings.TrimSpace(r.PostForm.Get(listing.ParamSort)),
		SortDirection: strings.TrimSpace(r.PostForm.Get(listing.ParamSortDirection)),
		MinDate:       strings.TrimSpace(r.PostForm.Get(listing.ParamMinDate)),
		MaxDate:       strings.TrimSpace(r.PostForm.Get(listing.ParamMaxDate)),
		MinYear:       strings.TrimSpace(r.PostForm.Get(listing.ParamMinYear)),
		MaxYear:       strings.TrimSpace(r.PostForm.Get(listing.ParamMaxYear)),
		Page:          strings.TrimSpace(r.PostForm.Get(listing.ParamPage)),
		Take:          strings.TrimSpace(r.PostForm.Get(listing.ParamTake)),
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, fieldErrors(err)))
		return
	}

	current, _ := url.ParseQuery(r.PostForm.Get("query"))
	store := listing.NewStore(nil, listing.DecodeQuery(current))

	switch action := r.PostForm.Get("action"); action {
	case ActionApply:
		store.ApplyFilters(form.options()...)
	case ActionPage:
		store.SetPage(atoi(form.Page, 1))
	case ActionTake:
		store.SetTake(atoi(form.Take, listing.DefaultTake))
	case ActionReset:
		store.ResetFilters()
	default:
		httpx.RespondError(w, fmt.Errorf("%w: unknown action %q", httpx.ErrValidation, action))
		return
	}
	http.Redirect(w, r, listing.URL(store.Filters()), http.StatusSeeOther)
}

func (h *Handler) handleListingJSON(w http.ResponseWriter, r *http.Request) {
	state, err := h.loadListing(r.Context(), listing.DecodeQuery(r.URL.Query()))
	if err != nil {
		h.logger.Warn("load listing", slog.String("query", r.URL.RawQuery), slog.Any("error", err))
		h.respondUpstream(w, err, state.Error)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) handleDetailJSON(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validate.Struct(detailParams{ID: id}); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid advert id", httpx.ErrValidation))
		return
	}
	state, err := h.loadDetail(r.Context(), id)
	if err != nil {
		h.logger.Warn("load detail", slog.String("id", id), slog.Any("error", err))
		h.respondUpstream(w, err, state.Error)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

// loadListing runs one store fetch and also returns the raw fetch error so
// the caller can pick a status code.
func (h *Handler) loadListing(ctx context.Context, filters listing.Filter) (listing.ListingState, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var fetchErr error
	fetcher := listing.ListingFetcherFunc(func(ctx context.Context, rawQuery string) ([]listing.Item, error) {
		items, err := h.listings.Listing(ctx, rawQuery)
		fetchErr = err
		return items, err
	})
	store := listing.NewStore(fetcher, filters)
	store.FetchItems(ctx)
	state := store.Snapshot()
	if fetchErr == nil && state.Error != "" {
		fetchErr = errors.New(state.Error)
	}
	return state, fetchErr
}

func (h *Handler) loadDetail(ctx context.Context, id string) (listing.DetailState, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var fetchErr error
	fetcher := listing.DetailFetcherFunc(func(ctx context.Context, id string) (*listing.Item, error) {
		item, err := h.details.Detail(ctx, id)
		fetchErr = err
		return item, err
	})
	store := listing.NewDetailStore(fetcher)
	store.GetDetail(ctx, id)
	state := store.Snapshot()
	if fetchErr == nil && state.Error != "" {
		fetchErr = errors.New(state.Error)
	}
	return state, fetchErr
}

func (h *Handler) respondUpstream(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, httpx.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", message)
		return
	}
	httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", message)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data view.TemplateData) {
	if h.templates == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}

func (f filterForm) options() []listing.FilterOption {
	opts := []listing.FilterOption{
		listing.WithMinDate(f.MinDate),
		listing.WithMaxDate(f.MaxDate),
		listing.WithMinYear(optionalInt(f.MinYear)),
		listing.WithMaxYear(optionalInt(f.MaxYear)),
	}
	if v, err := strconv.Atoi(f.Sort); err == nil {
		opts = append(opts, listing.WithSort(listing.SortType(v)))
	}
	if v, err := strconv.Atoi(f.SortDirection); err == nil {
		opts = append(opts, listing.WithSortDirection(listing.SortDirection(v)))
	}
	return opts
}

func pageStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, httpx.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// backURL only accepts local listing paths.
func backURL(raw string) string {
	if raw == "" || raw[0] != '/' || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}

func optionalInt(raw string) *int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func atoi(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func fieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()[:1])+fe.Field()[1:])
	}
	return "invalid " + strings.Join(fields, ", ")
}
