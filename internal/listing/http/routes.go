package listinghttp

import "github.com/go-chi/chi/v5"

// MountRoutes registers the catalog pages and JSON endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/", h.handleListing)
	r.Get("/detail/{id}", h.handleDetail)
	r.Post("/filters", h.handleFilters)
	r.Route("/api", func(r chi.Router) {
		r.Get("/listing", h.handleListingJSON)
		r.Get("/detail/{id}", h.handleDetailJSON)
	})
}
