package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"house-search/internal/db"
	"house-search/internal/scraper"
)

// NewRouter creates and configures the Chi router
func NewRouter(database *db.DB, s *scraper.Scraper, cfg HandlerConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(Logger)
	r.Use(CORS)

	h := NewHandlers(database, s, cfg)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/properties", h.ListProperties)
		r.Get("/properties/{id}", h.GetProperty)
		r.Get("/properties/{id}/listing", h.GetListingStatus)
		r.Post("/scrape/{postcode}", h.ScrapePostcode)
		r.Get("/stats", h.GetStats)
	})

	return r
}
