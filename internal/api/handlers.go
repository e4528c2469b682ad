package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"house-search/internal/db"
	"house-search/internal/models"
	"house-search/internal/scraper"
)

// HandlerConfig carries the tunables the handlers need beyond their
// dependencies.
type HandlerConfig struct {
	// ListingFreshness is how long a cached listing-status check stays
	// valid before a request triggers a live re-check.
	ListingFreshness time.Duration
}

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	db      *db.DB
	scraper *scraper.Scraper
	cfg     HandlerConfig
}

// NewHandlers creates a new Handlers instance
func NewHandlers(database *db.DB, s *scraper.Scraper, cfg HandlerConfig) *Handlers {
	if cfg.ListingFreshness <= 0 {
		cfg.ListingFreshness = 24 * time.Hour
	}
	return &Handlers{db: database, scraper: s, cfg: cfg}
}

// ListProperties handles GET /api/properties
func (h *Handlers) ListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := db.PropertyFilter{}

	if v := q.Get("postcode"); v != "" {
		filter.Postcode = v
	}
	if v := q.Get("type"); v != "" {
		filter.PropertyType = v
	}
	if v := q.Get("bedrooms_min"); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			filter.BedroomsMin = &val
		}
	}
	if v := q.Get("for_sale"); v == "true" || v == "1" {
		filter.ForSaleOnly = true
	}

	// Pagination
	if v := q.Get("limit"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 && val <= 500 {
			filter.Limit = val
		}
	}
	if v := q.Get("offset"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			filter.Offset = val
		}
	}

	properties, err := h.db.ListProperties(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"properties": properties,
		"count":      len(properties),
	})
}

// GetProperty handles GET /api/properties/{id}
func (h *Handlers) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid property ID", http.StatusBadRequest)
		return
	}

	property, err := h.db.GetProperty(id)
	if err != nil {
		http.Error(w, "property not found", http.StatusNotFound)
		return
	}

	writeJSON(w, property)
}

// GetListingStatus handles GET /api/properties/{id}/listing. It returns
// the stored listing status when it was checked recently, otherwise it
// re-checks the live site and persists the result. force=true skips the
// cache.
func (h *Handlers) GetListingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid property ID", http.StatusBadRequest)
		return
	}

	prop, err := h.db.GetPropertyRow(id)
	if err != nil {
		http.Error(w, "property not found", http.StatusNotFound)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if !force && h.db.IsListingFresh(prop, h.cfg.ListingFreshness) {
		writeJSON(w, listingResponse(prop, true))
		return
	}

	if prop.URL.String == "" {
		http.Error(w, "property has no source URL", http.StatusConflict)
		return
	}

	status := h.scraper.Rightmove().CheckListing(r.Context(), prop.URL.String)
	if err := h.db.UpdateListingStatus(id, status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	prop, err = h.db.GetPropertyRow(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, listingResponse(prop, false))
}

// ScrapePostcode handles POST /api/scrape/{postcode}. The scrape runs
// synchronously; small postcodes finish within a request timeout and
// larger jobs belong on the CLI.
func (h *Handlers) ScrapePostcode(w http.ResponseWriter, r *http.Request) {
	postcode := chi.URLParam(r, "postcode")
	if postcode == "" {
		http.Error(w, "missing postcode", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	pages := 1
	if v := q.Get("pages"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 && val <= 20 {
			pages = val
		}
	}
	max := 50
	if v := q.Get("max"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 && val <= 500 {
			max = val
		}
	}
	details := q.Get("details") == "true"

	saved := h.scraper.ScrapeOne(r.Context(), postcode, pages, max, details)

	writeJSON(w, map[string]interface{}{
		"postcode": postcode,
		"saved":    saved,
	})
}

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.db.GetPropertyCount()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"properties": count})
}

func listingResponse(prop *models.Property, cached bool) map[string]interface{} {
	resp := map[string]interface{}{
		"status":        prop.ListingStatus.String,
		"price_display": prop.ListingPriceDisplay.String,
		"listing_date":  prop.ListingDate.String,
		"listing_url":   prop.ListingURL.String,
		"cached":        cached,
	}
	if prop.ListingStatus.String == "" {
		resp["status"] = models.ListingNotListed
	}
	if prop.ListingPrice.Valid {
		resp["price"] = prop.ListingPrice.Int64
	}
	if prop.ListingCheckedAt.Valid {
		resp["checked_at"] = prop.ListingCheckedAt.Time
	}
	return resp
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
