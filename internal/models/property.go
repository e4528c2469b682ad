package models

import (
	"database/sql"
	"time"
)

// PropertyListing is a scraped property with its sale history.
// Produced by the scraper; persisted by internal/db.
type PropertyListing struct {
	Address       string            `json:"address"`
	Postcode      string            `json:"postcode"`
	PropertyType  string            `json:"property_type"`
	Bedrooms      int               `json:"bedrooms"`
	Bathrooms     int               `json:"bathrooms"`
	Features      []string          `json:"features,omitempty"`
	FloorplanURLs []string          `json:"floorplan_urls,omitempty"`
	URL           string            `json:"url"`
	Sales         []SaleTransaction `json:"sales"`
}

// SaleTransaction is a single historical sale. Price and date are kept as
// the raw strings found on the page; normalized forms are derived at save
// time so a parser change can re-derive them from the originals.
type SaleTransaction struct {
	DateSold       string `json:"date_sold"`
	Price          string `json:"price"`
	PriceChangePct string `json:"price_change_pct,omitempty"`
	PropertyType   string `json:"property_type,omitempty"`
	Tenure         string `json:"tenure,omitempty"`
}

// Listing status values
const (
	ListingForSale   = "for_sale"
	ListingNotListed = "not_listed"
)

// ListingStatus describes whether a property is currently advertised.
type ListingStatus struct {
	Status       string `json:"listing_status"`
	Channel      string `json:"channel,omitempty"`
	Published    bool   `json:"published,omitempty"`
	Archived     bool   `json:"archived,omitempty"`
	ListingID    int64  `json:"listing_id,omitempty"`
	ListingDate  string `json:"listing_date,omitempty"`
	ListingURL   string `json:"listing_url,omitempty"`
	Price        *int   `json:"listing_price,omitempty"`
	PriceDisplay string `json:"listing_price_display,omitempty"`
}

// Property is a persisted property row
type Property struct {
	ID                  int64          `db:"id" json:"id"`
	Address             string         `db:"address" json:"address"`
	Postcode            sql.NullString `db:"postcode" json:"postcode"`
	PropertyType        sql.NullString `db:"property_type" json:"property_type"`
	Bedrooms            sql.NullInt64  `db:"bedrooms" json:"bedrooms"`
	Bathrooms           sql.NullInt64  `db:"bathrooms" json:"bathrooms"`
	Features            sql.NullString `db:"features" json:"features"` // JSON array
	FloorplanURLs       sql.NullString `db:"floorplan_urls" json:"floorplan_urls"`
	URL                 sql.NullString `db:"url" json:"url"`
	ListingStatus       sql.NullString `db:"listing_status" json:"listing_status"`
	ListingPrice        sql.NullInt64  `db:"listing_price" json:"listing_price"`
	ListingPriceDisplay sql.NullString `db:"listing_price_display" json:"listing_price_display"`
	ListingDate         sql.NullString `db:"listing_date" json:"listing_date"`
	ListingURL          sql.NullString `db:"listing_url" json:"listing_url"`
	ListingCheckedAt    sql.NullTime   `db:"listing_checked_at" json:"listing_checked_at"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// Sale is a persisted sale row
type Sale struct {
	ID             int64          `db:"id" json:"id"`
	PropertyID     int64          `db:"property_id" json:"property_id"`
	DateSold       string         `db:"date_sold" json:"date_sold"`
	DateSoldISO    sql.NullString `db:"date_sold_iso" json:"date_sold_iso"`
	Price          string         `db:"price" json:"price"`
	PriceNumeric   sql.NullInt64  `db:"price_numeric" json:"price_numeric"`
	PriceChangePct sql.NullString `db:"price_change_pct" json:"price_change_pct"`
	PropertyType   sql.NullString `db:"property_type" json:"property_type"`
	Tenure         sql.NullString `db:"tenure" json:"tenure"`
}

// PropertyListItem is a lightweight property row for list responses
type PropertyListItem struct {
	ID           int64  `db:"id" json:"id"`
	Address      string `db:"address" json:"address"`
	Postcode     string `db:"postcode" json:"postcode"`
	PropertyType string `db:"property_type" json:"property_type"`
	Bedrooms     *int64 `db:"bedrooms" json:"bedrooms,omitempty"`
	Bathrooms    *int64 `db:"bathrooms" json:"bathrooms,omitempty"`
	URL          string `db:"url" json:"url"`
	SaleCount    int    `db:"sale_count" json:"sale_count"`
}

// PropertyDetail is the full property info for detail responses
type PropertyDetail struct {
	ID                  int64             `json:"id"`
	Address             string            `json:"address"`
	Postcode            string            `json:"postcode"`
	PropertyType        string            `json:"property_type"`
	Bedrooms            *int64            `json:"bedrooms,omitempty"`
	Bathrooms           *int64            `json:"bathrooms,omitempty"`
	Features            []string          `json:"features"`
	FloorplanURLs       []string          `json:"floorplan_urls"`
	URL                 string            `json:"url"`
	ListingStatus       string            `json:"listing_status,omitempty"`
	ListingPrice        *int64            `json:"listing_price,omitempty"`
	ListingPriceDisplay string            `json:"listing_price_display,omitempty"`
	ListingDate         string            `json:"listing_date,omitempty"`
	ListingURL          string            `json:"listing_url,omitempty"`
	Sales               []SaleTransaction `json:"sales"`
}
