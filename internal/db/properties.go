package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"house-search/internal/models"
	"house-search/internal/parse"
)

// PropertyFilter contains filter parameters for property queries
type PropertyFilter struct {
	Postcode     string
	PropertyType string
	BedroomsMin  *int
	ForSaleOnly  bool
	// Pagination
	Limit  int
	Offset int
}

// SaveListing inserts or updates a scraped property and replaces its sale
// history. Existing fields are only overwritten when the scrape produced
// a value, so a thin listing-page record never erases detail-page data.
func (db *DB) SaveListing(p *models.PropertyListing) (int64, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO properties (
			address, postcode, property_type, bedrooms, bathrooms,
			features, floorplan_urls, url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			postcode = COALESCE(NULLIF(excluded.postcode, ''), properties.postcode),
			property_type = COALESCE(NULLIF(excluded.property_type, ''), properties.property_type),
			bedrooms = COALESCE(NULLIF(excluded.bedrooms, 0), properties.bedrooms),
			bathrooms = COALESCE(NULLIF(excluded.bathrooms, 0), properties.bathrooms),
			features = COALESCE(excluded.features, properties.features),
			floorplan_urls = COALESCE(excluded.floorplan_urls, properties.floorplan_urls),
			url = COALESCE(NULLIF(excluded.url, ''), properties.url),
			updated_at = excluded.updated_at
	`

	_, err := db.Exec(query,
		p.Address,
		strings.ToUpper(p.Postcode),
		strings.ToUpper(p.PropertyType),
		p.Bedrooms, p.Bathrooms,
		jsonOrNil(p.Features), jsonOrNil(p.FloorplanURLs),
		p.URL, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert property: %w", err)
	}

	var id int64
	if err := db.Get(&id, "SELECT id FROM properties WHERE address = ?", p.Address); err != nil {
		return 0, fmt.Errorf("failed to read property id: %w", err)
	}

	if len(p.Sales) > 0 {
		if err := db.replaceSales(id, p.Sales); err != nil {
			return id, err
		}
	}
	return id, nil
}

func jsonOrNil(values []string) any {
	if values == nil {
		return nil
	}
	data, _ := json.Marshal(values)
	return string(data)
}

// replaceSales rewrites a property's sale history, deriving the
// normalized price/date columns from the raw strings.
func (db *DB) replaceSales(propertyID int64, sales []models.SaleTransaction) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin sales transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sales WHERE property_id = ?", propertyID); err != nil {
		return fmt.Errorf("failed to clear sales: %w", err)
	}

	insert := `
		INSERT OR IGNORE INTO sales (
			property_id, date_sold, date_sold_iso, price, price_numeric,
			price_change_pct, property_type, tenure
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, s := range sales {
		var dateISO, priceNum any
		if iso, ok := parse.ParseDateToISO(s.DateSold); ok {
			dateISO = iso
		}
		if n, ok := parse.ParsePriceToInt(s.Price); ok {
			priceNum = n
		}
		if _, err := tx.Exec(insert,
			propertyID, s.DateSold, dateISO, s.Price, priceNum,
			nullIfEmpty(s.PriceChangePct), nullIfEmpty(s.PropertyType), nullIfEmpty(s.Tenure),
		); err != nil {
			return fmt.Errorf("failed to insert sale: %w", err)
		}
	}

	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListProperties returns properties matching the given filters
func (db *DB) ListProperties(f PropertyFilter) ([]models.PropertyListItem, error) {
	query := `
		SELECT
			p.id,
			p.address,
			COALESCE(p.postcode, '') as postcode,
			COALESCE(p.property_type, '') as property_type,
			p.bedrooms,
			p.bathrooms,
			COALESCE(p.url, '') as url,
			COUNT(s.id) as sale_count
		FROM properties p
		LEFT JOIN sales s ON s.property_id = p.id
		WHERE 1=1
	`
	args := make([]interface{}, 0)

	if f.Postcode != "" {
		query += " AND p.postcode = ?"
		args = append(args, strings.ToUpper(strings.TrimSpace(f.Postcode)))
	}
	if f.PropertyType != "" {
		query += " AND p.property_type = ?"
		args = append(args, strings.ToUpper(f.PropertyType))
	}
	if f.BedroomsMin != nil {
		query += " AND p.bedrooms >= ?"
		args = append(args, *f.BedroomsMin)
	}
	if f.ForSaleOnly {
		query += " AND p.listing_status = ?"
		args = append(args, models.ListingForSale)
	}

	query += " GROUP BY p.id ORDER BY p.address"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	var properties []models.PropertyListItem
	if err := db.Select(&properties, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// GetPropertyRow returns the raw property row by ID
func (db *DB) GetPropertyRow(id int64) (*models.Property, error) {
	var p models.Property
	if err := db.Get(&p, "SELECT * FROM properties WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

// GetProperty returns a single property by ID with its sale history
func (db *DB) GetProperty(id int64) (*models.PropertyDetail, error) {
	p, err := db.GetPropertyRow(id)
	if err != nil {
		return nil, err
	}

	var sales []models.Sale
	err = db.Select(&sales, `
		SELECT * FROM sales WHERE property_id = ?
		ORDER BY COALESCE(date_sold_iso, date_sold) DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sales: %w", err)
	}

	detail := &models.PropertyDetail{
		ID:                  p.ID,
		Address:             p.Address,
		Postcode:            p.Postcode.String,
		PropertyType:        p.PropertyType.String,
		Features:            jsonStrings(p.Features),
		FloorplanURLs:       jsonStrings(p.FloorplanURLs),
		URL:                 p.URL.String,
		ListingStatus:       p.ListingStatus.String,
		ListingPriceDisplay: p.ListingPriceDisplay.String,
		ListingDate:         p.ListingDate.String,
		ListingURL:          p.ListingURL.String,
		Sales:               make([]models.SaleTransaction, 0, len(sales)),
	}
	if p.Bedrooms.Valid {
		detail.Bedrooms = &p.Bedrooms.Int64
	}
	if p.Bathrooms.Valid {
		detail.Bathrooms = &p.Bathrooms.Int64
	}
	if p.ListingPrice.Valid {
		detail.ListingPrice = &p.ListingPrice.Int64
	}
	for _, s := range sales {
		detail.Sales = append(detail.Sales, models.SaleTransaction{
			DateSold:       s.DateSold,
			Price:          s.Price,
			PriceChangePct: s.PriceChangePct.String,
			PropertyType:   s.PropertyType.String,
			Tenure:         s.Tenure.String,
		})
	}
	return detail, nil
}

func jsonStrings(col sql.NullString) []string {
	values := []string{}
	if col.Valid && col.String != "" {
		json.Unmarshal([]byte(col.String), &values)
	}
	return values
}

// UpdateListingStatus writes a listing check result onto a property. A
// nil status means the check failed or found nothing; the property is
// marked not listed either way so stale for-sale flags expire.
func (db *DB) UpdateListingStatus(propertyID int64, ls *models.ListingStatus) error {
	now := time.Now().UTC()

	if ls == nil || ls.Status != models.ListingForSale {
		_, err := db.Exec(`
			UPDATE properties SET
				listing_status = ?, listing_price = NULL,
				listing_price_display = NULL, listing_date = NULL,
				listing_url = NULL, listing_checked_at = ?, updated_at = ?
			WHERE id = ?
		`, models.ListingNotListed, now, now, propertyID)
		if err != nil {
			return fmt.Errorf("failed to clear listing status: %w", err)
		}
		return nil
	}

	var price any
	if ls.Price != nil {
		price = *ls.Price
	}
	_, err := db.Exec(`
		UPDATE properties SET
			listing_status = ?, listing_price = ?, listing_price_display = ?,
			listing_date = ?, listing_url = ?, listing_checked_at = ?, updated_at = ?
		WHERE id = ?
	`, ls.Status, price, nullIfEmpty(ls.PriceDisplay),
		nullIfEmpty(ls.ListingDate), nullIfEmpty(ls.ListingURL), now, now, propertyID)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	return nil
}

// IsPostcodeFresh reports whether a postcode was scraped within the
// freshness window, along with how many properties it has.
func (db *DB) IsPostcodeFresh(postcode string, window time.Duration) (bool, int, error) {
	clean := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(postcode, "-", " ")))

	var row struct {
		Count  int          `db:"count"`
		Latest sql.NullTime `db:"latest"`
	}
	err := db.Get(&row, `
		SELECT COUNT(*) as count, MAX(updated_at) as latest
		FROM properties WHERE postcode = ?
	`, clean)
	if err != nil {
		return false, 0, fmt.Errorf("failed to check postcode freshness: %w", err)
	}
	if row.Count == 0 || !row.Latest.Valid {
		return false, row.Count, nil
	}
	return time.Since(row.Latest.Time) < window, row.Count, nil
}

// IsListingFresh reports whether a property's listing status was checked
// within the freshness window.
func (db *DB) IsListingFresh(p *models.Property, window time.Duration) bool {
	return p.ListingCheckedAt.Valid && time.Since(p.ListingCheckedAt.Time) < window
}

// GetPropertyCount returns total number of properties
func (db *DB) GetPropertyCount() (int, error) {
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM properties")
	return count, err
}

// ListSales returns all persisted sales, for maintenance tooling
func (db *DB) ListSales() ([]models.Sale, error) {
	var sales []models.Sale
	if err := db.Select(&sales, "SELECT * FROM sales ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

// UpdateSaleNormalized rewrites the derived columns of one sale row
func (db *DB) UpdateSaleNormalized(id int64, priceNumeric any, dateISO any) error {
	_, err := db.Exec(
		"UPDATE sales SET price_numeric = ?, date_sold_iso = ? WHERE id = ?",
		priceNumeric, dateISO, id,
	)
	return err
}
