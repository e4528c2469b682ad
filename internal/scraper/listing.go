package scraper

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"house-search/internal/models"
	"house-search/internal/parse"
)

var (
	addedDateRe  = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	titlePriceRe = regexp.MustCompile(`(?:Guide Price\s+|Offers? (?:Over|in the region of)\s+)?(£[\d,]+)`)
)

// CheckListing fetches a property's house-prices detail page and reads
// the propertyListing object from its turbo stream to decide whether the
// property is currently advertised for sale. For live listings the asking
// price is resolved with a secondary fetch of the listing page. A page
// with no graph or no propertyListing marker means not listed — that is
// an expected state, not a failure.
func (r *Rightmove) CheckListing(ctx context.Context, url string) *models.ListingStatus {
	notListed := &models.ListingStatus{Status: models.ListingNotListed}

	body, ok := r.fetchPage(ctx, url)
	if !ok {
		return nil
	}
	flat := parseTurboStream(body, url)
	if flat == nil {
		return notListed
	}

	status := extractListingStatus(flat)
	if status == nil || status.Status != models.ListingForSale {
		return notListed
	}

	if status.ListingURL != "" {
		if price, display, ok := r.fetchAskingPrice(ctx, status.ListingURL); ok {
			status.Price = &price
			status.PriceDisplay = display
		}
	}
	return status
}

// extractListingStatus projects the propertyListing marker into a status
// record. Returns nil when the marker is absent.
func extractListingStatus(flat []any) *models.ListingStatus {
	dec := NewDecoder(flat)

	var pl map[string]any
	for i, item := range flat {
		if item != "propertyListing" || i+1 >= len(flat) {
			continue
		}
		if raw, ok := flat[i+1].(map[string]any); ok {
			pl = dec.ResolveObject(raw)
		}
		break
	}
	if pl == nil {
		return nil
	}

	status := &models.ListingStatus{
		Status:  models.ListingNotListed,
		Channel: asString(pl["channel"]),
	}
	if st, ok := pl["status"].(map[string]any); ok {
		status.Published, _ = st["published"].(bool)
		// missing/unresolvable archived flag reads as archived
		if archived, ok := st["archived"].(bool); ok {
			status.Archived = archived
		} else {
			status.Archived = true
		}
	} else {
		status.Archived = true
	}
	status.ListingID = int64(asInt(pl["id"]))

	// Only a published, unarchived residential-sale listing counts
	if !status.Published || status.Archived || status.Channel != "RES_BUY" {
		return status
	}
	status.Status = models.ListingForSale

	if lh, ok := pl["listingHistory"].(map[string]any); ok {
		reason := asString(lh["listingUpdateReason"])
		status.ListingDate = parseListingDate(reason)
		status.PriceDisplay = reason
	}
	if status.ListingDate == "" {
		status.ListingDate = asString(pl["advertisedFrom"])
	}
	if status.ListingID != 0 {
		status.ListingURL = fmt.Sprintf("%s/properties/%d", baseURL, status.ListingID)
	}
	return status
}

// parseListingDate pulls the date out of an update reason like
// "Added on 03/02/2026".
func parseListingDate(reason string) string {
	return addedDateRe.FindString(reason)
}

// fetchAskingPrice extracts the asking price from a live listing page,
// preferring the price object in its turbo stream and falling back to the
// page title ("3 bed house for sale, Guide Price £450,000 in ...").
func (r *Rightmove) fetchAskingPrice(ctx context.Context, listingURL string) (int, string, bool) {
	body, ok := r.fetchPage(ctx, listingURL)
	if !ok {
		return 0, "", false
	}

	if flat := parseTurboStream(body, listingURL); flat != nil {
		if price, display, ok := askingPriceFromStream(flat); ok {
			return price, display, true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 0, "", false
	}
	return askingPriceFromTitle(doc.Find("title").First().Text())
}

func askingPriceFromStream(flat []any) (int, string, bool) {
	dec := NewDecoder(flat)
	for i, item := range flat {
		if item != "price" || i+1 >= len(flat) {
			continue
		}
		raw, ok := flat[i+1].(map[string]any)
		if !ok {
			continue
		}
		resolved := dec.ResolveObject(raw)
		amount := asInt(resolved["amount"])
		display := asString(resolved["displayPrice"])
		if display == "" && amount > 0 {
			display = parse.FormatPrice(amount)
		}
		if qualifier := asString(resolved["qualifier"]); qualifier != "" {
			display = qualifier + " " + display
		}
		if amount > 0 || display != "" {
			return amount, display, true
		}
	}
	return 0, "", false
}

func askingPriceFromTitle(title string) (int, string, bool) {
	m := titlePriceRe.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 0, "", false
	}
	display := strings.TrimSpace(m[0])
	price, ok := parse.ParsePriceToInt(m[1])
	if !ok {
		log.Printf("Unparseable price in listing title: %q", m[1])
		return 0, display, true
	}
	return price, display, true
}
