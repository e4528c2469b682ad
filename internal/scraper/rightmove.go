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

const baseURL = "https://www.rightmove.co.uk"

// Rightmove scrapes sold-price listings and property detail pages.
type Rightmove struct {
	fetcher *Fetcher
	browser *Browser // optional, for pages that block plain HTTP clients
}

// NewRightmove creates a scraper using the given fetcher.
func NewRightmove(fetcher *Fetcher) *Rightmove {
	return &Rightmove{fetcher: fetcher}
}

// SetBrowser routes page fetches through a headless browser.
func (r *Rightmove) SetBrowser(b *Browser) {
	r.browser = b
}

func (r *Rightmove) fetchPage(ctx context.Context, url string) (string, bool) {
	if r.browser != nil {
		html, err := r.browser.FetchHTML(ctx, url)
		if err != nil {
			log.Printf("Browser fetch failed for %s: %v", url, err)
			return "", false
		}
		return html, true
	}
	return r.fetcher.Get(ctx, url)
}

func listingPageURL(normalised string, page int) string {
	url := fmt.Sprintf("%s/house-prices/%s.html", baseURL, normalised)
	if page > 1 {
		url += fmt.Sprintf("?page=%d", page)
	}
	return url
}

func (r *Rightmove) fetchListingGraph(ctx context.Context, normalised string, page int) []any {
	url := listingPageURL(normalised, page)
	log.Printf("Fetching listing page: %s", url)

	body, ok := r.fetchPage(ctx, url)
	if !ok {
		return nil
	}
	return parseTurboStream(body, url)
}

// PostcodeURLs fetches property detail URLs for a postcode from the
// house-prices listing pages, following pagination up to pages.
func (r *Rightmove) PostcodeURLs(ctx context.Context, postcode string, maxProperties, pages int) []string {
	normalised := parse.NormalisePostcodeForURL(postcode)
	var urls []string

	for page := 1; page <= pages; page++ {
		flat := r.fetchListingGraph(ctx, normalised, page)
		if flat == nil {
			break
		}
		pageURLs := extractDetailURLs(flat, maxProperties-len(urls))
		if len(pageURLs) == 0 {
			break
		}
		urls = append(urls, pageURLs...)
		if len(urls) >= maxProperties {
			break
		}
	}

	log.Printf("Found %d property links for postcode %s", len(urls), postcode)
	return urls
}

// ScrapePostcode extracts property records straight from the listing
// pages (fast path: no detail page visits).
func (r *Rightmove) ScrapePostcode(ctx context.Context, postcode string, maxProperties, pages int) []models.PropertyListing {
	normalised := parse.NormalisePostcodeForURL(postcode)
	var properties []models.PropertyListing

	for page := 1; page <= pages; page++ {
		flat := r.fetchListingGraph(ctx, normalised, page)
		if flat == nil {
			break
		}
		pageProps := extractProperties(flat, postcode, maxProperties-len(properties))
		if len(pageProps) == 0 {
			break
		}
		properties = append(properties, pageProps...)
		if len(properties) >= maxProperties {
			break
		}
	}

	log.Printf("Extracted %d properties for postcode %s", len(properties), postcode)
	return properties
}

// extractDetailURLs pulls detail page URLs from the "properties" marker.
func extractDetailURLs(flat []any, max int) []string {
	var urls []string
	dec := NewDecoder(flat)

	for i, item := range flat {
		if item != "properties" || i+1 >= len(flat) {
			continue
		}
		refs, ok := flat[i+1].([]any)
		if !ok {
			break
		}
		for _, ref := range refs {
			prop, ok := dec.ResolveValue(ref).(map[string]any)
			if !ok {
				continue
			}
			if url := absoluteURL(asString(prop["detailUrl"])); url != "" {
				urls = append(urls, url)
				if len(urls) >= max {
					break
				}
			}
		}
		break
	}
	return urls
}

// extractProperties projects the "properties" RefList into listing
// records. An entry that fails to resolve is skipped; its siblings are
// unaffected.
func extractProperties(flat []any, postcode string, max int) []models.PropertyListing {
	var properties []models.PropertyListing
	dec := NewDecoder(flat)

	for i, item := range flat {
		if item != "properties" || i+1 >= len(flat) {
			continue
		}
		refs, ok := flat[i+1].([]any)
		if !ok {
			break
		}
		for _, ref := range refs {
			obj, ok := dec.ResolveValue(ref).(map[string]any)
			if !ok {
				continue
			}
			if prop := listingToProperty(obj, postcode); prop != nil {
				properties = append(properties, *prop)
			}
			if len(properties) >= max {
				break
			}
		}
		break
	}
	return properties
}

// listingToProperty converts a resolved listing object into a record.
// Returns nil when there is no address to key the property on.
func listingToProperty(d map[string]any, postcode string) *models.PropertyListing {
	address := asString(d["address"])
	if address == "" {
		return nil
	}

	prop := &models.PropertyListing{
		Address:      address,
		Postcode:     parse.ExtractPostcode(address),
		PropertyType: asString(d["propertyType"]),
		Bedrooms:     asInt(d["bedrooms"]),
		Bathrooms:    asInt(d["bathrooms"]),
		URL:          absoluteURL(asString(d["detailUrl"])),
	}

	// The listing page usually omits the postcode from the address; fall
	// back to the one being scraped.
	if prop.Postcode == "" {
		prop.Postcode = parse.FormatPostcode(parse.NormalisePostcodeForURL(postcode))
	}

	if txns, ok := d["transactions"].([]any); ok {
		for _, t := range txns {
			txn, ok := t.(map[string]any)
			if !ok {
				continue
			}
			sale := saleFromMap(txn)
			if sale.DateSold != "" || sale.Price != "" {
				prop.Sales = append(prop.Sales, sale)
			}
		}
	}

	// latestTransaction carries a single sale when transactions is absent
	if len(prop.Sales) == 0 {
		if latest, ok := d["latestTransaction"].(map[string]any); ok {
			sale := saleFromMap(latest)
			if sale.DateSold != "" || sale.Price != "" {
				prop.Sales = append(prop.Sales, sale)
			}
		}
	}

	return prop
}

func saleFromMap(txn map[string]any) models.SaleTransaction {
	price := txn["price"]
	if price == nil {
		price = txn["displayPrice"]
	}
	change := txn["priceChangePercentage"]
	if change == nil {
		change = txn["priceChange"]
	}
	return models.SaleTransaction{
		DateSold:       asString(txn["dateSold"]),
		Price:          parse.FormatPrice(price),
		PriceChangePct: asString(change),
		PropertyType:   asString(txn["propertyType"]),
		Tenure:         asString(txn["tenure"]),
	}
}

// ScrapeDetail scrapes a single property's detail page. The HTML is
// authoritative for the sale history table; the turbo stream fills in the
// property attributes, with dt/dd pairs as a last resort.
func (r *Rightmove) ScrapeDetail(ctx context.Context, url string, extractFloorplan bool) *models.PropertyListing {
	log.Printf("Scraping property: %s", url)

	body, ok := r.fetchPage(ctx, url)
	if !ok {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Printf("Failed to parse HTML for %s: %v", url, err)
		return nil
	}

	prop := &models.PropertyListing{URL: url}
	prop.Address = strings.TrimSpace(doc.Find("h1").First().Text())
	prop.Sales = extractSalesFromTable(doc)

	flat := parseTurboStream(body, url)
	if flat != nil {
		extractDetailFromStream(flat, prop)
	}

	extractKeyFeatures(doc, prop)
	if prop.Bedrooms == 0 && prop.Bathrooms == 0 {
		extractDetailsFromDtDd(doc, prop)
	}
	if extractFloorplan {
		prop.FloorplanURLs = extractFloorplanURLs(doc, flat)
	}

	if prop.Postcode == "" && prop.Address != "" {
		prop.Postcode = parse.ExtractPostcode(prop.Address)
	}

	if prop.Address == "" && len(prop.Sales) == 0 {
		log.Printf("Could not extract any data from %s", url)
		return nil
	}
	return prop
}

// detailSlots is the set of scalar fields a detail page can fill from its
// turbo stream. The tokens recur in several nested contexts; only the
// first occurrence describes the page's subject, so each slot accepts
// exactly one write.
type detailSlots struct {
	address      string
	propertyType string
	bedrooms     int
	bathrooms    int

	addressSet, typeSet, bedsSet, bathsSet bool
}

func (s *detailSlots) fill(dec *Decoder, token string, next any) {
	switch token {
	case "address":
		if s.addressSet {
			return
		}
		switch v := next.(type) {
		case string:
			s.address = v
			s.addressSet = true
		case map[string]any:
			resolved := dec.ResolveObject(v)
			if addr := asString(resolved["displayAddress"]); addr != "" {
				s.address = addr
				s.addressSet = true
			}
		}
	case "propertyType":
		if s.typeSet {
			return
		}
		// "propertyType" also appears as a link-target key whose value is
		// the token "propertyLinkable", which is not a property type.
		if v, ok := next.(string); ok && v != "propertyLinkable" {
			s.propertyType = v
			s.typeSet = true
		}
	case "bedrooms":
		if s.bedsSet {
			return
		}
		if n := asInt(next); n > 0 {
			s.bedrooms = n
			s.bedsSet = true
		}
	case "bathrooms":
		if s.bathsSet {
			return
		}
		if n := asInt(next); n > 0 {
			s.bathrooms = n
			s.bathsSet = true
		}
	}
}

// extractDetailFromStream scans the flat graph for the detail page's
// scalar attributes and, when the HTML table yielded nothing, its
// transaction list. Existing values on prop are never overwritten.
func extractDetailFromStream(flat []any, prop *models.PropertyListing) {
	dec := NewDecoder(flat)

	slots := detailSlots{
		addressSet: prop.Address != "",
		typeSet:    prop.PropertyType != "",
		bedsSet:    prop.Bedrooms != 0,
		bathsSet:   prop.Bathrooms != 0,
	}
	for i, item := range flat {
		token, ok := item.(string)
		if !ok || i+1 >= len(flat) {
			continue
		}
		slots.fill(dec, token, flat[i+1])
	}
	if slots.addressSet && prop.Address == "" {
		prop.Address = slots.address
	}
	if slots.typeSet && prop.PropertyType == "" {
		prop.PropertyType = slots.propertyType
	}
	if slots.bedsSet && prop.Bedrooms == 0 {
		prop.Bedrooms = slots.bedrooms
	}
	if slots.bathsSet && prop.Bathrooms == 0 {
		prop.Bathrooms = slots.bathrooms
	}

	if len(prop.Sales) > 0 {
		return
	}
	for i, item := range flat {
		if item != "transactions" || i+1 >= len(flat) {
			continue
		}
		refs, ok := flat[i+1].([]any)
		if !ok {
			break
		}
		for _, entry := range dec.ResolveList(refs) {
			txn, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			sale := saleFromMap(txn)
			if sale.DateSold != "" || sale.Price != "" {
				prop.Sales = append(prop.Sales, sale)
			}
		}
		break
	}
}

// extractSalesFromTable reads the sale history table. Detail pages use
// either five columns (date, change %, price, property, tenure) or four
// (date, change %, price, tenure).
func extractSalesFromTable(doc *goquery.Document) []models.SaleTransaction {
	var sales []models.SaleTransaction

	table := doc.Find("table").First()
	rows := table.Find("tr")
	if rows.Length() == 0 {
		return sales
	}

	hasPropertyCol := rows.First().Find("th, td").Length() >= 5

	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) < 3 {
			return
		}

		var sale models.SaleTransaction
		if hasPropertyCol && len(cells) >= 5 {
			sale = models.SaleTransaction{
				DateSold:       cells[0],
				PriceChangePct: cells[1],
				Price:          cells[2],
				PropertyType:   cells[3],
				Tenure:         cells[4],
			}
		} else {
			sale = models.SaleTransaction{
				DateSold:       cells[0],
				PriceChangePct: cells[1],
				Price:          cells[2],
			}
			if len(cells) > 3 {
				sale.Tenure = cells[3]
			}
		}
		if sale.DateSold != "" || sale.Price != "" {
			sales = append(sales, sale)
		}
	})

	return sales
}

func extractKeyFeatures(doc *goquery.Document, prop *models.PropertyListing) {
	doc.Find("h2").EachWithBreak(func(_ int, h2 *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(strings.TrimSpace(h2.Text())), "key features") {
			return true
		}
		h2.NextAllFiltered("ul").First().Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := strings.TrimSpace(li.Text()); text != "" {
				prop.Features = append(prop.Features, text)
			}
		})
		return false
	})
}

var numberRe = regexp.MustCompile(`\d+`)

// extractDetailsFromDtDd reads bedroom/bathroom/type from dt/dd pairs
// when neither the stream nor the table carried them.
func extractDetailsFromDtDd(doc *goquery.Document, prop *models.PropertyListing) {
	dts := doc.Find("dt")
	dds := doc.Find("dd")
	n := dts.Length()
	if dds.Length() < n {
		n = dds.Length()
	}

	for i := 0; i < n; i++ {
		key := strings.ToLower(strings.TrimSpace(dts.Eq(i).Text()))
		value := strings.TrimSpace(dds.Eq(i).Text())

		switch {
		case strings.Contains(key, "bedroom"):
			if m := numberRe.FindString(value); m != "" {
				prop.Bedrooms = asInt(m)
			}
		case strings.Contains(key, "bathroom"):
			if m := numberRe.FindString(value); m != "" {
				prop.Bathrooms = asInt(m)
			}
		case strings.Contains(key, "property type") || key == "type":
			prop.PropertyType = value
		}
	}
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// extractFloorplanURLs collects floorplan image URLs from the stream and
// the HTML, deduplicated in order of first appearance.
func extractFloorplanURLs(doc *goquery.Document, flat []any) []string {
	urls := floorplanURLsFromStream(flat)

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		alt, _ := img.Attr("alt")
		class, _ := img.Attr("class")
		haystack := strings.ToLower(alt + " " + class + " " + src)
		if src != "" && strings.Contains(haystack, "floorplan") {
			urls = append(urls, src)
		}
	})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.ToLower(a.Text())
		if !strings.Contains(text, "floorplan") && !strings.Contains(strings.ToLower(href), "floorplan") {
			return
		}
		for _, ext := range imageExtensions {
			if strings.HasSuffix(strings.ToLower(href), ext) {
				urls = append(urls, href)
				break
			}
		}
		if src, ok := a.Find("img").First().Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
	})

	seen := make(map[string]struct{}, len(urls))
	var unique []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}

func floorplanURLsFromStream(flat []any) []string {
	if flat == nil {
		return nil
	}
	var urls []string
	dec := NewDecoder(flat)

	appendURL := func(v any) {
		if s := asString(v); s != "" && (strings.HasPrefix(s, "http") || strings.HasPrefix(s, "/")) {
			urls = append(urls, s)
		}
	}
	appendFromMap := func(m map[string]any) {
		for _, key := range []string{"url", "src", "href", "imageUrl"} {
			appendURL(m[key])
		}
	}

	for i, item := range flat {
		token, ok := item.(string)
		if !ok || !strings.Contains(strings.ToLower(token), "floorplan") {
			continue
		}
		// The token itself may be a direct URL
		appendURL(token)
		if i+1 >= len(flat) {
			continue
		}
		switch next := dec.ResolveValue(flat[i+1]).(type) {
		case string:
			appendURL(next)
		case []any:
			for _, v := range next {
				switch e := v.(type) {
				case string:
					appendURL(e)
				case map[string]any:
					appendFromMap(e)
				}
			}
		case map[string]any:
			appendFromMap(next)
		}
	}
	return urls
}

func absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return baseURL + path
}

// asString lifts a resolved graph value into a string; nil and non-string
// scalars become "".
func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt lifts a resolved graph value into an int, accepting the float64
// form JSON numbers arrive in and numeric strings from HTML fallbacks.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if m := numberRe.FindString(n); m != "" {
			var out int
			fmt.Sscanf(m, "%d", &out)
			return out
		}
	}
	return 0
}
