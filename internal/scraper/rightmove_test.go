package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"house-search/internal/models"
)

// listingGraph builds the flat array a house-prices listing page carries:
// two properties sharing field-name slots, each with one sale.
func listingGraph() []any {
	return padded([]any{
		"properties",          // 0
		[]any{2, 20},          // 1
		map[string]any{"_3": 4, "_5": 6, "_7": 8, "_9": 10, "_11": 12, "_13": 14}, // 2
		"address",                          // 3
		"1 Test Street, Testville TE5 7AA", // 4
		"propertyType",                     // 5
		"Detached",                         // 6
		"bedrooms",                         // 7
		3,                                  // 8
		"bathrooms",                        // 9
		2,                                  // 10
		"detailUrl",                        // 11
		"/house-prices/details/1",          // 12
		"transactions",                     // 13
		[]any{15},                          // 14
		map[string]any{"_16": 17, "_18": 19}, // 15
		"dateSold",   // 16
		"4 Nov 2023", // 17
		"price",      // 18
		"£450,000",   // 19
		map[string]any{"_3": 21, "_5": 6, "_7": 8, "_9": 10, "_11": 22, "_13": 23}, // 20
		"2 Test Street, Testville", // 21
		"/house-prices/details/2",  // 22
		[]any{24},                  // 23
		map[string]any{"_16": 25, "_18": 26}, // 24
		"12 Mar 2021", // 25
		"£300,000",    // 26
	})
}

func TestExtractPropertiesFromPage(t *testing.T) {
	flat := parseTurboStream(graphPage(listingGraph()), "http://test.local/listing")
	require.NotNil(t, flat)

	props := extractProperties(flat, "TE5-7AA", 10)
	require.Len(t, props, 2)

	first := props[0]
	require.Equal(t, "1 Test Street, Testville TE5 7AA", first.Address)
	require.Equal(t, "TE5 7AA", first.Postcode)
	require.Equal(t, "Detached", first.PropertyType)
	require.Equal(t, 3, first.Bedrooms)
	require.Equal(t, 2, first.Bathrooms)
	require.Equal(t, baseURL+"/house-prices/details/1", first.URL)
	require.Len(t, first.Sales, 1)
	require.Equal(t, models.SaleTransaction{DateSold: "4 Nov 2023", Price: "£450,000"}, first.Sales[0])

	second := props[1]
	require.Equal(t, "2 Test Street, Testville", second.Address)
	// no postcode in the address, falls back to the scraped postcode
	require.Equal(t, "TE5 7AA", second.Postcode)
	require.Len(t, second.Sales, 1)
	require.Equal(t, "£300,000", second.Sales[0].Price)
}

func TestExtractPropertiesHonoursMax(t *testing.T) {
	flat := selectFlatGraph(graphPage(listingGraph()))
	require.NotNil(t, flat)

	props := extractProperties(flat, "TE5-7AA", 1)
	require.Len(t, props, 1)
}

func TestExtractDetailURLs(t *testing.T) {
	flat := selectFlatGraph(graphPage(listingGraph()))
	require.NotNil(t, flat)

	urls := extractDetailURLs(flat, 10)
	require.Equal(t, []string{
		baseURL + "/house-prices/details/1",
		baseURL + "/house-prices/details/2",
	}, urls)

	require.Len(t, extractDetailURLs(flat, 1), 1)
}

func TestListingToPropertyRequiresAddress(t *testing.T) {
	require.Nil(t, listingToProperty(map[string]any{"propertyType": "Flat"}, "TE5 7AA"))
}

func TestListingToPropertyLatestTransaction(t *testing.T) {
	prop := listingToProperty(map[string]any{
		"address": "3 Test Street",
		"latestTransaction": map[string]any{
			"dateSold":     "1 Jan 2020",
			"displayPrice": "£200,000",
		},
	}, "TE5 7AA")

	require.NotNil(t, prop)
	require.Len(t, prop.Sales, 1)
	require.Equal(t, "£200,000", prop.Sales[0].Price)
}

func TestSaleFromMapNumericPrice(t *testing.T) {
	sale := saleFromMap(map[string]any{
		"dateSold":              "4 Nov 2023",
		"price":                 float64(450000),
		"priceChangePercentage": "+12%",
		"tenure":                "Freehold",
	})

	require.Equal(t, "£450,000", sale.Price)
	require.Equal(t, "+12%", sale.PriceChangePct)
	require.Equal(t, "Freehold", sale.Tenure)
}

func TestDetailSlotsFirstOccurrenceWins(t *testing.T) {
	flat := []any{
		"address", "First House",
		"address", "Second House",
		"propertyType", "propertyLinkable", // link-target key, not a type
		"propertyType", "Terraced",
		"bedrooms", float64(4),
		"bedrooms", float64(9),
		"bathrooms", float64(2),
	}

	prop := &models.PropertyListing{}
	extractDetailFromStream(flat, prop)

	require.Equal(t, "First House", prop.Address)
	require.Equal(t, "Terraced", prop.PropertyType)
	require.Equal(t, 4, prop.Bedrooms)
	require.Equal(t, 2, prop.Bathrooms)
}

func TestDetailSlotsNeverOverwrite(t *testing.T) {
	flat := []any{
		"address", "Stream House",
		"bedrooms", float64(5),
	}

	prop := &models.PropertyListing{Address: "HTML House", Bedrooms: 0}
	extractDetailFromStream(flat, prop)

	require.Equal(t, "HTML House", prop.Address)
	require.Equal(t, 5, prop.Bedrooms)
}

func TestDetailStreamTransactionsFallback(t *testing.T) {
	flat := []any{
		"transactions",
		[]any{2},
		map[string]any{"_3": 4, "_5": 6},
		"dateSold",
		"4 Nov 2023",
		"price",
		"£450,000",
	}

	prop := &models.PropertyListing{}
	extractDetailFromStream(flat, prop)
	require.Len(t, prop.Sales, 1)
	require.Equal(t, "4 Nov 2023", prop.Sales[0].DateSold)

	// HTML table sales take precedence: the fallback must not append
	withSales := &models.PropertyListing{Sales: []models.SaleTransaction{{DateSold: "1 Jan 2020"}}}
	extractDetailFromStream(flat, withSales)
	require.Len(t, withSales.Sales, 1)
	require.Equal(t, "1 Jan 2020", withSales.Sales[0].DateSold)
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractSalesFromTableFiveColumns(t *testing.T) {
	doc := mustDoc(t, `<table>
		<tr><th>Sold date</th><th>Change</th><th>Price</th><th>Property</th><th>Tenure</th></tr>
		<tr><td>4 Nov 2023</td><td>+12%</td><td>£450,000</td><td>Detached</td><td>Freehold</td></tr>
		<tr><td>12 Mar 2021</td><td></td><td>£300,000</td><td>Detached</td><td>Freehold</td></tr>
	</table>`)

	sales := extractSalesFromTable(doc)
	require.Len(t, sales, 2)
	require.Equal(t, models.SaleTransaction{
		DateSold:       "4 Nov 2023",
		PriceChangePct: "+12%",
		Price:          "£450,000",
		PropertyType:   "Detached",
		Tenure:         "Freehold",
	}, sales[0])
}

func TestExtractSalesFromTableFourColumns(t *testing.T) {
	doc := mustDoc(t, `<table>
		<tr><th>Sold date</th><th>Change</th><th>Price</th><th>Tenure</th></tr>
		<tr><td>4 Nov 2023</td><td>+12%</td><td>£450,000</td><td>Leasehold</td></tr>
	</table>`)

	sales := extractSalesFromTable(doc)
	require.Len(t, sales, 1)
	require.Equal(t, "Leasehold", sales[0].Tenure)
	require.Empty(t, sales[0].PropertyType)
}

func TestExtractKeyFeatures(t *testing.T) {
	doc := mustDoc(t, `<div>
		<h2>Key features</h2>
		<ul><li>Garden</li><li>Garage</li><li>  </li></ul>
	</div>`)

	prop := &models.PropertyListing{}
	extractKeyFeatures(doc, prop)
	require.Equal(t, []string{"Garden", "Garage"}, prop.Features)
}

func TestExtractDetailsFromDtDd(t *testing.T) {
	doc := mustDoc(t, `<dl>
		<dt>Property type</dt><dd>Semi-Detached</dd>
		<dt>Bedrooms</dt><dd>3 bedrooms</dd>
		<dt>Bathrooms</dt><dd>1</dd>
	</dl>`)

	prop := &models.PropertyListing{}
	extractDetailsFromDtDd(doc, prop)
	require.Equal(t, "Semi-Detached", prop.PropertyType)
	require.Equal(t, 3, prop.Bedrooms)
	require.Equal(t, 1, prop.Bathrooms)
}

func TestExtractFloorplanURLs(t *testing.T) {
	doc := mustDoc(t, `<div>
		<img src="https://media.test/floorplan/1.png" alt="Floorplan 1">
		<img src="https://media.test/photo/2.jpg" alt="Front of house">
		<a href="https://media.test/floorplan/1.png">Floorplan</a>
	</div>`)

	urls := extractFloorplanURLs(doc, nil)
	require.Equal(t, []string{"https://media.test/floorplan/1.png"}, urls)
}

func TestAsInt(t *testing.T) {
	require.Equal(t, 3, asInt(float64(3)))
	require.Equal(t, 3, asInt(3))
	require.Equal(t, 3, asInt("3 bedrooms"))
	require.Equal(t, 0, asInt("none"))
	require.Equal(t, 0, asInt(nil))
}

func TestAbsoluteURL(t *testing.T) {
	require.Equal(t, baseURL+"/x", absoluteURL("/x"))
	require.Equal(t, "https://other.test/x", absoluteURL("https://other.test/x"))
	require.Equal(t, "", absoluteURL(""))
}
