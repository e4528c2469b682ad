package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"house-search/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func testProperty() *models.PropertyListing {
	return &models.PropertyListing{
		Address:      "1 Test Street, Testville TE5 7AA",
		Postcode:     "TE5 7AA",
		PropertyType: "Detached",
		Bedrooms:     3,
		Bathrooms:    2,
		Features:     []string{"Garden", "Garage"},
		URL:          "https://www.rightmove.co.uk/house-prices/details/1",
		Sales: []models.SaleTransaction{
			{DateSold: "4 Nov 2023", Price: "£450,000", Tenure: "Freehold"},
			{DateSold: "some time ago", Price: "POA"},
		},
	}
}

func TestSaveListingRoundTrip(t *testing.T) {
	database := testDB(t)

	id, err := database.SaveListing(testProperty())
	require.NoError(t, err)
	require.NotZero(t, id)

	detail, err := database.GetProperty(id)
	require.NoError(t, err)
	require.Equal(t, "1 Test Street, Testville TE5 7AA", detail.Address)
	require.Equal(t, "TE5 7AA", detail.Postcode)
	require.Equal(t, "DETACHED", detail.PropertyType)
	require.NotNil(t, detail.Bedrooms)
	require.Equal(t, int64(3), *detail.Bedrooms)
	require.Equal(t, []string{"Garden", "Garage"}, detail.Features)
	require.Len(t, detail.Sales, 2)

	// derived columns: parseable rows get numeric/ISO values, the rest
	// keep their raw strings with NULL derivations
	sales, err := database.ListSales()
	require.NoError(t, err)
	require.Len(t, sales, 2)

	byDate := map[string]models.Sale{}
	for _, s := range sales {
		byDate[s.DateSold] = s
	}
	good := byDate["4 Nov 2023"]
	require.True(t, good.DateSoldISO.Valid)
	require.Equal(t, "2023-11-04", good.DateSoldISO.String)
	require.True(t, good.PriceNumeric.Valid)
	require.Equal(t, int64(450000), good.PriceNumeric.Int64)

	bad := byDate["some time ago"]
	require.False(t, bad.DateSoldISO.Valid)
	require.False(t, bad.PriceNumeric.Valid)
	require.Equal(t, "POA", bad.Price)
}

func TestSaveListingUpsertPreservesFields(t *testing.T) {
	database := testDB(t)

	id, err := database.SaveListing(testProperty())
	require.NoError(t, err)

	// a thin re-scrape of the same address must not erase detail fields
	thin := &models.PropertyListing{Address: "1 Test Street, Testville TE5 7AA"}
	id2, err := database.SaveListing(thin)
	require.NoError(t, err)
	require.Equal(t, id, id2)

	detail, err := database.GetProperty(id)
	require.NoError(t, err)
	require.Equal(t, "DETACHED", detail.PropertyType)
	require.NotNil(t, detail.Bedrooms)
	require.Len(t, detail.Sales, 2)
}

func TestSaveListingReplacesSales(t *testing.T) {
	database := testDB(t)

	prop := testProperty()
	id, err := database.SaveListing(prop)
	require.NoError(t, err)

	prop.Sales = []models.SaleTransaction{{DateSold: "12 Mar 2021", Price: "£300,000"}}
	_, err = database.SaveListing(prop)
	require.NoError(t, err)

	detail, err := database.GetProperty(id)
	require.NoError(t, err)
	require.Len(t, detail.Sales, 1)
	require.Equal(t, "12 Mar 2021", detail.Sales[0].DateSold)
}

func TestListPropertiesFilters(t *testing.T) {
	database := testDB(t)

	_, err := database.SaveListing(testProperty())
	require.NoError(t, err)
	_, err = database.SaveListing(&models.PropertyListing{
		Address:      "5 Other Road, Elsewhere EC1A 1BB",
		Postcode:     "EC1A 1BB",
		PropertyType: "Flat",
		Bedrooms:     1,
	})
	require.NoError(t, err)

	all, err := database.ListProperties(PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	byPostcode, err := database.ListProperties(PropertyFilter{Postcode: "te5 7aa "})
	require.NoError(t, err)
	require.Len(t, byPostcode, 1)
	require.Equal(t, "1 Test Street, Testville TE5 7AA", byPostcode[0].Address)
	require.Equal(t, 2, byPostcode[0].SaleCount)

	min := 2
	byBedrooms, err := database.ListProperties(PropertyFilter{BedroomsMin: &min})
	require.NoError(t, err)
	require.Len(t, byBedrooms, 1)
}

func TestUpdateListingStatus(t *testing.T) {
	database := testDB(t)

	id, err := database.SaveListing(testProperty())
	require.NoError(t, err)

	price := 475000
	err = database.UpdateListingStatus(id, &models.ListingStatus{
		Status:       models.ListingForSale,
		Price:        &price,
		PriceDisplay: "Guide Price £475,000",
		ListingDate:  "03/02/2026",
		ListingURL:   "https://www.rightmove.co.uk/properties/123456789",
	})
	require.NoError(t, err)

	row, err := database.GetPropertyRow(id)
	require.NoError(t, err)
	require.Equal(t, models.ListingForSale, row.ListingStatus.String)
	require.Equal(t, int64(475000), row.ListingPrice.Int64)
	require.True(t, row.ListingCheckedAt.Valid)

	forSale, err := database.ListProperties(PropertyFilter{ForSaleOnly: true})
	require.NoError(t, err)
	require.Len(t, forSale, 1)

	// a nil status clears everything back to not listed
	require.NoError(t, database.UpdateListingStatus(id, nil))
	row, err = database.GetPropertyRow(id)
	require.NoError(t, err)
	require.Equal(t, models.ListingNotListed, row.ListingStatus.String)
	require.False(t, row.ListingPrice.Valid)
}

func TestIsPostcodeFresh(t *testing.T) {
	database := testDB(t)

	fresh, count, err := database.IsPostcodeFresh("TE5 7AA", 24*time.Hour)
	require.NoError(t, err)
	require.False(t, fresh)
	require.Zero(t, count)

	_, err = database.SaveListing(testProperty())
	require.NoError(t, err)

	fresh, count, err = database.IsPostcodeFresh("te5-7aa", 24*time.Hour)
	require.NoError(t, err)
	require.True(t, fresh)
	require.Equal(t, 1, count)
}

func TestUpdateSaleNormalized(t *testing.T) {
	database := testDB(t)

	_, err := database.SaveListing(testProperty())
	require.NoError(t, err)

	sales, err := database.ListSales()
	require.NoError(t, err)
	require.NotEmpty(t, sales)

	require.NoError(t, database.UpdateSaleNormalized(sales[0].ID, 999999, "2020-01-01"))

	sales, err = database.ListSales()
	require.NoError(t, err)
	require.Equal(t, int64(999999), sales[0].PriceNumeric.Int64)
	require.Equal(t, "2020-01-01", sales[0].DateSoldISO.String)
}
