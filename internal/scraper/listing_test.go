package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"house-search/internal/models"
)

// listingStatusGraph builds the propertyListing marker for a live
// residential-sale listing.
func listingStatusGraph() []any {
	return padded([]any{
		"propertyListing", // 0
		map[string]any{"_2": 3, "_4": 5, "_8": 9, "_10": 11}, // 1
		"channel", // 2
		"RES_BUY", // 3
		"status",  // 4
		map[string]any{"_6": true, "_7": false}, // 5
		"published",      // 6 (names the true field)
		"archived",       // 7
		"id",             // 8
		123456789,        // 9
		"listingHistory", // 10
		map[string]any{"_12": 13}, // 11
		"listingUpdateReason", // 12
		"Added on 03/02/2026", // 13
	})
}

func TestExtractListingStatusForSale(t *testing.T) {
	status := extractListingStatus(listingStatusGraph())
	require.NotNil(t, status)
	require.Equal(t, models.ListingForSale, status.Status)
	require.Equal(t, "RES_BUY", status.Channel)
	require.True(t, status.Published)
	require.False(t, status.Archived)
	require.Equal(t, int64(123456789), status.ListingID)
	require.Equal(t, "03/02/2026", status.ListingDate)
	require.Equal(t, baseURL+"/properties/123456789", status.ListingURL)
}

func TestExtractListingStatusArchived(t *testing.T) {
	flat := listingStatusGraph()
	flat[5] = map[string]any{"_6": true, "_7": true} // archived

	status := extractListingStatus(flat)
	require.NotNil(t, status)
	require.Equal(t, models.ListingNotListed, status.Status)
}

func TestExtractListingStatusWrongChannel(t *testing.T) {
	flat := listingStatusGraph()
	flat[3] = "RES_LET"

	status := extractListingStatus(flat)
	require.NotNil(t, status)
	require.Equal(t, models.ListingNotListed, status.Status)
}

func TestExtractListingStatusMissingStatusObject(t *testing.T) {
	flat := padded([]any{
		"propertyListing",
		map[string]any{"_2": 3},
		"channel",
		"RES_BUY",
	})

	// no status object reads as archived
	status := extractListingStatus(flat)
	require.NotNil(t, status)
	require.Equal(t, models.ListingNotListed, status.Status)
	require.True(t, status.Archived)
}

func TestExtractListingStatusNoMarker(t *testing.T) {
	require.Nil(t, extractListingStatus(padded([]any{"properties", []any{}})))
}

func TestParseListingDate(t *testing.T) {
	require.Equal(t, "03/02/2026", parseListingDate("Added on 03/02/2026"))
	require.Equal(t, "14/11/2025", parseListingDate("Reduced on 14/11/2025"))
	require.Equal(t, "", parseListingDate("New listing"))
}

func TestAskingPriceFromStream(t *testing.T) {
	flat := []any{
		"price",
		map[string]any{"_2": 3, "_4": 5, "_6": 7},
		"amount",       // 2
		450000,         // 3
		"displayPrice", // 4
		"£450,000",     // 5
		"qualifier",    // 6
		"Guide Price",  // 7
	}

	price, display, ok := askingPriceFromStream(flat)
	require.True(t, ok)
	require.Equal(t, 450000, price)
	require.Equal(t, "Guide Price £450,000", display)
}

func TestAskingPriceFromStreamAmountOnly(t *testing.T) {
	flat := []any{
		"price",
		map[string]any{"_2": 3},
		"amount",
		325000,
	}

	price, display, ok := askingPriceFromStream(flat)
	require.True(t, ok)
	require.Equal(t, 325000, price)
	require.Equal(t, "£325,000", display)
}

func TestAskingPriceFromStreamAbsent(t *testing.T) {
	_, _, ok := askingPriceFromStream([]any{"noise", "more noise"})
	require.False(t, ok)
}

func TestAskingPriceFromTitle(t *testing.T) {
	tests := []struct {
		title   string
		price   int
		display string
		ok      bool
	}{
		{"3 bed house for sale, Guide Price £450,000 in Testville", 450000, "Guide Price £450,000", true},
		{"2 bed flat for sale, Offers Over £300,000", 300000, "Offers Over £300,000", true},
		{"4 bed house for sale, £725,000", 725000, "£725,000", true},
		{"Property for sale in Testville", 0, "", false},
	}
	for _, tt := range tests {
		price, display, ok := askingPriceFromTitle(tt.title)
		require.Equal(t, tt.ok, ok, "title %q", tt.title)
		require.Equal(t, tt.price, price, "title %q", tt.title)
		require.Equal(t, tt.display, display, "title %q", tt.title)
	}
}
