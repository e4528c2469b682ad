package parse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePriceToInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"£450,000", 450000, true},
		{"Â£450,000", 450000, true}, // double-encoded pound sign
		{"£1,250,000", 1250000, true},
		{"450000", 450000, true},
		{"", 0, false},
		{"POA", 0, false},
		{"£", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePriceToInt(tt.in)
		require.Equal(t, tt.ok, ok, "input %q", tt.in)
		require.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseDateToISO(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"4 Nov 2023", "2023-11-04", true},
		{"04 November 2023", "2023-11-04", true},
		{"12 Mar 2021", "2021-03-12", true},
		{"29 Feb 2024", "2024-02-29", true}, // leap year
		{"31 Feb 2023", "", false},          // not a real date
		{"29 Feb 2023", "", false},
		{"2023-11-04", "", false}, // already ISO, wrong shape
		{"4 Xyz 2023", "", false},
		{"", "", false},
		{"  4 Nov 2023  ", "2023-11-04", true},
	}
	for _, tt := range tests {
		got, ok := ParseDateToISO(tt.in)
		require.Equal(t, tt.ok, ok, "input %q", tt.in)
		require.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestExtractPostcode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 Test Street, Testville TE5 7AA", "TE5 7AA"},
		{"Flat 2, 10 High Road, London SW1A 1AA", "SW1A 1AA"},
		{"somewhere ec1a1bb", "EC1A1BB"},
		{"1 Test Street, Testville", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ExtractPostcode(tt.in), "input %q", tt.in)
	}
}

func TestPostcodeNormalisation(t *testing.T) {
	require.Equal(t, "TE57AA", NormalisePostcodeForURL("te5 7aa"))
	require.Equal(t, "TE57AA", NormalisePostcodeForURL("TE5-7AA"))
	require.Equal(t, "TE57AA", NormalisePostcodeForURL("TE57AA"))

	require.Equal(t, "TE5 7AA", FormatPostcode("TE57AA"))
	require.Equal(t, "SW1A 1AA", FormatPostcode("SW1A1AA"))
	require.Equal(t, "ABC", FormatPostcode("ABC"))
}

func TestFormatPrice(t *testing.T) {
	require.Equal(t, "£450,000", FormatPrice(float64(450000)))
	require.Equal(t, "£1,250,000", FormatPrice(1250000))
	require.Equal(t, "£300,000", FormatPrice("£300,000"))
	require.Equal(t, "", FormatPrice(nil))
}
