package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	postcodeRe  = regexp.MustCompile(`(?i)[A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2}`)
	digitRunRe  = regexp.MustCompile(`\d+`)
	soldDateRe  = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,})\s+(\d{4})`)
	spaceDashRe = regexp.MustCompile(`[\s\-]`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParsePriceToInt parses a display price like "£450,000" into 450000.
// Tolerates the double-encoded "Â£" variant that shows up when the pound
// sign has been through a UTF-8 round trip. Returns ok=false if no digits
// are present.
func ParsePriceToInt(price string) (int, bool) {
	if price == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer("£", "", "Â", "", ",", "").Replace(price)
	m := digitRunRe.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDateToISO parses a sold date like "4 Nov 2023" into "2023-11-04".
// Invalid calendar dates (31 Feb) and other shapes return ok=false.
func ParseDateToISO(dateStr string) (string, bool) {
	m := soldDateRe.FindStringSubmatch(strings.TrimSpace(dateStr))
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	month, ok := months[strings.ToLower(m[2])[:3]]
	if !ok {
		return "", false
	}
	// time.Date normalizes overflow (31 Feb becomes 2/3 Mar), so build the
	// date and check nothing moved.
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month || d.Year() != year {
		return "", false
	}
	return d.Format("2006-01-02"), true
}

// ExtractPostcode pulls a UK postcode out of an address string.
func ExtractPostcode(address string) string {
	return strings.ToUpper(strings.TrimSpace(postcodeRe.FindString(address)))
}

// NormalisePostcodeForURL converts "AB10 1AA" or "ab10-1aa" to "AB101AA"
// as used in house-prices page URLs.
func NormalisePostcodeForURL(postcode string) string {
	return spaceDashRe.ReplaceAllString(strings.ToUpper(postcode), "")
}

// FormatPostcode re-inserts the space into a normalised postcode.
func FormatPostcode(normalised string) string {
	if len(normalised) >= 5 {
		return normalised[:len(normalised)-3] + " " + normalised[len(normalised)-3:]
	}
	return normalised
}

// FormatPrice renders a numeric price value from the graph as a display
// string. Strings pass through unchanged.
func FormatPrice(v any) string {
	switch p := v.(type) {
	case nil:
		return ""
	case string:
		return p
	case float64:
		return "£" + humanize.Comma(int64(p))
	case int:
		return "£" + humanize.Comma(int64(p))
	case int64:
		return "£" + humanize.Comma(p)
	}
	return ""
}
