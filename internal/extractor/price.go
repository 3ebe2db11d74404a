package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

var priceNumberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// parsePrice reads a human price string ("19,99 €", "$1,234.56", "EUR 12").
// It returns the amount, the detected currency code ("" when the string
// carries no currency hint), and whether a number was found at all.
// Comma-as-decimal locales are tolerated: a comma with no later dot is
// treated as the decimal separator.
func parsePrice(raw string) (float64, string, bool) {
	if raw == "" {
		return 0, "", false
	}

	currency := ""
	switch {
	case strings.ContainsRune(raw, '€') || strings.Contains(raw, "EUR"):
		currency = "EUR"
	case strings.ContainsRune(raw, '£') || strings.Contains(raw, "GBP"):
		currency = "GBP"
	case strings.ContainsRune(raw, '$') || strings.Contains(raw, "USD"):
		currency = "USD"
	}

	number := priceNumberPattern.FindString(raw)
	if number == "" {
		return 0, currency, false
	}

	lastComma := strings.LastIndex(number, ",")
	lastDot := strings.LastIndex(number, ".")
	switch {
	case lastComma > lastDot:
		// European format: dots are thousand separators
		number = strings.ReplaceAll(number, ".", "")
		number = strings.Replace(number, ",", ".", 1)
	default:
		number = strings.ReplaceAll(number, ",", "")
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, currency, false
	}
	return value, currency, true
}
