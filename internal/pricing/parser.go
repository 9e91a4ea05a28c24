// Package pricing extracts and formats prices from free-text price strings.
package pricing

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Plausible bounds used when choosing among several embedded numbers.
const (
	PlausibleMin = 100.0
	PlausibleMax = 999999.0
)

// DefaultSymbol is the currency symbol used for canonical display prices.
const DefaultSymbol = "₹"

var (
	// "€1.299,00", "1.234.567,5": dot thousands with a comma decimal. A lone
	// "1.299" stays a decimal since nothing marks it as grouped.
	dotGroupedPattern = regexp.MustCompile(`(?:^|[^\d.,])(\d{1,3}(?:\.\d{3})+,\d{1,2})(?:[^\d.,]|$)`)

	// "₹1,299.00", "$1,000", "€ 49"
	symbolPricePattern = regexp.MustCompile(`[₹$€£]\s*(\d[\d,]*(?:\.\d+)?)`)

	// "1,299.00" when it is the whole string
	barePricePattern = regexp.MustCompile(`^\d[\d,]*(?:\.\d+)?$`)

	// "Rs. 999", "INR 999", "MRP: 999", "price: 999"
	labelPrefixPattern = regexp.MustCompile(`(?i)\b(?:rs\.?|inr|mrp|price)\s*[:\-]?\s*(\d[\d,]*(?:\.\d+)?)`)

	// "999/-", "999 only"
	labelSuffixPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:/-|only\b)`)

	// Numbers with at least three digits, possibly grouped
	embeddedNumberPattern = regexp.MustCompile(`\d[\d,]*\d(?:\.\d+)?|\d{3,}`)

	anyNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParsePrice extracts a numeric price from a free-text price string.
// It never panics and reports false when no digit sequence is present.
func ParsePrice(raw string) (float64, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}

	if m := dotGroupedPattern.FindStringSubmatch(text); m != nil {
		normalized := strings.ReplaceAll(strings.ReplaceAll(m[1], ".", ""), ",", ".")
		if v, ok := parseNumber(normalized); ok {
			return v, true
		}
	}

	if m := symbolPricePattern.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return v, true
		}
	}

	if barePricePattern.MatchString(text) {
		if v, ok := parseNumber(text); ok {
			return v, true
		}
	}

	for _, pattern := range []*regexp.Regexp{labelPrefixPattern, labelSuffixPattern} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if v, ok := parseNumber(m[1]); ok {
				return v, true
			}
		}
	}

	if v, ok := medianEmbedded(text); ok {
		return v, true
	}

	if m := anyNumberPattern.FindString(text); m != "" {
		if v, ok := parseNumber(m); ok {
			return v, true
		}
	}

	return 0, false
}

// ParseValue extracts a price from a decoded JSON value (string, number or nil).
func ParseValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finitePositive(val)
	case float32:
		return finitePositive(float64(val))
	case int:
		return finitePositive(float64(val))
	case int64:
		return finitePositive(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return ParsePrice(val.String())
		}
		return finitePositive(f)
	case string:
		return ParsePrice(val)
	default:
		return 0, false
	}
}

// ExtractEmbedded looks for an explicit currency or labelled price inside
// noisy text such as a product title. Bare numbers are ignored because
// titles carry pack counts and model numbers.
func ExtractEmbedded(text string) (float64, bool) {
	for _, pattern := range []*regexp.Regexp{symbolPricePattern, labelPrefixPattern, labelSuffixPattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			v, ok := parseNumber(m[1])
			if ok && v >= 1 && v <= PlausibleMax {
				return v, true
			}
		}
	}
	return 0, false
}

// HasCurrencyMarker reports whether text states a price in rupees.
func HasCurrencyMarker(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, "₹") ||
		strings.Contains(lower, "rs.") ||
		strings.Contains(lower, "rs ") ||
		strings.Contains(lower, "inr")
}

// Format renders a canonical display price: symbol plus grouped integer amount.
func Format(symbol string, value float64) string {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return symbol + groupThousands(int64(math.Round(value)))
}

// Round returns value rounded to the integer used in display prices.
func Round(value float64) float64 {
	return math.Round(value)
}

// medianEmbedded returns the median of all plausible 3+ digit numbers.
func medianEmbedded(text string) (float64, bool) {
	var candidates []float64
	for _, m := range embeddedNumberPattern.FindAllString(text, -1) {
		v, ok := parseNumber(m)
		if !ok {
			continue
		}
		if v >= PlausibleMin && v <= PlausibleMax {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	sort.Float64s(candidates)
	return candidates[len(candidates)/2], true
}

func parseNumber(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	cleaned = strings.TrimSuffix(cleaned, ".")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finitePositive(v)
}

func finitePositive(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func groupThousands(n int64) string {
	negative := n < 0
	if negative {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}
