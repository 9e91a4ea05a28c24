package serp

import (
	"strings"

	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/pricing"
)

// MapShoppingResults converts a google_shopping document into products.
func MapShoppingResults(data map[string]interface{}) []domain.Product {
	items := getItems(data, "shopping_results")
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		link := getString(item["link"])
		if link == "" {
			link = getString(item["product_link"])
		}
		p := domain.Product{
			Title:     strings.TrimSpace(getString(item["title"])),
			Link:      link,
			Source:    getString(item["source"]),
			Thumbnail: getString(item["thumbnail"]),
		}
		applyPrice(&p, item["price"], item["extracted_price"])
		if p.Valid() {
			products = append(products, p)
		}
	}
	return products
}

// MapAmazonResults converts an amazon engine document into products.
func MapAmazonResults(data map[string]interface{}) []domain.Product {
	items := getItems(data, "organic_results")
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		p := domain.Product{
			Title:     strings.TrimSpace(getString(item["title"])),
			Link:      getString(item["link"]),
			Source:    "Amazon",
			Thumbnail: getString(item["thumbnail"]),
		}

		price := item["price"]
		if nested, ok := price.(map[string]interface{}); ok {
			price = nested["raw"]
		}
		applyPrice(&p, price, item["extracted_price"])
		if p.Valid() {
			products = append(products, p)
		}
	}
	return products
}

// MapSiteResults converts a google organic document restricted to one
// marketplace. Prices are only taken from text that states them in rupees.
func MapSiteResults(data map[string]interface{}, site, source string) []domain.Product {
	items := getItems(data, "organic_results")
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		link := getString(item["link"])
		if site != "" && !strings.Contains(strings.ToLower(link), strings.ToLower(site)) {
			continue
		}

		title := cleanSiteTitle(getString(item["title"]), source)
		p := domain.Product{
			Title:     title,
			Link:      link,
			Source:    source,
			Thumbnail: getString(item["thumbnail"]),
		}

		for _, text := range []string{richSnippetPrice(item), getString(item["snippet"]), title} {
			if !pricing.HasCurrencyMarker(text) {
				continue
			}
			if v, ok := pricing.ExtractEmbedded(text); ok {
				p.PriceNumber = domain.Float64Ptr(v)
				p.Price = pricing.Format(pricing.DefaultSymbol, v)
				break
			}
		}

		if p.Valid() {
			products = append(products, p)
		}
	}
	return products
}

// richSnippetPrice flattens the structured price SerpAPI sometimes attaches
// under rich_snippet.{top,bottom}.detected_extensions.
func richSnippetPrice(item map[string]interface{}) string {
	rich, ok := item["rich_snippet"].(map[string]interface{})
	if !ok {
		return ""
	}
	for _, section := range []string{"top", "bottom"} {
		part, ok := rich[section].(map[string]interface{})
		if !ok {
			continue
		}
		if ext, ok := part["detected_extensions"].(map[string]interface{}); ok {
			if v, ok := pricing.ParseValue(ext["price"]); ok && v > 0 {
				currency := getString(ext["currency"])
				if currency == "" || currency == "₹" || strings.EqualFold(currency, "INR") {
					return pricing.Format(pricing.DefaultSymbol, v)
				}
			}
		}
		if exts, ok := part["extensions"].([]interface{}); ok {
			for _, e := range exts {
				if s := getString(e); pricing.HasCurrencyMarker(s) {
					return s
				}
			}
		}
	}
	return ""
}

// cleanSiteTitle drops the " - Myntra" style suffix search engines append.
func cleanSiteTitle(title, source string) string {
	title = strings.TrimSpace(title)
	if source == "" {
		return title
	}
	for _, sep := range []string{" - ", " | ", " – "} {
		suffix := sep + strings.ToLower(source)
		if strings.HasSuffix(strings.ToLower(title), suffix) {
			return strings.TrimSpace(title[:len(title)-len(suffix)])
		}
	}
	return title
}

// applyPrice fills display and numeric price from the raw fields, preferring
// the numeric value SerpAPI already extracted.
func applyPrice(p *domain.Product, display, extracted interface{}) {
	p.Price = strings.TrimSpace(getString(display))
	if v, ok := pricing.ParseValue(extracted); ok && v > 0 {
		p.PriceNumber = domain.Float64Ptr(v)
	} else if v, ok := pricing.ParsePrice(p.Price); ok && v > 0 {
		p.PriceNumber = domain.Float64Ptr(v)
	}
	if p.Price == "" && p.PriceNumber != nil {
		p.Price = pricing.Format(pricing.DefaultSymbol, *p.PriceNumber)
	}
}

func getItems(data map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := data[key].([]interface{})
	if !ok {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items
}

func getString(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}
