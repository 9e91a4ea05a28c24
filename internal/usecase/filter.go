package usecase

import (
	"strings"

	"github.com/stylesearch/backend/internal/domain"
)

// ApplyFilters returns the products that satisfy every active facet.
// Price bounds are inclusive and only constrain products with a known price.
// Tokens within a facet are OR-combined; facets are AND-combined.
func ApplyFilters(products []domain.Product, f domain.Filters) []domain.Product {
	colors := normalizeFilterTokens(f.Colors)
	sizes := normalizeFilterTokens(f.Sizes)
	brands := normalizeFilterTokens(f.Brands)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !priceInRange(p, f.MinPrice, f.MaxPrice) {
			continue
		}

		title := strings.ToLower(p.Title)
		if len(colors) > 0 && !containsAny(colors, title) {
			continue
		}
		if len(sizes) > 0 && !containsAny(sizes, title) {
			continue
		}
		if len(brands) > 0 && !containsAny(brands, title, strings.ToLower(p.Source), strings.ToLower(p.Link)) {
			continue
		}

		out = append(out, p)
	}
	return out
}

func priceInRange(p domain.Product, minPrice, maxPrice *float64) bool {
	if p.PriceNumber == nil {
		return true
	}
	price := *p.PriceNumber
	if minPrice != nil && price < *minPrice {
		return false
	}
	if maxPrice != nil && price > *maxPrice {
		return false
	}
	return true
}

func normalizeFilterTokens(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && t != "all" {
			out = append(out, t)
		}
	}
	return out
}

func containsAny(tokens []string, fields ...string) bool {
	for _, token := range tokens {
		for _, field := range fields {
			if field != "" && strings.Contains(field, token) {
				return true
			}
		}
	}
	return false
}
