package domain

import "strings"

// SortBy selects the explicit ordering requested by the caller.
type SortBy string

const (
	SortByUnset SortBy = ""
	SortByPrice SortBy = "price"
)

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// NormalizeSortBy maps free-form input onto a known SortBy.
func NormalizeSortBy(raw string) SortBy {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortByPrice)) {
		return SortByPrice
	}
	return SortByUnset
}

// NormalizeSortOrder maps free-form input onto a known SortOrder, defaulting to asc.
func NormalizeSortOrder(raw string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortOrderDesc)) {
		return SortOrderDesc
	}
	return SortOrderAsc
}

// ImageInput is an uploaded or downloaded image payload.
type ImageInput struct {
	Data      []byte
	MIMEType  string
	SourceURL string // Set when the image came from a URL; used for hint matching
}

// Filters are the user-supplied constraints applied to a result set.
type Filters struct {
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
	Brands   []string `json:"brands,omitempty"`
}

// SortOptions is the explicit ordering requested by the caller.
type SortOptions struct {
	SortBy    SortBy    `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Explicit reports whether the caller asked for an explicit sort.
func (s SortOptions) Explicit() bool {
	return s.SortBy == SortByPrice
}

// SearchRequest represents an inbound product search.
type SearchRequest struct {
	Text     string
	ImageURL string
	Image    *ImageInput
	Filters  Filters
	Sort     SortOptions
}

// HasSignal reports whether at least one of text, image URL or image was supplied.
func (r *SearchRequest) HasSignal() bool {
	if r == nil {
		return false
	}
	return strings.TrimSpace(r.Text) != "" ||
		strings.TrimSpace(r.ImageURL) != "" ||
		(r.Image != nil && len(r.Image.Data) > 0)
}

// SearchResponse is the result of one search pipeline run.
type SearchResponse struct {
	SearchQuery string           `json:"searchQuery"`
	Products    []Product        `json:"products"`
	Comparison  ComparisonData   `json:"comparison"`
	Filters     Filters          `json:"filters"`
	Sort        SortOptions      `json:"sort"`
	Providers   []ProviderStatus `json:"providers"`
}

// PriceStats summarises the priced products in a result set.
type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// BestDeal is the cheapest priced product offered by one company.
type BestDeal struct {
	Company string  `json:"company"`
	Product Product `json:"product"`
	Price   float64 `json:"price"`
}

// PriceRange is the spread between the cheapest and most expensive listing.
type PriceRange struct {
	Lowest     float64 `json:"lowest"`
	Highest    float64 `json:"highest"`
	Difference float64 `json:"difference"`
}

// ComparisonData groups a result set by company with price statistics.
type ComparisonData struct {
	Companies     []string             `json:"companies"`
	CompanyGroups map[string][]Product `json:"companyGroups"`
	PriceStats    *PriceStats          `json:"priceStats"`
	BestDeals     []BestDeal           `json:"bestDeals"`
	TotalProducts int                  `json:"totalProducts"`
	PriceRange    *PriceRange          `json:"priceRange"`
}
