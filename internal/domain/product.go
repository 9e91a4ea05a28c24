package domain

import (
	"encoding/json"
	"strings"
)

// Product represents a single listing returned by a shopping provider.
// Empty strings stand in for absent values and are written as JSON null.
type Product struct {
	Title       string   `json:"title"`
	Price       string   `json:"price"`       // Display form, currency-prefixed (e.g. "₹1,299")
	PriceNumber *float64 `json:"priceNumber"` // nil when no numeric price could be extracted
	Link        string   `json:"link"`
	Source      string   `json:"source"` // Marketplace name
	Thumbnail   string   `json:"thumbnail"`
}

type productJSON struct {
	Title       string   `json:"title"`
	Price       *string  `json:"price"`
	PriceNumber *float64 `json:"priceNumber"`
	Link        string   `json:"link"`
	Source      *string  `json:"source"`
	Thumbnail   *string  `json:"thumbnail"`
}

// MarshalJSON always emits every field, with null for absent values.
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(productJSON{
		Title:       p.Title,
		Price:       nullable(p.Price),
		PriceNumber: p.PriceNumber,
		Link:        p.Link,
		Source:      nullable(p.Source),
		Thumbnail:   nullable(p.Thumbnail),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Valid reports whether the product carries both a title and a link.
func (p Product) Valid() bool {
	return strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.Link) != ""
}

// HasPrice reports whether a numeric price is known.
func (p Product) HasPrice() bool {
	return p.PriceNumber != nil
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ProviderErrorKind classifies a failed provider call.
type ProviderErrorKind string

const (
	ProviderErrorUnknown   ProviderErrorKind = "unknown"
	ProviderErrorCanceled  ProviderErrorKind = "canceled"
	ProviderErrorTimeout   ProviderErrorKind = "timeout"
	ProviderErrorAuth      ProviderErrorKind = "auth"
	ProviderErrorRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrorHTTP      ProviderErrorKind = "http"
	ProviderErrorTransport ProviderErrorKind = "transport"
)

// ProviderStatus reports the outcome of one provider branch during aggregation.
type ProviderStatus struct {
	Name      string            `json:"name"`
	OK        bool              `json:"ok"`
	Count     int               `json:"count"`
	ErrorKind ProviderErrorKind `json:"errorKind,omitempty"`
}
