package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ProductProvider is one external product-search backend.
type ProductProvider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Product, error)
}

// SiteSearcher runs a web search restricted to a single marketplace domain.
type SiteSearcher interface {
	SearchSite(ctx context.Context, query, site string) ([]Product, error)
}

// QueryGenerator calls an external generation model.
// image is nil for text-only mode.
type QueryGenerator interface {
	Generate(ctx context.Context, prompt string, image *ImageInput) (string, error)
}

// PageFetcher retrieves the HTML of a retailer product page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PriceExtractor pulls a live price out of one retailer's product page HTML.
// HostScoped is false for catch-all extractors that match any link.
type PriceExtractor interface {
	Source() string
	Matches(link string) bool
	HostScoped() bool
	ExtractPrice(html string) (float64, bool)
}

// ImageFetcher downloads an image referenced by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*ImageInput, error)
}
