package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
)

// DefaultAllowedImageTypes are the MIME types accepted for image search.
var DefaultAllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	MaxImageBytes     int64
	AllowedImageTypes []string
}

// SearchService runs the full search pipeline:
// derive query -> aggregate providers -> filter -> rank or sort -> enhance prices -> compare.
type SearchService struct {
	queryBuilder *QueryBuilder
	aggregator   *Aggregator
	scorer       *RelevanceScorer
	enhancer     *PriceEnhancer
	trending     *TrendingDiscoverer
	imageFetcher domain.ImageFetcher
	cfg          SearchServiceConfig
	logger       zerolog.Logger
}

// NewSearchService creates a new search service with dependencies.
// imageFetcher and trending may be nil.
func NewSearchService(
	queryBuilder *QueryBuilder,
	aggregator *Aggregator,
	scorer *RelevanceScorer,
	enhancer *PriceEnhancer,
	trending *TrendingDiscoverer,
	imageFetcher domain.ImageFetcher,
	cfg SearchServiceConfig,
	logger zerolog.Logger,
) *SearchService {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 20 << 20 // 20 MiB
	}
	if len(cfg.AllowedImageTypes) == 0 {
		cfg.AllowedImageTypes = DefaultAllowedImageTypes
	}

	return &SearchService{
		queryBuilder: queryBuilder,
		aggregator:   aggregator,
		scorer:       scorer,
		enhancer:     enhancer,
		trending:     trending,
		imageFetcher: imageFetcher,
		cfg:          cfg,
		logger:       logger.With().Str("component", "search_service").Logger(),
	}
}

// Search derives a shopping query from the request and returns the ranked,
// price-enhanced product list with its comparison summary.
// Only input validation errors are returned.
func (s *SearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	if err := s.validate(request); err != nil {
		return nil, err
	}

	query := s.deriveQuery(ctx, request)

	products, statuses := s.aggregator.SearchProducts(ctx, query)
	filtered := ApplyFilters(products, request.Filters)

	sortOpts := domain.SortOptions{}
	var ordered []domain.Product
	if request.Sort.Explicit() {
		sortOpts = domain.SortOptions{
			SortBy:    domain.SortByPrice,
			SortOrder: domain.NormalizeSortOrder(string(request.Sort.SortOrder)),
		}
		ordered = SortByPrice(filtered, sortOpts.SortOrder)
	} else {
		ordered = s.scorer.Rerank(filtered, query)
	}

	enhanced := s.enhancer.Enhance(ctx, ordered)

	s.logger.Info().
		Str("query", query).
		Int("aggregated", len(products)).
		Int("filtered", len(filtered)).
		Bool("explicit_sort", request.Sort.Explicit()).
		Msg("search complete")

	return &domain.SearchResponse{
		SearchQuery: query,
		Products:    enhanced,
		Comparison:  BuildComparison(enhanced),
		Filters:     request.Filters,
		Sort:        sortOpts,
		Providers:   statuses,
	}, nil
}

// Trending returns a diversified list of trending products.
func (s *SearchService) Trending(ctx context.Context, limit int) []domain.Product {
	if s.trending == nil {
		return []domain.Product{}
	}
	return s.trending.Discover(ctx, limit)
}

// RefreshPrices re-runs price enhancement over every product.
// userID is an already-authenticated caller identity and is only logged.
func (s *SearchService) RefreshPrices(ctx context.Context, products []domain.Product, userID string) []domain.Product {
	valid := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Valid() {
			valid = append(valid, p)
		}
	}

	refreshed := AnnotatePrices(s.enhancer.Refresh(ctx, valid))
	s.logger.Info().Str("user_id", userID).Int("products", len(refreshed)).Msg("price refresh complete")
	return refreshed
}

func (s *SearchService) validate(request *domain.SearchRequest) error {
	if !request.HasSignal() {
		return domain.ErrNoSearchInput
	}

	if img := request.Image; img != nil && len(img.Data) > 0 {
		if int64(len(img.Data)) > s.cfg.MaxImageBytes {
			return fmt.Errorf("%w: %d bytes (max %d)", domain.ErrImageTooLarge, len(img.Data), s.cfg.MaxImageBytes)
		}
		if img.MIMEType == "" {
			img.MIMEType = http.DetectContentType(img.Data)
		}
		if !s.imageTypeAllowed(img.MIMEType) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidImageType, img.MIMEType)
		}
	}

	f := request.Filters
	if (f.MinPrice != nil && *f.MinPrice < 0) || (f.MaxPrice != nil && *f.MaxPrice < 0) {
		return fmt.Errorf("%w: price bounds must be non-negative", domain.ErrInvalidRequest)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("%w: minPrice exceeds maxPrice", domain.ErrInvalidRequest)
	}
	return nil
}

func (s *SearchService) imageTypeAllowed(mimeType string) bool {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	for _, allowed := range s.cfg.AllowedImageTypes {
		if strings.EqualFold(base, allowed) {
			return true
		}
	}
	return false
}

func (s *SearchService) deriveQuery(ctx context.Context, request *domain.SearchRequest) string {
	switch {
	case request.Image != nil && len(request.Image.Data) > 0:
		return s.queryBuilder.FromImage(ctx, *request.Image, request.Text)

	case strings.TrimSpace(request.ImageURL) != "":
		imageURL := strings.TrimSpace(request.ImageURL)
		image := domain.ImageInput{SourceURL: imageURL}
		if s.imageFetcher != nil {
			fetched, err := s.imageFetcher.Fetch(ctx, imageURL)
			if err != nil {
				s.logger.Warn().Err(err).Str("image_url", imageURL).Msg("image download failed, using URL hints")
			} else {
				image = *fetched
				image.SourceURL = imageURL
			}
		}
		return s.queryBuilder.FromImage(ctx, image, request.Text)

	default:
		return s.queryBuilder.FromText(ctx, request.Text)
	}
}
