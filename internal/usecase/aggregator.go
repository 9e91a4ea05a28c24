package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/pricing"
	"golang.org/x/sync/errgroup"
)

// Aggregator fans a query out to every provider and merges the results.
type Aggregator struct {
	providers []domain.ProductProvider
	logger    zerolog.Logger
}

// NewAggregator creates an aggregator over the given providers.
func NewAggregator(providers []domain.ProductProvider, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		providers: providers,
		logger:    logger.With().Str("component", "aggregator").Logger(),
	}
}

// branchOutcome is the settled result of one provider call.
type branchOutcome struct {
	products []domain.Product
	err      error
	elapsed  time.Duration
}

// SearchProducts queries all providers concurrently and waits for every one
// to settle. A failing provider contributes zero products.
func (a *Aggregator) SearchProducts(ctx context.Context, query string) ([]domain.Product, []domain.ProviderStatus) {
	outcomes := make([]branchOutcome, len(a.providers))

	var g errgroup.Group
	for i, provider := range a.providers {
		g.Go(func() error {
			outcomes[i] = runProvider(ctx, provider, query)
			return nil
		})
	}
	_ = g.Wait()

	statuses := make([]domain.ProviderStatus, len(a.providers))
	var merged []domain.Product
	for i, provider := range a.providers {
		outcome := outcomes[i]
		status := domain.ProviderStatus{Name: provider.Name()}
		if outcome.err != nil {
			status.ErrorKind = domain.ClassifyProviderError(outcome.err)
			a.logger.Warn().
				Err(outcome.err).
				Str("provider", status.Name).
				Str("kind", string(status.ErrorKind)).
				Dur("elapsed", outcome.elapsed).
				Msg("provider search failed")
		} else {
			status.OK = true
			status.Count = len(outcome.products)
			merged = append(merged, outcome.products...)
			a.logger.Debug().
				Str("provider", status.Name).
				Int("count", status.Count).
				Dur("elapsed", outcome.elapsed).
				Msg("provider search completed")
		}
		statuses[i] = status
	}

	products := AnnotatePrices(DedupeProducts(merged))
	a.logger.Info().Str("query", query).Int("merged", len(merged)).Int("unique", len(products)).Msg("aggregation complete")
	return products, statuses
}

func runProvider(ctx context.Context, provider domain.ProductProvider, query string) (outcome branchOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = branchOutcome{err: fmt.Errorf("%w: %s panicked: %v", domain.ErrProviderFailure, provider.Name(), r)}
		}
		outcome.elapsed = time.Since(start)
	}()

	products, err := provider.Search(ctx, query)
	if err != nil {
		return branchOutcome{err: err}
	}
	return branchOutcome{products: products}
}

// DedupeKey is the stripped-link plus lowercase-title identity of a product.
func DedupeKey(p domain.Product) string {
	link := strings.TrimSpace(p.Link)
	if base, _, found := strings.Cut(link, "?"); found {
		link = base
	}
	return strings.ToLower(link) + "|" + strings.ToLower(strings.TrimSpace(p.Title))
}

// DedupeProducts drops invalid products and keeps the first occurrence of each key.
func DedupeProducts(products []domain.Product) []domain.Product {
	seen := make(map[string]bool, len(products))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !p.Valid() {
			continue
		}
		key := DedupeKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// AnnotatePrices fills PriceNumber from the display price where it is missing.
func AnnotatePrices(products []domain.Product) []domain.Product {
	for i := range products {
		if products[i].PriceNumber != nil {
			continue
		}
		if v, ok := pricing.ParsePrice(products[i].Price); ok && v > 0 {
			products[i].PriceNumber = domain.Float64Ptr(v)
		}
	}
	return products
}

// copyProducts returns a non-nil shallow copy of products.
func copyProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}
