package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/pricing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const maxTrendingLimit = 50

// TrendingConfig holds configuration for trending discovery
type TrendingConfig struct {
	Keywords       []string
	Sites          []string // Marketplace domains, e.g. "myntra.com"
	KeywordSample  int
	DefaultLimit   int
	Concurrency    int
	CacheTTL       time.Duration
	CurrencySymbol string
}

// TrendingDiscoverer samples keyword x marketplace searches and returns a
// diverse subset of the listings found.
type TrendingDiscoverer struct {
	searcher domain.SiteSearcher
	cache    domain.CacheRepository
	vocab    *Vocabulary
	cfg      TrendingConfig
	newRand  func() *rand.Rand
	logger   zerolog.Logger
}

// NewTrendingDiscoverer creates a trending discoverer. cache may be nil.
func NewTrendingDiscoverer(searcher domain.SiteSearcher, cache domain.CacheRepository, vocab *Vocabulary, cfg TrendingConfig, logger zerolog.Logger) *TrendingDiscoverer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultTrendingKeywords
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = DefaultTrendingSites
	}
	if cfg.KeywordSample <= 0 {
		cfg.KeywordSample = 3
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 12
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = pricing.DefaultSymbol
	}

	return &TrendingDiscoverer{
		searcher: searcher,
		cache:    cache,
		vocab:    vocab,
		cfg:      cfg,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		logger: logger.With().Str("component", "trending").Logger(),
	}
}

// DefaultTrendingKeywords are sampled when no keywords are configured.
var DefaultTrendingKeywords = []string{
	"oversized t-shirt", "cargo pants", "co-ord set", "linen shirt", "floral dress",
	"denim jacket", "chunky sneakers", "kurta set", "wide leg jeans", "crop top",
	"printed saree", "bomber jacket", "maxi dress", "polo t-shirt", "ethnic jacket",
}

// DefaultTrendingSites are queried when no sites are configured.
var DefaultTrendingSites = []string{
	"myntra.com", "ajio.com", "flipkart.com", "tatacliq.com", "nykaafashion.com",
}

// Discover returns up to limit diverse trending products in a fresh random
// order on every call. The cache holds the unshuffled selection.
func (t *TrendingDiscoverer) Discover(ctx context.Context, limit int) []domain.Product {
	limit = t.normalizeLimit(limit)
	cacheKey := fmt.Sprintf("trending:v2:%d", limit)
	rng := t.newRand()

	if cached, ok := t.fromCache(ctx, cacheKey); ok {
		return ShuffleProducts(cached, rng)
	}

	keywords := sampleKeywords(t.cfg.Keywords, t.cfg.KeywordSample, rng)

	type pair struct{ keyword, site string }
	pairs := make([]pair, 0, len(keywords)*len(t.cfg.Sites))
	for _, kw := range keywords {
		for _, site := range t.cfg.Sites {
			pairs = append(pairs, pair{keyword: kw, site: site})
		}
	}

	results := make([][]domain.Product, len(pairs))
	sem := semaphore.NewWeighted(int64(t.cfg.Concurrency))
	var g errgroup.Group
	for i, p := range pairs {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			products, err := t.searcher.SearchSite(ctx, p.keyword, p.site)
			if err != nil {
				t.logger.Warn().Err(err).Str("keyword", p.keyword).Str("site", p.site).Msg("trending search failed")
				return nil
			}
			results[i] = products
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.Product
	for _, r := range results {
		merged = append(merged, r...)
	}
	pool := AnnotatePrices(DedupeProducts(merged))

	selected := DiverseProducts(pool, limit, t.vocab.StopWords)
	for i := range selected {
		if selected[i].PriceNumber != nil {
			selected[i].Price = pricing.Format(t.cfg.CurrencySymbol, *selected[i].PriceNumber)
		}
	}

	t.logger.Info().
		Strs("keywords", keywords).
		Int("pool", len(pool)).
		Int("selected", len(selected)).
		Msg("trending discovery complete")

	if len(selected) > 0 {
		t.toCache(ctx, cacheKey, selected)
	}
	return ShuffleProducts(selected, rng)
}

func (t *TrendingDiscoverer) normalizeLimit(limit int) int {
	if limit <= 0 {
		return t.cfg.DefaultLimit
	}
	if limit > maxTrendingLimit {
		return maxTrendingLimit
	}
	return limit
}

func (t *TrendingDiscoverer) fromCache(ctx context.Context, key string) ([]domain.Product, bool) {
	if t.cache == nil {
		return nil, false
	}
	raw, err := t.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		t.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable trending cache entry")
		if err := t.cache.Delete(ctx, key); err != nil {
			t.logger.Warn().Err(err).Str("key", key).Msg("trending cache delete failed")
		}
		return nil, false
	}
	return products, true
}

func (t *TrendingDiscoverer) toCache(ctx context.Context, key string, products []domain.Product) {
	if t.cache == nil || t.cfg.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := t.cache.Set(ctx, key, raw, t.cfg.CacheTTL); err != nil {
		// Trending still succeeds without the cache
		t.logger.Warn().Err(err).Str("key", key).Msg("trending cache write failed")
	}
}

// sampleKeywords picks n distinct keywords at random.
func sampleKeywords(keywords []string, n int, rng *rand.Rand) []string {
	if n >= len(keywords) {
		return append([]string(nil), keywords...)
	}
	perm := rng.Perm(len(keywords))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = keywords[perm[i]]
	}
	return out
}
