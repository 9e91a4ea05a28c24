package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/pricing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PriceEnhancerConfig holds configuration for live price refresh
type PriceEnhancerConfig struct {
	HeadLimit      int           // Products at the head of the list eligible for scraping
	Concurrency    int           // Concurrent scrapes
	ItemTimeout    time.Duration // Budget for a single scrape
	CurrencySymbol string
}

// PriceEnhancer refreshes prices by scraping retailer pages, best effort.
type PriceEnhancer struct {
	fetcher    domain.PageFetcher
	extractors []domain.PriceExtractor
	cfg        PriceEnhancerConfig
	logger     zerolog.Logger
}

// NewPriceEnhancer creates a price enhancer. Extractors are tried in order;
// the first whose Matches reports true handles the page.
func NewPriceEnhancer(fetcher domain.PageFetcher, extractors []domain.PriceExtractor, cfg PriceEnhancerConfig, logger zerolog.Logger) *PriceEnhancer {
	if cfg.HeadLimit <= 0 {
		cfg.HeadLimit = 8
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 2 * time.Second
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = pricing.DefaultSymbol
	}

	return &PriceEnhancer{
		fetcher:    fetcher,
		extractors: extractors,
		cfg:        cfg,
		logger:     logger.With().Str("component", "price_enhancer").Logger(),
	}
}

// Enhance scrapes the head of the list and normalizes every price.
func (e *PriceEnhancer) Enhance(ctx context.Context, products []domain.Product) []domain.Product {
	return e.run(ctx, products, e.cfg.HeadLimit, false)
}

// Refresh scrapes every product with a link and normalizes every price.
// The links come from callers, so only known retailer hosts are fetched.
func (e *PriceEnhancer) Refresh(ctx context.Context, products []domain.Product) []domain.Product {
	return e.run(ctx, products, len(products), true)
}

func (e *PriceEnhancer) run(ctx context.Context, products []domain.Product, limit int, hostScoped bool) []domain.Product {
	out := copyProducts(products)

	targets := make([]int, 0, limit)
	for i := range out {
		if len(targets) >= limit {
			break
		}
		if out[i].Link != "" && e.extractorFor(out[i].Link, hostScoped) != nil {
			targets = append(targets, i)
		}
	}

	if e.fetcher != nil && len(targets) > 0 {
		scraped := e.scrapeAll(ctx, out, targets, hostScoped)
		for i, price := range scraped {
			if price != nil {
				out[i].PriceNumber = price
			}
		}
	}

	for i := range out {
		out[i] = e.normalize(out[i])
	}
	return out
}

// scrapeAll runs bounded concurrent scrapes and returns index -> price for
// the ones that succeeded within their budget.
func (e *PriceEnhancer) scrapeAll(ctx context.Context, products []domain.Product, targets []int, hostScoped bool) map[int]*float64 {
	results := make([]*float64, len(targets))
	sem := semaphore.NewWeighted(int64(e.cfg.Concurrency))

	var g errgroup.Group
	for n, idx := range targets {
		link := products[idx].Link
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			price, err := e.scrapeWithTimeout(ctx, link, hostScoped)
			if err != nil {
				e.logger.Debug().Err(err).Str("link", link).Msg("price scrape skipped")
				return nil
			}
			results[n] = domain.Float64Ptr(price)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int]*float64, len(targets))
	for n, idx := range targets {
		if results[n] != nil {
			out[idx] = results[n]
		}
	}
	return out
}

// scrapeWithTimeout races one scrape against the per-item timeout; the first
// to finish wins.
func (e *PriceEnhancer) scrapeWithTimeout(ctx context.Context, link string, hostScoped bool) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
	defer cancel()

	type result struct {
		price float64
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("%w: panic: %v", domain.ErrScrapeFailed, r)}
			}
		}()
		price, err := e.scrape(ctx, link, hostScoped)
		ch <- result{price: price, err: err}
	}()

	select {
	case r := <-ch:
		return r.price, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", domain.ErrScrapeFailed, ctx.Err())
	}
}

func (e *PriceEnhancer) scrape(ctx context.Context, link string, hostScoped bool) (float64, error) {
	extractor := e.extractorFor(link, hostScoped)
	if extractor == nil {
		return 0, fmt.Errorf("%w: no extractor for %s", domain.ErrScrapeFailed, link)
	}

	html, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		return 0, err
	}

	price, ok := extractor.ExtractPrice(html)
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%w: %s extractor found no price", domain.ErrScrapeFailed, extractor.Source())
	}
	return price, nil
}

// extractorFor returns the first matching extractor, skipping catch-all
// extractors when hostScoped is set.
func (e *PriceEnhancer) extractorFor(link string, hostScoped bool) domain.PriceExtractor {
	for _, ex := range e.extractors {
		if hostScoped && !ex.HostScoped() {
			continue
		}
		if ex.Matches(link) {
			return ex
		}
	}
	return nil
}

// normalize resolves the best known price and renders it canonically.
func (e *PriceEnhancer) normalize(p domain.Product) domain.Product {
	value, ok := 0.0, false
	switch {
	case p.PriceNumber != nil && *p.PriceNumber > 0:
		value, ok = *p.PriceNumber, true
	default:
		if v, parsed := pricing.ParsePrice(p.Price); parsed && v > 0 {
			value, ok = v, true
		} else if v, found := pricing.ExtractEmbedded(p.Title); found && v > 0 {
			value, ok = v, true
		}
	}

	if !ok {
		p.Price = ""
		p.PriceNumber = nil
		return p
	}

	rounded := pricing.Round(value)
	p.PriceNumber = domain.Float64Ptr(rounded)
	p.Price = pricing.Format(e.cfg.CurrencySymbol, rounded)
	return p
}
