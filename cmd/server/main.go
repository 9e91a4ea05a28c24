package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/config"
	httpDelivery "github.com/stylesearch/backend/internal/delivery/http"
	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/infrastructure/cache"
	"github.com/stylesearch/backend/internal/infrastructure/gemini"
	"github.com/stylesearch/backend/internal/infrastructure/imagefetch"
	"github.com/stylesearch/backend/internal/infrastructure/scraper"
	"github.com/stylesearch/backend/internal/infrastructure/serp"
	"github.com/stylesearch/backend/internal/logging"
	"github.com/stylesearch/backend/internal/usecase"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "stylesearch-backend",
	})

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache_type", cfg.Cache.Type).
		Msg("starting StyleSearch backend")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	cacheRepo, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	serpClient := serp.NewClient(serp.Config{
		APIKey:        cfg.Serp.APIKey,
		Country:       cfg.Serp.Country,
		Language:      cfg.Serp.Language,
		GoogleDomain:  cfg.Serp.GoogleDomain,
		AmazonDomain:  cfg.Serp.AmazonDomain,
		ResultCount:   cfg.Serp.ResultCount,
		Timeout:       cfg.Serp.Timeout,
		RatePerSecond: cfg.Serp.RatePerSecond,
		Burst:         cfg.Serp.Burst,
	}, nil, logger)

	providers := []domain.ProductProvider{
		serp.NewGoogleShopping(serpClient),
		serp.NewAmazon(serpClient),
		serp.NewSiteSearch(serpClient, "myntra", "myntra.com", "Myntra"),
		serp.NewSiteSearch(serpClient, "ajio", "ajio.com", "AJIO"),
	}
	siteSearcher := serp.NewSiteSearch(serpClient, "trending", "", "")

	// A nil generator keeps the query builder on its heuristic fallback
	var generator domain.QueryGenerator
	if cfg.Gemini.APIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model}, logger)
		if err != nil {
			return fmt.Errorf("create gemini client: %w", err)
		}
		defer geminiClient.Close()
		generator = geminiClient
		logger.Info().Str("model", cfg.Gemini.Model).Msg("gemini query generation enabled")
	} else {
		logger.Warn().Msg("gemini api key not set, using heuristic query generation only")
	}

	pageFetcher := scraper.NewClient(scraper.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.Timeout,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
		HostRate:     cfg.Scraper.HostRate,
		HostBurst:    cfg.Scraper.HostBurst,
	})
	imageFetcher := imagefetch.NewFetcher(imagefetch.Config{
		MaxBytes:     cfg.Server.MaxUploadBytes,
		AllowedTypes: cfg.Server.AllowedImageTypes,
		UserAgent:    cfg.Scraper.UserAgent,
	})

	// Initialize usecase layer
	vocab := usecase.DefaultVocabulary()
	queryBuilder := usecase.NewQueryBuilder(generator, vocab, usecase.QueryBuilderConfig{
		SpellOnly:        cfg.Gemini.SpellOnly,
		Timeout:          cfg.Gemini.Timeout,
		LargeImageBytes:  cfg.Pipeline.LargeImageBytes,
		MediumImageBytes: cfg.Pipeline.MediumImageBytes,
	}, logger)
	enhancer := usecase.NewPriceEnhancer(pageFetcher, scraper.DefaultExtractors(), usecase.PriceEnhancerConfig{
		HeadLimit:      cfg.Scraper.HeadLimit,
		Concurrency:    cfg.Scraper.Concurrency,
		ItemTimeout:    cfg.Scraper.Timeout,
		CurrencySymbol: cfg.Pipeline.CurrencySymbol,
	}, logger)
	trendingTTL := cfg.Trending.CacheTTL
	if trendingTTL <= 0 {
		trendingTTL = cfg.Cache.TTL
	}
	trending := usecase.NewTrendingDiscoverer(siteSearcher, cacheRepo, vocab, usecase.TrendingConfig{
		Keywords:       cfg.Trending.Keywords,
		Sites:          cfg.Trending.Sites,
		KeywordSample:  cfg.Trending.KeywordSample,
		DefaultLimit:   cfg.Trending.DefaultLimit,
		CacheTTL:       trendingTTL,
		CurrencySymbol: cfg.Pipeline.CurrencySymbol,
	}, logger)

	searchService := usecase.NewSearchService(
		queryBuilder,
		usecase.NewAggregator(providers, logger),
		usecase.NewRelevanceScorer(vocab),
		enhancer,
		trending,
		imageFetcher,
		usecase.SearchServiceConfig{
			MaxImageBytes:     cfg.Server.MaxUploadBytes,
			AllowedImageTypes: cfg.Server.AllowedImageTypes,
		},
		logger,
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService, cfg.Server.MaxUploadBytes, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newCache builds the configured CacheRepository and its close function.
func newCache(ctx context.Context, cfg *config.Config) (domain.CacheRepository, func(), error) {
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "")
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	default:
		memoryCache := cache.NewMemoryCache(0)
		return memoryCache, func() { _ = memoryCache.Close() }, nil
	}
}
