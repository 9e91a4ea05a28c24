// Package serp adapts SerpAPI search engines to the product provider interfaces.
package serp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	g "github.com/serpapi/google-search-results-golang"
	"github.com/stylesearch/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Fetcher executes one SerpAPI query and returns the decoded JSON document.
type Fetcher func(params map[string]string, apiKey string) (map[string]interface{}, error)

// SerpAPIFetcher calls SerpAPI through the official client library.
func SerpAPIFetcher(params map[string]string, apiKey string) (map[string]interface{}, error) {
	search := g.NewGoogleSearch(params, apiKey)
	data, err := search.GetJSON()
	return map[string]interface{}(data), err
}

// Config holds SerpAPI settings shared by every engine adapter
type Config struct {
	APIKey        string
	Country       string // gl
	Language      string // hl
	GoogleDomain  string
	AmazonDomain  string
	ResultCount   int
	Timeout       time.Duration // Per call
	RatePerSecond float64
	Burst         int
	MaxAttempts   int
}

// Client handles communication with SerpAPI
type Client struct {
	fetch       Fetcher
	cfg         Config
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

// NewClient creates a new SerpAPI client. fetch may be nil to use the live API.
func NewClient(cfg Config, fetch Fetcher, logger zerolog.Logger) *Client {
	if fetch == nil {
		fetch = SerpAPIFetcher
	}
	if cfg.Country == "" {
		cfg.Country = "in"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.GoogleDomain == "" {
		cfg.GoogleDomain = "google.co.in"
	}
	if cfg.AmazonDomain == "" {
		cfg.AmazonDomain = "amazon.in"
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = 40
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Client{
		fetch:       fetch,
		cfg:         cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		backoff:     exponentialBackoff,
		logger:      logger.With().Str("component", "serp").Logger(),
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, capped at 2s.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

// Search runs one engine query with rate limiting and retries for transient failures.
// A query SerpAPI reports as having no results yields an empty document.
func (c *Client) Search(ctx context.Context, engine string, params map[string]string) (map[string]interface{}, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: serp api key", domain.ErrProviderNotConfigured)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		start := time.Now()
		data, err := c.fetchWithTimeout(ctx, params)
		elapsed := time.Since(start)

		if err == nil {
			c.logger.Debug().Str("engine", engine).Int("attempt", attempt).Dur("elapsed", elapsed).Msg("serp response received")
			return data, nil
		}
		if isEmptyResult(err) {
			c.logger.Debug().Str("engine", engine).Str("query", queryParam(params)).Msg("serp returned no results")
			return map[string]interface{}{}, nil
		}

		lastErr = classify(engine, err)
		c.logger.Warn().Err(err).Str("engine", engine).Int("attempt", attempt).Dur("elapsed", elapsed).Msg("serp request failed")
		if !retryable(lastErr) || attempt == c.cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// fetchWithTimeout bounds the library call, which does not take a context.
func (c *Client) fetchWithTimeout(ctx context.Context, params map[string]string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	type result struct {
		data map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("serp fetch panic: %v", r)}
			}
		}()
		data, err := c.fetch(params, c.cfg.APIKey)
		ch <- result{data: data, err: err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func queryParam(params map[string]string) string {
	if q := params["q"]; q != "" {
		return q
	}
	return params["k"]
}

func isEmptyResult(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "hasn't returned any results")
}

// classify maps SerpAPI error messages onto status errors so provider
// failures can be reported by kind.
func classify(engine string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrProviderFailure, engine, err)
	}

	msg := strings.ToLower(err.Error())
	status := 0
	switch {
	case strings.Contains(msg, "invalid api key"):
		status = http.StatusUnauthorized
	case strings.Contains(msg, "run out of searches"),
		strings.Contains(msg, "quota exceeded"),
		strings.Contains(msg, "limit exceeded"),
		strings.Contains(msg, "rate limit"):
		status = http.StatusTooManyRequests
	case strings.Contains(msg, "503"):
		status = http.StatusServiceUnavailable
	case strings.Contains(msg, "502"):
		status = http.StatusBadGateway
	case strings.Contains(msg, "500"):
		status = http.StatusInternalServerError
	}

	if status == 0 {
		return fmt.Errorf("%w: %s: %w", domain.ErrProviderFailure, engine, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrProviderFailure, &domain.HTTPStatusError{Provider: engine, Status: status, Body: err.Error()})
}

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *domain.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
