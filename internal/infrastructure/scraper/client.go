// Package scraper fetches retailer product pages and extracts live prices.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/infrastructure/netguard"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config holds page fetch settings
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	HostRate     float64 // Requests per second to a single retailer host
	HostBurst    int
	Transport    http.RoundTripper // nil refuses loopback and private destinations
}

// Client fetches product page HTML with browser-like headers.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	hostRate  rate.Limit
	hostBurst int
}

// NewClient creates a page fetcher
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if cfg.HostRate <= 0 {
		cfg.HostRate = 2
	}
	if cfg.HostBurst <= 0 {
		cfg.HostBurst = 4
	}
	if cfg.Transport == nil {
		cfg.Transport = netguard.NewTransport()
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		limiters:     make(map[string]*rate.Limiter),
		hostRate:     rate.Limit(cfg.HostRate),
		hostBurst:    cfg.HostBurst,
	}
}

// hostLimiter returns the shared limiter for the URL's host.
func (c *Client) hostLimiter(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Hostname())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.hostRate, c.hostBurst)
		c.limiters[host] = l
	}
	return l
}

// Fetch returns the page body, truncated at the configured size.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := c.hostLimiter(pageURL).Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrScrapeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", domain.ErrScrapeFailed, err)
	}
	// Accept-Encoding is left to the transport so gzip is decoded transparently
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w", domain.ErrScrapeFailed, &domain.HTTPStatusError{Provider: "scraper", Status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read body: %v", domain.ErrScrapeFailed, err)
	}
	return string(body), nil
}
