// Package imagefetch downloads images referenced by URL for image search.
package imagefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/infrastructure/netguard"
)

// Config holds image download settings
type Config struct {
	Timeout      time.Duration
	MaxBytes     int64
	AllowedTypes []string
	UserAgent    string
	Transport    http.RoundTripper // nil refuses loopback and private destinations
}

// Fetcher downloads images with a size limit and MIME check.
type Fetcher struct {
	httpClient   *http.Client
	maxBytes     int64
	allowedTypes map[string]bool
	userAgent    string
}

// NewFetcher creates an image fetcher
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "StyleSearch/1.0"
	}
	if cfg.Transport == nil {
		cfg.Transport = netguard.NewTransport()
	}

	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = true
	}

	return &Fetcher{
		httpClient:   &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		maxBytes:     cfg.MaxBytes,
		allowedTypes: allowed,
		userAgent:    cfg.UserAgent,
	}
}

// Fetch downloads the image at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.ImageInput, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", domain.ErrImageFetchFailed, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImageFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrImageFetchFailed, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %w", domain.ErrImageFetchFailed, domain.ErrImageTooLarge)
	}

	// Read one byte past the limit to detect oversized bodies without a length header
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %w", domain.ErrImageFetchFailed, domain.ErrImageTooLarge)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrImageFetchFailed)
	}

	mimeType := http.DetectContentType(data)
	if !f.allowedTypes[mimeType] {
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrImageFetchFailed, domain.ErrInvalidImageType, mimeType)
	}

	return &domain.ImageInput{Data: data, MIMEType: mimeType, SourceURL: rawURL}, nil
}
