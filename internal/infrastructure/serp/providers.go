package serp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stylesearch/backend/internal/domain"
)

// GoogleShopping searches the google_shopping engine.
type GoogleShopping struct {
	client *Client
}

// NewGoogleShopping creates the google_shopping provider.
func NewGoogleShopping(client *Client) *GoogleShopping {
	return &GoogleShopping{client: client}
}

func (p *GoogleShopping) Name() string { return "google_shopping" }

func (p *GoogleShopping) Search(ctx context.Context, query string) ([]domain.Product, error) {
	cfg := p.client.cfg
	data, err := p.client.Search(ctx, p.Name(), map[string]string{
		"engine":        "google_shopping",
		"q":             query,
		"gl":            cfg.Country,
		"hl":            cfg.Language,
		"google_domain": cfg.GoogleDomain,
		"num":           strconv.Itoa(cfg.ResultCount),
	})
	if err != nil {
		return nil, err
	}
	return MapShoppingResults(data), nil
}

// Amazon searches the amazon engine.
type Amazon struct {
	client *Client
}

// NewAmazon creates the amazon provider.
func NewAmazon(client *Client) *Amazon {
	return &Amazon{client: client}
}

func (p *Amazon) Name() string { return "amazon" }

func (p *Amazon) Search(ctx context.Context, query string) ([]domain.Product, error) {
	data, err := p.client.Search(ctx, p.Name(), map[string]string{
		"engine":        "amazon",
		"amazon_domain": p.client.cfg.AmazonDomain,
		"k":             query,
	})
	if err != nil {
		return nil, err
	}
	return MapAmazonResults(data), nil
}

// SiteSearch runs google organic searches restricted with a site: operator.
// With a fixed site it is a ProductProvider; SearchSite serves any site.
type SiteSearch struct {
	client *Client
	name   string
	site   string
	source string
}

// NewSiteSearch creates a provider pinned to one marketplace domain.
func NewSiteSearch(client *Client, name, site, source string) *SiteSearch {
	return &SiteSearch{client: client, name: name, site: site, source: source}
}

func (p *SiteSearch) Name() string { return p.name }

func (p *SiteSearch) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if p.site == "" {
		return nil, fmt.Errorf("%w: %s has no site", domain.ErrProviderNotConfigured, p.name)
	}
	return p.search(ctx, query, p.site, p.source)
}

// SearchSite queries an arbitrary marketplace domain.
func (p *SiteSearch) SearchSite(ctx context.Context, query, site string) ([]domain.Product, error) {
	source := p.source
	if site != p.site || source == "" {
		source = SourceForSite(site)
	}
	return p.search(ctx, query, site, source)
}

func (p *SiteSearch) search(ctx context.Context, query, site, source string) ([]domain.Product, error) {
	cfg := p.client.cfg
	data, err := p.client.Search(ctx, p.name, map[string]string{
		"engine":        "google",
		"q":             fmt.Sprintf("%s site:%s", query, site),
		"gl":            cfg.Country,
		"hl":            cfg.Language,
		"google_domain": cfg.GoogleDomain,
		"num":           strconv.Itoa(cfg.ResultCount),
	})
	if err != nil {
		return nil, err
	}
	return MapSiteResults(data, site, source), nil
}

var siteSources = map[string]string{
	"myntra.com":       "Myntra",
	"ajio.com":         "AJIO",
	"flipkart.com":     "Flipkart",
	"tatacliq.com":     "Tata CLiQ",
	"nykaafashion.com": "Nykaa Fashion",
	"amazon.in":        "Amazon",
}

// SourceForSite returns the marketplace display name for a domain.
func SourceForSite(site string) string {
	site = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(site)), "www.")
	if name, ok := siteSources[site]; ok {
		return name
	}
	name, _, _ := strings.Cut(site, ".")
	if name == "" {
		return site
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
