package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/pricing"
)

// MockQueryGenerator is a mock implementation of domain.QueryGenerator
type MockQueryGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	block    bool // wait for context cancellation before returning
	calls    int
	prompts  []string
	images   []*domain.ImageInput
}

func (m *MockQueryGenerator) Generate(ctx context.Context, prompt string, image *domain.ImageInput) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.images = append(m.images, image)
	block, response, err := m.block, m.response, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return response, err
}

func (m *MockQueryGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProvider is a mock implementation of domain.ProductProvider
type MockProvider struct {
	name     string
	products []domain.Product
	err      error
	panicMsg string
	delay    time.Duration
	calls    atomic.Int32

	mu        sync.Mutex
	lastQuery string
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Search(ctx context.Context, query string) ([]domain.Product, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastQuery = query
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

// MockPageFetcher is a mock implementation of domain.PageFetcher
type MockPageFetcher struct {
	pages   map[string]string
	errs    map[string]error
	hang    map[string]bool // ignore the context and block until release is closed
	release chan struct{}
	calls   atomic.Int32
}

func NewMockPageFetcher() *MockPageFetcher {
	return &MockPageFetcher{
		pages:   make(map[string]string),
		errs:    make(map[string]error),
		hang:    make(map[string]bool),
		release: make(chan struct{}),
	}
}

func (m *MockPageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.calls.Add(1)
	if m.hang[url] {
		<-m.release
		return "", context.Canceled
	}
	if err, ok := m.errs[url]; ok {
		return "", err
	}
	if page, ok := m.pages[url]; ok {
		return page, nil
	}
	return "", domain.ErrScrapeFailed
}

// stubExtractor treats the whole page body as a price string.
type stubExtractor struct {
	source string
	host   string // empty matches every link
}

func (s stubExtractor) Source() string { return s.source }

func (s stubExtractor) HostScoped() bool { return s.host != "" }

func (s stubExtractor) Matches(link string) bool {
	return s.host == "" || strings.Contains(link, s.host)
}

func (s stubExtractor) ExtractPrice(html string) (float64, bool) {
	return pricing.ParsePrice(html)
}

// MockSiteSearcher is a mock implementation of domain.SiteSearcher
type MockSiteSearcher struct {
	mu      sync.Mutex
	bySite  map[string][]domain.Product
	errSite map[string]error
	queries []string
}

func (m *MockSiteSearcher) SearchSite(ctx context.Context, query, site string) ([]domain.Product, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query+"@"+site)
	m.mu.Unlock()

	if err, ok := m.errSite[site]; ok {
		return nil, err
	}
	return m.bySite[site], nil
}

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	setError error
	getCalls    int
	setCalls    int
	deleteCalls int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	delete(m.data, key)
	return nil
}

// MockImageFetcher is a mock implementation of domain.ImageFetcher
type MockImageFetcher struct {
	image *domain.ImageInput
	err   error
	calls int
}

func (m *MockImageFetcher) Fetch(ctx context.Context, url string) (*domain.ImageInput, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	img := *m.image
	return &img, nil
}

func product(title, link, source, price string) domain.Product {
	p := domain.Product{Title: title, Link: link, Source: source, Price: price}
	if v, ok := pricing.ParsePrice(price); ok {
		p.PriceNumber = domain.Float64Ptr(v)
	}
	return p
}
