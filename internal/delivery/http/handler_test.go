package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stylesearch/backend/internal/domain"
)

// mockSearcher records what the handlers pass to the pipeline
type mockSearcher struct {
	mu sync.Mutex

	response *domain.SearchResponse
	err      error
	trending []domain.Product

	lastRequest  *domain.SearchRequest
	lastLimit    int
	lastProducts []domain.Product
	lastUserID   string
}

func (m *mockSearcher) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequest = request
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &domain.SearchResponse{SearchQuery: request.Text, Products: []domain.Product{}}, nil
}

func (m *mockSearcher) Trending(ctx context.Context, limit int) []domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.trending == nil {
		return []domain.Product{}
	}
	return m.trending
}

func (m *mockSearcher) RefreshPrices(ctx context.Context, products []domain.Product, userID string) []domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastProducts = products
	m.lastUserID = userID
	return products
}

func postJSON(t *testing.T, searcher *mockSearcher, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	setupTestRouter(searcher).ServeHTTP(w, req)
	return w
}

type formFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, fields map[string][]string, file *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile("image", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func TestSearch_JSONBinding(t *testing.T) {
	t.Run("nested filters and explicit sort", func(t *testing.T) {
		searcher := &mockSearcher{}
		body := `{"text":"black kurta","filters":{"minPrice":500,"maxPrice":2000,"colors":["Black"," "],"brands":["Biba"]},"sortBy":"PRICE","sortOrder":"desc"}`

		w := postJSON(t, searcher, "/api/v1/search", body)

		require.Equal(t, http.StatusOK, w.Code)
		req := searcher.lastRequest
		require.NotNil(t, req)
		assert.Equal(t, "black kurta", req.Text)
		require.NotNil(t, req.Filters.MinPrice)
		assert.Equal(t, 500.0, *req.Filters.MinPrice)
		assert.Equal(t, 2000.0, *req.Filters.MaxPrice)
		assert.Equal(t, []string{"Black"}, req.Filters.Colors)
		assert.Equal(t, []string{"Biba"}, req.Filters.Brands)
		assert.Nil(t, req.Filters.Sizes)
		assert.Equal(t, domain.SortOptions{SortBy: domain.SortByPrice, SortOrder: domain.SortOrderDesc}, req.Sort)
	})

	t.Run("top level filters", func(t *testing.T) {
		searcher := &mockSearcher{}

		w := postJSON(t, searcher, "/api/v1/search", `{"imageUrl":"https://cdn.example.com/red-saree.jpg","maxPrice":1500,"sizes":["M"]}`)

		require.Equal(t, http.StatusOK, w.Code)
		req := searcher.lastRequest
		assert.Equal(t, "https://cdn.example.com/red-saree.jpg", req.ImageURL)
		require.NotNil(t, req.Filters.MaxPrice)
		assert.Equal(t, 1500.0, *req.Filters.MaxPrice)
		assert.Equal(t, []string{"M"}, req.Filters.Sizes)
	})

	t.Run("unknown sortBy leaves relevance order", func(t *testing.T) {
		searcher := &mockSearcher{}

		w := postJSON(t, searcher, "/api/v1/search", `{"text":"tee","sortBy":"rating","sortOrder":"desc"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, searcher.lastRequest.Sort.Explicit())
		assert.Equal(t, domain.SortOptions{}, searcher.lastRequest.Sort)
	})

	t.Run("malformed json", func(t *testing.T) {
		searcher := &mockSearcher{}

		w := postJSON(t, searcher, "/api/v1/search", `{"text":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, searcher.lastRequest)
	})

	t.Run("empty body", func(t *testing.T) {
		searcher := &mockSearcher{}

		w := postJSON(t, searcher, "/api/v1/search", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), domain.ErrNoSearchInput.Error())
	})
}

func TestSearch_Multipart(t *testing.T) {
	t.Run("image upload with form fields", func(t *testing.T) {
		searcher := &mockSearcher{}
		image := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 256)...)
		req := multipartRequest(t, map[string][]string{
			"text":      {"like this but in blue"},
			"minPrice":  {"300"},
			"colors":    {"blue,navy", "teal"},
			"sortBy":    {"price"},
			"sortOrder": {"asc"},
		}, &formFile{name: "outfit.png", data: image})
		w := httptest.NewRecorder()

		setupTestRouter(searcher).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := searcher.lastRequest
		require.NotNil(t, got.Image)
		assert.Equal(t, "image/png", got.Image.MIMEType)
		assert.Len(t, got.Image.Data, len(image))
		assert.Equal(t, "like this but in blue", got.Text)
		assert.Equal(t, 300.0, *got.Filters.MinPrice)
		assert.Nil(t, got.Filters.MaxPrice)
		assert.Equal(t, []string{"blue", "navy", "teal"}, got.Filters.Colors)
		assert.True(t, got.Sort.Explicit())
	})

	t.Run("form without image", func(t *testing.T) {
		searcher := &mockSearcher{}
		req := multipartRequest(t, map[string][]string{"text": {"white sneakers"}}, nil)
		w := httptest.NewRecorder()

		setupTestRouter(searcher).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, searcher.lastRequest.Image)
		assert.Equal(t, "white sneakers", searcher.lastRequest.Text)
	})

	t.Run("invalid price field", func(t *testing.T) {
		searcher := &mockSearcher{}
		req := multipartRequest(t, map[string][]string{"text": {"tee"}, "maxPrice": {"cheap"}}, nil)
		w := httptest.NewRecorder()

		setupTestRouter(searcher).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, searcher.lastRequest)
	})

	t.Run("oversized image", func(t *testing.T) {
		searcher := &mockSearcher{}
		maxBytes := testConfig().Server.MaxUploadBytes
		req := multipartRequest(t, nil, &formFile{name: "big.jpg", data: bytes.Repeat([]byte{0xff}, int(maxBytes)+10)})
		w := httptest.NewRecorder()

		setupTestRouter(searcher).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Nil(t, searcher.lastRequest)
	})
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"no input", domain.ErrNoSearchInput, http.StatusBadRequest, domain.ErrNoSearchInput.Error()},
		{"bad image type", fmt.Errorf("%w: image/bmp", domain.ErrInvalidImageType), http.StatusBadRequest, "image/bmp"},
		{"invalid filters", fmt.Errorf("%w: minPrice exceeds maxPrice", domain.ErrInvalidRequest), http.StatusBadRequest, "minPrice exceeds maxPrice"},
		{"too large", fmt.Errorf("%w: 25000000 bytes", domain.ErrImageTooLarge), http.StatusRequestEntityTooLarge, "25000000"},
		{"internal", errors.New("upstream exploded with secret detail"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{err: tt.err}

			w := postJSON(t, searcher, "/api/v1/search", `{"text":"tee"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotContains(t, w.Body.String(), "secret detail")
		})
	}
}

func TestSearch_InternalErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := NewHandler(&mockSearcher{err: errors.New("provider pool exhausted")}, 1<<20, zerolog.Nop())

	router := gin.New()
	router.Use(RequestIDMiddleware(logger))
	router.POST("/api/v1/search", handler.Search)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"text":"tee"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "err-log")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "provider pool exhausted", entry["error"])
	assert.Equal(t, "err-log", entry["request_id"])
	assert.Equal(t, "/api/v1/search", entry["path"])
}

func TestSearch_ResponseShape(t *testing.T) {
	price := 799.0
	searcher := &mockSearcher{response: &domain.SearchResponse{
		SearchQuery: "olive cargo pants",
		Products:    []domain.Product{{Title: "Olive Cargo", Link: "https://www.ajio.com/p/1", Source: "AJIO", Price: "₹799", PriceNumber: &price}},
		Providers:   []domain.ProviderStatus{{Name: "ajio", OK: true, Count: 1}},
	}}

	w := postJSON(t, searcher, "/api/v1/search", `{"text":"olive cargo"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, key := range []string{"searchQuery", "products", "comparison", "filters", "sort", "providers"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "olive cargo pants", body["searchQuery"])
}

func TestTrending(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"default limit", "", http.StatusOK, 0},
		{"explicit limit", "?limit=5", http.StatusOK, 5},
		{"non numeric", "?limit=ten", http.StatusBadRequest, -1},
		{"negative", "?limit=-3", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{lastLimit: -1, trending: []domain.Product{{Title: "Co-ord Set", Link: "https://www.myntra.com/1"}}}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/trending"+tt.query, nil)
			w := httptest.NewRecorder()

			setupTestRouter(searcher).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLimit, searcher.lastLimit)
			if tt.wantStatus == http.StatusOK {
				var body struct {
					Products []domain.Product `json:"products"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Len(t, body.Products, 1)
			}
		})
	}
}

func TestRefreshPrices(t *testing.T) {
	t.Run("passes products and caller identity", func(t *testing.T) {
		searcher := &mockSearcher{}
		body := `{"products":[{"title":"Linen Shirt","link":"https://www.amazon.in/dp/X","price":"₹1,099"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/prices/refresh", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "user-42")
		w := httptest.NewRecorder()

		setupTestRouter(searcher).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-42", searcher.lastUserID)
		require.Len(t, searcher.lastProducts, 1)
		assert.Equal(t, "Linen Shirt", searcher.lastProducts[0].Title)
		assert.Contains(t, w.Body.String(), `"products"`)
	})

	t.Run("missing products", func(t *testing.T) {
		searcher := &mockSearcher{}

		w := postJSON(t, searcher, "/api/v1/prices/refresh", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, searcher.lastProducts)
	})
}
