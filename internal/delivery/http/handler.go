package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
)

// ProductSearcher is the search pipeline the handlers delegate to.
type ProductSearcher interface {
	Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error)
	Trending(ctx context.Context, limit int) []domain.Product
	RefreshPrices(ctx context.Context, products []domain.Product, userID string) []domain.Product
}

// multipartOverhead is the slack allowed on top of the image limit for form fields and boundaries
const multipartOverhead = 1 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searcher       ProductSearcher
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(searcher ProductSearcher, maxUploadBytes int64, logger zerolog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Handler{
		searcher:       searcher,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "http_handler").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stylesearch-backend",
		"version": "1.0.0",
	})
}

type filtersBody struct {
	MinPrice *float64 `json:"minPrice"`
	MaxPrice *float64 `json:"maxPrice"`
	Colors   []string `json:"colors"`
	Sizes    []string `json:"sizes"`
	Brands   []string `json:"brands"`
}

// searchBody is the JSON form of a search. Filters may be nested or top level.
type searchBody struct {
	Text      string       `json:"text"`
	ImageURL  string       `json:"imageUrl"`
	Filters   *filtersBody `json:"filters"`
	SortBy    string       `json:"sortBy"`
	SortOrder string       `json:"sortOrder"`
	filtersBody
}

// Search handles text, image URL and uploaded image searches.
func (h *Handler) Search(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search service is not available"})
		return
	}

	request, err := h.bindSearchRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response, err := h.searcher.Search(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) bindSearchRequest(c *gin.Context) (*domain.SearchRequest, error) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, domain.ErrNoSearchInput
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return h.bindMultipart(c)
	}

	var body searchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		if tooLarge(err) {
			return nil, fmt.Errorf("%w: request body", domain.ErrImageTooLarge)
		}
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrNoSearchInput
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	filters := body.filtersBody
	if body.Filters != nil {
		filters = *body.Filters
	}
	return &domain.SearchRequest{
		Text:     body.Text,
		ImageURL: body.ImageURL,
		Filters:  toDomainFilters(filters),
		Sort:     toSortOptions(body.SortBy, body.SortOrder),
	}, nil
}

func (h *Handler) bindMultipart(c *gin.Context) (*domain.SearchRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge(err) {
			return nil, fmt.Errorf("%w: request body", domain.ErrImageTooLarge)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	minPrice, err := parseOptionalFloat(c.PostForm("minPrice"))
	if err != nil {
		return nil, fmt.Errorf("%w: minPrice: %v", domain.ErrInvalidRequest, err)
	}
	maxPrice, err := parseOptionalFloat(c.PostForm("maxPrice"))
	if err != nil {
		return nil, fmt.Errorf("%w: maxPrice: %v", domain.ErrInvalidRequest, err)
	}

	request := &domain.SearchRequest{
		Text:     c.PostForm("text"),
		ImageURL: c.PostForm("imageUrl"),
		Filters: toDomainFilters(filtersBody{
			MinPrice: minPrice,
			MaxPrice: maxPrice,
			Colors:   formList(form.Value["colors"]),
			Sizes:    formList(form.Value["sizes"]),
			Brands:   formList(form.Value["brands"]),
		}),
		Sort: toSortOptions(c.PostForm("sortBy"), c.PostForm("sortOrder")),
	}

	files := form.File["image"]
	if len(files) == 0 {
		return request, nil
	}
	header := files[0]
	if header.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", domain.ErrImageTooLarge, header.Size, h.maxUploadBytes)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open image: %v", domain.ErrInvalidRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", domain.ErrInvalidRequest, err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	request.Image = &domain.ImageInput{Data: data, MIMEType: mimeType}
	return request, nil
}

// Trending returns diversified trending products. ?limit is optional.
func (h *Handler) Trending(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search service is not available"})
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidRequest))
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{"products": h.searcher.Trending(c.Request.Context(), limit)})
}

type refreshBody struct {
	Products []domain.Product `json:"products" binding:"required"`
}

// RefreshPrices re-scrapes live prices for a caller-supplied product list.
func (h *Handler) RefreshPrices(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search service is not available"})
		return
	}

	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	products := h.searcher.RefreshPrices(c.Request.Context(), body.Products, userID)
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// respondError maps input errors to 4xx and hides everything else behind a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case domain.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger := requestLogger(c, h.logger)
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toDomainFilters(f filtersBody) domain.Filters {
	return domain.Filters{
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		Colors:   cleanList(f.Colors),
		Sizes:    cleanList(f.Sizes),
		Brands:   cleanList(f.Brands),
	}
}

func toSortOptions(sortBy, sortOrder string) domain.SortOptions {
	by := domain.NormalizeSortBy(sortBy)
	if by == domain.SortByUnset {
		return domain.SortOptions{}
	}
	return domain.SortOptions{SortBy: by, SortOrder: domain.NormalizeSortOrder(sortOrder)}
}

func parseOptionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// formList accepts repeated fields and comma separated values.
func formList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
