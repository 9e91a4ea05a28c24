package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSearchInput is returned when a search supplies none of text, image URL or image
	ErrNoSearchInput = errors.New("provide text, an image URL, or an image to search")

	// ErrInvalidImageType is returned when the uploaded image MIME type is not accepted
	ErrInvalidImageType = errors.New("unsupported image type")

	// ErrImageTooLarge is returned when the uploaded image exceeds the configured limit
	ErrImageTooLarge = errors.New("image exceeds maximum upload size")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrProviderFailure is returned when a shopping search provider request fails
	ErrProviderFailure = errors.New("shopping provider request failed")

	// ErrProviderNotConfigured is returned when a provider is missing credentials
	ErrProviderNotConfigured = errors.New("shopping provider not configured")

	// ErrGenerationFailed is returned when the model generation call fails
	ErrGenerationFailed = errors.New("query generation failed")

	// ErrInvalidGeneration is returned when model output fails validation
	ErrInvalidGeneration = errors.New("query generation output rejected")

	// ErrScrapeFailed is returned when a retailer page cannot be fetched or parsed
	ErrScrapeFailed = errors.New("retailer page scrape failed")

	// ErrImageFetchFailed is returned when an image URL cannot be downloaded
	ErrImageFetchFailed = errors.New("image download failed")
)

// IsInputError reports whether err is a caller input error.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoSearchInput) ||
		errors.Is(err, ErrInvalidImageType) ||
		errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrInvalidRequest)
}

// HTTPStatusError captures an upstream failure by status code.
type HTTPStatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Status, e.Body)
}

// ClassifyProviderError maps a provider error onto a ProviderErrorKind.
func ClassifyProviderError(err error) ProviderErrorKind {
	if err == nil {
		return ProviderErrorUnknown
	}
	if errors.Is(err, context.Canceled) {
		return ProviderErrorCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ProviderErrorTimeout
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden:
			return ProviderErrorAuth
		case statusErr.Status == http.StatusTooManyRequests:
			return ProviderErrorRateLimit
		default:
			return ProviderErrorHTTP
		}
	}

	return ProviderErrorTransport
}
