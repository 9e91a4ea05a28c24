// Package gemini implements query generation on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
	"google.golang.org/api/option"
)

// Config holds Gemini settings
type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// Client generates shopping queries with a Gemini model.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger zerolog.Logger
}

// NewClient creates a Gemini client. Callers must Close it.
func NewClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 64
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	model.SetCandidateCount(1)

	return &Client{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "gemini").Str("model", cfg.Model).Logger(),
	}, nil
}

// Generate sends the prompt, plus the image when present, and returns the model text.
func (c *Client) Generate(ctx context.Context, prompt string, image *domain.ImageInput) (string, error) {
	parts := []genai.Part{genai.Text(prompt)}
	if image != nil && len(image.Data) > 0 {
		parts = append(parts, genai.ImageData(imageFormat(image.MIMEType), image.Data))
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	c.logger.Debug().Bool("image", image != nil).Int("chars", len(text)).Msg("generation complete")
	return text, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

// imageFormat maps a MIME type onto the short format ImageData expects.
func imageFormat(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	switch base {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/heic":
		return "heic"
	default:
		return "jpeg"
	}
}
