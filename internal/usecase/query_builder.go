package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stylesearch/backend/internal/domain"
)

// Canned queries used when no better signal is available.
const (
	defaultQuery          = "trending fashion clothing"
	garmentSuffix         = "fashion style trendy"
	genericSuffix         = "fashion clothing style"
	imageFullOutfitQuery  = "full outfit fashion clothing ensemble"
	imageGeneralQuery     = "fashion clothing apparel style"
	imageAccessoriesQuery = "fashion accessories jewellery bags"
)

// QueryBuilderConfig holds configuration for the query builder
type QueryBuilderConfig struct {
	SpellOnly        bool          // Restrict the model to spelling correction
	Timeout          time.Duration // Bound on a single generation call
	MinLength        int
	MaxLength        int
	LargeImageBytes  int // Payloads at or above this size are treated as full outfits
	MediumImageBytes int // Payloads at or above this size are treated as general clothing
}

// QueryBuilder turns user text or images into a single shopping query.
// The external generator is optional; every path ends in a non-empty query.
type QueryBuilder struct {
	generator domain.QueryGenerator
	vocab     *Vocabulary
	cfg       QueryBuilderConfig
	logger    zerolog.Logger
}

// NewQueryBuilder creates a query builder. generator may be nil.
func NewQueryBuilder(generator domain.QueryGenerator, vocab *Vocabulary, cfg QueryBuilderConfig, logger zerolog.Logger) *QueryBuilder {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 3
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 200
	}
	if cfg.LargeImageBytes <= 0 {
		cfg.LargeImageBytes = 500_000
	}
	if cfg.MediumImageBytes <= 0 || cfg.MediumImageBytes > cfg.LargeImageBytes {
		cfg.MediumImageBytes = cfg.LargeImageBytes / 5
	}

	return &QueryBuilder{
		generator: generator,
		vocab:     vocab,
		cfg:       cfg,
		logger:    logger.With().Str("component", "query_builder").Logger(),
	}
}

// FromText derives a shopping query from free text.
func (b *QueryBuilder) FromText(ctx context.Context, text string) string {
	cleaned := normalizeInput(text)
	if cleaned == "" {
		return defaultQuery
	}

	if b.generator != nil {
		query, err := b.generate(ctx, b.textPrompt(cleaned), nil)
		if err == nil {
			b.logger.Debug().Str("input", cleaned).Str("query", query).Msg("query generated from text")
			return query
		}
		b.logger.Warn().Err(err).Str("input", cleaned).Msg("text query generation failed, using fallback")
	}

	return b.textFallback(cleaned)
}

// FromImage derives a shopping query from an image and an optional caption.
func (b *QueryBuilder) FromImage(ctx context.Context, image domain.ImageInput, caption string) string {
	caption = normalizeInput(caption)

	if len(image.Data) == 0 {
		if caption != "" {
			return b.FromText(ctx, caption)
		}
		return b.imageFallback(image, caption)
	}

	if b.generator != nil {
		query, err := b.generate(ctx, b.imagePrompt(caption), &image)
		if err == nil {
			b.logger.Debug().Int("image_bytes", len(image.Data)).Str("query", query).Msg("query generated from image")
			return query
		}
		b.logger.Warn().Err(err).Int("image_bytes", len(image.Data)).Msg("image query generation failed, using fallback")
	}

	return b.imageFallback(image, caption)
}

// generate runs one bounded generation call and validates its output.
func (b *QueryBuilder) generate(ctx context.Context, prompt string, image *domain.ImageInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		text, err := b.generator.Generate(ctx, prompt, image)
		ch <- result{text: text, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, r.err)
		}
		return b.validate(r.text)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, ctx.Err())
	}
}

// validate rejects empty, out-of-bounds or hedging model output.
func (b *QueryBuilder) validate(raw string) (string, error) {
	query := cleanGeneratedQuery(raw)
	length := utf8.RuneCountInString(query)

	switch {
	case query == "":
		return "", fmt.Errorf("%w: empty output", domain.ErrInvalidGeneration)
	case length < b.cfg.MinLength:
		return "", fmt.Errorf("%w: output too short (%d chars)", domain.ErrInvalidGeneration, length)
	case length > b.cfg.MaxLength:
		return "", fmt.Errorf("%w: output too long (%d chars)", domain.ErrInvalidGeneration, length)
	}

	lower := strings.ToLower(query)
	for _, phrase := range b.vocab.RefusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("%w: refusal phrase %q", domain.ErrInvalidGeneration, phrase)
		}
	}

	return query, nil
}

// textFallback expands cleaned text using the garment and occasion tables.
func (b *QueryBuilder) textFallback(cleaned string) string {
	if cleaned == "" {
		return defaultQuery
	}

	words := strings.Fields(cleaned)
	for _, w := range words {
		if b.vocab.IsGarment(w) {
			return b.finalize(cleaned + " " + garmentSuffix)
		}
	}
	for _, w := range words {
		if expansion, ok := b.vocab.Occasion(w); ok {
			return b.finalize(expansion)
		}
	}

	return b.finalize(cleaned + " " + genericSuffix)
}

// imageFallback infers a coarse category from caption, URL hints, then payload size.
func (b *QueryBuilder) imageFallback(image domain.ImageInput, caption string) string {
	if caption != "" {
		return b.textFallback(caption)
	}

	if hint := b.urlHint(image.SourceURL); hint != "" {
		return b.finalize(hint)
	}

	size := len(image.Data)
	switch {
	case size >= b.cfg.LargeImageBytes:
		return imageFullOutfitQuery
	case size >= b.cfg.MediumImageBytes:
		return imageGeneralQuery
	default:
		return imageAccessoriesQuery
	}
}

// urlHint looks for garment or occasion words inside an image URL.
func (b *QueryBuilder) urlHint(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	words := urlWordPattern.Split(strings.ToLower(rawURL), -1)
	for _, w := range words {
		if w != "" && b.vocab.IsGarment(w) {
			return w + " " + garmentSuffix
		}
	}
	for _, w := range words {
		if expansion, ok := b.vocab.Occasion(w); ok {
			return expansion
		}
	}
	return ""
}

func (b *QueryBuilder) finalize(query string) string {
	query = truncateAtWord(strings.TrimSpace(query), b.cfg.MaxLength)
	if utf8.RuneCountInString(query) < b.cfg.MinLength {
		return defaultQuery
	}
	return query
}

func (b *QueryBuilder) textPrompt(text string) string {
	if b.cfg.SpellOnly {
		return fmt.Sprintf(spellOnlyPrompt, text)
	}
	return fmt.Sprintf(textQueryPrompt, text)
}

func (b *QueryBuilder) imagePrompt(caption string) string {
	if caption == "" {
		return imageQueryPrompt
	}
	return imageQueryPrompt + fmt.Sprintf("\nThe shopper also wrote: %q. Use it to refine the query.", caption)
}

const textQueryPrompt = `You are an expert fashion stylist helping a shopper search an Indian online store.
Turn the shopper's request into ONE short shopping search query.
Include, when known: item type, color, material, style, gender and distinguishing features.
Output ONLY the query text. No quotes, no explanations, no lists.

Examples:
Input: "red tshirt cotton" -> red cotton t-shirt casual men
Input: "something for a beach wedding" -> pastel linen kurta beach wedding
Input: "black heels for party" -> black stiletto heels party women

Input: %q`

const spellOnlyPrompt = `You correct spelling in fashion shopping searches.
Fix spelling mistakes only. Do not add, remove or reorder words.
Output ONLY the corrected text.

Input: %q`

const imageQueryPrompt = `You are an expert fashion stylist. Look at the clothing or accessory in this image.
Write ONE short shopping search query that would find this exact item in an online store.
Include: item type, color, material, style, gender and distinguishing features (print, neckline, sleeve, fit).
Output ONLY the query text. No quotes, no explanations.

Examples:
navy blue denim jacket oversized men
floral print maxi dress women sleeveless
white leather sneakers low top unisex`
