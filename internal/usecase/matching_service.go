package usecase

import (
	"sort"
	"strings"

	"github.com/stylesearch/backend/internal/domain"
)

// Relevance weights for re-ranking products against the shopping query
const (
	weightWholeWord    = 5.0 // Query token appears as a whole word in the title
	weightPartialMatch = 2.0 // Query token appears inside a longer title word
	weightSourceMatch  = 1.0 // Query token appears in the marketplace name
	weightFashionTerm  = 0.5 // Per fashion vocabulary term in the title
	weightColorTerm    = 0.3 // Per color name in the title
	weightHasPrice     = 1.0
	weightHasThumbnail = 0.5
)

// RelevanceScorer re-ranks products by lexical relevance to a query.
type RelevanceScorer struct {
	vocab *Vocabulary
}

// NewRelevanceScorer creates a scorer over the given vocabulary.
func NewRelevanceScorer(vocab *Vocabulary) *RelevanceScorer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &RelevanceScorer{vocab: vocab}
}

// Rerank returns a copy of products stable-sorted by descending relevance.
func (s *RelevanceScorer) Rerank(products []domain.Product, query string) []domain.Product {
	out := copyProducts(products)
	if len(out) <= 1 {
		return out
	}

	queryTokens := uniqueTokens(tokenize(query, s.vocab.StopWords))

	scores := make([]float64, len(out))
	for i, p := range out {
		scores[i] = s.Score(p, queryTokens)
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	ranked := make([]domain.Product, len(out))
	for pos, i := range idx {
		ranked[pos] = out[i]
	}
	return ranked
}

// Score computes the relevance of one product for pre-tokenized query tokens.
func (s *RelevanceScorer) Score(p domain.Product, queryTokens []string) float64 {
	titleLower := strings.ToLower(p.Title)
	sourceLower := strings.ToLower(p.Source)
	titleWords := wordSet(p.Title)

	var score float64
	for _, token := range queryTokens {
		switch {
		case titleWords[token]:
			score += weightWholeWord
		case strings.Contains(titleLower, token):
			score += weightPartialMatch
		}
		if sourceLower != "" && strings.Contains(sourceLower, token) {
			score += weightSourceMatch
		}
	}

	fashionHits := 0
	colorHits := 0
	for word := range titleWords {
		if s.vocab.FashionTerms[word] {
			fashionHits++
		}
		if s.vocab.ColorNames[word] {
			colorHits++
		}
	}
	if fashionHits > len(s.vocab.FashionTerms) {
		fashionHits = len(s.vocab.FashionTerms)
	}
	score += float64(fashionHits) * weightFashionTerm
	score += float64(colorHits) * weightColorTerm

	if p.HasPrice() {
		score += weightHasPrice
	}
	if strings.TrimSpace(p.Thumbnail) != "" {
		score += weightHasThumbnail
	}

	return score
}

// SortByPrice returns a copy of products ordered by price. Products without a
// known price always come last, in their original relative order.
func SortByPrice(products []domain.Product, order domain.SortOrder) []domain.Product {
	out := copyProducts(products)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PriceNumber, out[j].PriceNumber
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		case order == domain.SortOrderDesc:
			return *a > *b
		default:
			return *a < *b
		}
	})
	return out
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
