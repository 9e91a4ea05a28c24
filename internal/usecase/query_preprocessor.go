package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Compiled regex patterns for query preprocessing
var (
	// Anything that is not a letter, mark, digit, whitespace, hyphen, apostrophe or ampersand
	disallowedCharsPattern = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s\-'&]`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)

	// Token boundaries for relevance scoring
	tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\-]+`)

	// Word boundaries inside URLs, where hyphens separate words
	urlWordPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

	// Leading labels models like to emit ("Query: ...", "Search query - ...")
	outputLabelPattern = regexp.MustCompile(`(?i)^\s*(?:shopping\s+|search\s+)?query\s*[:\-]\s*`)
)

// normalizeInput lowercases user text, strips punctuation and collapses whitespace.
func normalizeInput(s string) string {
	if s == "" {
		return ""
	}
	cleaned := strings.ToLower(s)
	cleaned = strings.ReplaceAll(cleaned, "&", " and ")
	cleaned = disallowedCharsPattern.ReplaceAllString(cleaned, " ")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(cleaned, " -'")
	return strings.TrimSpace(cleaned)
}

// cleanGeneratedQuery strips formatting the model may wrap around its answer.
func cleanGeneratedQuery(raw string) string {
	text := strings.ReplaceAll(raw, "```", "\n")
	var line string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			line = t
			break
		}
	}
	line = outputLabelPattern.ReplaceAllString(line, "")
	line = strings.Trim(line, " \t\"'`*")
	line = strings.TrimSuffix(line, ".")
	line = multiSpacePattern.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// truncateAtWord limits s to maxRunes, cutting at a word boundary when one is
// available in the second half.
func truncateAtWord(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxRunes])
	if runes[maxRunes] == ' ' {
		return strings.TrimSpace(cut)
	}
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > len(cut)/2 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(cut)
}

// tokenize splits a string into lowercase tokens, dropping stop words and
// single characters.
func tokenize(s string, stopWords map[string]bool) []string {
	words := tokenSplitPattern.Split(strings.ToLower(s), -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, "-")
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// wordSet returns the set of raw lowercase words in s.
func wordSet(s string) map[string]bool {
	words := tokenSplitPattern.Split(strings.ToLower(s), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, "-")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
