package insights

import (
	"sort"
	"unicode"

	"pdf-rag-platform/internal/embedding"
)

const DefaultTagCount = 10

// Tags returns the n most frequent non-stopword tokens, most frequent first
// and ties in alphabetical order. Purely numeric tokens are ignored.
func Tags(text string, n int) []string {
	if n <= 0 {
		n = DefaultTagCount
	}

	counts := make(map[string]int)
	for _, tok := range embedding.Tokenize(text) {
		if IsStopword(tok) || !hasLetter(tok) {
			continue
		}
		counts[tok]++
	}

	tags := make([]string, 0, len(counts))
	for tok := range counts {
		tags = append(tags, tok)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
