package insights

import (
	"regexp"
	"strings"
)

const LanguageUnknown = "unknown"

// minLanguageHits is the stopword count below which no language is claimed.
const minLanguageHits = 2

var wordPattern = regexp.MustCompile(`\p{L}+`)

// DetectLanguage picks the language whose stopwords occur most often in
// text. It returns LanguageUnknown when there are too few hits or the top two
// languages tie.
func DetectLanguage(text string) string {
	hits := make(map[string]int, len(Languages))
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		for _, lang := range Languages {
			if _, ok := stopwordsByLang[lang][w]; ok {
				hits[lang]++
			}
		}
	}

	best, bestHits, runnerUp := LanguageUnknown, 0, 0
	for _, lang := range Languages {
		switch n := hits[lang]; {
		case n > bestHits:
			runnerUp = bestHits
			best, bestHits = lang, n
		case n > runnerUp:
			runnerUp = n
		}
	}
	if bestHits < minLanguageHits || bestHits == runnerUp {
		return LanguageUnknown
	}
	return best
}
