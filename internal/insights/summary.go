// Package insights derives document-level metadata: a summary, tags and the
// dominant language.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

const (
	summarySentences = 3

	// maxSummaryInput bounds the text sent to the generator, in runes.
	maxSummaryInput = 12000
	// maxExtractiveFallback bounds the summary of text with no sentences.
	maxExtractiveFallback = 500
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Insights is the document-level metadata produced after chunking.
type Insights struct {
	Summary       string
	SummaryMethod models.Method
	Tags          []string
	Language      string
	Degradation   *models.Degradation
}

type Analyzer struct {
	gen     ai.Generator
	opts    ai.GenerateOptions
	timeout time.Duration
	log     *slog.Logger
}

// NewAnalyzer returns an Analyzer. With a nil gen, summaries are extractive.
func NewAnalyzer(gen ai.Generator, opts ai.GenerateOptions, timeout time.Duration, log *slog.Logger) *Analyzer {
	return &Analyzer{gen: gen, opts: opts, timeout: timeout, log: logger.Or(log)}
}

func (a *Analyzer) Analyze(ctx context.Context, text string) *Insights {
	out := &Insights{
		Tags:     Tags(text, DefaultTagCount),
		Language: DetectLanguage(text),
	}
	out.Summary, out.SummaryMethod, out.Degradation = a.Summarize(ctx, text)
	return out
}

// Summarize returns a generated summary, or an extractive one when no
// generator is configured or generation fails.
func (a *Analyzer) Summarize(ctx context.Context, text string) (string, models.Method, *models.Degradation) {
	if a.gen == nil {
		return ExtractiveSummary(text, summarySentences), models.MethodExtractive, &models.Degradation{Reason: models.ReasonNoGenerator}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	res, err := a.gen.Generate(ctx, summaryPrompt(text), a.opts)
	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		reason := ai.Reason(err)
		a.log.Warn("summary generation failed, using extractive summary", "reason", reason, "error", err)
		return ExtractiveSummary(text, summarySentences), models.MethodExtractive, &models.Degradation{Reason: reason, Detail: err.Error()}
	}
	return strings.TrimSpace(res.Text), models.MethodGenerated, nil
}

func summaryPrompt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxSummaryInput {
		text = string([]rune(text)[:maxSummaryInput])
	}
	return fmt.Sprintf("Summarize the following document in 3 to 5 sentences. "+
		"Describe its main topics and purpose without adding information that is not in the text.\n\n"+
		"Document:\n%s", text)
}

// ExtractiveSummary ranks sentences by normalized non-stopword frequency and
// returns the best n in their original order.
func ExtractiveSummary(text string, n int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sentences := sentencePattern.FindAllString(normalized, -1)
	if len(sentences) == 0 {
		if utf8.RuneCountInString(normalized) > maxExtractiveFallback {
			return string([]rune(normalized)[:maxExtractiveFallback]) + "..."
		}
		return normalized
	}

	freq := map[string]float64{}
	tokens := make([][]string, len(sentences))
	for i, s := range sentences {
		tokens[i] = wordPattern.FindAllString(strings.ToLower(s), -1)
		for _, tok := range tokens[i] {
			if !IsStopword(tok) {
				freq[tok]++
			}
		}
	}

	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i := range sentences {
		var sum float64
		for _, tok := range tokens[i] {
			if maxF > 0 {
				sum += freq[tok] / maxF
			}
		}
		if l := float64(len(tokens[i])); l > 0 {
			sum /= math.Sqrt(l)
		}
		scores[i] = scored{idx: i, score: sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if n <= 0 || n > len(scores) {
		n = len(scores)
	}
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, n)
	for i, idx := range selected {
		out[i] = strings.TrimSpace(sentences[idx])
	}
	return strings.Join(out, " ")
}
