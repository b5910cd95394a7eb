// Package answer turns ranked chunks into an answer, through a generative
// model when one is configured and extractively otherwise.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/similarity"
	"pdf-rag-platform/models"
)

const (
	// ContextExcerptLength bounds provenance copies and extractive summaries.
	ContextExcerptLength = 200

	relevantSimilarity = 0.1
	maxSummaries       = 3
	maxPossiblyRelated = 2
)

const NoRelevantInfoMessage = "I couldn't find any relevant information in this document to answer your question. " +
	"Try rephrasing it or asking about a different topic covered by the document."

type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DocumentMeta describes the document being asked about.
type DocumentMeta struct {
	ID        string
	Filename  string
	PageCount int
}

// Answer is the composed reply plus its provenance.
type Answer struct {
	Text             string
	Model            string
	Context          models.AnswerContext
	PromptTokens     int
	CompletionTokens int
}

type Composer struct {
	gen  ai.Generator
	opts Options
	log  *slog.Logger
}

// NewComposer returns a Composer. A nil gen makes every answer extractive.
func NewComposer(gen ai.Generator, opts Options, log *slog.Logger) *Composer {
	return &Composer{gen: gen, opts: opts, log: logger.Or(log)}
}

// FromChunks wraps unranked chunks so they can be composed directly.
func FromChunks(chunks []models.Chunk) *similarity.Outcome {
	out := &similarity.Outcome{TotalChunks: len(chunks), Method: models.MethodFallback}
	for _, ch := range chunks {
		out.Results = append(out.Results, similarity.Result{Chunk: ch, Relevance: similarity.Relevance(ch, 0)})
	}
	return out
}

// Answer always returns a well-formed answer. Generator failures degrade to
// the extractive path.
func (c *Composer) Answer(ctx context.Context, question string, retrieval *similarity.Outcome, meta DocumentMeta) *Answer {
	ctx, span := otel.Tracer("answer").Start(ctx, "answer.compose")
	defer span.End()

	if retrieval == nil {
		retrieval = &similarity.Outcome{}
	}
	ranked := retrieval.Results

	base := models.AnswerContext{
		TotalChunksRetrieved: len(ranked),
		AverageSimilarity:    retrieval.AverageSimilarity,
		RetrievalMethod:      retrieval.Method,
		RetrievalDegradation: retrieval.Degradation,
	}

	if len(ranked) == 0 {
		base.AnswerMethod = models.MethodExtractive
		base.Chunks = []models.ContextChunk{}
		base.PageNumbers = []int{}
		span.SetAttributes(attribute.String("answer.method", string(base.AnswerMethod)))
		return &Answer{Text: NoRelevantInfoMessage, Model: ai.ModelExtractive, Context: base}
	}

	if c.gen == nil {
		ans := c.extractive(ranked, retrieval.Method, base)
		ans.Context.AnswerDegradation = &models.Degradation{Reason: models.ReasonNoGenerator}
		span.SetAttributes(attribute.String("answer.method", string(models.MethodExtractive)))
		return ans
	}

	ans, err := c.generate(ctx, question, ranked, meta, base)
	if err != nil {
		reason := ai.Reason(err)
		c.log.Warn("answer generation failed, using extractive answer",
			"model", c.gen.Model(),
			"reason", reason,
			"error", err,
		)
		ans = c.extractive(ranked, retrieval.Method, base)
		ans.Context.AnswerDegradation = &models.Degradation{Reason: reason, Detail: err.Error()}
	}

	span.SetAttributes(attribute.String("answer.method", string(ans.Context.AnswerMethod)))
	return ans
}

func (c *Composer) generate(ctx context.Context, question string, ranked []similarity.Result, meta DocumentMeta, base models.AnswerContext) (*Answer, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	prompt := BuildPrompt(question, ranked, meta)
	res, err := c.gen.Generate(ctx, prompt, ai.GenerateOptions{
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, ai.ErrEmptyResponse
	}

	base.AnswerMethod = models.MethodGenerated
	base.Chunks, base.PageNumbers = provenance(ranked)
	return &Answer{
		Text:             strings.TrimSpace(res.Text),
		Model:            c.gen.Model(),
		Context:          base,
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
	}, nil
}

// BuildPrompt lists every chunk under its page tag, then the question and
// the answering rules.
func BuildPrompt(question string, ranked []similarity.Result, meta DocumentMeta) string {
	var sb strings.Builder

	name := meta.Filename
	if name == "" {
		name = "the uploaded document"
	}
	fmt.Fprintf(&sb, "You are answering questions about %q using excerpts from it.\n\n", name)

	sb.WriteString("Context:\n\n")
	for _, r := range ranked {
		fmt.Fprintf(&sb, "[Page %d]\n%s\n\n", r.Chunk.PageNumber, r.Chunk.Content)
	}

	fmt.Fprintf(&sb, "Question: %s\n\n", strings.TrimSpace(question))

	sb.WriteString("Instructions:\n")
	sb.WriteString("- Answer only from the context above. Do not use outside knowledge.\n")
	sb.WriteString("- Cite the page numbers you relied on, for example (Page 3).\n")
	sb.WriteString("- If the context does not contain enough information to answer, say so explicitly.\n")
	return sb.String()
}

func (c *Composer) extractive(ranked []similarity.Result, retrievalMethod models.Method, base models.AnswerContext) *Answer {
	base.AnswerMethod = models.MethodExtractive

	sorted := make([]similarity.Result, len(ranked))
	copy(sorted, ranked)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Similarity > sorted[j].Similarity })

	var relevant []similarity.Result
	for _, r := range sorted {
		if r.Similarity > relevantSimilarity {
			relevant = append(relevant, r)
		}
	}

	var sb strings.Builder
	if retrievalMethod == models.MethodFallback {
		sb.WriteString("Note: these passages were matched by keywords, so they may be less precise.\n\n")
	}

	var used []similarity.Result
	if len(relevant) == 0 {
		used = sorted[:min(maxPossiblyRelated, len(sorted))]
		sb.WriteString("I couldn't find a passage that directly answers your question, but these parts of the document may be related:\n\n")
		for _, r := range used {
			fmt.Fprintf(&sb, "**Page %d:** %s\n\n", r.Chunk.PageNumber, Truncate(r.Chunk.Content, ContextExcerptLength))
		}
		sb.WriteString("Try rephrasing your question with terms that appear in the document.")
	} else {
		used = relevant[:min(maxSummaries, len(relevant))]
		sb.WriteString("Based on the document, here is what I found:\n\n")
		for _, r := range used {
			fmt.Fprintf(&sb, "**Page %d** (relevance %d%%): %s\n\n",
				r.Chunk.PageNumber, int(math.Round(r.Relevance*100)), Summarize(r.Chunk.Content, ContextExcerptLength))
		}
		if len(relevant) > maxSummaries {
			fmt.Fprintf(&sb, "Found %d relevant passages in total; the top %d are shown.", len(relevant), maxSummaries)
		}
	}

	base.Chunks, base.PageNumbers = provenance(used)
	return &Answer{
		Text:    strings.TrimSpace(sb.String()),
		Model:   ai.ModelExtractive,
		Context: base,
	}
}

// provenance returns truncated copies of the chunks and their distinct page
// numbers in ascending order.
func provenance(results []similarity.Result) ([]models.ContextChunk, []int) {
	chunks := make([]models.ContextChunk, 0, len(results))
	seen := make(map[int]bool)
	pages := []int{}
	for _, r := range results {
		chunks = append(chunks, models.ContextChunk{
			ChunkID:    r.Chunk.ChunkID,
			Content:    Truncate(r.Chunk.Content, ContextExcerptLength),
			PageNumber: r.Chunk.PageNumber,
			Similarity: r.Similarity,
			Relevance:  r.Relevance,
		})
		if !seen[r.Chunk.PageNumber] {
			seen[r.Chunk.PageNumber] = true
			pages = append(pages, r.Chunk.PageNumber)
		}
	}
	sort.Ints(pages)
	return chunks, pages
}

// Truncate cuts s to n runes and appends an ellipsis when it was longer.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Summarize concatenates leading sentences while the result stays within
// maxLen runes. A first sentence that is already too long is truncated.
func Summarize(content string, maxLen int) string {
	var (
		sb     strings.Builder
		length int
	)
	for _, s := range sentences(content) {
		n := utf8.RuneCountInString(s)
		add := n
		if length > 0 {
			add++
		}
		if length+add > maxLen {
			break
		}
		if length > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
		length += add
	}
	if length == 0 {
		return Truncate(strings.TrimSpace(content), maxLen)
	}
	return sb.String()
}

func sentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\n' {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
