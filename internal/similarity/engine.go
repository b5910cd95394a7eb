// Package similarity ranks chunks against a query.
//
// The primary path compares vectors produced by one embedding method. When no
// comparable vectors exist, or the query cannot be embedded with the chunks'
// method, the engine degrades to keyword overlap and tags the outcome with
// models.MethodFallback and a reason.
package similarity

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-platform/internal/embedding"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.7

	// KeywordThreshold is the fixed filter for the keyword-overlap path.
	KeywordThreshold = 0.01
)

// Result pairs a chunk with its raw similarity and display relevance.
type Result struct {
	Chunk      models.Chunk
	Similarity float64
	Relevance  float64
}

type Outcome struct {
	Results              []Result
	TotalChunks          int
	ChunksWithEmbeddings int
	// AverageSimilarity is the mean over every similarity computed, before
	// filtering and truncation.
	AverageSimilarity float64
	Method            models.Method
	// EmbeddingMethod is the vector method compared on the primary path.
	EmbeddingMethod string
	Degradation     *models.Degradation
}

type Engine struct {
	embedder embedding.Embedder
	log      *slog.Logger
}

// NewEngine returns an engine that embeds queries with e. A nil e can only
// compare TF-IDF chunk sets.
func NewEngine(e embedding.Embedder, log *slog.Logger) *Engine {
	if e == nil {
		e = embedding.NewLexical()
	}
	return &Engine{embedder: e, log: logger.Or(log)}
}

// FindSimilar returns at most topK chunks with similarity >= threshold,
// sorted by descending similarity with ties in input order. It never fails:
// any problem on the embedding path yields a keyword-overlap outcome.
func (e *Engine) FindSimilar(ctx context.Context, query string, chunks []models.Chunk, topK int, threshold float64) *Outcome {
	ctx, span := otel.Tracer("similarity").Start(ctx, "similarity.find")
	defer span.End()

	if topK <= 0 {
		topK = DefaultTopK
	}

	withEmbeddings := 0
	for i := range chunks {
		if chunks[i].HasEmbedding() {
			withEmbeddings++
		}
	}

	var out *Outcome
	if withEmbeddings == 0 {
		out = keywordOutcome(query, chunks, topK, threshold, &models.Degradation{Reason: models.ReasonNoEmbeddings})
	} else {
		out = e.vectorOutcome(ctx, query, chunks, topK, threshold)
	}
	out.TotalChunks = len(chunks)
	out.ChunksWithEmbeddings = withEmbeddings

	if out.Degradation != nil {
		e.log.Warn("similarity search degraded to keyword overlap",
			"reason", out.Degradation.Reason,
			"detail", out.Degradation.Detail,
			"chunks", len(chunks),
		)
	}

	span.SetAttributes(
		attribute.String("similarity.method", string(out.Method)),
		attribute.Int("similarity.total_chunks", out.TotalChunks),
		attribute.Int("similarity.results", len(out.Results)),
		attribute.Float64("similarity.average", out.AverageSimilarity),
	)
	return out
}

func (e *Engine) vectorOutcome(ctx context.Context, query string, chunks []models.Chunk, topK int, threshold float64) *Outcome {
	method := majorityMethod(chunks)

	var candidates []models.Chunk
	for _, ch := range chunks {
		if ch.HasEmbedding() && ch.Embedding.Method == method {
			candidates = append(candidates, ch)
		}
	}

	var (
		queryVec  []float64
		chunkVecs [][]float64
		degraded  *models.Degradation
	)

	if method == embedding.MethodTFIDF {
		// TF-IDF vectors are batch-relative; recompute over the candidates
		// and weigh the query against that vocabulary.
		texts := make([]string, len(candidates))
		for i, ch := range candidates {
			texts[i] = ch.Content
		}
		chunkVecs = embedding.TFIDF(texts)
		queryVec = embedding.NewVocabulary(texts).Vector(query)
	} else {
		queryVec, degraded = e.embedQuery(ctx, query, method)
		if degraded == nil {
			chunkVecs = make([][]float64, len(candidates))
			for i, ch := range candidates {
				if len(ch.Embedding.Vector) != len(queryVec) {
					degraded = &models.Degradation{Reason: models.ReasonDimensionMismatch, Detail: ch.ChunkID}
					break
				}
				chunkVecs[i] = ch.Embedding.Vector
			}
		}
	}

	if degraded != nil {
		return keywordOutcome(query, chunks, topK, threshold, degraded)
	}

	scored := make([]Result, len(candidates))
	for i, ch := range candidates {
		sim := clamp01(Cosine(queryVec, chunkVecs[i]))
		scored[i] = Result{Chunk: ch, Similarity: sim, Relevance: Relevance(ch, sim)}
	}

	out := rank(scored, topK, threshold)
	out.Method = models.MethodEmbedding
	out.EmbeddingMethod = method
	return out
}

func (e *Engine) embedQuery(ctx context.Context, query, method string) ([]float64, *models.Degradation) {
	if e.embedder.Method() != method {
		return nil, &models.Degradation{
			Reason: models.ReasonDimensionMismatch,
			Detail: "query embedder " + e.embedder.Method() + " cannot compare with " + method,
		}
	}

	res, err := e.embedder.Embed(ctx, []string{query})
	switch {
	case err != nil:
		return nil, &models.Degradation{Reason: models.ReasonUpstreamError, Detail: err.Error()}
	case res.Degraded():
		return nil, res.Degradation
	case res.Method != method || len(res.Vectors) != 1:
		return nil, &models.Degradation{Reason: models.ReasonDimensionMismatch, Detail: res.Method}
	}
	return res.Vectors[0], nil
}

func keywordOutcome(query string, chunks []models.Chunk, topK int, threshold float64, reason *models.Degradation) *Outcome {
	queryTokens := tokenSet(query)

	scored := make([]Result, len(chunks))
	for i, ch := range chunks {
		sim := KeywordOverlap(queryTokens, tokenSet(ch.Content))
		scored[i] = Result{Chunk: ch, Similarity: sim, Relevance: Relevance(ch, sim)}
	}

	// A threshold above 1 matches nothing on either path.
	floor := KeywordThreshold
	if threshold > 1 {
		floor = threshold
	}
	out := rank(scored, topK, floor)
	out.Method = models.MethodFallback
	out.Degradation = reason
	return out
}

// rank averages all scores, filters by threshold, sorts stably and truncates.
func rank(scored []Result, topK int, threshold float64) *Outcome {
	out := &Outcome{}
	if len(scored) > 0 {
		var sum float64
		for _, r := range scored {
			sum += r.Similarity
		}
		out.AverageSimilarity = sum / float64(len(scored))
	}

	kept := make([]Result, 0, len(scored))
	for _, r := range scored {
		if r.Similarity >= threshold {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})
	if len(kept) > topK {
		kept = kept[:topK]
	}
	out.Results = kept
	return out
}

// majorityMethod returns the embedding method most chunks carry. Ties go to
// the method seen first.
func majorityMethod(chunks []models.Chunk) string {
	counts := make(map[string]int)
	var order []string
	for _, ch := range chunks {
		if !ch.HasEmbedding() {
			continue
		}
		m := ch.Embedding.Method
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}

	best := ""
	for _, m := range order {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}

// Cosine is dot(a,b)/(|a||b|), 0 when either norm is 0 or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Relevance adds a length bonus (up to 0.2) and a word-count bonus (up to
// 0.1) to the similarity, capped at 1. It only orders display; filtering
// uses raw similarity.
func Relevance(ch models.Chunk, similarity float64) float64 {
	lengthBonus := math.Min(float64(utf8.RuneCountInString(ch.Content))/1000, 0.2)
	wordCountBonus := math.Min(float64(ch.WordCount)/100, 0.1)
	return math.Min(similarity+lengthBonus+wordCountBonus, 1.0)
}

// KeywordOverlap is |q ∩ c| / max(|q|, |c|).
func KeywordOverlap(query, content map[string]struct{}) float64 {
	denom := len(query)
	if len(content) > denom {
		denom = len(content)
	}
	if denom == 0 {
		return 0
	}
	shared := 0
	for tok := range query {
		if _, ok := content[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(denom)
}

func tokenSet(text string) map[string]struct{} {
	tokens := embedding.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
