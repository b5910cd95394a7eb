// Package pipeline runs a document through extraction, chunking, embedding
// and insight extraction, recording each status transition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/chunker"
	"pdf-rag-platform/internal/embedding"
	"pdf-rag-platform/internal/extract"
	"pdf-rag-platform/internal/insights"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

var ErrInvalidTransition = errors.New("pipeline: invalid status transition")

// Store persists pipeline progress and output.
type Store interface {
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DocumentStatus, errMsg string) error
	ReplaceChunks(ctx context.Context, id primitive.ObjectID, chunks []models.Chunk) error
	SaveResults(ctx context.Context, id primitive.ObjectID, res *Results) error
}

// Extractor reads a stored upload into page-delimited text.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (*extract.Result, error)
}

// Invalidator drops cached chunk sets for a document.
type Invalidator interface {
	Invalidate(ctx context.Context, documentID string) error
}

// Recorder receives pipeline metrics.
type Recorder interface {
	RecordDocumentProcessed(status string, seconds float64)
	RecordEmbeddingBatches(method string, embedded, failedBatches int)
	RecordDegradation(component, reason string)
}

// Results are the fields written to the document on success.
type Results struct {
	PageCount int
	Summary   string
	Tags      []string
	Language  string
	Metadata  models.ProcessingMetadata
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Batch        embedding.BatchOptions
}

type Processor struct {
	store     Store
	extractor Extractor
	backend   *embedding.Backend
	analyzer  *insights.Analyzer
	opts      Options

	// Cache and Metrics are optional.
	Cache   Invalidator
	Metrics Recorder

	log *slog.Logger
}

func NewProcessor(store Store, extractor Extractor, backend *embedding.Backend, analyzer *insights.Analyzer, opts Options, log *slog.Logger) *Processor {
	if analyzer == nil {
		analyzer = insights.NewAnalyzer(nil, ai.GenerateOptions{}, 0, log)
	}
	return &Processor{
		store:     store,
		extractor: extractor,
		backend:   backend,
		analyzer:  analyzer,
		opts:      opts,
		log:       logger.Or(log),
	}
}

// Outcome describes a completed run.
type Outcome struct {
	Results      *Results
	Degradations []models.Degradation
}

// ProcessFile extracts doc's stored file and processes the text.
func (p *Processor) ProcessFile(ctx context.Context, doc *models.Document) (*Outcome, error) {
	start := time.Now()
	if err := p.advance(ctx, doc, models.StatusProcessing); err != nil {
		return nil, err
	}

	res, err := p.extractor.ExtractFile(ctx, doc.FilePath)
	if err != nil {
		return nil, p.fail(ctx, doc, start, fmt.Errorf("extract text: %w", err))
	}
	return p.process(ctx, doc, res.Text, res.Pages, start)
}

// Process runs the pipeline over already extracted text. Pages in text are
// separated by models.PageBreak.
func (p *Processor) Process(ctx context.Context, doc *models.Document, text string, pageCount int) (*Outcome, error) {
	start := time.Now()
	if doc.Status == models.StatusUploading {
		if err := p.advance(ctx, doc, models.StatusProcessing); err != nil {
			return nil, err
		}
	}
	return p.process(ctx, doc, text, pageCount, start)
}

func (p *Processor) process(ctx context.Context, doc *models.Document, text string, pageCount int, start time.Time) (*Outcome, error) {
	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline.process")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", doc.ID.Hex()))

	if strings.TrimSpace(strings.ReplaceAll(text, models.PageBreak, "")) == "" {
		return nil, p.fail(ctx, doc, start, extract.ErrNoText)
	}
	if extract.Quality(text) < 0.3 {
		return nil, p.fail(ctx, doc, start, extract.ErrCorruptText)
	}

	if err := p.advance(ctx, doc, models.StatusChunking); err != nil {
		return nil, p.fail(ctx, doc, start, err)
	}
	ck := chunker.New(p.opts.ChunkSize, p.opts.ChunkOverlap)
	chunked := ck.ChunkDocument(text, pageCount)
	for i := range chunked.Chunks {
		chunked.Chunks[i].DocumentID = doc.ID
	}
	p.log.Info("document chunked",
		"document_id", doc.ID.Hex(),
		"pages", chunked.PageCount,
		"chunks", chunked.TotalChunks,
		"words", chunked.TotalWords,
	)

	if err := p.advance(ctx, doc, models.StatusEmbedding); err != nil {
		return nil, p.fail(ctx, doc, start, err)
	}
	embedded, degradations := p.embed(ctx, chunked.Chunks)
	if err := p.store.ReplaceChunks(ctx, doc.ID, chunked.Chunks); err != nil {
		return nil, p.fail(ctx, doc, start, fmt.Errorf("save chunks: %w", err))
	}
	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, doc.ID.Hex()); err != nil {
			p.log.Warn("chunk cache invalidation failed", "document_id", doc.ID.Hex(), "error", err)
		}
	}

	plain := strings.ReplaceAll(text, models.PageBreak, "\n")
	in := p.analyzer.Analyze(ctx, plain)
	if in.Degradation != nil {
		degradations = append(degradations, *in.Degradation)
		p.recordDegradation("summary", in.Degradation.Reason)
	}

	results := &Results{
		PageCount: chunked.PageCount,
		Summary:   in.Summary,
		Tags:      in.Tags,
		Language:  in.Language,
		Metadata: models.ProcessingMetadata{
			TotalChunks:      chunked.TotalChunks,
			TotalTokens:      ai.EstimateTokens(plain),
			TotalWords:       chunked.TotalWords,
			AverageChunkSize: chunked.AverageChunkSize,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			EmbeddingModel:   embeddingModel(chunked.Chunks, p.backend),
			EmbeddedChunks:   embedded,
			ChunkSize:        ck.ChunkSize(),
			ChunkOverlap:     ck.Overlap(),
		},
	}
	if err := p.store.SaveResults(ctx, doc.ID, results); err != nil {
		return nil, p.fail(ctx, doc, start, fmt.Errorf("save results: %w", err))
	}
	if err := p.advance(ctx, doc, models.StatusCompleted); err != nil {
		return nil, p.fail(ctx, doc, start, err)
	}

	applyResults(doc, results)
	if p.Metrics != nil {
		p.Metrics.RecordDocumentProcessed(string(models.StatusCompleted), time.Since(start).Seconds())
	}
	p.log.Info("document processed",
		"document_id", doc.ID.Hex(),
		"chunks", results.Metadata.TotalChunks,
		"embedded", embedded,
		"embedding_model", results.Metadata.EmbeddingModel,
		"duration_ms", results.Metadata.ProcessingTimeMs,
	)
	return &Outcome{Results: results, Degradations: degradations}, nil
}

// embed attaches vectors to chunks in place and returns how many got one.
// The local backend embeds the whole document as one batch so every TF-IDF
// vector shares a vocabulary.
func (p *Processor) embed(ctx context.Context, chunks []models.Chunk) (int, []models.Degradation) {
	if len(chunks) == 0 || p.backend == nil {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	opts := p.opts.Batch
	if p.backend.Local() {
		opts.Size = len(texts)
		opts.Delay = 0
	}
	if opts.Log == nil {
		opts.Log = p.log
	}

	out := embedding.EmbedInBatches(ctx, p.backend.Embedder, texts, opts)
	for i, e := range out.Embeddings {
		chunks[i].Embedding = e
	}
	for _, d := range out.Degradations {
		p.recordDegradation("embedding", d.Reason)
	}
	if p.Metrics != nil {
		p.Metrics.RecordEmbeddingBatches(p.backend.Embedder.Method(), out.Embedded, out.FailedBatches)
	}
	return out.Embedded, out.Degradations
}

func (p *Processor) recordDegradation(component string, reason models.DegradeReason) {
	if p.Metrics != nil {
		p.Metrics.RecordDegradation(component, string(reason))
	}
}

func (p *Processor) advance(ctx context.Context, doc *models.Document, next models.DocumentStatus) error {
	if !doc.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, next)
	}
	if err := p.store.UpdateStatus(ctx, doc.ID, next, ""); err != nil {
		return fmt.Errorf("update status to %s: %w", next, err)
	}
	doc.Status = next
	doc.Progress = next.Progress()
	return nil
}

// fail records the terminal failed state and returns cause. A document that
// is already terminal is left untouched.
func (p *Processor) fail(ctx context.Context, doc *models.Document, start time.Time, cause error) error {
	p.log.Error("document processing failed", "document_id", doc.ID.Hex(), "status", doc.Status, "error", cause)
	if p.Metrics != nil {
		p.Metrics.RecordDocumentProcessed(string(models.StatusFailed), time.Since(start).Seconds())
	}
	if !doc.Status.CanTransition(models.StatusFailed) {
		return cause
	}

	// Record the failure even if the caller's context is gone.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.store.UpdateStatus(storeCtx, doc.ID, models.StatusFailed, cause.Error()); err != nil {
		p.log.Error("failed to record document failure", "document_id", doc.ID.Hex(), "error", err)
		return cause
	}
	doc.Status = models.StatusFailed
	doc.ErrorMessage = cause.Error()
	return cause
}

// embeddingModel reports the method most chunks were embedded with, or the
// backend's model when none were.
func embeddingModel(chunks []models.Chunk, backend *embedding.Backend) string {
	counts := map[string]int{}
	best := ""
	for i := range chunks {
		if !chunks[i].HasEmbedding() {
			continue
		}
		m := chunks[i].Embedding.Method
		counts[m]++
		if counts[m] > counts[best] {
			best = m
		}
	}
	if best == "" && backend != nil {
		return backend.EmbeddingModel
	}
	return best
}

func applyResults(doc *models.Document, r *Results) {
	now := time.Now()
	doc.PageCount = r.PageCount
	doc.Summary = r.Summary
	doc.Tags = r.Tags
	doc.Language = r.Language
	doc.Metadata = r.Metadata
	doc.ProcessedAt = &now
	doc.UpdatedAt = now
}
