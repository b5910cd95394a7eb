// Package extract turns PDF bytes into page-delimited plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

var (
	// ErrNoText means no method produced any text.
	ErrNoText = errors.New("extract: no text in document")
	// ErrCorruptText means text was produced but is not usable.
	ErrCorruptText = errors.New("extract: extracted text is corrupt")
	ErrTooLarge    = errors.New("extract: file too large")
)

const (
	MethodGoPDF   = "go-pdf"
	MethodPoppler = "poppler"

	goodQuality       = 0.7
	acceptableQuality = 0.3
	popplerTimeout    = 30 * time.Second
)

// Result is extracted text with pages separated by models.PageBreak.
type Result struct {
	Text         string
	Pages        int
	Method       string
	QualityScore float64
	WordCount    int
}

type Extractor struct {
	maxSize int64
	log     *slog.Logger
}

func New(maxSize int64, log *slog.Logger) *Extractor {
	return &Extractor{maxSize: maxSize, log: logger.Or(log)}
}

// ExtractFile reads path and extracts it.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if e.maxSize > 0 && stat.Size() > e.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, stat.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}
	return e.Extract(ctx, content)
}

// Extract tries each method in order and keeps the first result of good
// quality, or else the best acceptable one.
func (e *Extractor) Extract(ctx context.Context, content []byte) (*Result, error) {
	ctx, span := otel.Tracer("extract").Start(ctx, "extract.pdf")
	defer span.End()

	methods := []struct {
		name    string
		extract func(context.Context, []byte) (*Result, error)
	}{
		{MethodGoPDF, e.extractWithGoPDF},
		{MethodPoppler, e.extractWithPoppler},
	}

	var (
		lastErr error
		best    *Result
	)
	for _, m := range methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := m.extract(ctx, content)
		if err != nil {
			e.log.Debug("extraction method failed", "method", m.name, "error", err)
			lastErr = err
			continue
		}

		res.Method = m.name
		res.QualityScore = Quality(res.Text)
		res.WordCount = len(strings.Fields(res.Text))
		e.log.Info("text extracted", "method", m.name, "pages", res.Pages, "chars", len(res.Text), "quality", res.QualityScore)

		if res.QualityScore >= goodQuality {
			best = res
			break
		}
		if best == nil || res.QualityScore > best.QualityScore {
			best = res
		}
	}

	switch {
	case best == nil && lastErr != nil:
		return nil, fmt.Errorf("%w: %v", ErrNoText, lastErr)
	case best == nil:
		return nil, ErrNoText
	case best.QualityScore < acceptableQuality:
		return nil, fmt.Errorf("%w: quality %.2f", ErrCorruptText, best.QualityScore)
	}

	span.SetAttributes(
		attribute.String("extract.method", best.Method),
		attribute.Int("extract.pages", best.Pages),
		attribute.Float64("extract.quality", best.QualityScore),
	)
	return best, nil
}

func (e *Extractor) extractWithGoPDF(_ context.Context, content []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	n := reader.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			e.log.Warn("failed to extract page text", "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}

	text := JoinPages(pages)
	if strings.TrimSpace(strings.ReplaceAll(text, models.PageBreak, "")) == "" {
		return nil, ErrNoText
	}
	return &Result{Text: text, Pages: n}, nil
}

// extractWithPoppler shells out to pdftotext, which already separates pages
// with form feeds.
func (e *Extractor) extractWithPoppler(ctx context.Context, content []byte) (*Result, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available")
	}

	ctx, cancel := context.WithTimeout(ctx, popplerTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	text := strings.TrimSuffix(stdout.String(), models.PageBreak)
	if strings.TrimSpace(strings.ReplaceAll(text, models.PageBreak, "")) == "" {
		return nil, ErrNoText
	}
	return &Result{Text: text, Pages: strings.Count(text, models.PageBreak) + 1}, nil
}

// JoinPages joins page texts with the page-break marker, stripping any
// marker already inside a page.
func JoinPages(pages []string) string {
	cleaned := make([]string, len(pages))
	for i, p := range pages {
		cleaned[i] = strings.ReplaceAll(p, models.PageBreak, " ")
	}
	return strings.Join(cleaned, models.PageBreak)
}

var goodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][a-z]+\b`),
	regexp.MustCompile(`\b\d{1,3}[,.]?\d{3}\b`),
	regexp.MustCompile(`[.!?]\s+[A-Z]`),
	regexp.MustCompile(`\b(the|and|or|of|to|in|for|with|on|at|by|from)\b`),
}

// Quality scores extracted text in [0, 1] from its printable, alphanumeric
// and replacement-character ratios. Letters and digits of any script count
// as alphanumeric; only U+FFFD and control characters count as corrupt.
func Quality(text string) float64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, models.PageBreak, "\n"))
	if text == "" {
		return 0
	}
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted, total int
	for _, r := range text {
		total++
		switch {
		case r == '\uFFFD':
			corrupted++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alphanumeric++
			printable++
		case unicode.IsSpace(r):
			printable++
		case unicode.IsControl(r):
			corrupted++
		case unicode.IsPrint(r):
			printable++
		}
	}

	alphanumericRatio := float64(alphanumeric) / float64(total)
	printableRatio := float64(printable) / float64(total)
	corruptedRatio := float64(corrupted) / float64(total)

	score := printableRatio * 0.4
	if alphanumericRatio >= 0.3 {
		score += 0.3
	} else {
		score += alphanumericRatio
	}
	score -= corruptedRatio * 2.0
	if len(text) > 100 {
		score += 0.1
	}

	matched := 0
	for _, p := range goodPatterns {
		if p.MatchString(text) {
			matched++
		}
	}
	if matched >= 3 {
		score += 0.2
	}

	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
