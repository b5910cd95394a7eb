// Package chunker splits page text into overlapping, sentence-aligned chunks.
package chunker

import (
	"strings"
	"unicode/utf8"

	"pdf-rag-platform/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	// Fragments shorter than this are dropped as punctuation noise.
	minSentenceLength = 10
)

// Chunker holds the size parameters for one document's chunking run.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New returns a Chunker. Non-positive sizes fall back to the defaults and an
// overlap that is not smaller than the chunk size is clamped.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Result is the chunk sequence for a whole document plus aggregate counts.
type Result struct {
	Chunks           []models.Chunk
	PageCount        int
	TotalChunks      int
	TotalWords       int
	AverageChunkSize float64
}

// ChunkDocument splits text on the page-break marker, chunks every non-blank
// page independently and concatenates the results in page order.
func (c *Chunker) ChunkDocument(text string, pageCount int) *Result {
	pages := strings.Split(text, models.PageBreak)
	res := &Result{PageCount: pageCount}
	if len(pages) > res.PageCount {
		res.PageCount = len(pages)
	}

	totalChars := 0
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		for _, ch := range c.Chunk(page, i+1) {
			res.TotalWords += ch.WordCount
			totalChars += utf8.RuneCountInString(ch.Content)
			res.Chunks = append(res.Chunks, ch)
		}
	}

	res.TotalChunks = len(res.Chunks)
	if res.TotalChunks > 0 {
		res.AverageChunkSize = float64(totalChars) / float64(res.TotalChunks)
	}
	return res
}

// Chunk splits a single page with the Chunker's parameters.
func (c *Chunker) Chunk(pageText string, pageNumber int) []models.Chunk {
	return Chunk(pageText, pageNumber, c.chunkSize, c.overlap)
}

// Chunk greedily packs sentences of the normalized page text into chunks of
// at most chunkSize characters. Each chunk after the first starts with the
// last overlap characters of its predecessor. A sentence longer than
// chunkSize is emitted whole rather than split. Offsets and lengths are in
// runes of the normalized page text.
func Chunk(pageText string, pageNumber, chunkSize, overlap int) []models.Chunk {
	cleaned := Normalize(pageText)
	sentences := splitSentences(cleaned)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks   []models.Chunk
		buf      strings.Builder
		bufLen   int
		bufStart int
		bufEnd   int
	)

	flush := func() models.Chunk {
		content := buf.String()
		ch := models.Chunk{
			ChunkID:    models.ChunkID(pageNumber, len(chunks)),
			Content:    content,
			PageNumber: pageNumber,
			ChunkIndex: len(chunks),
			StartChar:  bufStart,
			EndChar:    bufEnd,
			WordCount:  CountWords(content),
		}
		chunks = append(chunks, ch)
		buf.Reset()
		bufLen = 0
		return ch
	}

	for _, s := range sentences {
		sLen := utf8.RuneCountInString(s.text)
		if bufLen == 0 {
			buf.WriteString(s.text)
			bufLen = sLen
			bufStart, bufEnd = s.start, s.end
			continue
		}
		if bufLen+1+sLen <= chunkSize {
			buf.WriteByte(' ')
			buf.WriteString(s.text)
			bufLen += 1 + sLen
			bufEnd = s.end
			continue
		}

		prev := flush()
		tail := ""
		if overlap > 0 {
			tail = tailRunes(prev.Content, overlap)
		}
		if tail != "" {
			tailLen := utf8.RuneCountInString(tail)
			buf.WriteString(tail)
			buf.WriteByte(' ')
			buf.WriteString(s.text)
			bufLen = tailLen + 1 + sLen
			bufStart = prev.EndChar - tailLen
			if bufStart < prev.StartChar {
				bufStart = prev.StartChar
			}
		} else {
			buf.WriteString(s.text)
			bufLen = sLen
			bufStart = s.start
		}
		bufEnd = s.end
	}

	if bufLen > 0 {
		flush()
	}
	return chunks
}

// Normalize collapses whitespace runs to single spaces and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

type sentence struct {
	text       string
	start, end int
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences cuts normalized text after each run of terminal
// punctuation. Trailing text without terminal punctuation forms a final
// sentence.
func splitSentences(text string) []sentence {
	runes := []rune(text)
	var out []sentence

	emit := func(s, e int) {
		for s < e && runes[s] == ' ' {
			s++
		}
		for e > s && runes[e-1] == ' ' {
			e--
		}
		if e-s >= minSentenceLength {
			out = append(out, sentence{text: string(runes[s:e]), start: s, end: e})
		}
	}

	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isTerminal(runes[j]) {
			j++
		}
		emit(start, j)
		start = j
		i = j - 1
	}
	if start < len(runes) {
		emit(start, len(runes))
	}
	return out
}

// tailRunes returns the last n runes of s without leading spaces.
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return strings.TrimLeft(string(runes), " ")
}
