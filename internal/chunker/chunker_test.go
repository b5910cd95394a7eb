package chunker

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag-platform/models"
)

func repeatedSentence(letter byte, length int) string {
	return strings.Repeat(string(letter), length-1) + "."
}

func TestChunk_TwoShortSentences(t *testing.T) {
	chunks := Chunk("This is a test. It has two sentences.", 1, 1000, 0)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "This is a test. It has two sentences.", ch.Content)
	assert.Equal(t, 8, ch.WordCount)
	assert.Equal(t, 1, ch.PageNumber)
	assert.Equal(t, 0, ch.ChunkIndex)
	assert.Equal(t, "p1-c0", ch.ChunkID)
	assert.Equal(t, 0, ch.StartChar)
	assert.Equal(t, 37, ch.EndChar)
}

func TestChunk_OverlapCarriesTailOfPreviousChunk(t *testing.T) {
	s1 := repeatedSentence('a', 400)
	s2 := repeatedSentence('b', 400)
	chunks := Chunk(s1+" "+s2, 1, 500, 200)
	require.Len(t, chunks, 2)

	tail := s1[len(s1)-200:]
	assert.Equal(t, s1, chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, tail), "second chunk must start with the overlap slice")
	assert.True(t, strings.HasSuffix(chunks[1].Content, s2))
	assert.Equal(t, chunks[0].EndChar-200, chunks[1].StartChar)
}

func TestChunk_ThreeLongSentences(t *testing.T) {
	s1 := repeatedSentence('a', 400)
	s2 := repeatedSentence('b', 400)
	s3 := repeatedSentence('c', 400)
	chunks := Chunk(strings.Join([]string{s1, s2, s3}, " "), 1, 500, 200)

	// No two 400-character sentences fit in 500, so each becomes its own chunk.
	require.Len(t, chunks, 3)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		assert.True(t, strings.HasPrefix(chunks[i].Content, prev[len(prev)-200:]))
	}
}

func TestChunk_ThreeLongSentencesDefaultSize(t *testing.T) {
	s1 := repeatedSentence('a', 400)
	s2 := repeatedSentence('b', 400)
	s3 := repeatedSentence('c', 400)
	chunks := Chunk(strings.Join([]string{s1, s2, s3}, " "), 1, 1000, 200)

	require.Len(t, chunks, 2)
	assert.Equal(t, s1+" "+s2, chunks[0].Content)
	assert.Equal(t, s2[len(s2)-200:]+" "+s3, chunks[1].Content)
	assert.Equal(t, chunks[0].EndChar-200, chunks[1].StartChar)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestChunk_WithoutOverlapStartsWithSentence(t *testing.T) {
	s1 := repeatedSentence('a', 400)
	s2 := repeatedSentence('b', 400)
	chunks := Chunk(s1+" "+s2, 1, 500, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, s2, chunks[1].Content)
	assert.Equal(t, 401, chunks[1].StartChar)
}

func TestChunk_LongSentenceIsNotSplit(t *testing.T) {
	long := repeatedSentence('z', 1500)
	chunks := Chunk("Short intro sentence here. "+long, 2, 1000, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Short intro sentence here.", chunks[0].Content)
	assert.True(t, strings.HasSuffix(chunks[1].Content, long))
	assert.Greater(t, len(chunks[1].Content), 1000)
}

func TestChunk_NoUsableSentences(t *testing.T) {
	assert.Empty(t, Chunk("Hi. Ok. No!", 1, 1000, 200))
	assert.Empty(t, Chunk("   \n\t  ", 1, 1000, 200))
}

func TestChunk_NormalizesWhitespace(t *testing.T) {
	chunks := Chunk("  First   sentence\n\nis here.\tSecond\tone is here too.  ", 1, 1000, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "First sentence is here. Second one is here too.", chunks[0].Content)
}

func TestChunk_TrailingTextWithoutPunctuation(t *testing.T) {
	chunks := Chunk("A complete sentence. And a trailing fragment without end", 1, 1000, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A complete sentence. And a trailing fragment without end", chunks[0].Content)
}

func TestChunk_Idempotent(t *testing.T) {
	text := randomText(rand.New(rand.NewSource(7)), 120)
	first := Chunk(text, 4, 300, 60)
	second := Chunk(text, 4, 300, 60)
	assert.Equal(t, first, second)
}

func TestChunk_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 50; iter++ {
		text := randomText(rng, 20+rng.Intn(200))
		size := 80 + rng.Intn(400)
		overlap := rng.Intn(size / 2)

		chunks := Chunk(text, 1, size, overlap)
		for i, ch := range chunks {
			assert.Equal(t, i, ch.ChunkIndex, "chunk indexes must be contiguous")
			assert.Greater(t, ch.EndChar, ch.StartChar)
			assert.NotEmpty(t, ch.Content)
			assert.Equal(t, strings.TrimSpace(ch.Content), ch.Content)
			assert.Equal(t, len(strings.Fields(ch.Content)), ch.WordCount)
			if i > 0 {
				prev := chunks[i-1]
				assert.GreaterOrEqual(t, ch.StartChar, prev.StartChar)
				assert.LessOrEqual(t, prev.EndChar-ch.StartChar, overlap, "overlap exceeds configured length")
			}
		}
	}
}

func TestChunkDocument(t *testing.T) {
	text := "Page one has a sentence. It has another sentence." + models.PageBreak +
		"   " + models.PageBreak +
		"Third page content is here. Nothing else."

	c := New(1000, 200)
	res := c.ChunkDocument(text, 3)
	require.Len(t, res.Chunks, 2)

	assert.Equal(t, 1, res.Chunks[0].PageNumber)
	assert.Equal(t, 3, res.Chunks[1].PageNumber, "blank pages keep their page number slot")
	assert.Equal(t, 0, res.Chunks[1].ChunkIndex)
	assert.Equal(t, 2, res.TotalChunks)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, res.Chunks[0].WordCount+res.Chunks[1].WordCount, res.TotalWords)

	expected := float64(len(res.Chunks[0].Content)+len(res.Chunks[1].Content)) / 2
	assert.InDelta(t, expected, res.AverageChunkSize, 1e-9)
}

func TestChunkDocument_EmptyHasZeroAverage(t *testing.T) {
	res := New(1000, 200).ChunkDocument("tiny." + models.PageBreak + "", 2)
	assert.Equal(t, 0, res.TotalChunks)
	assert.False(t, math.IsNaN(res.AverageChunkSize))
	assert.Zero(t, res.AverageChunkSize)
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, -5)
	assert.Equal(t, DefaultChunkSize, c.ChunkSize())
	assert.Equal(t, 0, c.Overlap())

	c = New(100, 150)
	assert.Less(t, c.Overlap(), c.ChunkSize())
}

var words = []string{"machine", "learning", "model", "data", "vector", "the", "system", "retrieval", "document", "page", "a", "of", "answer"}

func randomText(rng *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(words[rng.Intn(len(words))])
		switch rng.Intn(9) {
		case 0:
			b.WriteString(". ")
		case 1:
			b.WriteString("? ")
		case 2:
			b.WriteString("!\n")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()
}
