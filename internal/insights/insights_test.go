package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/models"
)

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"en": "The quick brown fox jumps over the lazy dog and it is very happy with the result of this test.",
		"es": "El perro corre por el parque y los niños juegan con la pelota en la tarde porque es muy divertido.",
		"fr": "Le chat dort sur le canapé et les enfants jouent dans le jardin avec leurs amis pendant que nous sommes ici.",
		"de": "Der Hund läuft durch den Park und die Kinder spielen mit dem Ball, weil es nicht regnet und sie sind sehr froh.",
		"pt": "O cachorro corre pelo parque e as crianças brincam com a bola porque não está chovendo e elas estão muito felizes.",
		"it": "Il cane corre nel parco e i bambini giocano con la palla perché non piove e sono molto felici della giornata.",
	}
	for want, text := range cases {
		assert.Equal(t, want, DetectLanguage(text), text)
	}

	assert.Equal(t, LanguageUnknown, DetectLanguage("12345 67890"))
	assert.Equal(t, LanguageUnknown, DetectLanguage(""))
	assert.Equal(t, LanguageUnknown, DetectLanguage("Kubernetes Docker"))
}

func TestTags(t *testing.T) {
	text := "Vector search uses vector embeddings. Embeddings map text to vectors. " +
		"Search quality depends on embeddings and the vector index. 2024 2024 2024."
	tags := Tags(text, 3)
	assert.Equal(t, []string{"embeddings", "vector", "search"}, tags)

	for _, tag := range Tags(text, 10) {
		assert.False(t, IsStopword(tag))
		assert.Greater(t, len(tag), 2)
		assert.NotEqual(t, "2024", tag)
	}
}

func TestTags_DefaultCount(t *testing.T) {
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	assert.Len(t, Tags(text, 0), DefaultTagCount)
}

func TestExtractiveSummary(t *testing.T) {
	text := "Retrieval systems index documents. " +
		"The weather was nice. " +
		"Retrieval systems rank documents by similarity to the query. " +
		"Lunch was served at noon. " +
		"Documents are split into chunks before retrieval."

	summary := ExtractiveSummary(text, 3)
	parts := strings.SplitAfter(summary, ". ")
	require.Len(t, parts, 3)
	assert.NotContains(t, summary, "weather")
	assert.NotContains(t, summary, "Lunch")
	assert.True(t, strings.HasPrefix(summary, "Retrieval systems index documents."), "original order kept")
}

func TestExtractiveSummary_NoSentences(t *testing.T) {
	assert.Equal(t, "just a fragment", ExtractiveSummary("  just   a fragment ", 3))
	long := strings.Repeat("y", 600)
	assert.Equal(t, strings.Repeat("y", 500)+"...", ExtractiveSummary(long, 3))
}

type fakeGen struct {
	text string
	err  error
}

func (f *fakeGen) Model() string { return "fake" }

func (f *fakeGen) Generate(context.Context, string, ai.GenerateOptions) (*ai.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResult{Text: f.text}, nil
}

func TestAnalyzer_Summarize(t *testing.T) {
	text := "Alpha beta gamma is discussed here. Nothing else matters today."

	s, method, degr := NewAnalyzer(&fakeGen{text: " A generated summary. "}, ai.GenerateOptions{}, 0, nil).Summarize(context.Background(), text)
	assert.Equal(t, "A generated summary.", s)
	assert.Equal(t, models.MethodGenerated, method)
	assert.Nil(t, degr)

	s, method, degr = NewAnalyzer(&fakeGen{err: errors.New("down")}, ai.GenerateOptions{}, 0, nil).Summarize(context.Background(), text)
	assert.Equal(t, ExtractiveSummary(text, 3), s)
	assert.Equal(t, models.MethodExtractive, method)
	require.NotNil(t, degr)
	assert.Equal(t, models.ReasonUpstreamError, degr.Reason)

	_, method, degr = NewAnalyzer(nil, ai.GenerateOptions{}, 0, nil).Summarize(context.Background(), text)
	assert.Equal(t, models.MethodExtractive, method)
	assert.Equal(t, models.ReasonNoGenerator, degr.Reason)
}

func TestAnalyzer_Analyze(t *testing.T) {
	text := "The retrieval pipeline splits documents into chunks. The chunks are embedded and stored for retrieval."
	in := NewAnalyzer(nil, ai.GenerateOptions{}, 0, nil).Analyze(context.Background(), text)
	assert.Equal(t, "en", in.Language)
	assert.Contains(t, in.Tags, "retrieval")
	assert.NotEmpty(t, in.Summary)
}
