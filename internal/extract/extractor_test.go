package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag-platform/models"
)

const englishPage = "The retrieval pipeline splits each document into chunks. " +
	"Every chunk is embedded and stored with its page number, so answers can cite 1,250 sources."

func TestQuality(t *testing.T) {
	assert.GreaterOrEqual(t, Quality(englishPage), 0.7)
	assert.GreaterOrEqual(t, Quality("Le résumé du crédit était très élevé. Voilà le chiffre."), 0.3)
	assert.GreaterOrEqual(t, Quality(strings.Repeat("Система делит каждый документ на фрагменты. ", 4)), 0.7)
	assert.GreaterOrEqual(t, Quality(strings.Repeat("Το σύστημα χωρίζει κάθε έγγραφο σε κομμάτια. ", 4)), 0.7)
	assert.GreaterOrEqual(t, Quality(strings.Repeat("检索系统把每个文档分成多个片段。", 4)), 0.7)
	assert.Less(t, Quality(strings.Repeat("Текст\u0003\u0004\u0005\u0006", 20)), 0.3)

	assert.Zero(t, Quality(""))
	assert.Zero(t, Quality("   \f  "))
	assert.Equal(t, 0.1, Quality("short"))
	assert.Less(t, Quality(strings.Repeat("\uFFFD\u0001", 40)), 0.3)
}

func TestJoinPages(t *testing.T) {
	text := JoinPages([]string{"page one", "", "page\fthree"})
	assert.Equal(t, "page one"+models.PageBreak+models.PageBreak+"page three", text)
	assert.Len(t, strings.Split(text, models.PageBreak), 3)
}

func TestExtract_InvalidPDF(t *testing.T) {
	_, err := New(0, nil).Extract(context.Background(), []byte("this is not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pdf")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o600))

	_, err := New(1024, nil).ExtractFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractFile_Missing(t *testing.T) {
	_, err := New(0, nil).ExtractFile(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}
