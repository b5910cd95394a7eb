package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/answer"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/internal/similarity"
	"pdf-rag-platform/internal/storage"
	"pdf-rag-platform/models"
)

type memDocs struct {
	byID map[primitive.ObjectID]*models.Document
	err  error
}

func newMemDocs() *memDocs {
	return &memDocs{byID: map[primitive.ObjectID]*models.Document{}}
}

func (m *memDocs) Create(ctx context.Context, doc *models.Document) error {
	if m.err != nil {
		return m.err
	}
	doc.ID = primitive.NewObjectID()
	doc.UploadedAt = time.Now()
	cp := *doc
	m.byID[doc.ID] = &cp
	return nil
}

func (m *memDocs) Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	doc, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memDocs) FindByHash(ctx context.Context, hash string) (*models.Document, error) {
	for _, d := range m.byID {
		if d.FileHash == hash && d.Status == models.StatusCompleted {
			cp := *d
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memDocs) List(ctx context.Context, limit int64) ([]models.Document, error) {
	out := []models.Document{}
	for _, d := range m.byID {
		out = append(out, *d)
	}
	return out, nil
}

type fakeQueue struct {
	ids []string
	err error
}

func (q *fakeQueue) EnqueueProcess(ctx context.Context, id string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.ids = append(q.ids, id)
	return "task-1", nil
}

type fakeFileProcessor struct {
	docs []primitive.ObjectID
}

func (f *fakeFileProcessor) ProcessFile(ctx context.Context, doc *models.Document) (*pipeline.Outcome, error) {
	f.docs = append(f.docs, doc.ID)
	return &pipeline.Outcome{}, nil
}

func samplePDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n")
}

func newFileStore(t *testing.T, max int64) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), max)
	require.NoError(t, err)
	return fs
}

func TestFileStore_Store(t *testing.T) {
	fs := newFileStore(t, 1024)

	stored, err := fs.Store(bytes.NewReader(samplePDF()), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(len(samplePDF())), stored.Size)
	assert.Len(t, stored.Hash, 64)
	assert.True(t, strings.HasSuffix(stored.SecureName, ".pdf"))
	_, err = os.Stat(stored.Path)
	assert.NoError(t, err)

	again, err := fs.Store(bytes.NewReader(samplePDF()), "copy.pdf")
	require.NoError(t, err)
	assert.Equal(t, stored.Hash, again.Hash)
	assert.NotEqual(t, stored.Path, again.Path)

	require.NoError(t, fs.Remove(stored.Path))
	require.NoError(t, fs.Remove(stored.Path))
}

func TestFileStore_Rejects(t *testing.T) {
	fs := newFileStore(t, 16)

	_, err := fs.Store(strings.NewReader("hello world"), "notes.pdf")
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = fs.Store(strings.NewReader(""), "empty.pdf")
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = fs.Store(bytes.NewReader(samplePDF()), "big.pdf")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// Nothing is left behind in the temp directory.
	entries, err := os.ReadDir(fs.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("Annual Report.PDF"))
	for _, name := range []string{"", "../etc/passwd.pdf", "notes.txt", "a|b.pdf", strings.Repeat("a", 256) + ".pdf"} {
		assert.ErrorIs(t, ValidateFilename(name), ErrInvalidFile, name)
	}
}

func TestUpload_Enqueues(t *testing.T) {
	docs := newMemDocs()
	q := &fakeQueue{}
	svc := NewDocumentService(docs, newFileStore(t, 0), q, nil, nil)

	res, err := svc.Upload(context.Background(), "report.pdf", bytes.NewReader(samplePDF()))
	require.NoError(t, err)
	assert.Equal(t, "task-1", res.TaskID)
	assert.False(t, res.Duplicate)
	assert.Equal(t, models.StatusUploading, res.Document.Status)
	assert.Equal(t, "report.pdf", res.Document.OriginalName)
	assert.Equal(t, []string{res.Document.ID.Hex()}, q.ids)
}

func TestUpload_InlineWhenQueueFails(t *testing.T) {
	docs := newMemDocs()
	proc := &fakeFileProcessor{}
	svc := NewDocumentService(docs, newFileStore(t, 0), &fakeQueue{err: errors.New("redis down")}, proc, nil)
	svc.spawn = func(f func()) { f() }

	res, err := svc.Upload(context.Background(), "report.pdf", bytes.NewReader(samplePDF()))
	require.NoError(t, err)
	assert.Empty(t, res.TaskID)
	assert.Equal(t, []primitive.ObjectID{res.Document.ID}, proc.docs)
}

func TestUpload_Duplicate(t *testing.T) {
	docs := newMemDocs()
	fs := newFileStore(t, 0)
	svc := NewDocumentService(docs, fs, &fakeQueue{}, nil, nil)

	first, err := svc.Upload(context.Background(), "a.pdf", bytes.NewReader(samplePDF()))
	require.NoError(t, err)
	docs.byID[first.Document.ID].Status = models.StatusCompleted

	second, err := svc.Upload(context.Background(), "b.pdf", bytes.NewReader(samplePDF()))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Document.ID, second.Document.ID)

	entries, err := os.ReadDir(fs.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpload_CreateFailureRemovesFile(t *testing.T) {
	docs := newMemDocs()
	docs.err = errors.New("write failed")
	fs := newFileStore(t, 0)
	svc := NewDocumentService(docs, fs, nil, nil, nil)

	_, err := svc.Upload(context.Background(), "a.pdf", bytes.NewReader(samplePDF()))
	require.Error(t, err)

	entries, err := os.ReadDir(fs.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDocumentService_Get(t *testing.T) {
	svc := NewDocumentService(newMemDocs(), nil, nil, nil, nil)
	_, err := svc.Get(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = svc.Get(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

type memChunks struct {
	chunks []models.Chunk
	calls  int
}

func (m *memChunks) ListByDocument(ctx context.Context, id primitive.ObjectID) ([]models.Chunk, error) {
	m.calls++
	return m.chunks, nil
}

type memCache struct {
	data map[string][]models.Chunk
}

func (m *memCache) Get(ctx context.Context, id string) ([]models.Chunk, bool) {
	c, ok := m.data[id]
	return c, ok
}

func (m *memCache) Set(ctx context.Context, id string, chunks []models.Chunk) error {
	m.data[id] = chunks
	return nil
}

type memChats struct {
	records []models.ChatRecord
	err     error
}

func (m *memChats) Insert(ctx context.Context, rec *models.ChatRecord) error {
	if m.err != nil {
		return m.err
	}
	rec.ID = primitive.NewObjectID()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memChats) ListByConversation(ctx context.Context, id string) ([]models.ChatRecord, error) {
	out := []models.ChatRecord{}
	for _, r := range m.records {
		if r.ConversationID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

type qaFixture struct {
	svc    *QAService
	docs   *memDocs
	chunks *memChunks
	chats  *memChats
	docID  primitive.ObjectID
}

func newQAFixture(t *testing.T, status models.DocumentStatus) *qaFixture {
	t.Helper()
	docs := newMemDocs()
	doc := &models.Document{OriginalName: "ml.pdf", Status: status, PageCount: 2}
	require.NoError(t, docs.Create(context.Background(), doc))

	chunks := &memChunks{chunks: []models.Chunk{
		{ChunkID: "p1-c0", PageNumber: 1, Content: "Machine learning models learn patterns from data.", WordCount: 7},
		{ChunkID: "p2-c0", PageNumber: 2, Content: "Cooking pasta requires boiling salted water.", WordCount: 6},
	}}
	chats := &memChats{}
	svc := NewQAService(docs, chunks, chats,
		similarity.NewEngine(nil, nil),
		answer.NewComposer(nil, answer.Options{}, nil),
		QAOptions{TopK: 5, Threshold: 0.7}, nil)
	return &qaFixture{svc: svc, docs: docs, chunks: chunks, chats: chats, docID: doc.ID}
}

func TestAsk_ExtractiveAnswer(t *testing.T) {
	f := newQAFixture(t, models.StatusCompleted)

	resp, err := f.svc.Ask(context.Background(), models.QuestionRequest{
		DocumentID: f.docID.Hex(),
		Question:   "  what do machine learning models learn?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, ai.ModelExtractive, resp.Model)
	assert.Equal(t, models.MethodFallback, resp.Context.RetrievalMethod)
	assert.Equal(t, models.MethodExtractive, resp.Context.AnswerMethod)
	assert.Contains(t, resp.Answer, "Machine learning")
	assert.NotEmpty(t, resp.ConversationID)
	assert.NotEmpty(t, resp.MessageID)

	require.Len(t, f.chats.records, 1)
	rec := f.chats.records[0]
	assert.Equal(t, "what do machine learning models learn?", rec.Question)
	assert.Equal(t, f.docID, rec.DocumentID)
	assert.Positive(t, rec.PromptTokens)
	assert.Positive(t, rec.CompletionTokens)

	history, err := f.svc.History(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAsk_UsesCache(t *testing.T) {
	f := newQAFixture(t, models.StatusCompleted)
	cache := &memCache{data: map[string][]models.Chunk{}}
	f.svc.Cache = cache

	req := models.QuestionRequest{DocumentID: f.docID.Hex(), Question: "machine learning", ConversationID: "conv-1"}
	_, err := f.svc.Ask(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.Ask(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.chunks.calls)
	assert.Len(t, cache.data[f.docID.Hex()], 2)
	assert.Len(t, f.chats.records, 2)
	assert.Equal(t, "conv-1", f.chats.records[1].ConversationID)
}

func TestAsk_Errors(t *testing.T) {
	f := newQAFixture(t, models.StatusEmbedding)
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, models.QuestionRequest{DocumentID: f.docID.Hex(), Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = f.svc.Ask(ctx, models.QuestionRequest{DocumentID: "bad", Question: "q"})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = f.svc.Ask(ctx, models.QuestionRequest{DocumentID: primitive.NewObjectID().Hex(), Question: "q"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.Ask(ctx, models.QuestionRequest{DocumentID: f.docID.Hex(), Question: "q"})
	assert.ErrorIs(t, err, ErrDocumentNotReady)
}

func TestAsk_ChatSaveFailureStillAnswers(t *testing.T) {
	f := newQAFixture(t, models.StatusCompleted)
	f.chats.err = errors.New("mongo down")

	resp, err := f.svc.Ask(context.Background(), models.QuestionRequest{DocumentID: f.docID.Hex(), Question: "pasta water"})
	require.NoError(t, err)
	assert.Empty(t, resp.MessageID)
	assert.NotEmpty(t, resp.Answer)
}

func TestAsk_NoChunks(t *testing.T) {
	f := newQAFixture(t, models.StatusCompleted)
	f.chunks.chunks = nil

	resp, err := f.svc.Ask(context.Background(), models.QuestionRequest{DocumentID: f.docID.Hex(), Question: "anything"})
	require.NoError(t, err)
	assert.Equal(t, answer.NoRelevantInfoMessage, resp.Answer)
	assert.Zero(t, resp.Context.TotalChunksRetrieved)
}
