package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/storage"
	"pdf-rag-platform/models"
	"pdf-rag-platform/services"
	"pdf-rag-platform/utils"
)

// DocumentService is the upload and status surface used by the handlers.
type DocumentService interface {
	Upload(ctx context.Context, originalName string, r io.Reader) (*services.UploadResult, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, limit int64) ([]models.Document, error)
}

// QAService answers questions and returns chat history.
type QAService interface {
	Ask(ctx context.Context, req models.QuestionRequest) (*models.AnswerResponse, error)
	History(ctx context.Context, conversationID string) ([]models.ChatRecord, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	Documents     DocumentService
	QA            QAService
	Checks        map[string]HealthCheck
	MaxUploadSize int64
	Log           *slog.Logger
}

// Setup registers every route on router.
func Setup(router *gin.Engine, h *Handlers) {
	if h.Log == nil {
		h.Log = logger.Or(nil)
	}
	router.GET("/health", h.health)

	api := router.Group("/api")
	SetupDocumentRoutes(api, h)
	SetupChatRoutes(api, h)
}

func (h *Handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks, "timestamp": time.Now()})
}

// respondError maps service errors onto the JSON error envelope.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidID):
		utils.RespondWithError(c, http.StatusBadRequest, "invalid_id", "Invalid document ID format", nil)
	case errors.Is(err, services.ErrEmptyQuestion):
		utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", "Question must not be empty", nil)
	case errors.Is(err, services.ErrInvalidFile):
		utils.RespondWithError(c, http.StatusBadRequest, "invalid_file", err.Error(), nil)
	case errors.Is(err, services.ErrFileTooLarge):
		utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), nil)
	case errors.Is(err, storage.ErrNotFound):
		utils.RespondWithNotFound(c, "Document not found")
	case errors.Is(err, services.ErrDocumentNotReady):
		utils.RespondWithConflict(c, "document_not_ready", err.Error())
	default:
		h.Log.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		utils.RespondWithInternalError(c, "Internal server error", nil)
	}
}
