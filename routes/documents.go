package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pdf-rag-platform/models"
	"pdf-rag-platform/utils"
)

func SetupDocumentRoutes(api *gin.RouterGroup, h *Handlers) {
	docs := api.Group("/documents")
	docs.POST("", h.uploadDocument)
	docs.GET("", h.listDocuments)
	docs.GET("/:id", h.getDocument)
}

func (h *Handlers) uploadDocument(c *gin.Context) {
	if h.MaxUploadSize > 0 {
		// Multipart framing needs a little room on top of the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize+1<<20)
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithBadRequest(c, "A PDF file is required in the 'file' field", gin.H{"error": err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.RespondWithBadRequest(c, "Uploaded file could not be read", nil)
		return
	}
	defer file.Close()

	res, err := h.Documents.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	msg := "Document uploaded, processing started"
	status := http.StatusAccepted
	if res.Duplicate {
		msg = "Document already processed"
		status = http.StatusOK
	}
	c.JSON(status, models.UploadResponse{
		ID:       res.Document.ID.Hex(),
		Filename: res.Document.OriginalName,
		Status:   res.Document.Status,
		TaskID:   res.TaskID,
		Message:  msg,
	})
}

func (h *Handlers) getDocument(c *gin.Context) {
	doc, err := h.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handlers) listDocuments(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > 500 {
		utils.RespondWithBadRequest(c, "limit must be between 1 and 500", nil)
		return
	}
	docs, err := h.Documents.List(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}
