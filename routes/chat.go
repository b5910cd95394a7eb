package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-rag-platform/models"
	"pdf-rag-platform/utils"
)

func SetupChatRoutes(api *gin.RouterGroup, h *Handlers) {
	chat := api.Group("/chat")
	chat.POST("", h.ask)
	chat.GET("/:conversationId", h.history)
}

func (h *Handlers) ask(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", "Invalid request data", gin.H{"error": err.Error()})
		return
	}

	resp, err := h.QA.Ask(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) history(c *gin.Context) {
	records, err := h.QA.History(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": c.Param("conversationId"), "messages": records})
}
