package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jaeyoon0415/convgate/services"
)

// ChatHandler binds the HTTP surface to the conversation service. Failure
// detail never reaches the caller; responses carry only the stable class.
type ChatHandler struct {
	conversations *services.ConversationService
	logger        *zap.SugaredLogger
}

func NewChatHandler(conversations *services.ConversationService, logger *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{conversations: conversations, logger: logger}
}

func (h *ChatHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/generate_ai_response", h.HandleGenerate)
	router.GET("/conversations", h.HandleConversations)
}

type generatePayload struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	Prompt    string `json:"prompt" binding:"required"`
}

func (h *ChatHandler) HandleGenerate(c *gin.Context) {
	var payload generatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, session_id and prompt are required"})
		return
	}

	text, err := h.conversations.GenerateResponse(c.Request.Context(), payload.UserID, payload.SessionID, payload.Prompt)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": text})
}

func (h *ChatHandler) HandleConversations(c *gin.Context) {
	userID := c.Query("user_id")
	sessionID := c.Query("session_id")
	if userID == "" || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and session_id are required"})
		return
	}

	turns, err := h.conversations.History(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(turns))
	for _, turn := range turns {
		items = append(items, gin.H{
			"id":         turn.ID,
			"prompt":     turn.Prompt,
			"response":   turn.Response,
			"created_at": turn.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"turns": items})
}

func (h *ChatHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, session_id and prompt are required"})
	case errors.Is(err, services.ErrAIUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI service not available"})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "conversation store not available"})
	default:
		h.logger.Errorw("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
