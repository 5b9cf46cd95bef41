package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"seochat/internal/app"
	"seochat/internal/model"
	"seochat/internal/transport/http/middleware"
	"seochat/internal/transport/http/response"
)

type ChatHandler struct {
	chats *app.ChatService
}

type WidgetChatRequest struct {
	EmbedKey string              `json:"embed_key" binding:"required"`
	Messages []model.ChatMessage `json:"messages" binding:"required"`
}

func NewChatHandler(chats *app.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// List returns the caller's transcripts newest first.
func (h *ChatHandler) List(c *gin.Context) {
	profile, ok := middleware.GetProfile(c)
	if !ok {
		response.Error(c, app.ErrSessionInvalid)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	chats, err := h.chats.ListForProfile(c.Request.Context(), profile, c.Query("client_id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"chats": chats})
}

func (h *ChatHandler) Reply(c *gin.Context) {
	var req WidgetChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}

	result, err := h.chats.Reply(c.Request.Context(), app.ReplyInput{
		EmbedKey: req.EmbedKey,
		Messages: req.Messages,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"reply": result.Reply})
}
