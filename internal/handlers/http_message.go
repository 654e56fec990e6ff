package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/middleware"
	"github.com/thereayou/chatflow/internal/websocket"
)

type HTTPMessageHandler struct {
	messages *MessageHandler
	hub      *websocket.Hub
}

func NewHTTPMessageHandler(messages *MessageHandler, hub *websocket.Hub) *HTTPMessageHandler {
	return &HTTPMessageHandler{messages: messages, hub: hub}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	// Проверяем доступ к комнате
	if _, err := h.hub.Gate.Authorize(c.Request.Context(), userID, roomID, websocket.ActionRead, uuid.Nil); err != nil {
		respondError(c, err, "failed to get messages")
		return
	}

	// Параметры пагинации
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeID *uuid.UUID
	if before := c.Query("before"); before != "" {
		if id, err := uuid.Parse(before); err == nil {
			beforeID = &id
		}
	}

	messages, err := h.messages.LoadRoomHistory(c.Request.Context(), roomID, limit, beforeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"has_more": len(messages) == limit,
	})
}

// SendMessage отправляет сообщение через HTTP (альтернатива WebSocket).
// Проверка доступа и рассылка те же, что у сокета.
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	message, err := h.hub.Lifecycle.SendMessage(c.Request.Context(), userID, roomID, nil, content)
	if err != nil {
		respondError(c, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, dto.NewMessageResponse(message))
}

// MarkRead отмечает сообщение прочитанным
func (h *HTTPMessageHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	messageID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.hub.Lifecycle.MarkRead(c.Request.Context(), userID, messageID); err != nil {
		respondError(c, err, "failed to mark message as read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "read": true})
}
