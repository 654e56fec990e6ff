package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/chatflow/internal/services"
	ws "github.com/thereayou/chatflow/internal/websocket"
	"github.com/thereayou/chatflow/pkg/auth"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketHandler создает новый WebSocket handler. Без allowedOrigins
// действует проверка same-origin из gorilla, "*" разрешает любой origin.
func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		logger:         logger,
		upgrader:       upgrader,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// HandleWebSocket проверяет токен до апгрейда, затем запускает pump'ы клиента.
// Соединение без валидного токена не попадает в Registry.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	token, _ := auth.ExtractToken(c.Request)
	userID, err := h.hub.Lifecycle.Authenticate(c.Request.Context(), token)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, services.ErrAuthFailure) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	if err := h.hub.Lifecycle.Attach(client); err != nil {
		h.logger.Error("attach client failed", "user_id", userID, "error", err)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
