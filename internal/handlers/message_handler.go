package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/handlers/dto"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/services"
	"github.com/thereayou/chatflow/internal/websocket"
)

const maxContentLength = 4000

// MessageHandler обрабатывает входящие события WebSocket
type MessageHandler struct {
	store  services.MessageStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewMessageHandler(store services.MessageStore, hub *websocket.Hub, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		store:  store,
		hub:    hub,
		logger: logger,
	}
}

func (h *MessageHandler) HandleMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	observability.IncWSEvent(string(msg.Type))

	var err error
	switch msg.Type {
	case websocket.TypeJoinRooms:
		err = h.hub.Lifecycle.JoinAllRooms(ctx, client)

	case websocket.TypeJoinRoom:
		err = h.withRoom(msg, func(roomID uuid.UUID) error {
			return h.hub.Lifecycle.JoinRoom(ctx, client, roomID)
		})

	case websocket.TypeLeaveRoom:
		err = h.withRoom(msg, func(roomID uuid.UUID) error {
			h.hub.Lifecycle.LeaveRoom(client, roomID)
			return nil
		})

	case websocket.TypeSendMessage:
		err = h.handleSendMessage(ctx, client, msg)

	case websocket.TypeFileUploaded:
		err = h.handleFileUploaded(ctx, client, msg)

	case websocket.TypeTypingStart:
		err = h.withRoom(msg, func(roomID uuid.UUID) error {
			return h.hub.Lifecycle.TypingStart(ctx, client, roomID)
		})

	case websocket.TypeTypingStop:
		err = h.withRoom(msg, func(roomID uuid.UUID) error {
			h.hub.Lifecycle.TypingStop(client, roomID)
			return nil
		})

	default:
		h.logger.Debug("unknown message type", "type", msg.Type, "conn_id", client.ID)
		err = websocket.ErrInvalidMessage
	}

	if err != nil {
		h.hub.Lifecycle.NotifyError(client, msg.RoomID, err)
	}
	return err
}

func (h *MessageHandler) withRoom(msg *websocket.Message, fn func(roomID uuid.UUID) error) error {
	if msg.RoomID == nil || *msg.RoomID == uuid.Nil {
		return websocket.ErrInvalidMessage
	}
	return fn(*msg.RoomID)
}

func (h *MessageHandler) handleSendMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	return h.withRoom(msg, func(roomID uuid.UUID) error {
		var payload websocket.SendPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return websocket.ErrInvalidMessage
		}

		content := strings.TrimSpace(payload.Content)
		if content == "" || utf8.RuneCountInString(content) > maxContentLength {
			return websocket.ErrInvalidMessage
		}

		_, err := h.hub.Lifecycle.SendMessage(ctx, client.UserID, roomID, client, content)
		return err
	})
}

func (h *MessageHandler) handleFileUploaded(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	return h.withRoom(msg, func(roomID uuid.UUID) error {
		var payload websocket.FilePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return websocket.ErrInvalidMessage
		}
		if payload.FileURL == "" || payload.FileName == "" {
			return websocket.ErrInvalidMessage
		}
		return h.hub.Lifecycle.FileNotice(ctx, client, roomID, payload)
	})
}

// LoadRoomHistory загружает историю комнаты, старые сообщения первыми
func (h *MessageHandler) LoadRoomHistory(ctx context.Context, roomID uuid.UUID, limit int, beforeID *uuid.UUID) ([]dto.MessageResponse, error) {
	messages, err := h.store.GetRoomMessages(ctx, roomID, limit, beforeID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		responses[i] = dto.NewMessageResponse(&messages[i])
	}
	return responses, nil
}
