package websocket

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/database"
	"github.com/thereayou/chatflow/internal/models"
	"github.com/thereayou/chatflow/internal/services"
)

type Action string

const (
	ActionRead    Action = "read"
	ActionPost    Action = "post"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionPromote Action = "promote"
	ActionDemote  Action = "demote"
	ActionKick    Action = "kick"
)

func (a Action) requiresAdmin() bool {
	switch a {
	case ActionEdit, ActionDelete, ActionPromote, ActionDemote, ActionKick:
		return true
	}
	return false
}

func (a Action) needsTarget() bool {
	switch a {
	case ActionPromote, ActionDemote, ActionKick:
		return true
	}
	return false
}

// Gate проверяет права пользователя в комнате. Комната читается из базы
// при каждой проверке, без кеша.
type Gate struct {
	rooms  services.RoomStore
	logger *slog.Logger
}

func NewGate(rooms services.RoomStore, logger *slog.Logger) *Gate {
	return &Gate{rooms: rooms, logger: logger}
}

// Authorize возвращает комнату или *DenialError.
// target нужен только для promote, demote и kick.
func (g *Gate) Authorize(ctx context.Context, userID, roomID uuid.UUID, action Action, target uuid.UUID) (*models.Room, error) {
	room, err := g.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return nil, &DenialError{Kind: DenialNotFound, Action: action, Message: "room not found", Err: err}
		}
		g.logger.Error("room lookup failed", "room_id", roomID, "action", action, "error", err)
		return nil, &DenialError{Kind: DenialUnavailable, Action: action, Message: "room temporarily unavailable", Err: err}
	}

	if !room.HasParticipant(userID) {
		return nil, deny(action, "not a participant of this room")
	}
	if action.requiresAdmin() && !room.IsAdmin(userID) {
		return nil, deny(action, "admin rights required")
	}
	if !action.needsTarget() {
		return room, nil
	}

	if !room.HasParticipant(target) {
		return nil, deny(action, "target is not a participant of this room")
	}
	if action == ActionKick && room.IsPrivate {
		return nil, deny(action, "cannot remove participants from a private room")
	}
	if action == ActionKick || action == ActionDemote {
		if target == room.CreatedBy {
			return nil, &DenialError{Kind: DenialForbidden, Action: action, Message: "room creator is protected", Err: models.ErrCreatorProtected}
		}
		if target == userID {
			return nil, deny(action, "cannot apply this action to yourself")
		}
	}
	return room, nil
}

func deny(action Action, message string) *DenialError {
	return &DenialError{Kind: DenialForbidden, Action: action, Message: message}
}
