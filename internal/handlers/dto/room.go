package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/models"
)

type CreateRoomRequest struct {
	Name         string      `json:"name" binding:"required,min=1,max=100"`
	Participants []uuid.UUID `json:"participants"`
}

type PrivateRoomRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type UpdateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

type AddParticipantsRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

type RoomResponse struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	IsPrivate    bool        `json:"is_private"`
	Participants []uuid.UUID `json:"participants"`
	Admins       []uuid.UUID `json:"admins"`
	CreatedBy    uuid.UUID   `json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
	OnlineCount  int         `json:"online_count"`
}

func NewRoomResponse(r *models.Room) RoomResponse {
	return RoomResponse{
		ID:           r.ID,
		Name:         r.Name,
		IsPrivate:    r.IsPrivate,
		Participants: r.ParticipantIDs(),
		Admins:       r.AdminIDs(),
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}
