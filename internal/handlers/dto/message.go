package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/models"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

type MessageResponse struct {
	ID        uuid.UUID   `json:"id"`
	RoomID    uuid.UUID   `json:"room_id"`
	SenderID  uuid.UUID   `json:"sender_id"`
	Content   string      `json:"content,omitempty"`
	Type      string      `json:"type"`
	File      *FileInfo   `json:"file,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	ReadBy    []uuid.UUID `json:"read_by"`
	Sender    *UserInfo   `json:"sender,omitempty"`
}

type FileInfo struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsOnline  bool      `json:"is_online"`
}

func NewUserInfo(u *models.User) *UserInfo {
	if u == nil || u.ID == uuid.Nil {
		return nil
	}
	return &UserInfo{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL, IsOnline: u.IsOnline}
}

func NewMessageResponse(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
		ReadBy:    make([]uuid.UUID, 0, len(m.ReadBy)),
		Sender:    NewUserInfo(&m.Sender),
	}
	if m.Type == models.MessageTypeFile {
		resp.File = &FileInfo{URL: m.FileURL, Name: m.FileName, Size: m.FileSize}
	}
	for _, r := range m.ReadBy {
		resp.ReadBy = append(resp.ReadBy, r.UserID)
	}
	return resp
}
