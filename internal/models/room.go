package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotParticipant   = errors.New("user is not a participant")
	ErrCreatorProtected = errors.New("room creator cannot be removed or demoted")
	ErrPrivateRoomFull  = errors.New("private rooms have exactly two participants")
)

// Room участники хранятся в RoomMember. Админ это участник с IsAdmin,
// поэтому админы всегда входят в участников.
type Room struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null"`
	IsPrivate    bool      `gorm:"default:false;index"`
	PrivateKey   *string   `gorm:"uniqueIndex"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
	LastActivity time.Time

	Members []RoomMember `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

type RoomMember struct {
	RoomID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	IsAdmin  bool      `gorm:"default:false"`
	JoinedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PrivateRoomKey ключ пары пользователей, не зависит от порядка
func PrivateRoomKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return fmt.Sprintf("%s:%s", x, y)
}

// NewGroupRoom создает групповую комнату. Создатель становится админом,
// дубликаты участников отбрасываются.
func NewGroupRoom(name string, creator uuid.UUID, participants []uuid.UUID) *Room {
	now := time.Now()
	room := &Room{
		ID:           uuid.New(),
		Name:         name,
		CreatedBy:    creator,
		CreatedAt:    now,
		LastActivity: now,
	}
	room.Members = append(room.Members, RoomMember{RoomID: room.ID, UserID: creator, IsAdmin: true, JoinedAt: now})
	for _, id := range participants {
		room.AddParticipant(id)
	}
	return room
}

// NewPrivateRoom создает личную комнату a и b
func NewPrivateRoom(a, b uuid.UUID) *Room {
	now := time.Now()
	key := PrivateRoomKey(a, b)
	room := &Room{
		ID:           uuid.New(),
		Name:         "Private Chat",
		IsPrivate:    true,
		PrivateKey:   &key,
		CreatedBy:    a,
		CreatedAt:    now,
		LastActivity: now,
	}
	room.Members = []RoomMember{
		{RoomID: room.ID, UserID: a, IsAdmin: true, JoinedAt: now},
		{RoomID: room.ID, UserID: b, JoinedAt: now},
	}
	return room
}

func (r *Room) member(userID uuid.UUID) *RoomMember {
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			return &r.Members[i]
		}
	}
	return nil
}

func (r *Room) HasParticipant(userID uuid.UUID) bool {
	return r.member(userID) != nil
}

func (r *Room) IsAdmin(userID uuid.UUID) bool {
	m := r.member(userID)
	return m != nil && m.IsAdmin
}

func (r *Room) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (r *Room) AdminIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Members))
	for _, m := range r.Members {
		if m.IsAdmin {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// AddParticipant возвращает true, если пользователь добавлен
func (r *Room) AddParticipant(userID uuid.UUID) bool {
	if userID == uuid.Nil || r.HasParticipant(userID) {
		return false
	}
	r.Members = append(r.Members, RoomMember{RoomID: r.ID, UserID: userID, JoinedAt: time.Now()})
	return true
}

// RemoveParticipant удаляет пользователя из участников и админов
func (r *Room) RemoveParticipant(userID uuid.UUID) error {
	if userID == r.CreatedBy {
		return ErrCreatorProtected
	}
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return nil
		}
	}
	return ErrNotParticipant
}

func (r *Room) Promote(userID uuid.UUID) error {
	m := r.member(userID)
	if m == nil {
		return ErrNotParticipant
	}
	m.IsAdmin = true
	return nil
}

func (r *Room) Demote(userID uuid.UUID) error {
	if userID == r.CreatedBy {
		return ErrCreatorProtected
	}
	m := r.member(userID)
	if m == nil {
		return ErrNotParticipant
	}
	m.IsAdmin = false
	return nil
}
