package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Subscriptions подписки соединений на комнаты (в обе стороны)
type Subscriptions struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]map[uuid.UUID]*Client
	connRooms map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		rooms:     make(map[uuid.UUID]map[uuid.UUID]*Client),
		connRooms: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Subscribe возвращает false, если соединение уже подписано
func (s *Subscriptions) Subscribe(c *Client, roomID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.rooms[roomID]
	if !ok {
		subs = make(map[uuid.UUID]*Client)
		s.rooms[roomID] = subs
	}
	if _, ok := subs[c.ID]; ok {
		return false
	}
	subs[c.ID] = c

	rooms, ok := s.connRooms[c.ID]
	if !ok {
		rooms = make(map[uuid.UUID]struct{})
		s.connRooms[c.ID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

func (s *Subscriptions) Unsubscribe(connID, roomID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribeLocked(connID, roomID)
}

func (s *Subscriptions) unsubscribeLocked(connID, roomID uuid.UUID) bool {
	subs, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := subs[connID]; !ok {
		return false
	}
	delete(subs, connID)
	if len(subs) == 0 {
		delete(s.rooms, roomID)
	}
	if rooms, ok := s.connRooms[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(s.connRooms, connID)
		}
	}
	return true
}

// UnsubscribeAll снимает все подписки соединения и возвращает комнаты
func (s *Subscriptions) UnsubscribeAll(connID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := s.connRooms[connID]
	left := make([]uuid.UUID, 0, len(rooms))
	for roomID := range rooms {
		left = append(left, roomID)
	}
	for _, roomID := range left {
		s.unsubscribeLocked(connID, roomID)
	}
	return left
}

// UnsubscribeUser отписывает все соединения пользователя от комнаты
func (s *Subscriptions) UnsubscribeUser(roomID, userID uuid.UUID) []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*Client
	for connID, c := range s.rooms[roomID] {
		if c.UserID == userID {
			removed = append(removed, c)
			s.unsubscribeLocked(connID, roomID)
		}
	}
	return removed
}

// DropRoom удаляет комнату и возвращает бывших подписчиков
func (s *Subscriptions) DropRoom(roomID uuid.UUID) []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.rooms[roomID]
	out := make([]*Client, 0, len(subs))
	for connID, c := range subs {
		out = append(out, c)
		if rooms, ok := s.connRooms[connID]; ok {
			delete(rooms, roomID)
			if len(rooms) == 0 {
				delete(s.connRooms, connID)
			}
		}
	}
	delete(s.rooms, roomID)
	return out
}

func (s *Subscriptions) Subscribers(roomID uuid.UUID) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := s.rooms[roomID]
	out := make([]*Client, 0, len(subs))
	for _, c := range subs {
		out = append(out, c)
	}
	return out
}

func (s *Subscriptions) RoomsOf(connID uuid.UUID) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := s.connRooms[connID]
	out := make([]uuid.UUID, 0, len(rooms))
	for roomID := range rooms {
		out = append(out, roomID)
	}
	return out
}

func (s *Subscriptions) IsSubscribed(connID, roomID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID][connID]
	return ok
}

// UsersIn уникальные пользователи, подписанные на комнату
func (s *Subscriptions) UsersIn(roomID uuid.UUID) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	for _, c := range s.rooms[roomID] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	return out
}

// UserSubscribed подписано ли хоть одно соединение пользователя
func (s *Subscriptions) UserSubscribed(roomID, userID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.rooms[roomID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
