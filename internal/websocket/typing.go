package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Typing хранит печатающих пользователей по комнатам.
// Рассылка идет под блокировкой, чтобы события шли в порядке изменений.
type Typing struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]map[uuid.UUID]struct{}
	registry *Registry
	router   *Router
	logger   *slog.Logger
}

func NewTyping(registry *Registry, router *Router, logger *slog.Logger) *Typing {
	return &Typing{
		rooms:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		registry: registry,
		router:   router,
		logger:   logger,
	}
}

// Start добавляет пользователя и рассылает всем, кроме connID. Повторный start
// не рассылается. Соединение проверяется под блокировкой: Disconnect снимает
// его с учета до очистки индикаторов, поэтому закрытое соединение не оставит
// индикатор после offline.
func (t *Typing) Start(userID, roomID, connID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.registry.Has(connID) {
		return false
	}

	set, ok := t.rooms[roomID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.rooms[roomID] = set
	}
	if _, ok := set[userID]; ok {
		return false
	}
	set[userID] = struct{}{}
	t.router.DeliverToRoom(roomID, connID, t.update(userID, roomID, true))
	return true
}

// Stop ничего не делает, если пользователь не печатает
func (t *Typing) Stop(userID, roomID, exclude uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.removeLocked(userID, roomID) {
		return false
	}
	t.router.DeliverToRoom(roomID, exclude, t.update(userID, roomID, false))
	return true
}

// OnMessageSent доставляет stop (если был) и сообщение одним вызовом роутера
func (t *Typing) OnMessageSent(userID, roomID uuid.UUID, message []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stop []byte
	if t.removeLocked(userID, roomID) {
		stop = t.update(userID, roomID, false)
	}
	t.router.DeliverToRoom(roomID, uuid.Nil, stop, message)
}

// OnUserFullyDisconnected убирает пользователя из всех комнат с рассылкой stop
func (t *Typing) OnUserFullyDisconnected(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for roomID, set := range t.rooms {
		if _, ok := set[userID]; !ok {
			continue
		}
		t.removeLocked(userID, roomID)
		t.router.DeliverToRoom(roomID, uuid.Nil, t.update(userID, roomID, false))
	}
}

// ClearRoom забывает удаленную комнату без рассылки
func (t *Typing) ClearRoom(roomID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, roomID)
}

func (t *Typing) IsTyping(userID, roomID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rooms[roomID][userID]
	return ok
}

func (t *Typing) TypingUsers(roomID uuid.UUID) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]uuid.UUID, 0, len(t.rooms[roomID]))
	for id := range t.rooms[roomID] {
		out = append(out, id)
	}
	return out
}

func (t *Typing) removeLocked(userID, roomID uuid.UUID) bool {
	set, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := set[userID]; !ok {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}

func (t *Typing) update(userID, roomID uuid.UUID, isTyping bool) []byte {
	data, err := encode(TypeTypingUpdate, roomRef(roomID), userID, TypingPayload{RoomID: roomID, UserID: userID, IsTyping: isTyping})
	if err != nil {
		t.logger.Error("encode typing update", "room_id", roomID, "error", err)
		return nil
	}
	return data
}
