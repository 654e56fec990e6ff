package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Registry хранит живые соединения по ID и по пользователю.
// Оба индекса меняются под одной блокировкой.
type Registry struct {
	mu        sync.RWMutex
	conns     map[uuid.UUID]*Client
	userConns map[uuid.UUID]map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[uuid.UUID]*Client),
		userConns: make(map[uuid.UUID]map[uuid.UUID]*Client),
	}
}

// Register добавляет соединение. first = это первое соединение пользователя.
func (r *Registry) Register(c *Client) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID]; ok {
		return false, ErrAlreadyRegistered
	}
	r.conns[c.ID] = c

	set, ok := r.userConns[c.UserID]
	if !ok {
		set = make(map[uuid.UUID]*Client)
		r.userConns[c.UserID] = set
	}
	set[c.ID] = c
	return len(set) == 1, nil
}

// Unregister удаляет соединение. Для неизвестного connID возвращает nil.
// last = у пользователя больше нет соединений.
func (r *Registry) Unregister(connID uuid.UUID) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	delete(r.conns, connID)

	set := r.userConns[c.UserID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.userConns, c.UserID)
		return c, true
	}
	return c, false
}

func (r *Registry) Get(connID uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

func (r *Registry) Has(connID uuid.UUID) bool {
	_, ok := r.Get(connID)
	return ok
}

func (r *Registry) ConnectionsOf(userID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.userConns[userID]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID])
}

func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// OnlineUsers пользователи хотя бы с одним соединением
func (r *Registry) OnlineUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(r.userConns))
	for id := range r.userConns {
		out = append(out, id)
	}
	return out
}

// Len количество соединений
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
