package websocket

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/observability"
)

// Router рассылает события по соединениям. Доставки идут по очереди, поэтому
// все подписчики комнаты видят ее события в одном порядке.
// Медленный или закрытый клиент теряет только свою копию.
type Router struct {
	mu       sync.Mutex
	registry *Registry
	subs     *Subscriptions
	logger   *slog.Logger
}

func NewRouter(registry *Registry, subs *Subscriptions, logger *slog.Logger) *Router {
	return &Router{registry: registry, subs: subs, logger: logger}
}

// DeliverToRoom отправляет события подписчикам комнаты, кроме exclude.
// uuid.Nil никого не исключает.
func (r *Router) DeliverToRoom(roomID, exclude uuid.UUID, events ...[]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.subs.Subscribers(roomID) {
		if c.ID == exclude {
			continue
		}
		r.send(c, events)
	}
}

// DeliverToUser отправляет события во все соединения пользователя
func (r *Router) DeliverToUser(userID uuid.UUID, events ...[]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.registry.ConnectionsOf(userID) {
		r.send(c, events)
	}
}

func (r *Router) DeliverToConn(c *Client, events ...[]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send(c, events)
}

// DeliverToAll отправляет события всем соединениям
func (r *Router) DeliverToAll(events ...[]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.registry.All() {
		r.send(c, events)
	}
}

func (r *Router) send(c *Client, events [][]byte) {
	for _, data := range events {
		if data == nil {
			continue
		}
		if err := c.enqueue(data); err != nil {
			reason := "queue_full"
			if errors.Is(err, ErrConnectionClosed) {
				reason = "closed"
			}
			observability.IncWSDropped(reason)
			r.logger.Debug("event dropped", "conn_id", c.ID, "user_id", c.UserID, "reason", reason)
			return
		}
	}
}
