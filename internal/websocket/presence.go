package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/services"
)

const presenceWriteBuffer = 1024

type presenceWrite struct {
	userID   uuid.UUID
	online   bool
	lastSeen time.Time
}

// Presence определяет online/offline по числу соединений в Registry.
// Рассылка идет синхронно в Sync, запись в базу и публикация позже в Run
// в том же порядке.
type Presence struct {
	mu     sync.Mutex
	online map[uuid.UUID]bool

	registry  *Registry
	router    *Router
	store     services.PresenceStore
	publisher observability.Publisher
	logger    *slog.Logger

	writes chan presenceWrite
}

func NewPresence(registry *Registry, router *Router, store services.PresenceStore, publisher observability.Publisher, logger *slog.Logger) *Presence {
	return &Presence{
		online:    make(map[uuid.UUID]bool),
		registry:  registry,
		router:    router,
		store:     store,
		publisher: publisher,
		logger:    logger,
		writes:    make(chan presenceWrite, presenceWriteBuffer),
	}
}

// Sync сверяет статус пользователя с Registry. Возвращает true при смене статуса.
func (p *Presence) Sync(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	isOnline := p.registry.Count(userID) > 0
	if p.online[userID] == isOnline {
		return false
	}
	if isOnline {
		p.online[userID] = true
		observability.IncOnlineUsers()
	} else {
		delete(p.online, userID)
		observability.DecOnlineUsers()
	}

	now := time.Now()
	event, err := encode(TypeUserStatusChange, nil, userID, StatusPayload{UserID: userID, IsOnline: isOnline, LastSeen: now})
	if err != nil {
		p.logger.Error("encode status change", "user_id", userID, "error", err)
	} else {
		p.router.DeliverToAll(event)
	}

	select {
	case p.writes <- presenceWrite{userID: userID, online: isOnline, lastSeen: now}:
	default:
		p.logger.Warn("presence write queue full, dropping", "user_id", userID, "online", isOnline)
	}
	return true
}

func (p *Presence) IsOnline(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

// OnlineUsers пользователи онлайн по данным Registry
func (p *Presence) OnlineUsers() []uuid.UUID {
	return p.registry.OnlineUsers()
}

// CountOnline сколько из ids сейчас онлайн
func (p *Presence) CountOnline(ids []uuid.UUID) int {
	n := 0
	for _, id := range ids {
		if p.registry.Count(id) > 0 {
			n++
		}
	}
	return n
}

// Run сохраняет смены статуса до отмены контекста
func (p *Presence) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-p.writes:
			p.write(ctx, w)
		}
	}
}

func (p *Presence) write(ctx context.Context, w presenceWrite) {
	if p.store != nil {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.store.SetPresence(writeCtx, w.userID, w.online, w.lastSeen)
		cancel()
		if err != nil {
			p.logger.Warn("persist presence failed", "user_id", w.userID, "online", w.online, "error", err)
		}
	}
	if p.publisher != nil {
		payload := StatusPayload{UserID: w.userID, IsOnline: w.online, LastSeen: w.lastSeen}
		if err := p.publisher.Publish(ctx, observability.RoutingPresence, payload); err != nil {
			p.logger.Debug("publish presence failed", "user_id", w.userID, "error", err)
		}
	}
}
