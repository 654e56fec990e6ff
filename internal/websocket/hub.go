package websocket

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/services"
)

// Hub собирает компоненты realtime-слоя. Создается один раз сервером.
type Hub struct {
	Registry      *Registry
	Subscriptions *Subscriptions
	Router        *Router
	Gate          *Gate
	Presence      *Presence
	Typing        *Typing
	Lifecycle     *Lifecycle

	pump   PumpConfig
	logger *slog.Logger
}

func NewHub(store services.Store, verifier services.IdentityVerifier, publisher observability.Publisher, pump PumpConfig, logger *slog.Logger) *Hub {
	if publisher == nil {
		publisher = observability.NoopPublisher{}
	}
	logger = logger.With("component", "hub")

	registry := NewRegistry()
	subs := NewSubscriptions()
	router := NewRouter(registry, subs, logger)
	gate := NewGate(store, logger)
	presence := NewPresence(registry, router, store, publisher, logger)
	typing := NewTyping(registry, router, logger)

	return &Hub{
		Registry:      registry,
		Subscriptions: subs,
		Router:        router,
		Gate:          gate,
		Presence:      presence,
		Typing:        typing,
		Lifecycle: &Lifecycle{
			registry:  registry,
			subs:      subs,
			router:    router,
			gate:      gate,
			presence:  presence,
			typing:    typing,
			store:     store,
			verifier:  verifier,
			publisher: publisher,
			logger:    logger,
		},
		pump:   pump,
		logger: logger,
	}
}

// Run обрабатывает фоновые записи присутствия до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("hub started")
	h.Presence.Run(ctx)
	h.logger.Info("hub stopped")
}

// Stop закрывает все соединения. Очистку выполняют их ReadPump.
func (h *Hub) Stop() {
	for _, c := range h.Registry.All() {
		c.close()
	}
}

// GetRoomUsers возвращает пользователей, подписанных на комнату
func (h *Hub) GetRoomUsers(roomID uuid.UUID) []uuid.UUID {
	return h.Subscriptions.UsersIn(roomID)
}

func (h *Hub) IsUserOnline(userID uuid.UUID) bool {
	return h.Registry.Count(userID) > 0
}
