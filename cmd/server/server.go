package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/chatflow/internal/config"
	"github.com/thereayou/chatflow/internal/database"
	"github.com/thereayou/chatflow/internal/handlers"
	"github.com/thereayou/chatflow/internal/observability"
	"github.com/thereayou/chatflow/internal/services"
	"github.com/thereayou/chatflow/internal/websocket"
	"github.com/thereayou/chatflow/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	HTTP       *http.Server
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Verifier   *services.TokenVerifier
	Publisher  observability.Publisher
	Hub        *websocket.Hub

	cfg    *config.Config
	logger *slog.Logger
}

func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	verifier := services.NewTokenVerifier(jwtMgr, services.NewRedisBlacklist(rdb))
	publisher := observability.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)

	hub := websocket.NewHub(dbConn, verifier, publisher, websocket.PumpConfig{
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}, logger)

	messageH := handlers.NewMessageHandler(dbConn, hub, logger)
	h := Handlers{
		Auth:        handlers.NewAuthHandler(dbConn, jwtMgr, verifier, hub, logger),
		User:        handlers.NewUserHandler(dbConn, hub),
		Room:        handlers.NewRoomHandler(dbConn, hub, logger),
		HTTPMessage: handlers.NewHTTPMessageHandler(messageH, hub),
		WebSocket:   handlers.NewWebSocketHandler(hub, messageH, cfg.WebSocket.AllowedOrigins, logger),
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), observability.HTTPMetricsMiddleware())
	APIEndpoints(router, h, verifier)

	return &Server{
		Router: router,
		HTTP: &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Verifier:   verifier,
		Publisher:  publisher,
		Hub:        hub,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Run запускает хаб и HTTP сервер. Возвращается после Shutdown.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run(ctx)

	s.logger.Info("server starting", "port", s.cfg.HTTP.Port)
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server run error: %w", err)
	}
	return nil
}

// Shutdown останавливает прием запросов, закрывает соединения и внешние клиенты
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	s.Hub.Stop()
	if err := s.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("amqp: %w", err))
	}
	if err := s.Redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("postgres: %w", err))
	}
	s.logger.Info("server stopped")
	return errors.Join(errs...)
}
