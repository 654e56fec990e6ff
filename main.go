package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/thereayou/chatflow/cmd/server"
	"github.com/thereayou/chatflow/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error("server stopped with error", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				cancel()
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("application exited", "code", exitCode)
	os.Exit(exitCode)
}
