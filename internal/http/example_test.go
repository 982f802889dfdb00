package http_test

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/config"
	httpserver "github.com/fyrsmithlabs/managerd/internal/http"
	"github.com/fyrsmithlabs/managerd/internal/services"
)

// ExampleServer demonstrates how to wire the services and start the HTTP server.
func ExampleServer() {
	cfg := config.Default()
	cfg.Storage.Backend = config.StorageMemory

	logger := zap.NewNop()

	reg, cleanup, err := services.Build(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	server, err := httpserver.NewServer(reg, logger, &httpserver.Config{Host: "127.0.0.1", Port: 0})
	if err != nil {
		panic(err)
	}

	go func() {
		_ = server.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
