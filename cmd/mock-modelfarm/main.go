// Command mock-modelfarm runs a deterministic modelfarm service for local
// development and integration testing.
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 9090)
//	MOCK_TOKEN - Bearer token required on every request (default: none)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/modelfarm/pkg/mockserver"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mockserver.New(mockserver.Options{Token: os.Getenv("MOCK_TOKEN")}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock modelfarm starting", "port", port, "auth", os.Getenv("MOCK_TOKEN") != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock modelfarm failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock modelfarm shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
