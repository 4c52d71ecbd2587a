package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ktiyab/coheara/internal/config"
	"github.com/ktiyab/coheara/internal/httpapi"
	"github.com/ktiyab/coheara/internal/llmclient"
	"github.com/ktiyab/coheara/internal/repository"
)

func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cmd/server: %w", err)
	}

	appSQL, err := repository.OpenAppDB(cfg.AppDBPath)
	if err != nil {
		return fmt.Errorf("cmd/server: opening app database: %w", err)
	}
	defer appSQL.Close()
	appRepo := repository.NewAppRepo(appSQL)

	llm, err := llmclient.New(cfg.LLMBaseURL, &http.Client{Timeout: 2 * time.Minute})
	if err != nil {
		return fmt.Errorf("cmd/server: %w", err)
	}

	server, err := httpapi.NewServer(cfg, appRepo, llm)
	if err != nil {
		return fmt.Errorf("cmd/server: %w", err)
	}
	router := httpapi.NewRouter(server)

	port := getPort()
	addr := cfg.BindAddr
	if addr == "" {
		addr = ":" + port
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		TLSConfig:    server.TLSConfig(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("coheara server starting", "version", httpapi.Version, "addr", addr)
		// Cert/key come from TLSConfig.GetCertificate, issued per opened
		// profile's local CA; no cert/key files on disk.
		if err := httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := server.Close(); err != nil {
		slog.Warn("error closing open profile sessions", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
