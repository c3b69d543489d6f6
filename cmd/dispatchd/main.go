package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/roaddasher/dasher/internal/dispatch"
	"github.com/roaddasher/dasher/internal/logger"
	"github.com/roaddasher/dasher/internal/router"
	"github.com/roaddasher/dasher/internal/storage"
	"github.com/roaddasher/dasher/internal/storage/memory"
	"github.com/roaddasher/dasher/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	svc := dispatch.NewService(store, []byte(cfg.JWTSecret), cfg.JWTTTL)
	handler := dispatch.NewHandler(svc)

	r := router.NewRouter(handler, []byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}

func newStorage(cfg *Config) (storage.Storage, error) {
	if cfg.DatabaseConnection != "" {
		return postgres.New(cfg.DatabaseConnection)
	}
	if cfg.SeedDemoOrders {
		return memory.NewWithDemoData(), nil
	}
	return memory.New(), nil
}
