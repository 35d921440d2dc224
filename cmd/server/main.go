package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edplatform/upload-manager/internal/api"
	"github.com/edplatform/upload-manager/internal/api/handlers"
	"github.com/edplatform/upload-manager/internal/api/services"
	"github.com/edplatform/upload-manager/internal/config"
	"github.com/edplatform/upload-manager/internal/repositories"
)

func main() {
	cfg := config.Load()

	db, err := repositories.ConnectDatabase(cfg.DBURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	log.Println("Successfully connected to database")

	// External collaborators are constructed once here and passed in;
	// nothing below holds ambient client state.
	store := repositories.NewGormStore(db)
	storage := repositories.NewStorageClient(cfg.Storage)
	dispatcher := repositories.NewHTTPDispatcher(cfg.Dispatch)

	initiator := services.NewInitiator(store, storage, cfg)
	processor := services.NewFinalizeProcessor(store, dispatcher)

	mux := api.SetupRouter(cfg,
		handlers.NewSessionHandler(store, storage, initiator),
		handlers.NewStorageEventHandler(processor),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: mux,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting upload-manager on port: %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
