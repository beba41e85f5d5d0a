package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/deckistry/internal/api"
	"github.com/codyseavey/deckistry/internal/config"
	"github.com/codyseavey/deckistry/internal/database"
	"github.com/codyseavey/deckistry/internal/realtime"
	"github.com/codyseavey/deckistry/internal/services"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Initialize(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	scryfallService := services.NewScryfallService(services.ScryfallOptions{
		BaseURL:         cfg.Scryfall.BaseURL,
		UserAgent:       cfg.Scryfall.UserAgent,
		RequestInterval: cfg.RequestInterval(),
		Timeout:         cfg.ScryfallTimeout(),
	})

	cardCache, err := services.NewCardCache(scryfallService, database.GetDB(), cfg.Cache.Size)
	if err != nil {
		log.Fatalf("Failed to initialize card cache: %v", err)
	}
	log.Printf("Card database holds %d cards", cardCache.Count())

	deckStore := services.NewDeckStore(database.GetDB())

	hub := realtime.NewHub(cfg.Server.CORSAllowedOrigins)
	go hub.Run()

	sessions := services.NewSessionManager(deckStore, cardCache, hub, cfg.Sessions.MaxOpen, cfg.SessionTTL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var backfill *services.ImageBackfillWorker
	if cfg.Backfill.Enabled {
		backfill = services.NewImageBackfillWorker(cardCache, cfg.BackfillInterval(), cfg.Backfill.BatchSize)

		// Start image backfill worker in background with panic recovery
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in image backfill worker: %v - restarting in 30 seconds", r)
						}
					}()
					backfill.Start(ctx)
				}()

				select {
				case <-ctx.Done():
					return // Graceful shutdown
				case <-time.After(30 * time.Second):
					log.Println("Image backfill worker restarting after panic recovery...")
				}
			}
		}()
	}

	router := api.SetupRouter(cfg, api.Services{
		Scryfall: scryfallService,
		Cache:    cardCache,
		Decks:    deckStore,
		Sessions: sessions,
		Hub:      hub,
		Backfill: backfill,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()
	hub.Stop()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	sessions.CloseAll()

	log.Println("Server exited")
}
