package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/deckistry/internal/api/handlers"
	"github.com/codyseavey/deckistry/internal/config"
	"github.com/codyseavey/deckistry/internal/metrics"
	"github.com/codyseavey/deckistry/internal/realtime"
	"github.com/codyseavey/deckistry/internal/services"
)

// Services bundles what the handlers need
type Services struct {
	Scryfall *services.ScryfallService
	Cache    *services.CardCache
	Decks    *services.DeckStore
	Sessions *services.SessionManager
	Hub      *realtime.Hub                 // optional
	Backfill *services.ImageBackfillWorker // optional
}

func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.Default()
	router.Use(metrics.Middleware())

	frontendPath := cfg.Server.FrontendDistPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSAllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.OwnerHeader}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	cardHandler := handlers.NewCardHandler(svc.Cache, svc.Scryfall)
	deckHandler := handlers.NewDeckHandler(svc.Decks, svc.Sessions, svc.Hub)
	collectionHandler := handlers.NewCollectionHandler(svc.Cache)
	socialHandler := handlers.NewSocialHandler(svc.Decks)

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/search", cardHandler.SearchCards)
			cards.GET("/autocomplete", cardHandler.Autocomplete)
			cards.GET("/random", cardHandler.RandomCard)
			cards.GET("/prints/:name", cardHandler.GetPrintings)
			cards.GET("/:id", cardHandler.GetCard)
		}
		api.GET("/sets", cardHandler.GetSets)

		decks := api.Group("/decks")
		{
			decks.GET("", deckHandler.ListDecks)
			decks.POST("", deckHandler.CreateDeck)
			decks.GET("/public", deckHandler.ListPublicDecks)
			decks.GET("/shared/:token", deckHandler.GetSharedDeck)
			decks.GET("/:id", deckHandler.GetDeck)
			decks.PUT("/:id", deckHandler.UpdateDeck)
			decks.DELETE("/:id", deckHandler.DeleteDeck)

			decks.PUT("/:id/commander", deckHandler.SetCommander)
			decks.DELETE("/:id/commander", deckHandler.RemoveCommander)
			decks.PUT("/:id/format", deckHandler.SetFormat)
			decks.POST("/:id/cards", deckHandler.AddCard)
			decks.PUT("/:id/cards/:cardId", deckHandler.UpdateEntry)
			decks.DELETE("/:id/cards/:cardId", deckHandler.RemoveCard)
			decks.POST("/:id/cards/:cardId/increment", deckHandler.IncrementCard)
			decks.POST("/:id/cards/:cardId/decrement", deckHandler.DecrementCard)
			decks.POST("/:id/cards/:cardId/printing", deckHandler.ReplacePrinting)

			decks.GET("/:id/validate", deckHandler.ValidateDeck)
			decks.GET("/:id/analytics", deckHandler.GetAnalytics)
			decks.GET("/:id/charts/curve", deckHandler.GetCurveChart)
			decks.GET("/:id/charts/colors", deckHandler.GetColorChart)
			decks.POST("/:id/import", deckHandler.ImportDecklist)
			decks.GET("/:id/export", deckHandler.ExportDecklist)
			decks.GET("/:id/events", deckHandler.DeckEvents)

			decks.GET("/:id/comments", socialHandler.ListComments)
			decks.POST("/:id/comments", socialHandler.AddComment)
			decks.GET("/:id/rating", socialHandler.GetRatings)
			decks.PUT("/:id/rating", socialHandler.RateDeck)
		}
		api.DELETE("/comments/:id", socialHandler.DeleteComment)

		collection := api.Group("/collection")
		{
			collection.GET("", collectionHandler.GetCollection)
			collection.POST("", collectionHandler.AddToCollection)
			collection.GET("/stats", collectionHandler.GetStats)
			collection.PUT("/:id", collectionHandler.UpdateCollectionItem)
			collection.DELETE("/:id", collectionHandler.DeleteCollectionItem)
		}

		if svc.Backfill != nil {
			api.GET("/backfill/status", func(c *gin.Context) {
				c.JSON(http.StatusOK, svc.Backfill.Status())
			})
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "open_sessions": svc.Sessions.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/favicon.ico", filepath.Join(frontendPath, "favicon.ico"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
