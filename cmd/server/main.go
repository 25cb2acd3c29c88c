package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jaeyoon0415/convgate/config"
	"github.com/jaeyoon0415/convgate/db"
	"github.com/jaeyoon0415/convgate/handlers"
	"github.com/jaeyoon0415/convgate/internal/utils"
	"github.com/jaeyoon0415/convgate/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger := utils.MustNewLogger(cfg.Logging).Sugar()
	defer logger.Sync()

	ctx := context.Background()

	// A capability that fails to come up is marked unavailable rather than
	// killing the process; requests that need it get the 503 class until the
	// process is restarted with working configuration.
	var store services.TurnStore
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; conversation store unavailable")
	} else if pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
		logger.Errorw("postgres connection failed; conversation store unavailable", "error", err)
	} else {
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Errorw("postgres schema bootstrap failed; conversation store unavailable", "error", err)
		} else {
			store = db.NewTurnRepository(pool)
		}
	}

	var generator services.TextGenerator
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; AI service unavailable")
	} else if gemini, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err != nil {
		logger.Errorw("gemini client initialisation failed; AI service unavailable", "error", err)
	} else {
		generator = gemini
		logger.Infow("gemini client initialised", "model", cfg.GeminiModel)
	}

	conversations := services.NewConversationService(store, generator, cfg.HistoryLimit, cfg.SystemInstruction, logger)

	router := setupRouter(conversations, logger)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(conversations *services.ConversationService, logger *zap.SugaredLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	handlers.NewChatHandler(conversations, logger).RegisterRoutes(router)

	return router
}
