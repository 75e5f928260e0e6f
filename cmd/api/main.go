package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/api/handlers"
	"github.com/supportchat/backend/internal/audit"
	"github.com/supportchat/backend/internal/conversation"
	"github.com/supportchat/backend/internal/llm"
	"github.com/supportchat/backend/internal/metrics"
	"github.com/supportchat/backend/internal/middleware/ratelimit"
	"github.com/supportchat/backend/internal/middleware/security"
	"github.com/supportchat/backend/internal/middleware/validation"
	"github.com/supportchat/backend/internal/orchestrator"
	"github.com/supportchat/backend/internal/retrieval"
	"github.com/supportchat/backend/pkg/config"
	appLogger "github.com/supportchat/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting support chat moderation API server")

	metrics.Init()

	auditStore, err := audit.NewStore(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open audit store", zap.Error(err))
	}
	defer auditStore.Close()

	err = auditStore.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize audit schema", zap.Error(err))
	}

	auditWriter := audit.NewWriter(auditStore)
	defer auditWriter.Close()

	// Redis and Milvus are optional collaborators: without redis the
	// package cache is skipped, without Milvus every turn comes back
	// not grounded.
	var packageCache orchestrator.PackageCache
	redisCache, err := retrieval.NewCache(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.TTLSec)*time.Second,
	)
	if err != nil {
		appLogger.Warn("Redis unavailable, running without package cache", zap.Error(err))
	} else {
		packageCache = redisCache
		defer redisCache.Close()
	}

	var retriever orchestrator.Retriever
	milvusClient, err := retrieval.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Warn("Milvus unavailable, responses will not be grounded", zap.Error(err))
	} else {
		if err := milvusClient.EnsureCollection(context.Background()); err != nil {
			appLogger.Warn("Failed to ensure Milvus collection", zap.Error(err))
		}
		retriever = milvusClient
		defer milvusClient.Close()
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	convStore := conversation.NewStore(conversation.Config{
		HistoryLimit:     cfg.Pipeline.HistoryLimit,
		MaxConversations: cfg.Pipeline.MaxConversations,
		IdleTTL:          time.Duration(cfg.Pipeline.ConversationTTLMin) * time.Minute,
	})
	defer convStore.Stop()

	pipeline := orchestrator.New(
		convStore,
		retriever,
		llmClient,
		llmClient,
		auditWriter,
		auditStore,
		packageCache,
		orchestrator.Config{
			TopK:             cfg.Milvus.TopK,
			GroundedMaxDist:  cfg.Pipeline.GroundedMaxDist,
			UncertaintyFloor: cfg.Pipeline.ClarifyConfidence,
			BiasDetect:       cfg.Pipeline.BiasDetect,
			BiasCorrect:      cfg.Pipeline.BiasCorrect,
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		Logger: appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	chatHandler := handlers.NewChatHandler(pipeline)
	historyHandler := handlers.NewHistoryHandler(auditStore)
	feedbackHandler := handlers.NewFeedbackHandler(auditStore)
	wsHandler := handlers.NewWebSocketHandler(pipeline)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", historyHandler.GetHistory)
	api.Post("/feedback", feedbackHandler.HandleFeedback)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ready",
			"grounded": retriever != nil,
			"cached":   packageCache != nil,
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
