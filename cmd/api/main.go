package main

import (
	"context"
	"errors"
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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/srm-faq/backend/internal/api/handlers"
	"github.com/srm-faq/backend/internal/cache/redis"
	"github.com/srm-faq/backend/internal/chat"
	"github.com/srm-faq/backend/internal/embedding"
	"github.com/srm-faq/backend/internal/humanizer"
	"github.com/srm-faq/backend/internal/ingestion"
	"github.com/srm-faq/backend/internal/knowledge"
	"github.com/srm-faq/backend/internal/metrics"
	"github.com/srm-faq/backend/internal/middleware/ratelimit"
	"github.com/srm-faq/backend/internal/middleware/security"
	"github.com/srm-faq/backend/internal/storage/postgres"
	"github.com/srm-faq/backend/internal/storage/sqlite"
	"github.com/srm-faq/backend/pkg/config"
	appLogger "github.com/srm-faq/backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting SRM FAQ API server")

	metrics.Init()

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, cfg.Ollama.EmbeddingDim)
	if err != nil {
		appLogger.Fatal("Failed to create postgres client", zap.Error(err))
	}
	defer pgClient.Close()

	if err := pgClient.InitSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize postgres schema", zap.Error(err))
	}

	convlog, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create conversation log", zap.Error(err))
	}
	defer convlog.Close()

	if err := convlog.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize conversation log schema", zap.Error(err))
	}

	var embeddingCache knowledge.EmbeddingCache
	redisClient, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.EmbeddingTTLSec)*time.Second,
	)
	if err != nil {
		appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
	} else {
		embeddingCache = redisClient
		defer redisClient.Close()
	}

	embedder := embedding.NewClient(cfg.Ollama)
	if err := embedder.WaitReady(ctx); err != nil {
		if errors.Is(err, embedding.ErrEmbeddingFailure) {
			appLogger.Fatal("Embedding model misconfigured", zap.Error(err))
		}
		appLogger.Warn("Embedding provider not ready yet", zap.Error(err))
	}

	humanizerClient := humanizer.NewClient(cfg.Groq, cfg.Retrieval.Greeting)

	knowledgeService := knowledge.NewService(
		pgClient,
		embedder,
		embeddingCache,
		cfg.Retrieval.SimilarityThreshold,
		cfg.Retrieval.SearchLimit,
	)

	chatEngine := chat.NewEngine(
		knowledgeService,
		humanizerClient,
		convlog,
		cfg.Retrieval.SimilarityThreshold,
		cfg.Retrieval.HumanizeDefault,
	)

	processor := ingestion.NewProcessor(knowledgeService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(security.Headers())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Session-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeService, processor)
	chatHandler := handlers.NewChatHandler(chatEngine, convlog)
	wsHandler := handlers.NewWebSocketHandler(chatEngine)
	systemHandler := handlers.NewSystemHandler(knowledgeService, pgClient, convlog, embedder, humanizerClient)

	api := app.Group("/api/v1", limiter.Middleware())

	api.Post("/knowledge", knowledgeHandler.Create)
	api.Get("/knowledge", knowledgeHandler.List)
	api.Get("/knowledge/categories", knowledgeHandler.Categories)
	api.Post("/knowledge/import", knowledgeHandler.Import)
	api.Get("/knowledge/:id", knowledgeHandler.Get)
	api.Put("/knowledge/:id", knowledgeHandler.Update)
	api.Delete("/knowledge/:id", knowledgeHandler.Delete)

	api.Post("/search", knowledgeHandler.Search)

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetHistory)

	api.Get("/stats", systemHandler.HandleStats)
	api.Get("/health", systemHandler.HandleHealth)

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
