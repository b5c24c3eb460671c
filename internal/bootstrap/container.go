package bootstrap

import (
	"context"
	"log"
	"time"

	"floatchat-be/internal/config"
	"floatchat-be/internal/controller"
	"floatchat-be/internal/handler"
	"floatchat-be/internal/pkg/logger"
	"floatchat-be/internal/pkg/serverutils"
	"floatchat-be/internal/repository/implementation"
	"floatchat-be/internal/repository/memory"
	"floatchat-be/internal/service"
	"floatchat-be/pkg/argo"
	"floatchat-be/pkg/embedding"
	"floatchat-be/pkg/llm/factory"
	pktNats "floatchat-be/pkg/nats"
	"floatchat-be/pkg/ocean/analysis"
	"floatchat-be/pkg/ocean/dates"
	"floatchat-be/pkg/ocean/fetch"
	"floatchat-be/pkg/ocean/region"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SystemController controller.ISystemController
	ChatHandler      *handler.ChatHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// LogsGuard protects the operator log reader; nil when auth is off.
	LogsGuard fiber.Handler

	Logger  logger.ILogger
	closers []func()
}

// NewContainer builds every long-lived service once. Model, embedding and
// data-source clients are shared by all connections.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 3. Model providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Keys.GoogleGemini,
		baseURLFor(cfg.Ai.EmbeddingProvider, cfg.Ai),
		cfg.Ai.EmbeddingModel,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		baseURLFor(cfg.Ai.LLMProvider, cfg.Ai),
		apiKeyFor(cfg.Ai.LLMProvider, cfg.Keys),
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	var turnBus service.EventBus
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			turnBus = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var dataFetcher argo.Fetcher = argo.NewClient(cfg.Argo.BaseURL, cfg.Argo.Dataset, cfg.Argo.Timeout)
	if rdb := connectRedis(cfg.App.RedisURL); rdb != nil {
		dataFetcher = argo.NewCachedFetcher(dataFetcher, rdb, cfg.Argo.CacheTTL, sysLogger)
		c.closers = append(c.closers, func() { rdb.Close() })
		log.Printf("[INFO] Argo responses cached in Redis for %s", cfg.Argo.CacheTTL)
	}

	// 5. Repositories
	contextRepo := implementation.NewQueryContextRepository(db)
	sessionRepo := memory.NewSessionRepository(cfg.App.SessionTTL)

	// 6. Services
	contextStore := service.NewContextStoreService(
		contextRepo,
		embeddingProvider,
		cfg.Context.Limit,
		cfg.Context.DistanceThreshold,
		sysLogger,
	)
	publisherService := service.NewPublisherService(cfg.Keys.ContextTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Keys.ContextTopic, contextStore, sysLogger)

	chatService := service.NewChatService(
		contextStore,
		region.NewResolver(llmProvider, wsLogger),
		fetch.NewOrchestrator(dataFetcher, dates.NewNormalizer(nil), wsLogger),
		analysis.NewGenerator(llmProvider, wsLogger),
		publisherService,
		service.NewTurnEventPublisher(turnBus, sysLogger),
		wsLogger,
	)

	// 7. Transport
	c.ChatHandler = handler.NewChatHandler(chatService, sessionRepo, cfg.Auth.JWTSecret, wsLogger)
	c.SystemController = controller.NewSystemController(sessionRepo, contextStore, sysLogger)
	if cfg.Auth.JWTSecret != "" {
		c.LogsGuard = serverutils.JwtMiddleware(cfg.Auth.JWTSecret)
	}

	return c
}

// Close releases broker and cache connections and flushes the logs.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func baseURLFor(provider string, ai config.AIConfig) string {
	switch provider {
	case "ollama":
		return ai.OllamaBaseURL
	case "huggingface":
		return ai.HFBaseURL
	default:
		return ai.GeminiBaseURL
	}
}

func apiKeyFor(provider string, keys config.APIKeys) string {
	if provider == "huggingface" {
		return keys.HuggingFace
	}
	return keys.GoogleGemini
}

// connectRedis returns nil when Redis is not configured or not reachable, in
// which case fetches go straight to ERDDAP.
func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (fetch cache disabled)", err)
		rdb.Close()
		return nil
	}
	return rdb
}
