package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/aicontext"
	"github.com/lawdesk/lawdesk-server/internal/chat"
	"github.com/lawdesk/lawdesk-server/internal/config"
	"github.com/lawdesk/lawdesk-server/internal/db"
	"github.com/lawdesk/lawdesk-server/internal/httpapi"
	"github.com/lawdesk/lawdesk-server/internal/httpapi/handlers"
	"github.com/lawdesk/lawdesk-server/internal/logger"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
	"github.com/lawdesk/lawdesk-server/internal/practice"
	"github.com/lawdesk/lawdesk-server/internal/storage"
	"github.com/lawdesk/lawdesk-server/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("database connect failed", "error", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	// chat provider; gemini also serves vision for the synchronous OCR route
	var (
		chatProvider ai.Provider
		gemini       *ai.GeminiProvider
	)
	switch strings.ToLower(cfg.AIProvider) {
	case "", "gemini":
		gemini, err = ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.ChatModel, cfg.OCRModel, cfg.SystemPrompt)
		if err != nil {
			log.Fatal("gemini init failed", "error", err)
		}
		defer gemini.Close()
		chatProvider = gemini
	case "ollama":
		chatProvider = ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel)
		if cfg.GeminiAPIKey != "" {
			gemini, err = ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.ChatModel, cfg.OCRModel, cfg.SystemPrompt)
			if err != nil {
				log.Fatal("gemini init failed", "error", err)
			}
			defer gemini.Close()
		}
	default:
		log.Fatal("unsupported AI_PROVIDER", "provider", cfg.AIProvider)
	}

	var ocrGateway *ocr.Gateway
	if gemini != nil {
		ocrGateway = ocr.NewGateway(gemini, cfg.MaxUploadSize, cfg.AITimeout, log)
	} else {
		log.Warn("no vision provider configured, OCR routes disabled")
	}

	objects, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		log.Fatal("object storage init failed", "error", err)
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal("rabbitmq init failed", "error", err)
	}
	defer publisher.Close()

	repo := practice.NewRepo(gdb)
	practiceSvc := practice.NewService(repo, objects, publisher, log)

	var store chat.SessionStore
	switch strings.ToLower(cfg.SessionStore) {
	case "", "db":
		store = chat.NewGormStore(gdb, cfg.SessionMaxMessages)
	case "memory":
		store = chat.NewMemoryStore(cfg.SessionMaxMessages)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connect failed", "error", err)
		}
		store = chat.NewRedisStore(rdb, cfg.SessionMaxMessages, cfg.SessionTTL)
	default:
		log.Fatal("unsupported SESSION_STORE", "store", cfg.SessionStore)
	}

	chatSvc := chat.NewService(store, chatProvider, cfg.ChatContextWindowSize, cfg.SessionTTL, cfg.AITimeout, log)

	builder := aicontext.NewBuilder(repo)
	cache := aicontext.NewCache(gdb, cfg.ContextCacheTTL)

	h := handlers.NewHandler(cfg, log, practiceSvc, chatSvc, ocrGateway, builder, cache)
	router := httpapi.NewRouter(cfg, log, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
