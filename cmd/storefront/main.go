package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/identity"
	"storefront/internal/server"
	"storefront/internal/util"
	"storefront/pkg/ai"
	"storefront/pkg/queue"
	"storefront/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	jwtTTL := time.Duration(cfg.JWTTTLHours) * time.Hour
	if jwtTTL <= 0 {
		jwtTTL = 24 * time.Hour
	}
	tokens, err := identity.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, jwtTTL)
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	var provider *ai.OpenAIClient
	if cfg.AIBaseURL != "" {
		provider = ai.NewOpenAIClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIChatModel, cfg.AIEmbedModel)
	}

	var images storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		images, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
	}

	var jobs *queue.RedisJobQueue
	if cfg.RedisAddr != "" {
		jobs, err = queue.NewRedisJobQueue(queue.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.EmbeddingStream,
			Group:    cfg.EmbeddingGroup,
		})
		if err != nil {
			log.Fatalf("failed to init embedding queue: %v", err)
		}
	}

	var embedder ai.Embedder
	var generator ai.ChatGenerator
	if provider != nil {
		embedder = provider
		generator = provider
	}
	appCore, err := app.New(app.Config{
		DatabaseDSN:       cfg.DatabaseDSN,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Embedder:          embedder,
		Generator:         generator,
		Images:            images,
		Queue:             jobs,
		Tokens:            tokens,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxy CIDRs: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		Resolver:                   identity.NewResolver(tokens),
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		AssistRateLimitPerMinute:   cfg.AssistRateLimitPerMin,
		CheckoutRateLimitPerMinute: cfg.CheckoutRateLimitPerMin,
		MaxUploadBytes:             cfg.MaxUploadBytes,
		TrustedProxies:             trustedProxies,
		DisableRateLimits:          cfg.RedisAddr == "",
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if jobs != nil {
		concurrency := cfg.EmbeddingConcurrency
		if concurrency <= 0 {
			concurrency = 2
		}
		go jobs.Start(ctx, concurrency, func(ctx context.Context, job queue.JobStatus) error {
			return appCore.EmbedProduct(ctx, job.ProductID)
		})
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("storefront listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
