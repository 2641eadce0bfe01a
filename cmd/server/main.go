package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"modchat/internal/chat"
	"modchat/internal/config"
	"modchat/internal/history"
	"modchat/internal/middleware"
	"modchat/internal/moderation"
	"modchat/internal/storage"
)

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// History store: Postgres when configured, in-memory otherwise.
	var store history.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := history.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		store = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		store = history.NewMemoryStore()
		logger.Warn().Msg("DATABASE_URL not set, history is in-memory and lost on restart")
	}

	// Object store for uploaded images.
	var objects storage.ObjectStore
	if cfg.S3Endpoint != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("object store connection failed")
		}
		objects = s3Store
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("connected to object storage")
	} else {
		objects = storage.NewMemoryStore()
		logger.Warn().Msg("S3_ENDPOINT not set, uploaded images are held in memory")
	}

	registry := chat.NewRegistry()

	// Cross-instance broadcast relay, only with Redis configured.
	var relay *chat.Relay
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		relay = chat.NewRelay(redisClient, registry, logger)
		go relay.Run(ctx)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("broadcast relay connected to Redis")
	}

	// No classifier endpoint means no moderation; the pipeline then
	// rejects image submissions instead of letting them through unscreened.
	var classifier moderation.Classifier
	if cfg.ClassifierURL != "" {
		classifier = moderation.NewHTTPClassifier(cfg.ClassifierURL)
		logger.Info().Str("url", cfg.ClassifierURL).Msg("image classifier configured")
	} else {
		logger.Warn().Msg("CLASSIFIER_URL not set, image submissions will be rejected")
	}
	pipeline := moderation.NewPipeline(store, moderation.NewHTTPFetcher(), classifier, objects, logger)

	coordinator := chat.NewCoordinator(registry, store, pipeline, relay, cfg.HistoryLimit, logger)
	handler := chat.NewHandler(coordinator, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	r.Get("/ws", handler.ServeWs)
	r.Post("/create-room", handler.CreateRoom)
	r.Post("/images", handler.SubmitImage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		// The image endpoint waits on fetch + classify + upload; give
		// responses room to finish.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting modchat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
