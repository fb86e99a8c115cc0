package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"sitedocs/internal/app"
	"sitedocs/internal/config"
	"sitedocs/internal/media"
	"sitedocs/internal/move"
	"sitedocs/internal/ordering"
	"sitedocs/internal/search"
	"sitedocs/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "versions", applied)
	}

	if err := os.MkdirAll(cfg.OrderCacheDir, 0o755); err != nil {
		log.Fatalf("failed to create order cache dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	opts := app.Options{Logger: logger}

	var remote ordering.Remote
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisRemote, err := ordering.NewRedisRemote(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis url, folder orders stay on local disk", "error", err)
		} else {
			defer redisRemote.Close()
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := redisRemote.Ping(pingCtx); err != nil {
				logger.Warn("redis unreachable, using local disk until it answers", "error", err)
			}
			cancel()
			remote = redisRemote
			opts.Redis = redisRemote
		}
	}
	opts.Orders = ordering.New(remote, ordering.NewDiskLocal(cfg.OrderCacheDir), logger)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	opts.Search = search.NewService(meiliClient, search.NewPgSearch(dataStore), logger)

	if cfg.MediaEnabled() {
		mediaStore, err := media.Open(ctx, media.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			MaxBytes:  cfg.MaxUploadBytes,
		}, logger)
		if err != nil {
			logger.Warn("media storage unavailable, uploads disabled", "error", err)
		} else {
			opts.Media = mediaStore
		}
	}

	scheduler := move.NewTickScheduler(64, logger)
	defer scheduler.Close()
	opts.Scheduler = scheduler

	service := app.New(cfg, dataStore, opts)
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap error", "error", err)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(app.NewHTTPServer(service, logger).Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("sitedocs API listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
