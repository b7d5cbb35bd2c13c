package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicdesk/backend/internal/api"
	"civicdesk/backend/internal/api/handler"
	"civicdesk/backend/internal/auth"
	"civicdesk/backend/internal/category"
	"civicdesk/backend/internal/complaint"
	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/events"
	"civicdesk/backend/internal/livefeed"
	"civicdesk/backend/internal/localization"
	"civicdesk/backend/internal/stats"
	"civicdesk/backend/internal/storage"
	"civicdesk/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Сховище
	store, err := storage.Open(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("storage ready", "driver", cfg.StoreDriver)

	// 2. Redis (необов'язковий): кеш звітів і pub/sub подій
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, continuing without cache and pub/sub", "addr", cfg.Redis.Addr, "err", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	l := localization.Default()
	if cfg.LocalesDir != "" {
		if l, err = localization.NewLocalizer(cfg.LocalesDir); err != nil {
			return err
		}
	}
	l.SetFallback(localization.DefaultLang)

	// 3. Події: Redis, Kafka, live feed, Telegram
	hub := livefeed.NewHub()
	go hub.Run(ctx)

	sinks := events.NewMulti()
	if rdb != nil {
		redisPub := events.NewRedisPublisher(rdb, events.DefaultChannel)
		sinks.Add("redis", redisPub)
		go hub.Consume(ctx, redisPub.Subscribe(ctx))
	} else {
		sinks.Add("livefeed", hub)
	}
	if kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicEvents); kp != nil {
		sinks.Add("kafka", kp)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err := telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			slog.Warn("telegram notifier disabled", "err", err)
		} else {
			n := telegram.NewNotifier(bot, cfg.TelegramChatID, l, cfg.DefaultLang)
			go n.Run(ctx)
			sinks.Add("telegram", n)
		}
	}
	defer sinks.Close()

	// 4. Сервіси
	statsSvc := stats.NewService(store, nil, cfg.StatsTTL)
	if rdb != nil {
		statsSvc.Cache = storage.NewRedisCache(rdb, "stats:")
	}
	statsSvc.DynamicCategories = cfg.DynamicCategories

	complaints := complaint.NewService(store, complaint.LocalizedRules(l, cfg.DefaultLang, cfg.AllowAnyMove))
	complaints.Events = sinks
	complaints.Reports = statsSvc
	complaints.Notes = func(key string, args map[string]string) string {
		return l.Format(cfg.DefaultLang, key, args)
	}

	authSvc := auth.NewService(store, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL))
	categories := category.NewService(store)

	if n, err := categories.SeedDefaults(ctx); err != nil {
		slog.Warn("seed categories", "err", err)
	} else if n > 0 {
		slog.Info("seeded default categories", "count", n)
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := authSvc.EnsureAdmin(ctx, "Administrator", cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Warn("ensure admin account", "err", err)
		}
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return err
	}

	// 5. HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(authSvc, complaints, statsSvc, categories, hub, store)
	h.UploadDir = cfg.UploadDir
	h.MaxUploadMB = cfg.MaxUploadMB
	h.Localizer = l
	router := api.NewRouter(h, api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		LoginPerMin: cfg.LoginPerMin,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
