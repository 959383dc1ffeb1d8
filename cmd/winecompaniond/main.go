package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"winecompanion-backend/config"
	"winecompanion-backend/internal/api"
	"winecompanion-backend/internal/auth"
	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/db"
	"winecompanion-backend/internal/mw"
	"winecompanion-backend/internal/notification"
	"winecompanion-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "winecompanion ", log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		logger.Printf("no .env file loaded: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webpushOptions *webpush.Options
	senders := []notification.Sender{}
	if cfg.Mail.Enabled {
		senders = append(senders, notification.NewMailjetSender(cfg.Mail.APIKey, cfg.Mail.SecretKey, cfg.Mail.FromEmail, cfg.Mail.FromName))
	} else {
		senders = append(senders, notification.LogSender{})
	}
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		senders = append(senders, notification.NewPushSender(appStore, webpushOptions))
	} else {
		logger.Println("VAPID keys are not configured; web push is disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, senders...)
	pool.Start(ctx)

	var notifier notification.Notifier = pool
	if cfg.Queue.Enabled {
		publisher, err := notification.NewQueuePublisher(cfg.Queue.URL, cfg.Queue.Name)
		if err != nil {
			logger.Fatalf("failed to connect to the notification queue: %v", err)
		}
		defer publisher.Close()
		notifier = publisher
		go notification.Consume(ctx, cfg.Queue.URL, cfg.Queue.Name, pool)
		logger.Printf("notifications are published to queue %q", cfg.Queue.Name)
	}

	manager := booking.NewManager(appStore, notifier,
		booking.WithLocation(cfg.Booking.Location),
		booking.WithReasons(cfg.Booking.DefaultCancelReason, cfg.Booking.DefaultEventCancelReason),
	)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var responseCache mw.ResponseCache
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Printf("redis at %s is unreachable, responses will miss the cache: %v", cfg.Cache.RedisAddr, err)
		}
		responseCache = mw.NewRedisCache(rdb, cfg.Cache.Prefix)
	} else {
		responseCache = mw.NewMemoryCache(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL)
	}

	handler := api.NewHandler(appStore, manager, issuer, notifier, webpushOptions, api.Settings{
		BaseURL:  cfg.Server.BaseURL,
		Location: cfg.Booking.Location,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		Burst:     cfg.Server.RateLimitBurst,
		Cache:     responseCache,
		CacheTTL:  cfg.Server.CacheTTL,
		Tokens:    issuer,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: corsHandler,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	logger.Println("Server gracefully stopped")
}
