package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"hotel-kitchen-backend/config"
	"hotel-kitchen-backend/internal/api"
	"hotel-kitchen-backend/internal/broker"
	"hotel-kitchen-backend/internal/db"
	"hotel-kitchen-backend/internal/event"
	"hotel-kitchen-backend/internal/hub"
	"hotel-kitchen-backend/internal/kitchen"
	"hotel-kitchen-backend/internal/mw"
	"hotel-kitchen-backend/internal/notification"
	"hotel-kitchen-backend/internal/store"
	"hotel-kitchen-backend/internal/table"
)

func main() {
	issueToken := flag.Int64("issue-token", 0, "print a signed token for the given worker id and exit")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of tokens issued with -issue-token")
	flag.Parse()

	logger := log.New(os.Stdout, "kitchen-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Server.JWTSecret == "" {
		logger.Fatalf("server.jwt_secret must be configured")
	}

	if *issueToken > 0 {
		tok, err := mw.SignWorkerToken(cfg.Server.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			logger.Fatalf("failed to sign token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
			HTTPClient:      &http.Client{Timeout: notification.PushTimeout},
		}
	} else {
		logger.Println("VAPID keys are not configured, web push is disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	sessions := hub.New(appStore, cfg.Hub.QueueSize)

	notifier := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, cfg.Feed.Retention, webpushOptions)
	notifier.Start(ctx)

	publishers := event.Multi{sessions, notifier}
	if cfg.Broker.Enabled {
		bridge, err := broker.Dial(cfg.Broker, sessions)
		if err != nil {
			logger.Fatalf("failed to connect to broker: %v", err)
		}
		defer bridge.Close()
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Printf("broker bridge stopped: %v", err)
			}
		}()
		publishers = append(publishers, bridge)
	}

	svc := kitchen.NewService(appStore, table.NewAggregator(appStore), publishers)
	feed := notification.NewFeed(appStore, sessions, cfg.Feed.Retention)

	handler := api.NewHandler(appStore, svc, feed, sessions, webpushOptions)
	router := api.NewRouter(handler, api.RouterConfig{
		JWTSecret:       cfg.Server.JWTSecret,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        cfg.Server.CacheTTL,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
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

	cancel()
	sessions.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
