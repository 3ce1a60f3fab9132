package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mkravets/storefront-bridge/internal/b2b"
	"github.com/mkravets/storefront-bridge/internal/backup"
	"github.com/mkravets/storefront-bridge/internal/bridge"
	"github.com/mkravets/storefront-bridge/internal/commerce"
	"github.com/mkravets/storefront-bridge/internal/config"
	"github.com/mkravets/storefront-bridge/internal/events"
	"github.com/mkravets/storefront-bridge/internal/httpserver"
	"github.com/mkravets/storefront-bridge/internal/reconcile"
	"github.com/mkravets/storefront-bridge/pkg/logging"
	loggingmw "github.com/mkravets/storefront-bridge/pkg/middleware/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("redis ping error: %v", err)
	}
	cancel()

	commerceClient := commerce.NewClient(cfg.CommerceURL)
	b2bClient := b2b.NewClient(cfg.B2BTokenURL, cfg.B2BChannelID, cfg.B2BCredential)

	backups := backup.NewStore(redisClient, commerceClient)
	engine := reconcile.NewEngine(commerceClient, backups)

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var sessionBridge *bridge.Bridge
	if producer != nil {
		sessionBridge = bridge.New(commerceClient, b2bClient, engine, producer)
	} else {
		sessionBridge = bridge.New(commerceClient, b2bClient, engine, nil)
	}

	httpserver.Register(e, &httpserver.Deps{
		SessionHandler: &httpserver.SessionHandler{
			Bridge:    sessionBridge,
			Carts:     commerceClient,
			JWTSecret: cfg.JWTSecret,
		},
	})

	go func() {
		log.Printf("Starting session bridge on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}

	log.Println("Server stopped")
}
