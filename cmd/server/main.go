package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"petshop/internal/api"        // Custom package for API handlers
	"petshop/internal/config"     // Custom package for configuration
	"petshop/internal/db"         // Database connection
	"petshop/internal/events"     // Order event publishing
	"petshop/internal/repository" // Persistence
	"petshop/internal/service"    // Use cases
	"petshop/internal/utils"      // Cache

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	setupLogger(cfg)
	decimal.MarshalJSONWithoutQuotes = true // Prices go out as JSON numbers

	store := openStore(cfg)

	// Setup cache: Redis when configured, otherwise reads always hit the store
	var cache utils.Cache = utils.NopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		defer redisClient.Close()
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		cache = utils.NewRedisCache(redisClient)
	}

	// Setup order events: Kafka when brokers are configured
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to flush order events")
		}
	}()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Deps{
		Auth:      service.NewAuthService(store, cfg.JWTSecret, cfg.JWTTTL),
		Catalog:   service.NewCatalogService(store, cache, cfg.CacheTTL),
		Cart:      service.NewCartService(store),
		Orders:    service.NewOrderService(store, cache, publisher),
		JWTSecret: cfg.JWTSecret,
		Origins:   cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "db": cfg.DBDriver}).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithField("error", err.Error()).Error("Forced shutdown")
	}
}

func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// openStore connects to the configured database. The memory driver starts empty
// and is seeded with the demo catalog.
func openStore(cfg *config.Config) repository.Store {
	if cfg.DBDriver == "memory" {
		store := repository.NewMemoryStore()
		if err := db.Seed(context.Background(), store); err != nil {
			logrus.Fatalf("failed to seed memory store: %v", err)
		}
		logrus.Warn("Using in-memory store, data is lost on restart")
		return store
	}

	gdb, err := db.Open(cfg) // Setup the database connection
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	return repository.NewGormStore(gdb)
}
