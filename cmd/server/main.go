package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/samantaanjo/go_storefront/internal/cart"
	"github.com/samantaanjo/go_storefront/internal/checkout"
	storehttp "github.com/samantaanjo/go_storefront/internal/http"
	"github.com/samantaanjo/go_storefront/internal/identity"
	"github.com/samantaanjo/go_storefront/internal/metrics"
	"github.com/samantaanjo/go_storefront/internal/payment"
	"github.com/samantaanjo/go_storefront/internal/publisher"
	"github.com/samantaanjo/go_storefront/internal/repository"
	"github.com/samantaanjo/go_storefront/internal/session"
)

type Config struct {
	HTTPPort        string
	Postgres        repository.Credentials
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	GatewayURL      string
	GatewayAPIKey   string
	Currency        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "storefront"),
			Password:          getEnv("POSTGRES_PASSWORD", "storefront"),
			DBName:            getEnv("POSTGRES_DB", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		GatewayURL:      getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9200"),
		GatewayAPIKey:   getEnv("PAYMENT_GATEWAY_API_KEY", ""),
		Currency:        getEnv("CURRENCY", "CAD"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("invalid value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	repo, err := repository.NewRepository(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(&cfg.Postgres); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to postgres at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	sessions := session.NewRedisStore(redisClient)
	carts := cart.NewService(repo, repo, cart.NewRedisCache(redisClient))
	resolver := identity.NewResolver(sessions)
	gateway := payment.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayAPIKey)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	orchestrator := checkout.NewOrchestrator(carts, repo, sessions, gateway, checkoutMetrics, cfg.Currency)

	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	cartHandler := storehttp.NewCartHandler(carts, cfg.RequestTimeout)
	checkoutHandler := storehttp.NewCheckoutHandler(orchestrator, repo, cfg.RequestTimeout)
	router := storehttp.NewRouter(
		cartHandler,
		checkoutHandler,
		storehttp.MockAuthMiddleware(resolver, carts),
		metrics.Handler(),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront API starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()
	if err := poller.Close(); err != nil {
		log.Printf("failed to close outbox publisher: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
