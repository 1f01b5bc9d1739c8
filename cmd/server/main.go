package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/obligation-engine/internal/billing"
	"github.com/segyhp/obligation-engine/internal/clock"
	"github.com/segyhp/obligation-engine/internal/config"
	"github.com/segyhp/obligation-engine/internal/handler"
	"github.com/segyhp/obligation-engine/internal/rate"
	"github.com/segyhp/obligation-engine/internal/repository"
	"github.com/segyhp/obligation-engine/internal/service"
	"github.com/segyhp/obligation-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	initSentry(cfg)
	defer logger.Flush(2 * time.Second)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// UF rates: redis, then the local table, then the published series
	store := rate.NewStore(db)
	chain := rate.NewChain(store, rate.NewHTTPProvider(cfg.Rates.BaseURL, cfg.GetRatesTimeout()))
	chain.Sink = store
	chain.Source = cfg.Rates.BaseURL
	rates := rate.NewRedisCache(redisClient, chain, cfg.GetRateTTL())

	amounts := &billing.AmountResolver{
		Rates:            rates,
		Decimals:         cfg.GetCurrencyDecimals(),
		AllowProvisional: cfg.Business.UFAllowProvisional,
	}

	// Initialize repositories and services
	transactor := repository.NewTransactor(db)
	scheduleService := service.NewScheduleService(repository.NewRepositories(db), transactor, amounts, clock.System{}, cfg)
	paymentLinker := service.NewPaymentLinker(transactor, clock.System{}, cfg)

	scheduleHandler := handler.NewScheduleHandler(scheduleService, paymentLinker)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := handler.NewRouter(scheduleHandler, healthHandler, cfg.GetRequestTimeout())

	// Start server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	go func() {
		logger.Info("Server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func initSentry(cfg *config.Config) {
	if cfg.Sentry.DSN == "" {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Server.Env,
		TracesSampleRate: 0.2,
	}); err != nil {
		logger.Error("Sentry initialization failed", "error", err)
		return
	}
	logger.Info("Sentry initialized")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
