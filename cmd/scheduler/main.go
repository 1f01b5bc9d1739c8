package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/segyhp/obligation-engine/internal/clock"
	"github.com/segyhp/obligation-engine/internal/config"
	"github.com/segyhp/obligation-engine/internal/rate"
	"github.com/segyhp/obligation-engine/internal/repository"
	"github.com/segyhp/obligation-engine/internal/service"
	"github.com/segyhp/obligation-engine/pkg/logger"
)

// jobTimeout bounds a single run so a stuck job cannot overlap the next one
const jobTimeout = 30 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting obligation scheduler...")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Server.Env}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		}
	}
	defer logger.Flush(2 * time.Second)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	scheduleService := service.NewScheduleService(repository.NewRepositories(db), repository.NewTransactor(db), nil, clock.System{}, cfg)
	store := rate.NewStore(db)
	upstream := rate.NewHTTPProvider(cfg.Rates.BaseURL, cfg.GetRatesTimeout())

	// Initialize cron scheduler
	c := cron.New(
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	// Schedule tasks
	if err := setupCronJobs(c, cfg, scheduleService, upstream, store); err != nil {
		logger.Error("Failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	// Start the scheduler
	c.Start()
	logger.Info("Scheduler started successfully", "timezone", cfg.Scheduler.Timezone)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, schedules *service.ScheduleService, upstream rate.Provider, store *rate.Store) error {
	// Recompute the cached overdue days and late fees of open rows
	if _, err := c.AddFunc(cfg.Scheduler.LateFeeRefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		logger.Info("Running late fee refresh job...")
		if _, err := schedules.RefreshLateFees(ctx); err != nil {
			logger.CaptureError("Late fee refresh failed", err)
		}
	}); err != nil {
		return err
	}

	// Copy recent UF values into the local table so generation does not depend on the upstream
	if _, err := c.AddFunc(cfg.Scheduler.RateWarmSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		to := time.Now().In(cfg.GetSchedulerLocation())
		from := to.AddDate(0, 0, -cfg.Scheduler.RateWarmDays)
		logger.Info("Running UF rate warm job...", "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly))

		n, err := rate.Warm(ctx, upstream, store, cfg.Rates.BaseURL, from, to)
		if err != nil {
			logger.CaptureError("UF rate warm failed", err, "stored", n)
			return
		}
		logger.Info("UF rates warmed", "stored", n)
	}); err != nil {
		return err
	}

	logger.Info("Cron jobs scheduled successfully",
		"late_fee_spec", cfg.Scheduler.LateFeeRefreshSpec,
		"rate_warm_spec", cfg.Scheduler.RateWarmSpec,
	)
	return nil
}
