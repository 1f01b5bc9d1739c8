package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/segyhp/obligation-engine/internal/domain"
)

// Config holds all configuration for our application.
// Sections are squashed so the flat environment keys decode into them.
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Rates     RatesConfig     `mapstructure:",squash"`
	Sentry    SentryConfig    `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port           string `mapstructure:"SERVER_PORT"`
	Host           string `mapstructure:"SERVER_HOST"`
	Env            string `mapstructure:"ENV"`
	ReadTimeout    string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout   string `mapstructure:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	RateTTL  string `mapstructure:"REDIS_RATE_TTL"`
}

type SchedulerConfig struct {
	LateFeeRefreshSpec string `mapstructure:"SCHEDULER_LATE_FEE_SPEC"`
	RateWarmSpec       string `mapstructure:"SCHEDULER_RATE_WARM_SPEC"`
	RateWarmDays       int    `mapstructure:"SCHEDULER_RATE_WARM_DAYS"`
	Timezone           string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	CurrencyDecimals    int  `mapstructure:"CURRENCY_DECIMALS"`
	MaxGenerationMonths int  `mapstructure:"MAX_GENERATION_MONTHS"`
	UFAllowProvisional  bool `mapstructure:"UF_ALLOW_PROVISIONAL"`
	RefreshBatchSize    int  `mapstructure:"LATE_FEE_REFRESH_BATCH"`
}

type RatesConfig struct {
	BaseURL string `mapstructure:"UF_RATES_BASE_URL"`
	Timeout string `mapstructure:"UF_RATES_TIMEOUT"`
}

type SentryConfig struct {
	DSN string `mapstructure:"SENTRY_DSN"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("REQUEST_TIMEOUT", "10s")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_RATE_TTL", "24h")

	v.SetDefault("SCHEDULER_LATE_FEE_SPEC", "5 0 * * *")
	v.SetDefault("SCHEDULER_RATE_WARM_SPEC", "30 0 * * *")
	v.SetDefault("SCHEDULER_RATE_WARM_DAYS", 35)
	v.SetDefault("SCHEDULER_TIMEZONE", "America/Santiago")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CURRENCY_DECIMALS", 0)
	v.SetDefault("MAX_GENERATION_MONTHS", domain.MaxGenerationPeriods)
	v.SetDefault("UF_ALLOW_PROVISIONAL", false)
	v.SetDefault("LATE_FEE_REFRESH_BATCH", 500)

	v.SetDefault("UF_RATES_BASE_URL", "https://mindicador.cl/api")
	v.SetDefault("UF_RATES_TIMEOUT", "5s")

	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.CurrencyDecimals < 0 || c.Business.CurrencyDecimals > 4 {
		return fmt.Errorf("CURRENCY_DECIMALS must be between 0 and 4")
	}

	if c.Business.MaxGenerationMonths < domain.MinGenerationPeriods || c.Business.MaxGenerationMonths > domain.MaxGenerationPeriods {
		return fmt.Errorf("MAX_GENERATION_MONTHS must be between %d and %d", domain.MinGenerationPeriods, domain.MaxGenerationPeriods)
	}

	if c.Business.RefreshBatchSize <= 0 {
		return fmt.Errorf("LATE_FEE_REFRESH_BATCH must be greater than 0")
	}

	durations := map[string]string{
		"SERVER_READ_TIMEOUT":        c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":       c.Server.WriteTimeout,
		"REQUEST_TIMEOUT":            c.Server.RequestTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"REDIS_RATE_TTL":             c.Redis.RateTTL,
		"UF_RATES_TIMEOUT":           c.Rates.Timeout,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	// Validate cron specs
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.LateFeeRefreshSpec); err != nil {
		return fmt.Errorf("SCHEDULER_LATE_FEE_SPEC must be a valid cron spec: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.RateWarmSpec); err != nil {
		return fmt.Errorf("SCHEDULER_RATE_WARM_SPEC must be a valid cron spec: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	if !strings.HasPrefix(c.Rates.BaseURL, "http://") && !strings.HasPrefix(c.Rates.BaseURL, "https://") {
		return fmt.Errorf("UF_RATES_BASE_URL must be an http(s) URL")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RedisAddr returns the host:port of the Redis server
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// GetCurrencyDecimals returns the rounding precision of money amounts
func (c *Config) GetCurrencyDecimals() int32 {
	return int32(c.Business.CurrencyDecimals)
}

func (c *Config) GetReadTimeout() time.Duration    { return mustDuration(c.Server.ReadTimeout) }
func (c *Config) GetWriteTimeout() time.Duration   { return mustDuration(c.Server.WriteTimeout) }
func (c *Config) GetRequestTimeout() time.Duration { return mustDuration(c.Server.RequestTimeout) }
func (c *Config) GetConnMaxLifetime() time.Duration {
	return mustDuration(c.Database.ConnMaxLifetime)
}
func (c *Config) GetRateTTL() time.Duration     { return mustDuration(c.Redis.RateTTL) }
func (c *Config) GetRatesTimeout() time.Duration { return mustDuration(c.Rates.Timeout) }

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// GetSchedulerLocation returns the zone cron specs are evaluated in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
