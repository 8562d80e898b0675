package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/worker"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Refund    RefundConfig    `mapstructure:"refund"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Services  []ServiceConfig `mapstructure:"services"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type CalendarConfig struct {
	// Timezone is the IANA zone that defines the civil date.
	Timezone string `mapstructure:"timezone"`
	// MaxRangeDays bounds availability queries.
	MaxRangeDays int `mapstructure:"max_range_days"`
}

type BookingConfig struct {
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
	ReleaseAttempts int           `mapstructure:"release_attempts"`
	ReleaseBackoff  time.Duration `mapstructure:"release_backoff"`
}

type RefundConfig struct {
	FullRefundPercent    int64 `mapstructure:"full_refund_percent"`
	PartialRefundPercent int64 `mapstructure:"partial_refund_percent"`
	FullRefundNoticeDays int   `mapstructure:"full_refund_notice_days"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	AdminToken     string   `mapstructure:"admin_token"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type ServiceConfig struct {
	Type        string `mapstructure:"type"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Price       string `mapstructure:"price"`
}

// envOverrides are read from BOOKING_* variables and win over the file.
type envOverrides struct {
	ServerPort int    `envconfig:"SERVER_PORT"`
	DBDriver   string `envconfig:"DB_DRIVER"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	RedisURL   string `envconfig:"REDIS_URL"`
	Timezone   string `envconfig:"TIMEZONE"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	AdminToken string `envconfig:"ADMIN_TOKEN"`
}

const envPrefix = "BOOKING"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)

	v.SetDefault("redis.channel", "booking.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("calendar.timezone", "UTC")
	v.SetDefault("calendar.max_range_days", 180)

	v.SetDefault("booking.idempotency_ttl", "30m")
	v.SetDefault("booking.release_attempts", 3)
	v.SetDefault("booking.release_backoff", "200ms")

	v.SetDefault("refund.full_refund_percent", 95)
	v.SetDefault("refund.partial_refund_percent", 50)
	v.SetDefault("refund.full_refund_notice_days", 2)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("security.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")

	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.retry_attempts", 5)
	v.SetDefault("outbox.retry_delay", "10s")
	v.SetDefault("outbox.retention", "168h")
	v.SetDefault("outbox.cleanup_interval", "1h")
}

// LoadConfig reads config.yml from the usual locations.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	v.AddConfigPath("/app/config")
	return load(v)
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	config.applyEnv(env)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv(env envOverrides) {
	if env.ServerPort != 0 {
		c.Server.Port = env.ServerPort
	}
	if env.DBDriver != "" {
		c.Database.Driver = env.DBDriver
	}
	if env.DBHost != "" {
		c.Database.Host = env.DBHost
	}
	if env.DBPort != 0 {
		c.Database.Port = env.DBPort
	}
	if env.DBUser != "" {
		c.Database.User = env.DBUser
	}
	if env.DBPassword != "" {
		c.Database.Password = env.DBPassword
	}
	if env.DBName != "" {
		c.Database.Name = env.DBName
	}
	if env.RedisURL != "" {
		c.Redis.URL = env.RedisURL
	}
	if env.Timezone != "" {
		c.Calendar.Timezone = env.Timezone
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.AdminToken != "" {
		c.Security.AdminToken = env.AdminToken
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid calendar timezone %q: %w", c.Calendar.Timezone, err)
	}
	r := c.Refund
	if r.FullRefundPercent < 0 || r.FullRefundPercent > 100 || r.PartialRefundPercent < 0 || r.PartialRefundPercent > 100 {
		return fmt.Errorf("refund percentages must be within 0..100")
	}
	if c.Booking.ReleaseAttempts < 1 {
		return fmt.Errorf("booking.release_attempts must be at least 1")
	}
	if _, err := c.Catalog(); err != nil {
		return err
	}
	return nil
}

// Catalog converts the configured services into priced entries.
func (c *Config) Catalog() ([]model.CatalogEntry, error) {
	entries := make([]model.CatalogEntry, 0, len(c.Services))
	for _, s := range c.Services {
		typ := model.ServiceType(strings.ToUpper(s.Type))
		if !typ.Valid() {
			return nil, fmt.Errorf("unknown service type %q", s.Type)
		}
		price, err := decimal.NewFromString(s.Price)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("invalid price %q for service %s", s.Price, s.Type)
		}
		entries = append(entries, model.CatalogEntry{
			Type:        typ,
			Name:        s.Name,
			Description: s.Description,
			Price:       price,
			PriceText:   price.StringFixed(2),
		})
	}
	return entries, nil
}

// DSN builds the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Add conversion methods to convert config types
func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
