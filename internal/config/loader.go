package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "eventora.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("EVENTORA_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "EVENTORA_PORT")
	setString(&cfg.Server.CORSOrigin, "EVENTORA_CORS_ORIGIN")
	setDuration(&cfg.Server.ShutdownTimeout, "EVENTORA_SHUTDOWN_TIMEOUT")
	setFloat64(&cfg.Server.RateLimit, "EVENTORA_RATE_LIMIT")
	setInt(&cfg.Server.RateBurst, "EVENTORA_RATE_BURST")
	setDuration(&cfg.Server.IdempotencyTTL, "EVENTORA_IDEMPOTENCY_TTL")
	setString(&cfg.Storage.Driver, "EVENTORA_STORAGE")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "EVENTORA_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "EVENTORA_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "EVENTORA_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "EVENTORA_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "EVENTORA_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.Migrate, "EVENTORA_PG_MIGRATE")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "EVENTORA_NATS_STREAM")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Logging.Level, "EVENTORA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "EVENTORA_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "EVENTORA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "EVENTORA_BREAKER_TIMEOUT")

	// Cache
	setInt64(&cfg.Cache.MaxSizeMB, "EVENTORA_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TenantTTL, "EVENTORA_CACHE_TENANT_TTL")
	setDuration(&cfg.Cache.TemplateTTL, "EVENTORA_CACHE_TEMPLATE_TTL")
	setString(&cfg.Cache.SharedBucket, "EVENTORA_CACHE_BUCKET")
	setDuration(&cfg.Cache.SharedTTL, "EVENTORA_CACHE_SHARED_TTL")

	// Booking
	setDuration(&cfg.Booking.ReminderLead, "EVENTORA_REMINDER_LEAD")
	setString(&cfg.Booking.ReminderQueue, "EVENTORA_REMINDER_QUEUE")
	setInt(&cfg.Booking.WorkerConcurrency, "EVENTORA_WORKER_CONCURRENCY")
	setBool(&cfg.Tenancy.AllowPayloadTenant, "EVENTORA_ALLOW_PAYLOAD_TENANT")

	// OpenTelemetry
	setBool(&cfg.OTel.Enabled, "EVENTORA_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "EVENTORA_OTEL_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "EVENTORA_OTEL_SERVICE_NAME")
	setBool(&cfg.OTel.Insecure, "EVENTORA_OTEL_INSECURE")
	setFloat64(&cfg.OTel.SampleRate, "EVENTORA_OTEL_SAMPLE_RATE")

	setString(&cfg.Notify.SlackWebhookURL, "EVENTORA_SLACK_WEBHOOK_URL")
	setString(&cfg.Notify.DiscordWebhookURL, "EVENTORA_DISCORD_WEBHOOK_URL")
	setString(&cfg.Notify.SMTP.Host, "EVENTORA_SMTP_HOST")
	setInt(&cfg.Notify.SMTP.Port, "EVENTORA_SMTP_PORT")
	setString(&cfg.Notify.SMTP.From, "EVENTORA_SMTP_FROM")
	setString(&cfg.Notify.SMTP.Password, "EVENTORA_SMTP_PASSWORD")
	setString(&cfg.Notify.SMTP.To, "EVENTORA_SMTP_TO")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", cfg.Storage.Driver)
	}
	if cfg.Server.RateLimit <= 0 || cfg.Server.RateBurst < 1 {
		return errors.New("server.rate_limit and server.rate_burst must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	if cfg.Booking.ReminderLead < 0 {
		return errors.New("booking.reminder_lead must not be negative")
	}
	if cfg.Booking.WorkerConcurrency < 1 {
		return errors.New("booking.worker_concurrency must be >= 1")
	}
	if cfg.OTel.SampleRate < 0 || cfg.OTel.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
