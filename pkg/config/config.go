package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is populated from STORELINE_* environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Tenants  TenantsConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Courier  CourierConfig
	Storage  StorageConfig
	Coupons  CouponsConfig
	Outbox   OutboxConfig
	GCP      GCPConfig
	Features FeatureFlags
}

type AppConfig struct {
	ServiceName     string        `envconfig:"STORELINE_SERVICE_NAME" default:"storeline-api"`
	Env             string        `envconfig:"STORELINE_ENV" default:"dev"`
	Port            int           `envconfig:"STORELINE_PORT" default:"8080"`
	LogLevel        string        `envconfig:"STORELINE_LOG_LEVEL" default:"info"`
	WarnStack       bool          `envconfig:"STORELINE_WARN_STACK" default:"false"`
	ReadTimeout     time.Duration `envconfig:"STORELINE_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"STORELINE_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"STORELINE_SHUTDOWN_TIMEOUT" default:"20s"`
	CORSOrigins     []string      `envconfig:"STORELINE_CORS_ORIGINS" default:"*"`
}

type DBConfig struct {
	MaxOpenConns    int           `envconfig:"STORELINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORELINE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STORELINE_DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"STORELINE_DB_CONN_MAX_IDLE_TIME" default:"5m"`
}

// TenantsConfig carries the JSON tenant roster. Each entry maps a tenant
// identifier to its database DSN and per-tenant credentials.
type TenantsConfig struct {
	SpecJSON string `envconfig:"STORELINE_TENANTS" required:"true"`
}

type RedisConfig struct {
	Addr           string        `envconfig:"STORELINE_REDIS_ADDR" default:"localhost:6379"`
	Password       string        `envconfig:"STORELINE_REDIS_PASSWORD" default:""`
	DB             int           `envconfig:"STORELINE_REDIS_DB" default:"0"`
	DialTimeout    time.Duration `envconfig:"STORELINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"STORELINE_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret    string        `envconfig:"STORELINE_JWT_SECRET" required:"true"`
	Issuer    string        `envconfig:"STORELINE_JWT_ISSUER" default:"storeline"`
	AccessTTL time.Duration `envconfig:"STORELINE_JWT_ACCESS_TTL" default:"1h"`
}

type GatewayConfig struct {
	BaseURL string        `envconfig:"STORELINE_GATEWAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout time.Duration `envconfig:"STORELINE_GATEWAY_TIMEOUT" default:"10s"`
}

type CourierConfig struct {
	BaseURL string        `envconfig:"STORELINE_COURIER_BASE_URL" default:""`
	Timeout time.Duration `envconfig:"STORELINE_COURIER_TIMEOUT" default:"10s"`
}

type StorageConfig struct {
	BaseURL string        `envconfig:"STORELINE_STORAGE_BASE_URL" default:""`
	Bucket  string        `envconfig:"STORELINE_STORAGE_BUCKET" default:"storeline-invoices"`
	Timeout time.Duration `envconfig:"STORELINE_STORAGE_TIMEOUT" default:"15s"`
}

// CouponsConfig carries the JSON coupon roster, mapping tenant id to
// coupon code to discount.
type CouponsConfig struct {
	RosterJSON string `envconfig:"STORELINE_COUPONS" default:""`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"STORELINE_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"STORELINE_OUTBOX_POLL_INTERVAL" default:"2s"`
	MaxAttempts  int           `envconfig:"STORELINE_OUTBOX_MAX_ATTEMPTS" default:"8"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STORELINE_GCP_PROJECT_ID" default:""`
	TopicID   string `envconfig:"STORELINE_PUBSUB_TOPIC" default:"storeline-events"`
}

type FeatureFlags struct {
	AutoMigrate bool `envconfig:"STORELINE_AUTO_MIGRATE" default:"false"`
}

// Load reads configuration from the environment using the STORELINE prefix.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("STORELINE", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
