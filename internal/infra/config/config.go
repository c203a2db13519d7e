package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	GatewayFake   = "fake"
	GatewayStripe = "stripe"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDB       string `envconfig:"MONGO_DB" default:"rentbox"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`

	KafkaBrokers       []string        `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix   string          `envconfig:"KAFKA_TOPIC_PREFIX"`
	KafkaPaymentTopic  string          `envconfig:"KAFKA_PAYMENT_TOPIC"`
	KafkaGroupID       string          `envconfig:"KAFKA_GROUP_ID" default:"rentbox-payments"`
	IdempotencyTTL     time.Duration   `envconfig:"IDEMP_TTL" default:"168h"`
	OutboxPollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff       []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`

	RabbitMQURL    string `envconfig:"RABBITMQ_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"rentbox.notifications"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"rentbox.notifications.q"`
	NotifyDLX      string `envconfig:"NOTIFY_DLX" default:"rentbox.notifications.dlx"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	RateLimitCapacity int           `envconfig:"RATE_LIMIT_CAPACITY" default:"10"`
	RateLimitRefill   int           `envconfig:"RATE_LIMIT_REFILL" default:"1"`
	RateLimitInterval time.Duration `envconfig:"RATE_LIMIT_INTERVAL" default:"6s"`
	InboxTTL          time.Duration `envconfig:"INBOX_TTL" default:"168h"`

	PaymentGateway       string `envconfig:"PAYMENT_GATEWAY" default:"fake"`
	StripeSecretKey      string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	PaymentsWebhookToken string `envconfig:"PAYMENTS_WEBHOOK_TOKEN"`
	PublicBaseURL        string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:3000"`
	WeeklyPriceCents     int64  `envconfig:"WEEKLY_PRICE_CENTS" default:"3000"`
	Currency             string `envconfig:"CURRENCY" default:"CAD"`
	ProductName          string `envconfig:"PRODUCT_NAME" default:"Weekly rental"`

	MailjetAPIKey    string `envconfig:"MAILJET_API_KEY"`
	MailjetSecretKey string `envconfig:"MAILJET_SECRET_KEY"`
	MailFrom         string `envconfig:"MAIL_FROM"`
	MailFromName     string `envconfig:"MAIL_FROM_NAME" default:"Rentbox"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:"minioadmin"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:"minioadmin"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"rentbox-receipts"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	AdminPassword     string        `envconfig:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminJWTSecret    string        `envconfig:"ADMIN_JWT_SECRET"`
	AdminTokenTTL     time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"24h"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file (APP_ENV_FILE or ./.env) and parses the environment.
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv("APP_ENV_FILE")); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	// existing process variables win over the file
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.PaymentGateway = strings.ToLower(strings.TrimSpace(c.PaymentGateway))
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	c.KafkaBrokers = compact(c.KafkaBrokers)
	c.CORSOrigins = compact(c.CORSOrigins)
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	switch c.PaymentGateway {
	case GatewayFake, GatewayStripe:
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_GATEWAY %q", c.PaymentGateway))
	}
	if c.WeeklyPriceCents <= 0 {
		errs = append(errs, errors.New("WEEKLY_PRICE_CENTS must be positive"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("CURRENCY %q is not an ISO code", c.Currency))
	}
	if c.RateLimitCapacity <= 0 || c.RateLimitRefill <= 0 || c.RateLimitInterval <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_* values must be positive"))
	}
	return errors.Join(errs...)
}

// Dev reports whether the process runs in a local development environment.
func (c Config) Dev() bool {
	return c.Env == "dev" || c.Env == "local"
}

func compact(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
