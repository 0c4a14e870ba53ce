package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"

	ArchiveBackendMinio = "minio"
	ArchiveBackendGCS   = "gcs"
)

// Config is the process-wide configuration. It is built once at startup and
// passed by value; nothing reads the environment afterwards.
type Config struct {
	ServerPort         int      `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string   `env:"LOG_FORMAT" envDefault:"text"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	StoreBackend       string   `env:"STORE_BACKEND" envDefault:"postgres"`

	Database DatabaseConfig
	Auth     AuthConfig
	Events   EventsConfig
	Archive  ArchiveConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postboard"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	DBName   string `env:"DB_NAME" envDefault:"postboard_db"`
	UseSSL   bool   `env:"DB_USE_SSL" envDefault:"false"`
}

// AuthConfig holds token signing and password hashing parameters.
type AuthConfig struct {
	SecretKey         string `env:"SECRET_KEY,required,notEmpty"`
	Algorithm         string `env:"ALGORITHM" envDefault:"HS256"`
	TokenExpireMinute int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"10"`
}

// TokenTTL returns the access token lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpireMinute) * time.Minute
}

// EventsConfig selects the broker used for post lifecycle events.
// An empty Backend disables publishing.
type EventsConfig struct {
	Backend  string `env:"EVENTS_BACKEND"`
	Channel  string `env:"EVENTS_CHANNEL" envDefault:"post-events"`
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT" envDefault:"0"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

// ArchiveConfig selects the object store that receives deleted posts.
// An empty Backend disables archiving.
type ArchiveConfig struct {
	Backend string `env:"ARCHIVE_BACKEND"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"postboard-archive"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// LoadConfig reads the configuration from the environment. In dev mode a
// local .env file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return errors.New("SECRET_KEY is required")
	}
	if c.Auth.TokenExpireMinute < 1 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}

	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Events.Backend {
	case "", EventsBackendRabbitMQ, EventsBackendPubSub:
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.Events.Backend)
	}

	switch c.Archive.Backend {
	case "", ArchiveBackendMinio, ArchiveBackendGCS:
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.Archive.Backend)
	}
	return nil
}

// LoadSection parses a single configuration section such as DatabaseConfig.
// Maintenance commands use it so they do not need SECRET_KEY.
func LoadSection[T any]() (T, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	section, err := env.ParseAs[T]()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to parse config: %w", err)
	}
	return section, nil
}
