package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort   string `env:"APP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DB           DB           `envPrefix:"DB_"`
	Auth         Auth         `envPrefix:"AUTH_"`
	Kafka        Kafka        `envPrefix:"KAFKA_"`
	Checkout     Checkout     `envPrefix:"CHECKOUT_"`
	Verification Verification `envPrefix:"VERIFICATION_"`

	EventDrivenEnabled bool `env:"EVENT_DRIVEN_ENABLED" envDefault:"false"`
}

type DB struct {
	Host          string `env:"HOST" envDefault:"localhost"`
	Port          string `env:"PORT" envDefault:"5432"`
	User          string `env:"USER" envDefault:"postgres"`
	Password      string `env:"PASSWORD" envDefault:"postgres"`
	Name          string `env:"NAME" envDefault:"vinyldb"`
	SSLMode       string `env:"SSLMODE" envDefault:"disable"`
	MaxConns      int32  `env:"MAX_CONNS" envDefault:"20"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"db/migrations"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
}

type Kafka struct {
	Brokers           string        `env:"BROKERS" envDefault:"kafka:9092"`
	ClientID          string        `env:"CLIENT_ID" envDefault:"vinyl-checkout"`
	GroupID           string        `env:"GROUP_ID" envDefault:"coupon-consumers"`
	RetryGroupID      string        `env:"RETRY_GROUP_ID" envDefault:"coupon-retry"`
	InstanceID        string        `env:"INSTANCE_ID"`
	TopicPartitions   int           `env:"TOPIC_PARTITIONS" envDefault:"3"`
	RetryPartitions   int           `env:"RETRY_PARTITIONS" envDefault:"1"`
	ReplicationFactor int           `env:"REPLICATION_FACTOR" envDefault:"1"`
	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBackoff      time.Duration `env:"RETRY_BACKOFF" envDefault:"2s"`
}

type Checkout struct {
	ShippingFee string        `env:"SHIPPING_FEE" envDefault:"60"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"8s"`
}

type Verification struct {
	TTL         time.Duration `env:"TTL" envDefault:"10m"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Kafka.InstanceID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			cfg.Kafka.InstanceID = "unknown"
		} else {
			cfg.Kafka.InstanceID = hostname
		}
	}
	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c *Config) Brokers() []string {
	return strings.Split(c.Kafka.Brokers, ",")
}

func (c *Config) TopicPartitions() int {
	return positive(c.Kafka.TopicPartitions, 3)
}

func (c *Config) RetryPartitions() int {
	return positive(c.Kafka.RetryPartitions, 1)
}

func (c *Config) ReplicationFactor() int16 {
	return int16(positive(c.Kafka.ReplicationFactor, 1))
}

func (c *Config) MaxRetries() int {
	return positive(c.Kafka.MaxRetries, 3)
}

func positive(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
