// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Timeline index engines.
const (
	TimelineBackendSQL   = "sql"
	TimelineBackendRedis = "redis"
)

// Fanout execution modes.
const (
	FanoutModeInline = "inline"
	FanoutModeKafka  = "kafka"
)

// MaxTimelineBatchSize is the largest chunk a single batch write may carry.
const MaxTimelineBatchSize = 25

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	SQLitePath               string `mapstructure:"SQLITE_PATH"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL            string `mapstructure:"REDIS_URL"`
	PostCacheTTLSeconds int    `mapstructure:"POST_CACHE_TTL_SECONDS"`
	PostRateLimit       int    `mapstructure:"POST_RATE_LIMIT_PER_MINUTE"`

	TimelineBackend   string `mapstructure:"TIMELINE_BACKEND"`
	TimelineBatchSize int    `mapstructure:"TIMELINE_BATCH_SIZE"`

	FanoutMode               string  `mapstructure:"FANOUT_MODE"`
	FanoutParallelism        int     `mapstructure:"FANOUT_PARALLELISM"`
	FanoutRedeliverySchedule string  `mapstructure:"FANOUT_REDELIVERY_SCHEDULE"`
	FanoutRedeliveryBatch    int     `mapstructure:"FANOUT_REDELIVERY_BATCH"`
	FanoutMaxAttempts        int     `mapstructure:"FANOUT_MAX_ATTEMPTS"`
	KafkaBrokers             string  `mapstructure:"KAFKA_BROKERS"`
	KafkaFanoutTopic         string  `mapstructure:"KAFKA_FANOUT_TOPIC"`
	KafkaConsumerGroup       string  `mapstructure:"KAFKA_CONSUMER_GROUP"`
	SchedulerTimezone        string  `mapstructure:"SCHEDULER_TIMEZONE"`
	TracingEnabled           bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter          string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint             string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio      float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("DB_DRIVER", DriverPostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "feedline")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "feedline.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("POST_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("POST_RATE_LIMIT_PER_MINUTE", 30)

	viper.SetDefault("TIMELINE_BACKEND", TimelineBackendSQL)
	viper.SetDefault("TIMELINE_BATCH_SIZE", MaxTimelineBatchSize)

	viper.SetDefault("FANOUT_MODE", FanoutModeInline)
	viper.SetDefault("FANOUT_PARALLELISM", 4)
	viper.SetDefault("FANOUT_REDELIVERY_SCHEDULE", "@every 1m")
	viper.SetDefault("FANOUT_REDELIVERY_BATCH", 50)
	viper.SetDefault("FANOUT_MAX_ATTEMPTS", 5)
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_FANOUT_TOPIC", "feedline.fanout")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "feedline-fanout-worker")
	viper.SetDefault("SCHEDULER_TIMEZONE", "UTC")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.TimelineBackend = strings.ToLower(strings.TrimSpace(c.TimelineBackend))
	c.FanoutMode = strings.ToLower(strings.TrimSpace(c.FanoutMode))
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Brokers splits KAFKA_BROKERS into addresses.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.DBDriver == DriverSQLite && c.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required when DB_DRIVER is sqlite")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}

	switch c.TimelineBackend {
	case TimelineBackendSQL, TimelineBackendRedis:
	default:
		return fmt.Errorf("TIMELINE_BACKEND must be %q or %q, got %q", TimelineBackendSQL, TimelineBackendRedis, c.TimelineBackend)
	}
	if c.TimelineBackend == TimelineBackendRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL is required when TIMELINE_BACKEND is redis")
	}
	if c.TimelineBatchSize < 1 || c.TimelineBatchSize > MaxTimelineBatchSize {
		return fmt.Errorf("TIMELINE_BATCH_SIZE must be between 1 and %d", MaxTimelineBatchSize)
	}

	switch c.FanoutMode {
	case FanoutModeInline:
	case FanoutModeKafka:
		if len(c.Brokers()) == 0 {
			return errors.New("KAFKA_BROKERS is required when FANOUT_MODE is kafka")
		}
		if c.KafkaFanoutTopic == "" {
			return errors.New("KAFKA_FANOUT_TOPIC is required when FANOUT_MODE is kafka")
		}
	default:
		return fmt.Errorf("FANOUT_MODE must be %q or %q, got %q", FanoutModeInline, FanoutModeKafka, c.FanoutMode)
	}
	if c.FanoutParallelism < 1 {
		return errors.New("FANOUT_PARALLELISM must be at least 1")
	}
	if c.FanoutMaxAttempts < 1 {
		return errors.New("FANOUT_MAX_ATTEMPTS must be at least 1")
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.DBDriver == DriverPostgres {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must enable SSL in production")
			}
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	}

	return nil
}
