package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                     "8080",
		Env:                      "development",
		DBDriver:                 DriverPostgres,
		DBPassword:               "secure-password",
		DBSSLMode:                "disable",
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "localhost:6379",
		TimelineBackend:          TimelineBackendSQL,
		TimelineBatchSize:        MaxTimelineBatchSize,
		FanoutMode:               FanoutModeInline,
		FanoutParallelism:        4,
		FanoutMaxAttempts:        5,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateEnums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.DBDriver = DriverSQLite; c.SQLitePath = "" }},
		{"unknown timeline backend", func(c *Config) { c.TimelineBackend = "cassandra" }},
		{"redis backend without url", func(c *Config) { c.TimelineBackend = TimelineBackendRedis; c.RedisURL = "" }},
		{"batch size too large", func(c *Config) { c.TimelineBatchSize = 26 }},
		{"batch size zero", func(c *Config) { c.TimelineBatchSize = 0 }},
		{"unknown fanout mode", func(c *Config) { c.FanoutMode = "carrier-pigeon" }},
		{"kafka without brokers", func(c *Config) { c.FanoutMode = FanoutModeKafka; c.KafkaBrokers = " , " }},
		{"zero parallelism", func(c *Config) { c.FanoutParallelism = 0 }},
		{"missing port", func(c *Config) { c.Port = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Brokers(t *testing.T) {
	c := &Config{KafkaBrokers: "kafka-1:9092, kafka-2:9092,,"}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Brokers())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("FANOUT_MODE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("FANOUT_MODE", "Inline")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, FanoutModeInline, c.FanoutMode)
	assert.Equal(t, MaxTimelineBatchSize, c.TimelineBatchSize)
	assert.Equal(t, TimelineBackendSQL, c.TimelineBackend)
}
