package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the coordinator processes.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Channels ChannelConfig
	Media    MediaConfig
	ML       MLConfig
	FCM      FCMConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

/// ChannelConfig names the two pub/sub channels of the dispatch protocol:
// Request carries classification requests to the worker pool, Result carries
// the workers' answers back.
type ChannelConfig struct {
	Request string
	Result  string
}

type MediaConfig struct {
	Root string
}

type MLConfig struct {
	// MinAccuracy is the confidence threshold in percent. Automated
	// classifications at or below it are flagged for human review.
	MinAccuracy float64
}

type FCMConfig struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("MOTH_PORT", 8080),
			Env:  envString("MOTH_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Channels: ChannelConfig{
			Request: envString("JOB_REQUEST_CHANNEL", "api-jobs"),
			Result:  envString("JOB_RESULT_CHANNEL", "ml-results"),
		},
		Media: MediaConfig{
			Root: envString("MEDIA_ROOT", "media"),
		},
		ML: MLConfig{
			MinAccuracy: envFloat("MIN_ACCURACY", 80),
		},
		FCM: FCMConfig{
			Endpoint:  envString("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
			ServerKey: os.Getenv("FCM_SERVER_KEY"),
			Timeout:   envDuration("FCM_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Channels.Request == "" || c.Channels.Result == "" {
		return fmt.Errorf("JOB_REQUEST_CHANNEL and JOB_RESULT_CHANNEL must be non-empty")
	}
	if c.Channels.Request == c.Channels.Result {
		return fmt.Errorf("JOB_REQUEST_CHANNEL and JOB_RESULT_CHANNEL must differ, both are %q", c.Channels.Request)
	}

	if c.Media.Root == "" {
		return fmt.Errorf("MEDIA_ROOT must be non-empty")
	}

	if c.ML.MinAccuracy < 0 || c.ML.MinAccuracy > 100 {
		return fmt.Errorf("MIN_ACCURACY must be between 0 and 100, got %v", c.ML.MinAccuracy)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
