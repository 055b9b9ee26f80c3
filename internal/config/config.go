package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"AGG_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"AGG_DB_MAX_CONNS" default:"8"`

	VerticalConfigDir string `envconfig:"VERTICAL_CONFIG_DIR" default:"./verticals"`

	MediaCacheDir        string        `envconfig:"MEDIA_CACHE_DIR" default:"/var/cache/aggregator/media"`
	MediaConnectTimeout  time.Duration `envconfig:"MEDIA_CONNECT_TIMEOUT" default:"5s"`
	MediaDownloadTimeout time.Duration `envconfig:"MEDIA_DOWNLOAD_TIMEOUT" default:"30s"`

	EmbeddingEndpoint       string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingRequestTimeout time.Duration `envconfig:"EMBEDDING_REQUEST_TIMEOUT" default:"45s"`

	BatchWorkers int `envconfig:"BATCH_WORKERS" default:"4"`

	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8082"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("AGG_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("AGG_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("AGG_DB_MIN_CONNS (%d) cannot exceed AGG_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.MediaCacheDir) == "" {
		return fmt.Errorf("MEDIA_CACHE_DIR is required")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be >= 1")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port")
	}
	return nil
}
