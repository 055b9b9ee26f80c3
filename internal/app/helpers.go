package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/cli"
	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/db"
	"github.com/open4good/open4goods-sub001/internal/logging"
)

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// bootstrap loads env + config, builds the logger and connects the pool.
// Callers own the returned pool.
func bootstrap(envLoader *cli.EnvLoader, connectTimeout time.Duration) (*config.Config, zerolog.Logger, *db.Pool, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, logger, pool, nil
}
