package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/open4good/open4goods-sub001/internal/cli"
	"github.com/open4good/open4goods-sub001/internal/globaltime"
	"github.com/open4good/open4goods-sub001/internal/model"
)

func runMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	vertical := fs.String("vertical", "", "Vertical the observation belongs to (required)")
	file := fs.String("file", "-", "Observation JSON file, - for stdin")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall merge timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*vertical) == "" {
		fmt.Fprintln(os.Stderr, "--vertical is required")
		return 2
	}

	obs, err := readObservation(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read observation: %v\n", err)
		return 2
	}

	cfg, logger, pool, err := bootstrap(envLoader, 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer pool.Close()

	service, err := NewService(cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("merge failed to build service")
		fmt.Fprintf(os.Stderr, "Failed to build service: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := service.MergeObservation(ctx, strings.ToLower(strings.TrimSpace(*vertical)), obs)
	if err != nil {
		logger.Error().Err(err).Int64("gtin", obs.GTIN).Msg("merge failed")
		fmt.Fprintf(os.Stderr, "Merge failed: %v\n", err)
		return 1
	}

	return printOrFail(result)
}

func readObservation(path string) (*model.Observation, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var obs model.Observation
	if err := json.Unmarshal(raw, &obs); err != nil {
		return nil, fmt.Errorf("parse observation JSON: %w", err)
	}
	if obs.GTIN <= 0 {
		return nil, fmt.Errorf("observation gtin must be positive")
	}
	if strings.TrimSpace(obs.Source) == "" {
		return nil, fmt.Errorf("observation source is required")
	}
	if obs.FetchedAt.IsZero() {
		obs.FetchedAt = globaltime.UTC()
	}
	return &obs, nil
}
