package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/open4good/open4goods-sub001/internal/cli"
	"github.com/open4good/open4goods-sub001/internal/db"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	vertical := fs.String("vertical", "", "Vertical to re-process (required)")
	brand := fs.String("brand", "", "Only re-process products of this brand")
	limit := fs.Int("limit", 0, "Maximum products to re-process, 0 for all")

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
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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
		logger.Error().Err(err).Msg("batch failed to build service")
		fmt.Fprintf(os.Stderr, "Failed to build service: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	stats, err := service.RunBatch(ctx, strings.ToLower(strings.TrimSpace(*vertical)), db.ExportFilter{
		Brand: strings.TrimSpace(*brand),
		Limit: *limit,
	})
	if err != nil {
		logger.Error().Err(err).Str("vertical", *vertical).Msg("batch run failed")
		fmt.Fprintf(os.Stderr, "Batch run failed: %v\n", err)
		return 1
	}

	return printOrFail(stats)
}
