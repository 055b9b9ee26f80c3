package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/open4good/open4goods-sub001/internal/cli"
	"github.com/open4good/open4goods-sub001/internal/globaltime"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Database connect timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	_, _, pool, err := bootstrap(envLoader, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := pool.DB().PingContext(pingCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Database ping failed: %v\n", err)
		return 1
	}

	return printOrFail(map[string]any{
		"status": "ok",
		"time":   globaltime.UTC(),
	})
}

func printOrFail(value any) int {
	if err := printJSON(value); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}
