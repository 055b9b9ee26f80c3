package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/open4good/open4goods-sub001/internal/cli"
	"github.com/open4good/open4goods-sub001/internal/config"
)

func runVerticals(args []string) int {
	fs := flag.NewFlagSet("verticals", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	verticals, err := config.LoadVerticals(cfg.VerticalConfigDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load verticals: %v\n", err)
		return 1
	}

	type verticalSummary struct {
		Name   string   `json:"vertical"`
		Stages []string `json:"stages"`
	}
	names := make([]string, 0, len(verticals))
	for name := range verticals {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]verticalSummary, 0, len(names))
	for _, name := range names {
		items = append(items, verticalSummary{Name: name, Stages: verticals[name].Stages})
	}
	return printOrFail(map[string]any{
		"config_dir": cfg.VerticalConfigDir,
		"items":      items,
	})
}
