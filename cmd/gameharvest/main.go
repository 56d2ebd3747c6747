package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/gameharvest/internal/config"
	"github.com/IshaanNene/gameharvest/internal/engine"
	"github.com/IshaanNene/gameharvest/internal/fetcher"
	"github.com/IshaanNene/gameharvest/internal/observability"
)

var (
	cfgFile      string
	verbose      bool
	targetCount  int
	concurrent   int
	itemTimeout  string
	idOffset     int
	artifactPath string
	outputDir    string
	outputType   string
	renderer     string
	fetcherType  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gameharvest",
		Short: "gameharvest: game catalog harvester and data file patcher",
		Long: `gameharvest collects game links from a listing page, visits each game
page for details, merges both passes and patches the result into the
front-end's generated data file.

Stages:
  discover  listing page -> step1_homepage_games.json
  harvest   game pages   -> step2_detailed_games.json
  merge     join + map   -> merged_scraped_games.json and catalog export
  patch     catalog      -> artifact (with .backup)
  run       all of the above in sequence`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&targetCount, "target", "t", 0, "number of games to discover")
	rootCmd.PersistentFlags().IntVarP(&concurrent, "concurrency", "n", 0, "number of detail workers")
	rootCmd.PersistentFlags().StringVar(&itemTimeout, "item-timeout", "", "timeout per game page (e.g. 30s)")
	rootCmd.PersistentFlags().IntVar(&idOffset, "id-offset", 0, "first id assigned to catalog records")
	rootCmd.PersistentFlags().StringVarP(&artifactPath, "artifact", "a", "", "path of the data file to patch")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for interchange files and exports")
	rootCmd.PersistentFlags().StringVarP(&outputType, "format", "f", "", "catalog export format (json, jsonl, csv, mongo)")
	rootCmd.PersistentFlags().StringVar(&renderer, "renderer", "", "listing renderer (http, browser)")
	rootCmd.PersistentFlags().StringVar(&fetcherType, "fetcher", "", "detail fetcher (http, browser)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(harvestCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(patchCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app bundles what every stage command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	engine  *engine.Engine
	release func() error
}

// newApp loads and validates configuration, wires the engine and starts
// the metrics server when enabled. Detail fetchers are only set up when
// fetch is true. The returned context is canceled on SIGINT/SIGTERM.
func newApp(parent context.Context, fetch bool) (*app, context.Context, context.CancelFunc, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cfg)
	logger := setupLogger(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	var factory fetcher.Factory
	release := func() error { return nil }
	if fetch {
		factory, release, err = fetcher.NewFactory(cfg, logger)
		if err != nil {
			stop()
			return nil, nil, nil, fmt.Errorf("create fetcher: %w", err)
		}
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		engine:  engine.New(cfg, engine.NewPageSource(cfg, logger), factory, metrics, logger),
		release: release,
	}
	return a, ctx, stop, nil
}

func (a *app) close() {
	if err := a.release(); err != nil {
		a.logger.Warn("fetcher release failed", "error", err)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gameharvest %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cfg)

			fmt.Printf("Site:\n")
			fmt.Printf("  Listing URL:       %s\n", cfg.Site.ListingURL)
			fmt.Printf("  Item Path:         %s\n", cfg.Site.ItemPath)
			fmt.Printf("\nDiscovery:\n")
			fmt.Printf("  Target Count:      %d\n", cfg.Discovery.TargetCount)
			fmt.Printf("  Renderer:          %s\n", cfg.Discovery.Renderer)
			fmt.Printf("  Max Stalls:        %d\n", cfg.Discovery.MaxStalls)
			fmt.Printf("\nHarvest:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Harvest.Concurrency)
			fmt.Printf("  Item Timeout:      %s\n", cfg.Harvest.ItemTimeout)
			fmt.Printf("  Pacing:            %s - %s\n", cfg.Harvest.PacingMin, cfg.Harvest.PacingMax)
			fmt.Printf("  Fetcher:           %s\n", cfg.Harvest.Fetcher)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Harvest.UserAgents))
			fmt.Printf("\nTransform:\n")
			fmt.Printf("  ID Offset:         %d\n", cfg.Transform.IDOffset)
			fmt.Printf("  Description Cap:   %d\n", cfg.Transform.DescriptionCap)
			fmt.Printf("\nArtifact:\n")
			fmt.Printf("  Path:              %s\n", cfg.Artifact.Path)
			fmt.Printf("  Segment:           %s: %s[]\n", cfg.Artifact.Segment, cfg.Artifact.TypeName)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Dir:        %s\n", cfg.Storage.OutputDir)
			fmt.Printf("\nRun:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Run.Timeout)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return config.Validate(cfg)
		},
	}
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if targetCount > 0 {
		cfg.Discovery.TargetCount = targetCount
	}
	if concurrent > 0 {
		cfg.Harvest.Concurrency = concurrent
	}
	if itemTimeout != "" {
		d, err := time.ParseDuration(itemTimeout)
		if err == nil {
			cfg.Harvest.ItemTimeout = d
		}
	}
	if idOffset > 0 {
		cfg.Transform.IDOffset = idOffset
	}
	if artifactPath != "" {
		cfg.Artifact.Path = artifactPath
	}
	if outputDir != "" {
		cfg.Storage.OutputDir = outputDir
	}
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
	if renderer != "" {
		cfg.Discovery.Renderer = strings.ToLower(renderer)
	}
	if fetcherType != "" {
		cfg.Harvest.Fetcher = strings.ToLower(fetcherType)
	}
}
