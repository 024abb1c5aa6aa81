package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/ebookgrid/internal/cache"
	"github.com/lepinkainen/ebookgrid/internal/config"
	apperrors "github.com/lepinkainen/ebookgrid/internal/errors"
	"github.com/lepinkainen/ebookgrid/internal/server"
	"github.com/lepinkainen/ebookgrid/internal/shelf"
)

var (
	newService = shelf.New
	runServer  = server.Run

	// Logs stay off stdout so check reports can be piped.
	logOutput io.Writer = os.Stderr
)

// CLI represents the complete command structure for the ebookgrid application
type CLI struct {
	// Global flags
	ListingURL   string `name:"listing-url" help:"Spreadsheet URL or path (overrides listing.url and LISTING_URL)"`
	VerifyCovers bool   `name:"verify-covers" help:"Check that every cover URL answers with an image"`
	CacheDB      string `name:"cache-db" help:"Path to probe cache SQLite database file"`
	ProbeTTL     string `name:"probe-ttl" help:"How long successful cover probes are cached (e.g. 24h)"`
	Debug        bool   `help:"Enable debug logging"`

	Serve  ServeCmd  `cmd:"" help:"Serve the cover grid over HTTP"`
	Render RenderCmd `cmd:"" help:"Write the cover grid to a static HTML file"`
	Check  CheckCmd  `cmd:"" help:"Load and validate the spreadsheet without rendering"`
	Cache  CacheCmd  `cmd:"" help:"Manage the cover probe cache"`
}

// CacheCmd groups the probe cache maintenance commands
type CacheCmd struct {
	Clear cache.ClearCmd `cmd:"" help:"Delete every cached probe result"`
	Prune cache.PruneCmd `cmd:"" help:"Delete expired probe results"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	if err := initConfig(); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ebookgrid"),
		kong.Description("Render a grid of e-book covers from a spreadsheet listing."),
		kong.UsageOnError(),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)

	if cli.Debug {
		initLogging(true)
	}
	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		stop()
		os.Exit(reportFailure(err))
	}
}

// reportFailure logs a command error and returns the exit code.
func reportFailure(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		slog.Info("Interrupted")
	case apperrors.IsCancelledError(err):
		slog.Info("Cancelled", "error", err)
	case apperrors.IsSourceError(err):
		slog.Error("No spreadsheet source could be loaded", "error", err, "hint", "set --listing-url or LISTING_URL")
	default:
		slog.Error("Command failed", "error", err)
	}
	return 1
}

func initConfig() error {
	// .env supplies LISTING_URL and friends in local setups.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	config.SetDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("listing.url", "LISTING_URL", "LISTAGEM_URL"); err != nil {
		return err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		slog.Debug("No config file found, using defaults and environment")
	}

	config.InitConfig()
	return nil
}

func updateGlobalConfig(cli *CLI) {
	if cli.ListingURL != "" {
		viper.Set("listing.url", cli.ListingURL)
	}
	if cli.VerifyCovers {
		viper.Set("covers.verify", true)
	}
	if cli.CacheDB != "" {
		viper.Set("cache.dbfile", cli.CacheDB)
	}
	if cli.ProbeTTL != "" {
		viper.Set("covers.probe_ttl", cli.ProbeTTL)
	}
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(logOutput, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
