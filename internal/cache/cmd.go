package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// ClearCmd represents the cache clear subcommand
type ClearCmd struct{}

// PruneCmd represents the cache prune subcommand
type PruneCmd struct{}

func (c *ClearCmd) Run() error {
	cacheDB := viper.GetString("cache.dbfile")
	slog.Info("Clearing probe cache", "database", cacheDB)

	db, err := Open(cacheDB)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rowsDeleted, err := db.ClearAll(ProbeCacheTable)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	slog.Info("Probe cache cleared", "database", db.Path(), "rows_deleted", rowsDeleted)
	return nil
}

func (p *PruneCmd) Run() error {
	cacheDB := viper.GetString("cache.dbfile")
	ttl := viper.GetDuration("covers.probe_ttl")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	slog.Info("Pruning probe cache", "database", cacheDB, "ttl", ttl)

	db, err := Open(cacheDB)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rowsDeleted, err := db.ClearExpired(ProbeCacheTable, ttl)
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	slog.Info("Probe cache pruned", "database", db.Path(), "rows_deleted", rowsDeleted)
	return nil
}
