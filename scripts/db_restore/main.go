package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/garnizeh/dbsync/internal/config"
	"github.com/garnizeh/dbsync/internal/db"
	"github.com/garnizeh/dbsync/internal/syncer"
)

// db_restore puts <database>.bak back in place using the same
// validate-then-rename swap as a regular sync. The dependent service is not
// restarted.
func main() {
	cfg, err := config.LoadConfig(os.Getenv("DBSYNC_CONFIG"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := restore(context.Background(), cfg, logger); err != nil {
		logger.Error("Restore error", zap.Error(err))
		_ = os.Remove(cfg.TempPath())
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("Database restore completed.", zap.String("path", cfg.DatabasePath()))
}

func restore(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	src := cfg.DatabasePath() + ".bak"

	tables, err := db.Validate(ctx, src)
	if err != nil {
		return fmt.Errorf("backup %s: %w", src, err)
	}
	logger.Info("backup validated", zap.String("path", src), zap.Strings("tables", tables))

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmpFile, err := os.Create(cfg.TempPath())
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return syncer.Install(cfg.TempPath(), cfg.DatabasePath(), logger)
}
