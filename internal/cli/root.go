package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garnizeh/dbsync/internal/config"
	"github.com/garnizeh/dbsync/internal/syncer"
)

// RootOptions holds the flags of the dbsync command.
type RootOptions struct {
	ConfigPath string
	Version    string
	BuildTime  string
}

// NewRootCommand creates the dbsync command. A failed sync is logged and
// still exits 0; only a config that cannot be loaded stops the command with
// an error.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}

	cmd := &cobra.Command{
		Use:          "dbsync",
		Short:        "Sync the local SQLite database from its remote copy",
		Long:         "Downloads the remote database, checks that it is a SQLite file, swaps it into place and restarts the dependent service.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Version:      opts.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config YAML file (default $DBSYNC_CONFIG)")

	return cmd
}

func runSync(ctx context.Context, opts *RootOptions) error {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("DBSYNC_CONFIG")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("dbsync starting",
		zap.String("version", opts.Version),
		zap.String("build_time", opts.BuildTime),
		zap.String("database", cfg.DatabasePath()),
	)

	res := syncer.New(cfg, logger).Run(ctx)

	if res.Err != nil {
		logger.Warn("database sync finished with errors",
			zap.Bool("updated", res.Updated),
			zap.Duration("elapsed", res.Duration),
			zap.Error(res.Err),
		)
		return nil
	}
	logger.Info("database sync finished",
		zap.Bool("updated", res.Updated),
		zap.Bool("restarted", res.Restarted),
		zap.Duration("elapsed", res.Duration),
	)
	return nil
}
