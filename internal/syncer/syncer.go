// Package syncer replaces a local SQLite database with a fresh copy fetched
// over HTTP and then restarts the service that reads it.
//
// A run downloads into a temporary file next to the destination, validates
// it, removes the old destination and renames the temporary file into place.
// The destination therefore only ever changes through a rename of a fully
// written, validated file.
package syncer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garnizeh/dbsync/internal/config"
	"github.com/garnizeh/dbsync/internal/db"
)

// Validator decides whether the file at path is a usable database and
// returns the table names it found.
type Validator interface {
	Validate(ctx context.Context, path string) ([]string, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, path string) ([]string, error)

func (f ValidatorFunc) Validate(ctx context.Context, path string) ([]string, error) {
	return f(ctx, path)
}

// Result describes the outcome of one Run.
type Result struct {
	Bytes    int64
	Tables   []string
	Duration time.Duration

	// Updated is true once the new file has been renamed into place.
	Updated bool

	// Restarted is true when the restart command ran and exited cleanly.
	Restarted bool

	// Err is a *StageError for the first failing stage, or nil.
	Err error
}

// Syncer runs the download, validate, install and restart sequence.
type Syncer struct {
	remoteURL string
	dir       string
	dest      string
	temp      string

	logger     *zap.Logger
	downloader *Downloader
	validator  Validator
	restarter  Restarter
}

type Option func(*options)

type options struct {
	client    *http.Client
	validator Validator
	restarter Restarter
}

// WithHTTPClient overrides the client used for the download.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithValidator overrides the database check.
func WithValidator(v Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithRestarter overrides the restart step.
func WithRestarter(r Restarter) Option {
	return func(o *options) { o.restarter = r }
}

// New builds a Syncer from a validated config.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Syncer {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.Timeout}
	}
	if o.validator == nil {
		o.validator = ValidatorFunc(db.Validate)
	}
	if o.restarter == nil {
		o.restarter = NewCommandRestarter(cfg.Restart.Command, cfg.Restart.Dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Syncer{
		remoteURL:  cfg.RemoteURL,
		dir:        cfg.DatabaseDirPath(),
		dest:       cfg.DatabasePath(),
		temp:       cfg.TempPath(),
		logger:     logger,
		downloader: NewDownloader(o.client, cfg.Headers),
		validator:  o.validator,
		restarter:  o.restarter,
	}
}

// Run performs one sync. Failures are logged and reported in Result.Err.
// A failed restart does not roll back the installed file.
func (s *Syncer) Run(ctx context.Context) Result {
	start := time.Now()
	res := s.run(ctx)
	res.Duration = time.Since(start)
	return res
}

func (s *Syncer) run(ctx context.Context) Result {
	var res Result

	s.logger.Info("Starting database sync...", zap.String("url", s.remoteURL))

	if err := EnsureDir(s.dir); err != nil {
		s.logger.Error("Unexpected error", zap.Error(err))
		res.Err = &StageError{Stage: StagePrepare, Err: err}
		return res
	}

	if err := s.update(ctx, &res); err != nil {
		res.Err = err
		s.cleanupTemp()
		return res
	}

	res.Updated = true
	s.logger.Info("Database updated successfully",
		zap.String("path", s.dest),
		zap.Int64("bytes", res.Bytes),
		zap.Int("tables", len(res.Tables)),
	)

	if _, ok := s.restarter.(NopRestarter); ok {
		s.logger.Info("No restart command configured, skipping restart")
		return res
	}
	if err := s.restart(ctx); err != nil {
		res.Err = err
		return res
	}
	res.Restarted = true
	return res
}

// update downloads, validates and installs. The temp file is left for the
// caller to clean up on error.
func (s *Syncer) update(ctx context.Context, res *Result) error {
	s.logger.Info("Downloading database...", zap.String("temp", s.temp))
	n, err := s.downloader.Download(ctx, s.remoteURL, s.temp)
	if err != nil {
		s.logger.Error("Error downloading database", zap.Error(err))
		return &StageError{Stage: StageDownload, Err: err}
	}
	res.Bytes = n
	s.logger.Debug("download complete", zap.Int64("bytes", n))

	// A WAL left by an earlier run would be replayed onto the new file.
	s.cleanupSidecars()

	s.logger.Info("Validating database file...")
	tables, err := s.validator.Validate(ctx, s.temp)
	s.cleanupSidecars()
	if err != nil {
		s.logger.Error("Error: Not a valid SQLite database", zap.Error(err))
		if !errors.Is(err, db.ErrInvalidDatabase) {
			err = errors.Join(db.ErrInvalidDatabase, err)
		}
		return &StageError{Stage: StageValidate, Err: err}
	}
	res.Tables = tables
	s.logger.Debug("database validated", zap.Strings("tables", tables))

	if err := Install(s.temp, s.dest, s.logger); err != nil {
		s.logger.Error("Unexpected error", zap.Error(err))
		return &StageError{Stage: StageInstall, Err: err}
	}
	return nil
}

func (s *Syncer) restart(ctx context.Context) error {
	s.logger.Info("Restarting next service...")
	if err := s.restarter.Restart(ctx); err != nil {
		if errors.Is(err, ErrRestart) {
			s.logger.Error("Error restarting next service", zap.Error(err))
		} else {
			s.logger.Error("Unexpected error while restarting next service", zap.Error(err))
		}
		return &StageError{Stage: StageRestart, Err: err}
	}
	s.logger.Info("Next service restarted successfully")
	return nil
}

func (s *Syncer) cleanupTemp() {
	if err := removeIfExists(s.temp); err != nil {
		s.logger.Warn("failed to remove temporary file", zap.String("path", s.temp), zap.Error(err))
	}
	s.cleanupSidecars()
}

// cleanupSidecars removes the WAL and shm files validation may leave next
// to the temp file when the downloaded database is in WAL mode.
func (s *Syncer) cleanupSidecars() {
	if err := removeSidecars(s.temp); err != nil {
		s.logger.Warn("failed to remove temporary database side files", zap.String("path", s.temp), zap.Error(err))
	}
}
