package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// EnsureDir creates path and any missing parents. An existing directory is
// not an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// Install moves a validated file at tmp into place at dst. An existing dst
// is removed first, then tmp is renamed over it. tmp and dst must be on the
// same filesystem for the rename to be atomic.
func Install(tmp, dst string, logger *zap.Logger) error {
	if _, err := os.Stat(dst); err == nil {
		logger.Info("Removing old database file...", zap.String("path", dst))
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("%w: remove %s: %v", ErrInstall, dst, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", ErrInstall, dst, err)
	}

	logger.Info("Installing new database file...", zap.String("path", dst))
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %v", ErrInstall, tmp, dst, err)
	}
	return nil
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// sqliteSidecars lists the files SQLite may create next to path while the
// database is open: the WAL, its shared-memory index and a rollback journal.
func sqliteSidecars(path string) []string {
	return []string{path + "-wal", path + "-shm", path + "-journal"}
}

// removeSidecars deletes any SQLite side files left next to path. A
// read-only connection cannot remove the WAL and shm files it opened.
func removeSidecars(path string) error {
	var errs []error
	for _, p := range sqliteSidecars(path) {
		if err := removeIfExists(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
