package main

import (
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/dbsync/internal/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("DBSYNC_CONFIG"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	dst, err := backup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup completed: %s\n", dst)
}

// backup copies the destination database to <database>.bak and returns the
// backup path. A partial copy is removed.
func backup(cfg *config.Config) (string, error) {
	src := cfg.DatabasePath()
	dst := src + ".bak"

	srcFile, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(dst)
		return "", err
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}

	return dst, nil
}
