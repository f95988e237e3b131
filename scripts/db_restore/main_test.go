package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/garnizeh/dbsync/internal/config"
	"github.com/garnizeh/dbsync/internal/db"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		RootDir:      t.TempDir(),
		RemoteURL:    "https://example.com/data.db",
		DatabaseDir:  "prisma",
		DatabaseFile: "dev.db",
		TempFile:     "temp.db",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := os.MkdirAll(cfg.DatabaseDirPath(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return cfg
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	d, err := db.New(ctx, cfg.DatabasePath()+".bak")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Exec(ctx, `CREATE TABLE photos (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	d.Close()
	if err := os.WriteFile(cfg.DatabasePath(), []byte("broken"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := restore(ctx, cfg, zap.NewNop()); err != nil {
		t.Fatalf("restore returned error: %v", err)
	}

	tables, err := db.Validate(ctx, cfg.DatabasePath())
	if err != nil {
		t.Fatalf("restored database is invalid: %v", err)
	}
	if len(tables) != 1 || tables[0] != "photos" {
		t.Fatalf("unexpected tables: %v", tables)
	}
	if _, err := os.Stat(cfg.TempPath()); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone, stat err: %v", err)
	}
}

func TestRestore_InvalidBackup(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.DatabasePath()+".bak", []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(cfg.DatabasePath(), []byte("current"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := restore(context.Background(), cfg, zap.NewNop())
	if !errors.Is(err, db.ErrInvalidDatabase) {
		t.Fatalf("expected ErrInvalidDatabase, got %v", err)
	}

	got, _ := os.ReadFile(cfg.DatabasePath())
	if string(got) != "current" {
		t.Fatalf("current database must not change, got %q", got)
	}
}
