package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults reproduce the layout the sync job has always used: the database
// lives under <root>/prisma and the dependent service is brought up with npm.
const (
	DefaultRemoteURL    = "https://r2.cosine.ren/data.db"
	DefaultDatabaseDir  = "prisma"
	DefaultDatabaseFile = "dev.db"
	DefaultTempFile     = "temp.db"
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type Config struct {
	RootDir      string            `yaml:"root_dir"`
	RemoteURL    string            `yaml:"remote_url"`
	DatabaseDir  string            `yaml:"database_dir"`
	DatabaseFile string            `yaml:"database_file"`
	TempFile     string            `yaml:"temp_file"`
	Timeout      time.Duration     `yaml:"timeout"`
	Headers      map[string]string `yaml:"headers"`
	Restart      RestartConfig     `yaml:"restart"`
	Log          LogConfig         `yaml:"log"`
}

// RestartConfig describes the command that brings the dependent service back
// up after a new database has been installed. An empty Command disables it.
type RestartConfig struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      DefaultUserAgent,
		"Accept":          "*/*",
		"Accept-Encoding": "gzip, deflate, br",
		"Connection":      "keep-alive",
	}
}

// DefaultRootDir returns the parent of the directory holding the running
// binary, so a binary installed as <root>/bin/dbsync works on <root>
// regardless of the working directory it is started from. It falls back to
// the working directory when the executable cannot be resolved.
func DefaultRootDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe))
}

// LoadConfig applies defaults, then environment overrides, then the YAML
// file at path when one is given. A headers map in the file replaces the
// default header set instead of merging into it.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		RootDir:      getEnv("DBSYNC_ROOT_DIR", DefaultRootDir()),
		RemoteURL:    getEnv("DBSYNC_REMOTE_URL", DefaultRemoteURL),
		DatabaseDir:  DefaultDatabaseDir,
		DatabaseFile: DefaultDatabaseFile,
		TempFile:     DefaultTempFile,
		Restart: RestartConfig{
			Command: []string{"npm", "run", "docker:up"},
		},
		Log: LogConfig{
			Level:  getEnv("DBSYNC_LOG_LEVEL", "info"),
			Format: "console",
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration and fills in derived defaults.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		c.RootDir = DefaultRootDir()
	}
	if c.Headers == nil {
		c.Headers = DefaultHeaders()
	}
	if c.Restart.Dir == "" {
		c.Restart.Dir = c.RootDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	u, err := url.Parse(c.RemoteURL)
	if err != nil {
		return fmt.Errorf("invalid remote_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid remote_url %q: scheme must be http or https", c.RemoteURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid remote_url %q: missing host", c.RemoteURL)
	}

	if c.DatabaseDir == "" {
		return errors.New("database_dir must not be empty")
	}
	if err := checkFileName("database_file", c.DatabaseFile); err != nil {
		return err
	}
	if err := checkFileName("temp_file", c.TempFile); err != nil {
		return err
	}
	if c.DatabaseFile == c.TempFile {
		return fmt.Errorf("temp_file and database_file must differ (both %q)", c.TempFile)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", c.Log.Format)
	}

	return nil
}

// DatabaseDirPath returns the directory holding both the destination and the
// temporary file. Keeping them together makes the final rename atomic.
func (c *Config) DatabaseDirPath() string {
	if filepath.IsAbs(c.DatabaseDir) {
		return c.DatabaseDir
	}
	return filepath.Join(c.RootDir, c.DatabaseDir)
}

func (c *Config) DatabasePath() string {
	return filepath.Join(c.DatabaseDirPath(), c.DatabaseFile)
}

func (c *Config) TempPath() string {
	return filepath.Join(c.DatabaseDirPath(), c.TempFile)
}

func checkFileName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%s must be a bare file name, got %q", field, name)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
