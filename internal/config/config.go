package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file written by init and read by every command.
const FileName = "fincopilot.yaml"

// Environment overrides. They win over the config file.
const (
	EnvDBLocation   = "FINCOPILOT_DB_LOCATION"
	EnvReadyTimeout = "FINCOPILOT_READY_TIMEOUT"
	EnvBusyTimeout  = "FINCOPILOT_BUSY_TIMEOUT"
	EnvImportDir    = "FINCOPILOT_IMPORT_DIR"
	EnvImportFormat = "FINCOPILOT_IMPORT_FORMAT"
	EnvLogLevel     = "FINCOPILOT_LOG_LEVEL"
	EnvLogPretty    = "FINCOPILOT_LOG_PRETTY"
)

// Config represents the top-level fincopilot.yaml configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Import ImportConfig `yaml:"import"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig locates and tunes the SQLite store.
type StoreConfig struct {
	Path         string        `yaml:"path"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// ImportConfig controls how bank files are read.
type ImportConfig struct {
	Dir            string   `yaml:"dir"`
	Format         string   `yaml:"format"`
	Source         string   `yaml:"source"`
	DefaultAccount string   `yaml:"default_account,omitempty"`
	DateLayouts    []string `yaml:"date_layouts,omitempty"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads a fincopilot.yaml file from disk. Missing keys take their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         filepath.Join("data", "fincopilot.db"),
			ReadyTimeout: 30 * time.Second,
			BusyTimeout:  5 * time.Second,
		},
		Import: ImportConfig{
			Dir:    "import",
			Format: "canonical",
			Source: "File",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Resolve builds the effective configuration for the project in dir. It
// loads dir/.env, reads dir/fincopilot.yaml when present, applies
// FINCOPILOT_* overrides and makes every path absolute. Relative paths are
// taken relative to dir.
func Resolve(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	cfg, err := Load(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
	case err != nil:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Store.Path, err = absPath(dir, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	cfg.Import.Dir, err = absPath(dir, cfg.Import.Dir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Store.Path = getEnv(EnvDBLocation, c.Store.Path)
	c.Import.Dir = getEnv(EnvImportDir, c.Import.Dir)
	c.Import.Format = getEnv(EnvImportFormat, c.Import.Format)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)

	var err error
	if c.Store.ReadyTimeout, err = getEnvAsDuration(EnvReadyTimeout, c.Store.ReadyTimeout); err != nil {
		return err
	}
	if c.Store.BusyTimeout, err = getEnvAsDuration(EnvBusyTimeout, c.Store.BusyTimeout); err != nil {
		return err
	}
	if c.Log.Pretty, err = getEnvAsBool(EnvLogPretty, c.Log.Pretty); err != nil {
		return err
	}
	return nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path (or %s) is required", EnvDBLocation)
	}
	if strings.ContainsAny(c.Store.Path, "?#") {
		return fmt.Errorf("store.path %q must not contain '?' or '#'", c.Store.Path)
	}
	if c.Store.ReadyTimeout < 0 || c.Store.BusyTimeout < 0 {
		return errors.New("store timeouts must not be negative")
	}
	return nil
}

// absPath expands a leading ~ and anchors relative paths at base.
func absPath(base, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", p, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	return abs, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
