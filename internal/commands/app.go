package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fincopilot/fincopilot/internal/config"
	"github.com/fincopilot/fincopilot/internal/logger"
	"github.com/fincopilot/fincopilot/internal/store"
)

// app is the wiring shared by commands that touch the store.
type app struct {
	dir   string
	cfg   *config.Config
	log   zerolog.Logger
	store *store.Store
}

// loadConfig resolves the project directory and its configuration.
func loadConfig(opts *rootOptions) (string, *config.Config, zerolog.Logger, error) {
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return "", nil, zerolog.Nop(), fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Resolve(dir)
	if err != nil {
		return "", nil, zerolog.Nop(), err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return dir, cfg, log, nil
}

// openApp loads configuration and opens a ready store. Nothing else in a
// command runs until the store has passed EnsureReady.
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	dir, cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{dir: dir, cfg: cfg, log: log, store: st}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store.Store, error) {
	st, err := store.Open(store.Config{
		Path:         cfg.Store.Path,
		ReadyTimeout: cfg.Store.ReadyTimeout,
		BusyTimeout:  cfg.Store.BusyTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureReady(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing store")
	}
}
