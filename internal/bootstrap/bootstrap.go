// Package bootstrap wires the data layer shared by the site server, the
// admin server and site-cli.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"go-engsite/internal/bus"
	"go-engsite/internal/config"
	"go-engsite/internal/content"
	"go-engsite/internal/remote"
	"go-engsite/internal/storage"
)

// Env is an opened data layer.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *storage.JSONStore
	Bus    *bus.Bus
	Remote *remote.Client // nil when the backend is disabled or unreachable
	Site   *content.Site
}

// Open creates the local store, connects the remote backend when enabled
// and builds the content services. An unreachable backend is logged and
// the site runs on local data.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Env, error) {
	store, err := storage.NewJSONStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	env := &Env{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Bus:    bus.New(logger),
	}

	if cfg.Backend.Enabled {
		client, err := remote.Connect(ctx, RemoteConfig(cfg), logger)
		if err != nil {
			logger.Warn("Remote backend unavailable, serving local data", "error", err)
		} else {
			env.Remote = client
		}
	}

	site, err := content.NewSite(content.Deps{
		Store:   store,
		Remote:  env.Remote,
		Bus:     env.Bus,
		Timeout: cfg.Backend.Timeout,
		Logger:  logger,
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("building content services: %w", err)
	}
	env.Site = site
	return env, nil
}

// RemoteConfig maps the backend section onto the client settings.
func RemoteConfig(cfg *config.Config) remote.Config {
	return remote.Config{
		URL:            cfg.Backend.URL,
		APIKey:         cfg.Backend.APIKey,
		Role:           cfg.Backend.Role,
		MaxConns:       cfg.Backend.MaxConns,
		ConnectTimeout: cfg.Backend.Timeout,
	}
}

// Close releases the backend pool.
func (e *Env) Close() {
	if e.Remote != nil {
		e.Remote.Close()
	}
}
