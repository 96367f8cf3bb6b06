package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Provider owns the current configuration snapshot.
//
// The snapshot is published through a single atomic pointer swap: readers
// never lock, never block on I/O, and never observe a partially-applied
// configuration. The only writer is the reload path.
type Provider struct {
	path    string
	current atomic.Pointer[Config]
	logger  *slog.Logger
}

// NewProvider loads the configuration from path and returns a provider
// holding it as the initial snapshot. A load or validation failure at this
// point is fatal: the caller must not start serving traffic.
func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	p := &Provider{
		path:   path,
		logger: logger,
	}

	cfg, err := Load(path)
	if err != nil {
		if logger != nil {
			logger.Error("config_load_failed", "path", path, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	p.current.Store(cfg)
	if logger != nil {
		logger.Info("config_loaded", "path", path)
	}
	return p, nil
}

// Current returns the latest successfully-validated snapshot.
// It never blocks and never returns nil: the provider cannot be constructed
// without an initial snapshot.
func (p *Provider) Current() *Config {
	return p.current.Load()
}

// Path returns the path of the underlying configuration file.
func (p *Provider) Path() string {
	return p.path
}

// Reload re-reads the configuration source and atomically publishes the new
// snapshot on success. On failure the previous snapshot is kept: an invalid
// config edit must never take down the live pipeline. The returned error
// reports the failed reload to the caller; in-flight readers are unaffected
// either way.
func (p *Provider) Reload() error {
	cfg, err := Load(p.path)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("config_reload_failed", "path", p.path, "error", err)
		}
		return err
	}

	p.current.Store(cfg)
	if p.logger != nil {
		p.logger.Info("config_reloaded", "path", p.path,
			"cloaking_enabled", cfg.Cloaking.Enabled,
			"rate_limit_enabled", cfg.RateLimit.Enabled)
	}
	return nil
}
