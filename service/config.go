package service

import (
	"io"

	formversion "github.com/goliatone/go-formversion"
	"github.com/goliatone/go-formversion/cache"
	"github.com/goliatone/go-formversion/config"
)

// FromConfig builds an engine from configuration: a glog logger writing to
// out, the configured cache backend and its sweeper. The redis backend needs
// a client passed with WithRedisClient; redis expires entries itself, so it
// gets no sweeper.
func FromConfig(
	cfg config.Config,
	resolver formversion.TemplateResolver,
	lookup formversion.HealthCertificateLookup,
	out io.Writer,
	opts ...Option,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	logger := formversion.NewGlogLoggerFromOptions(out, cfg.Logging.Level, cfg.Logging.Format)

	base := []Option{
		WithLogger(logger),
		WithAdminRole(cfg.Roles.Admin),
		WithLocation(loc),
	}

	switch cfg.Cache.Backend {
	case config.BackendMemory:
		store := cache.NewMemoryStore(cfg.Cache.TTL)
		base = append(base, WithStore(store))
		if cfg.Cache.TTL > 0 {
			base = append(base, WithSweeper(store, cfg.Cache.Sweep))
		}
	case config.BackendSQLite:
		db, err := cache.OpenSQLite(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, formversion.NewError(formversion.ErrInvalidConfig, "open sqlite cache", err, map[string]any{
				"path": cfg.Cache.SQLitePath,
			})
		}
		store := cache.NewSQLiteStore(db, cfg.Cache.Table, cfg.Cache.TTL)
		base = append(base, WithStore(store), withCloser(db.Close))
		if cfg.Cache.TTL > 0 {
			base = append(base, WithSweeper(store, cfg.Cache.Sweep))
		}
	case config.BackendRedis:
		base = append(base, withRedisStore(cfg.Cache.TTL))
	}

	engine := New(resolver, lookup, append(base, opts...)...)
	if cfg.Cache.Backend == config.BackendRedis && engine.redisClient == nil {
		return nil, formversion.NewError(formversion.ErrInvalidConfig, "redis cache backend requires a client", nil, map[string]any{
			"field": "cache.backend",
		})
	}
	return engine, nil
}
