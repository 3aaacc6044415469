package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/errs"
)

const (
	defaultMaxConns = 10
	defaultMinConns = 0
)

// pool returns the shared pool for database name, creating it on first use.
func (e *Engine) pool(ctx context.Context, name string) (*pgxpool.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.pools[name]; ok {
		return p, nil
	}

	poolCfg, err := buildPoolConfig(e.cfg, name)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "failed to create connection pool")
	}
	e.pools[name] = p
	return p, nil
}

// buildPoolConfig parses the server DSN and applies pool settings.
func buildPoolConfig(cfg *database.Config, name string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if name != "" {
		poolCfg.ConnConfig.Database = name
	}

	// Apply pool settings with defaults
	poolCfg.MaxConns = withDefault(cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = withDefault(cfg.MinConns, defaultMinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	return poolCfg, nil
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}
