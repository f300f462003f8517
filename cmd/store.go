package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bettingtipsai/tips-cli/internal/store"
)

// openStore builds the configured Store implementation. The site timezone
// is what LoadLatest uses to decide "today".
func openStore(ctx context.Context) (store.Store, error) {
	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "load timezone %s", cfg.Site.Timezone)
	}

	switch cfg.Store.Driver {
	case "postgres":
		poolCfg := &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg, loc)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath, loc)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
