package main

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Connection, error) {
	conn, err := store.Open(ctx, store.AdapterConfig{
		Name:           cfg.Storage.Driver,
		DSN:            cfg.Storage.DSN,
		MaxConns:       cfg.Storage.MaxConns,
		MinConns:       cfg.Storage.MinConns,
		ConnectRetries: cfg.Storage.ConnectRetries,
		ConnectTimeout: cfg.Storage.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return conn, nil
}

// migrate aplica las migraciones si el adapter las soporta.
func migrate(ctx context.Context, conn store.Connection) error {
	m, ok := conn.(store.Migratable)
	if !ok {
		logger.From(ctx).Info("store has no migrations", logger.String("driver", conn.Name()))
		return nil
	}
	res, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.From(ctx).Info("migrations applied",
		logger.Any("applied", res.Applied),
		logger.Count(len(res.Skipped)),
		logger.Duration(res.Duration))
	return nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	c, err := cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return c, nil
}
