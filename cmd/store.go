package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/medhirweb/salespipe/internal/notify"
	"github.com/medhirweb/salespipe/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "salespipe.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initNotifier() notify.Notifier {
	if cfg.Notify.WebhookURL == "" {
		return notify.LogNotifier{}
	}
	return notify.NewWebhook(cfg.Notify.WebhookURL, time.Duration(cfg.Notify.TimeoutSecs)*time.Second)
}
