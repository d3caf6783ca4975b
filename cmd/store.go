package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dtk-group/quote-engine/internal/alias"
	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/huawei"
)

func initStore(ctx context.Context) (catalog.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return catalog.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return catalog.OpenPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initLookup builds the OEM vendor lookup, or nil when disabled.
func initLookup() alias.VendorLookup {
	if cfg.Huawei.Disabled {
		return nil
	}
	return huawei.New(huawei.Options{
		URL:       cfg.Huawei.URL,
		UserAgent: cfg.Huawei.UserAgent,
		Timeout:   cfg.Huawei.Timeout(),
		RateLimit: cfg.Huawei.RateLimit,
	})
}
