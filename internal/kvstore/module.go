package kvstore

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"oxray-share/internal/config"
)

var Module = fx.Options(
	fx.Provide(NewStore),
)

// NewStore opens the SQLite store at the configured ledger path and ties
// its lifetime to the application.
func NewStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (Store, error) {
	store, err := OpenSQLite(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Debug("closing ledger store", zap.String("path", cfg.LedgerPath))
			return store.Close()
		},
	})
	return store, nil
}
