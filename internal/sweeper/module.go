package sweeper

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"oxray-share/internal/config"
	"oxray-share/internal/domain"
	"oxray-share/internal/ledger"
)

var Module = fx.Options(
	fx.Provide(func(l *ledger.Ledger, metrics domain.MetricsRecorder, logger *zap.Logger, cfg *config.Config) *Sweeper {
		return NewSweeper(l, metrics, logger, time.Duration(cfg.Sweep.IntervalSeconds)*time.Second)
	}),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}
