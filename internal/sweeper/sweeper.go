// Package sweeper periodically removes expired test records from the
// ledger. The ledger itself stays timer-free; this is the only component
// that calls its cleanup on a schedule.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"oxray-share/internal/domain"
	"oxray-share/internal/ledger"
)

type Sweeper struct {
	ledger   *ledger.Ledger
	metrics  domain.MetricsRecorder
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper builds a sweeper running every interval. An interval of 0
// disables the loop; hosts then drive RunOnce on their own schedule.
func NewSweeper(l *ledger.Ledger, metrics domain.MetricsRecorder, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		ledger:   l,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "sweeper")),
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce performs a single cleanup pass and returns how many records were
// removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	removed, err := s.ledger.CleanupExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("ledger sweep failed", zap.Error(err))
		return 0, err
	}
	s.metrics.RecordSweep(removed)
	return removed, nil
}

// Start launches the periodic loop and returns immediately. The first
// sweep runs right away so long-lived processes do not wait a full tick.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		s.logger.Info("periodic sweep disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.loop(ctx, done)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Failed sweeps are logged and retried on the next tick.
	_, _ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call without a
// prior Start.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
