// Package ledger enforces one-time activation of time-limited test shares.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"oxray-share/internal/domain"
	"oxray-share/internal/kvstore"
)

const (
	recordKeyPrefix = "testmode:record:"
	configKeyPrefix = "testmode:config:"
)

// Ledger keeps two indices in the backing store: shareId → record
// (primary, the anti-replay fact) and configName → shareId (secondary,
// deleted with the profile). The mutex makes the two-key writes atomically
// observable; readers never see one index updated without the other.
type Ledger struct {
	store  kvstore.Store
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewLedger(store kvstore.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

func recordKey(shareID string) string    { return recordKeyPrefix + shareID }
func configKey(configName string) string { return configKeyPrefix + configName }

// SaveRecord upserts the record and its configName mapping.
func (l *Ledger) SaveRecord(ctx context.Context, record *domain.TestModeRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: marshal record: %w", domain.ErrLedger, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Put(ctx, recordKey(record.ShareID), data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}
	if err := l.store.Put(ctx, configKey(record.ConfigName), []byte(record.ShareID)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}

	l.logger.Debug("saved test mode record",
		zap.String("share_id", record.ShareID),
		zap.String("config_name", record.ConfigName))
	return nil
}

// GetRecord resolves configName through the secondary index. A miss on
// either index returns nil without error.
func (l *Ledger) GetRecord(ctx context.Context, configName string) (*domain.TestModeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	shareID, err := l.store.Get(ctx, configKey(configName))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}
	return l.getByShareID(ctx, string(shareID))
}

// GetRecordByShareID is the anti-replay lookup. It reads the primary index
// directly and succeeds even when no config mapping exists anymore.
func (l *Ledger) GetRecordByShareID(ctx context.Context, shareID string) (*domain.TestModeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getByShareID(ctx, shareID)
}

// getByShareID assumes the caller holds at least a read lock.
func (l *Ledger) getByShareID(ctx context.Context, shareID string) (*domain.TestModeRecord, error) {
	data, err := l.store.Get(ctx, recordKey(shareID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}

	var record domain.TestModeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: unmarshal record %s: %w", domain.ErrLedger, shareID, err)
	}
	return &record, nil
}

// DeleteConfigMapping removes only the configName → shareId entry. The
// primary record stays, so a deleted profile's share still cannot be
// activated again.
func (l *Ledger) DeleteConfigMapping(ctx context.Context, configName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, configKey(configName)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}
	return nil
}

// CleanupExpired removes records whose window has passed, along with any
// config mappings pointing at them, and returns how many records were
// removed. Nothing else ever deletes primary records.
func (l *Ledger) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.Scan(ctx, recordKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}

	expired := make(map[string]struct{})
	for _, entry := range records {
		var record domain.TestModeRecord
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			l.logger.Warn("skipping undecodable ledger record",
				zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		if record.IsExpired(now) {
			expired[record.ShareID] = struct{}{}
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	mappings, err := l.store.Scan(ctx, configKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrLedger, err)
	}
	for _, entry := range mappings {
		if _, ok := expired[string(entry.Value)]; !ok {
			continue
		}
		if err := l.store.Delete(ctx, entry.Key); err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrLedger, err)
		}
	}

	removed := 0
	for shareID := range expired {
		if err := l.store.Delete(ctx, recordKey(shareID)); err != nil {
			return removed, fmt.Errorf("%w: %w", domain.ErrLedger, err)
		}
		removed++
	}

	l.logger.Info("removed expired test records", zap.Int("count", removed))
	return removed, nil
}
