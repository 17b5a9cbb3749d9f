package domain

import "time"

// TestModeRecord is the anti-replay fact written once per activated test
// share. It is keyed by ShareID and survives profile deletion; only the
// expiry sweep removes it.
type TestModeRecord struct {
	ShareID             string   `json:"shareId"`
	ActivatedAt         UnixTime `json:"activatedAt"`
	ExpiresAt           UnixTime `json:"expiresAt"`
	ConfigName          string   `json:"configName"`
	TestDurationMinutes int      `json:"testDurationMinutes"`
}

// RemainingMinutes returns whole minutes until expiry, never negative.
func (r *TestModeRecord) RemainingMinutes(now time.Time) int {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}

// IsExpired reports whether now is strictly past the record's window.
func (r *TestModeRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt.Time)
}
