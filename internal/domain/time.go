package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnixTime is a timestamp that marshals as epoch seconds (fractional
// allowed). Senders have issued shares with both numeric epoch seconds
// and ISO-8601 UTC strings, so unmarshaling accepts either form. Epoch
// seconds is the canonical form going forward.
type UnixTime struct {
	time.Time
}

// NewUnixTime truncates t to millisecond precision, the grain the share
// senders use for window arithmetic. Millisecond values survive the
// numeric wire form exactly.
func NewUnixTime(t time.Time) UnixTime {
	return UnixTime{t.Truncate(time.Millisecond)}
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	sec := u.Unix()
	nanos := int64(u.Nanosecond())
	if nanos == 0 {
		return strconv.AppendInt(nil, sec, 10), nil
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
	return []byte(fmt.Sprintf("%d.%s", sec, frac)), nil
}

func (u *UnixTime) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty timestamp")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid timestamp string: %w", err)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		u.Time = t.UTC()
		return nil
	}

	sec, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", string(data), err)
	}
	whole, frac := math.Modf(sec)
	// Round the fraction at microsecond granularity; straight truncation
	// can land one nanosecond short of a millisecond boundary.
	micros := math.Round(frac * float64(time.Second/time.Microsecond))
	u.Time = time.Unix(int64(whole), int64(micros)*int64(time.Microsecond)).UTC()
	return nil
}
