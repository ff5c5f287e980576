package config

import (
	"fmt"
	"time"
)

// NullDuration is a time.Duration that knows whether it was set.
type NullDuration struct {
	Duration time.Duration
	Valid    bool
}

// NewNullDuration returns a NullDuration holding d.
func NewNullDuration(d time.Duration, valid bool) NullDuration {
	return NullDuration{Duration: d, Valid: valid}
}

// NullDurationFrom returns a valid NullDuration holding d.
func NullDurationFrom(d time.Duration) NullDuration {
	return NullDuration{Duration: d, Valid: true}
}

// UnmarshalText parses a duration such as "45s". An empty text leaves the
// duration unset.
func (d *NullDuration) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = NullDuration{}
		return nil
	}
	v, err := time.ParseDuration(string(data))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", data, err)
	}
	*d = NullDurationFrom(v)

	return nil
}

// MarshalText returns the duration's string form, or nothing when unset.
func (d NullDuration) MarshalText() ([]byte, error) {
	if !d.Valid {
		return []byte{}, nil
	}
	return []byte(d.Duration.String()), nil
}
