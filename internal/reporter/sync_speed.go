package reporter

import (
	"errors"
	"strings"
	"time"
)

// SyncSpeed is the operator-tunable global emission cadence. It selects the
// time threshold after which a sample is emitted even without movement.
type SyncSpeed string

const (
	SyncFast   SyncSpeed = "FAST"
	SyncMedium SyncSpeed = "MEDIUM"
	SyncSlow   SyncSpeed = "SLOW"
)

var ErrInvalidSyncSpeed = errors.New("sync speed must be FAST, MEDIUM or SLOW")

// ParseSyncSpeed normalizes (uppercases+trims) and validates a speed string.
func ParseSyncSpeed(in string) (SyncSpeed, error) {
	speed := SyncSpeed(strings.ToUpper(strings.TrimSpace(in)))
	if speed.Valid() {
		return speed, nil
	}
	return "", ErrInvalidSyncSpeed
}

// Valid reports whether speed is one of the allowed constants.
func (speed SyncSpeed) Valid() bool {
	switch speed {
	case SyncFast, SyncMedium, SyncSlow:
		return true
	default:
		return false
	}
}

// TimeThreshold maps the sync speed to its emission time threshold.
func (speed SyncSpeed) TimeThreshold() time.Duration {
	switch speed {
	case SyncFast:
		return 5 * time.Second
	case SyncSlow:
		return 60 * time.Second
	default:
		return 15 * time.Second
	}
}

// String returns the string representation of the SyncSpeed.
func (speed SyncSpeed) String() string {
	return string(speed)
}
