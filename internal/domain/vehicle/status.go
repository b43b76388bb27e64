package vehicle

import (
	"errors"
	"strings"
	"time"
)

// IntendedStatus is what the vehicle last told us it was doing, as stored
// in the `vehicles` table. It is never authoritative for presence.
type IntendedStatus string

const (
	IntendedIdle    IntendedStatus = "IDLE"
	IntendedOnTrip  IntendedStatus = "ON_TRIP"
	IntendedOffline IntendedStatus = "OFFLINE"
)

// EffectiveStatus is the derived presence signal shown to operators.
// It is recomputed from the heartbeat on every read and never persisted
// as a source of truth.
type EffectiveStatus string

const (
	EffectiveOnline  EffectiveStatus = "ONLINE"
	EffectiveOnTrip  EffectiveStatus = "ON_TRIP"
	EffectiveOffline EffectiveStatus = "OFFLINE"
)

// HeartbeatTimeout is the liveness window: a vehicle whose heartbeat is older
// than this is OFFLINE regardless of its intended status.
const HeartbeatTimeout = 60 * time.Second

// HeartbeatInterval is the cadence at which reporter processes refresh
// liveness, independent of whether a trip is active.
const HeartbeatInterval = 20 * time.Second

var ErrInvalidIntendedStatus = errors.New("invalid intended vehicle status")

// ParseIntendedStatus normalizes (uppercases+trims) and validates a status string.
func ParseIntendedStatus(in string) (IntendedStatus, error) {
	status := IntendedStatus(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidIntendedStatus
}

// Valid reports whether status is one of the allowed intended status constants.
func (status IntendedStatus) Valid() bool {
	switch status {
	case IntendedIdle, IntendedOnTrip, IntendedOffline:
		return true
	default:
		return false
	}
}

// String returns the string representation of the IntendedStatus.
func (status IntendedStatus) String() string {
	return string(status)
}

// String returns the string representation of the EffectiveStatus.
func (status EffectiveStatus) String() string {
	return string(status)
}

// DeriveEffectiveStatus is a pure function of the stored intent, the last
// heartbeat timestamp, and the current time. A lapsed heartbeat wins over
// whatever the vehicle last claimed, so a crashed or backgrounded client
// cannot appear perpetually ON_TRIP.
func DeriveEffectiveStatus(intended IntendedStatus, lastHeartbeatMillis, nowMillis int64) EffectiveStatus {
	if nowMillis-lastHeartbeatMillis > HeartbeatTimeout.Milliseconds() {
		return EffectiveOffline
	}

	switch intended {
	case IntendedOnTrip:
		return EffectiveOnTrip
	case IntendedOffline:
		return EffectiveOffline
	default:
		return EffectiveOnline
	}
}
