package vehicle

import (
	"errors"
	"strings"
	"time"

	"fleet-track/internal/domain/geo"
)

// Vehicle is the domain entity corresponding to the `vehicles` table.
// LastKnownLocation is the only field the ingestion path mutates; the rest
// changes through registration and trip lifecycle transitions.
type Vehicle struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Registration info
	Name        string
	PlateNumber string

	// Core state
	IntendedStatus      IntendedStatus
	AssignedTripID      *string
	LastKnownLocation   *geo.Sample
	LastHeartbeatMillis int64

	// Soft delete: a vehicle referenced by routes is never removed.
	DecommissionedAt *time.Time
}

var (
	ErrNameRequired    = errors.New("vehicle name is required")
	ErrPlateRequired   = errors.New("plate number is required")
	ErrDecommissioned  = errors.New("vehicle is decommissioned")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrTripNotFound    = errors.New("trip not found")
)

// NewVehicle constructs a registered Vehicle in IDLE state.
func NewVehicle(name, plateNumber string) (*Vehicle, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, ErrNameRequired
	}
	if plateNumber = strings.TrimSpace(plateNumber); plateNumber == "" {
		return nil, ErrPlateRequired
	}

	now := time.Now().UTC()
	return &Vehicle{
		CreatedAt:      now,
		UpdatedAt:      now,
		Name:           name,
		PlateNumber:    plateNumber,
		IntendedStatus: IntendedIdle,
	}, nil
}

// ObserveLocation records a newer accepted sample as the last-known position.
// Stale samples (older than the current last-known) are ignored so a delayed
// write can never roll the marker backwards.
func (v *Vehicle) ObserveLocation(sample geo.Sample) bool {
	if v.LastKnownLocation != nil && sample.CapturedAtMillis < v.LastKnownLocation.CapturedAtMillis {
		return false
	}
	v.LastKnownLocation = &sample
	v.touch()
	return true
}

// Heartbeat refreshes the liveness timestamp. Monotonic: an older heartbeat
// never rewinds the stored value.
func (v *Vehicle) Heartbeat(atMillis int64) {
	if atMillis <= v.LastHeartbeatMillis {
		return
	}
	v.LastHeartbeatMillis = atMillis
	v.touch()
}

// AssignTrip marks the vehicle as working the given trip.
func (v *Vehicle) AssignTrip(tripID string) error {
	if v.DecommissionedAt != nil {
		return ErrDecommissioned
	}
	id := strings.TrimSpace(tripID)
	if id == "" {
		return ErrTripNotFound
	}
	v.AssignedTripID = &id
	v.IntendedStatus = IntendedOnTrip
	v.touch()
	return nil
}

// ReleaseTrip clears the assignment after a trip reaches a terminal state.
func (v *Vehicle) ReleaseTrip() {
	v.AssignedTripID = nil
	v.IntendedStatus = IntendedIdle
	v.touch()
}

// Decommission soft-deletes the vehicle. Its routes stay readable.
func (v *Vehicle) Decommission(at time.Time) {
	t := at.UTC()
	v.DecommissionedAt = &t
	v.IntendedStatus = IntendedOffline
	v.touch()
}

// EffectiveStatusAt derives the presence signal at the given instant.
func (v *Vehicle) EffectiveStatusAt(now time.Time) EffectiveStatus {
	return DeriveEffectiveStatus(v.IntendedStatus, v.LastHeartbeatMillis, now.UnixMilli())
}

func (v *Vehicle) touch() {
	v.UpdatedAt = time.Now().UTC()
}
