package ports

import (
	"context"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/domain/vehicle"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// VehicleRepository defines the methods for managing vehicle data.
type VehicleRepository interface {
	CreateVehicle(ctx context.Context, v *vehicle.Vehicle) error
	GetByID(ctx context.Context, id string) (*vehicle.Vehicle, error)
	List(ctx context.Context, limit int) ([]*vehicle.Vehicle, error)
	UpdateIntendedStatus(ctx context.Context, id string, status vehicle.IntendedStatus) error
	UpdateLastKnown(ctx context.Context, id string, sample geo.Sample) error
	UpdateHeartbeat(ctx context.Context, id string, atMillis int64) error
	AssignTrip(ctx context.Context, vehicleID, tripID string) error
	ReleaseTrip(ctx context.Context, vehicleID string) error
}

// TripRepository defines the methods for managing trip data.
type TripRepository interface {
	CreateTrip(ctx context.Context, t *trip.Trip) error
	GetByID(ctx context.Context, id string) (*trip.Trip, error)
	GetActiveForVehicle(ctx context.Context, vehicleID string) (*trip.Trip, error)
	GetTripsByVehicle(ctx context.Context, vehicleID string, limit int) ([]*trip.Trip, error)
	UpdateStatus(ctx context.Context, id string, status trip.Status, ts time.Time) error
	Start(ctx context.Context, tripID string, start *geo.Sample, startedAt time.Time) error
	Complete(ctx context.Context, t *trip.Trip) error
	Cancel(ctx context.Context, tripID, reason string, cancelledAt time.Time) error
	CountActive(ctx context.Context) (int, error)
	CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error)
	SumDistanceCompletedBetween(ctx context.Context, start, end time.Time) (float64, error)
}

// RouteRepository defines the methods for managing accumulated trip routes.
type RouteRepository interface {
	AppendSample(ctx context.Context, tripID string, sample geo.Sample) error
	GetRoute(ctx context.Context, tripID string) (geo.Route, error)
	TailSample(ctx context.Context, tripID string) (*geo.Sample, error)
	CountSamples(ctx context.Context, tripID string) (int, error)
}

// TripEventRepository defines the methods for managing trip lifecycle audit data.
type TripEventRepository interface {
	Append(ctx context.Context, e *trip.Event) error
	ListForTrip(ctx context.Context, tripID string, limit int) ([]*trip.Event, error)
}

// PresenceStore defines methods for fast-path presence and last-known data.
type PresenceStore interface {
	SetLastKnown(ctx context.Context, vehicleID string, sample geo.Sample) error
	GetLastKnown(ctx context.Context, vehicleID string) (*geo.Sample, error)
	SetHeartbeat(ctx context.Context, vehicleID string, atMillis int64) error
	GetHeartbeat(ctx context.Context, vehicleID string) (int64, error)
	SetIntendedStatus(ctx context.Context, vehicleID string, status vehicle.IntendedStatus) error
	GetIntendedStatus(ctx context.Context, vehicleID string) (vehicle.IntendedStatus, error)
}
