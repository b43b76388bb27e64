package ports

import (
	"context"
	"time"

	"fleet-track/internal/domain/trip"
)

// GeoPoint represents a simple latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ----- DTOs for vehicle operations -----

// RegisterVehicleInput is the validated input for POST /vehicles.
type RegisterVehicleInput struct {
	Name        string
	PlateNumber string
}

// RegisterVehicleResult matches the API response for registering a vehicle.
type RegisterVehicleResult struct {
	VehicleID string `json:"vehicle_id"`
	Status    string `json:"status"` // "IDLE"
	Message   string `json:"message"`
}

// HeartbeatInput is the validated input for POST /vehicles/{vehicle_id}/heartbeat.
type HeartbeatInput struct {
	VehicleID string // from path
	AtMillis  int64  // from body; zero means "now"
}

// HeartbeatResult matches the API response for a heartbeat.
type HeartbeatResult struct {
	VehicleID       string `json:"vehicle_id"`
	EffectiveStatus string `json:"effective_status"`
	ObservedAt      int64  `json:"observed_at_millis"`
}

// VehicleView is the read model returned by GET /vehicles/{vehicle_id}.
type VehicleView struct {
	VehicleID           string    `json:"vehicle_id"`
	Name                string    `json:"name"`
	PlateNumber         string    `json:"plate_number"`
	IntendedStatus      string    `json:"intended_status"`
	EffectiveStatus     string    `json:"effective_status"`
	AssignedTripID      string    `json:"assigned_trip_id,omitempty"`
	LastKnownLocation   *GeoPoint `json:"last_known_location,omitempty"`
	LastSampleMillis    int64     `json:"last_sample_millis,omitempty"`
	LastHeartbeatMillis int64     `json:"last_heartbeat_millis,omitempty"`
}

// ----- DTOs for telemetry ingestion -----

// IngestSampleInput is the validated payload of one telemetry sample message.
type IngestSampleInput struct {
	VehicleID        string
	Latitude         float64
	Longitude        float64
	SpeedMps         *float64
	CapturedAtMillis int64
}

// IngestSampleResult reports what the tracker did with one sample.
type IngestSampleResult struct {
	VehicleID        string `json:"vehicle_id"`
	TripID           string `json:"trip_id,omitempty"`
	AppendedToRoute  bool   `json:"appended_to_route"`
	LastKnownUpdated bool   `json:"last_known_updated"`
	RejectedReason   string `json:"rejected_reason,omitempty"`
}

// ----- DTOs for trip operations -----

// CreateTripInput is the validated input for POST /trips.
type CreateTripInput struct {
	VehicleID        string
	OriginLabel      string
	DestinationLabel string
}

// CreateTripResult matches the API response for creating a trip.
type CreateTripResult struct {
	TripID    string `json:"trip_id"`
	VehicleID string `json:"vehicle_id"`
	Status    string `json:"status"` // "PENDING"
	Message   string `json:"message"`
}

// StartTripInput is the validated input for POST /trips/{trip_id}/start.
type StartTripInput struct {
	TripID        string    // from path
	StartLocation *GeoPoint // optional; nil when no fix is available
}

// StartTripResult matches the API response for starting a trip.
type StartTripResult struct {
	TripID    string    `json:"trip_id"`
	Status    string    `json:"status"` // "ACTIVE"
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}

// CompleteTripInput is the validated input for POST /trips/{trip_id}/complete.
type CompleteTripInput struct {
	TripID      string    // from path
	EndLocation *GeoPoint // optional; nil when no fix is available
}

// CompleteTripResult matches the API response for completing a trip.
type CompleteTripResult struct {
	TripID        string    `json:"trip_id"`
	Status        string    `json:"status"` // "COMPLETED"
	CompletedAt   time.Time `json:"completed_at"`
	DistanceKm    float64   `json:"distance_km"`
	AvgSpeedKmh   float64   `json:"avg_speed_kmh"`
	MetricsSource string    `json:"metrics_source"` // ROUTE | ESTIMATED
	Message       string    `json:"message"`
}

// CancelTripInput is the validated input for POST /trips/{trip_id}/cancel.
type CancelTripInput struct {
	TripID string // from path
	Reason string // from body
}

// CancelTripResult matches the API response for cancelling a trip.
type CancelTripResult struct {
	TripID      string `json:"trip_id"`
	Status      string `json:"status"` // "CANCELLED"
	CancelledAt string `json:"cancelled_at"`
	Message     string `json:"message"`
}

// TripView is the read model returned by GET /trips/{trip_id}.
type TripView struct {
	TripID           string     `json:"trip_id"`
	VehicleID        string     `json:"vehicle_id"`
	OriginLabel      string     `json:"origin_label"`
	DestinationLabel string     `json:"destination_label"`
	Status           string     `json:"status"`
	RouteSamples     int        `json:"route_samples"`
	DistanceSoFarKm  float64    `json:"distance_so_far_km"`
	DistanceKm       *float64   `json:"distance_km,omitempty"`
	AvgSpeedKmh      *float64   `json:"avg_speed_kmh,omitempty"`
	MetricsSource    string     `json:"metrics_source,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
}

// ----- DTOs for the fleet overview -----

// OverviewMetrics groups all numeric KPIs for the fleet overview.
type OverviewMetrics struct {
	ActiveTrips         int     `json:"active_trips"`
	VehiclesOnline      int     `json:"vehicles_online"`
	VehiclesOnTrip      int     `json:"vehicles_on_trip"`
	VehiclesOffline     int     `json:"vehicles_offline"`
	TripsCompletedToday int     `json:"trips_completed_today"`
	DistanceTodayKm     float64 `json:"distance_today_km"`
}

// OverviewVehicleRow is a single vehicle row in the fleet overview.
type OverviewVehicleRow struct {
	VehicleID        string    `json:"vehicle_id"`
	Name             string    `json:"name"`
	EffectiveStatus  string    `json:"effective_status"`
	AssignedTripID   string    `json:"assigned_trip_id,omitempty"`
	LastKnown        *GeoPoint `json:"last_known,omitempty"`
	LastSampleMillis int64     `json:"last_sample_millis,omitempty"`
}

// FleetOverviewResult is the top-level response DTO for GET /fleet/overview.
type FleetOverviewResult struct {
	Timestamp time.Time            `json:"timestamp"`
	Metrics   OverviewMetrics      `json:"metrics"`
	Vehicles  []OverviewVehicleRow `json:"vehicles"`
}

// ----- Tracker Service Interface -----

// TrackerService exposes the boundary for the tracker service.
type TrackerService interface {
	RegisterVehicle(ctx context.Context, in RegisterVehicleInput) (RegisterVehicleResult, error)
	GetVehicle(ctx context.Context, vehicleID string) (VehicleView, error)
	RecordHeartbeat(ctx context.Context, in HeartbeatInput) (HeartbeatResult, error)

	IngestSample(ctx context.Context, in IngestSampleInput) (IngestSampleResult, error)

	CreateTrip(ctx context.Context, in CreateTripInput) (CreateTripResult, error)
	StartTrip(ctx context.Context, in StartTripInput) (StartTripResult, error)
	CompleteTrip(ctx context.Context, in CompleteTripInput) (CompleteTripResult, error)
	CancelTrip(ctx context.Context, in CancelTripInput) (CancelTripResult, error)
	GetTrip(ctx context.Context, tripID string) (TripView, error)
	TripRoute(ctx context.Context, tripID string) (trip.Status, []GeoPoint, error)

	FleetOverview(ctx context.Context) (FleetOverviewResult, error)

	RunBackgroundConsumers(ctx context.Context)
}
