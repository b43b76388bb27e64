package trip

import (
	"errors"
	"strings"
	"time"

	"fleet-track/internal/domain/geo"
)

// MetricsSource flags how a completed trip's distance was derived.
type MetricsSource string

const (
	// MetricsFromRoute means distance is the haversine sum over the recorded route.
	MetricsFromRoute MetricsSource = "ROUTE"
	// MetricsEstimated means the route was empty and distance is a duration-based
	// estimate. Always preferred is MetricsFromRoute; the estimate is a flagged
	// fallback, never a silent substitute.
	MetricsEstimated MetricsSource = "ESTIMATED"
)

// estimateSpeedKmh is the assumed city average used only for the flagged
// empty-route fallback estimate.
const estimateSpeedKmh = 21.0

// Trip is the domain entity corresponding to the `trips` table.
type Trip struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Actors
	VehicleID string

	// Dispatch info
	OriginLabel      string
	DestinationLabel string

	// Core state
	Status Status

	// Path
	StartSample *geo.Sample
	EndSample   *geo.Sample
	Route       geo.Route

	// Final metrics, set exactly once on completion
	DistanceKm    *float64
	AvgSpeedKmh   *float64
	MetricsSource MetricsSource

	// Lifecycle timestamps
	StartedAt *time.Time
	EndedAt   *time.Time

	// Additional info
	CancelReason *string
}

var (
	ErrTripNotFound            = errors.New("trip not found")
	ErrVehicleRequired         = errors.New("vehicle id is required")
	ErrOriginRequired          = errors.New("origin label is required")
	ErrDestinationRequired     = errors.New("destination label is required")
	ErrInvalidStatusTransition = errors.New("invalid trip status transition")
	ErrTripNotActive           = errors.New("trip is not active")
	ErrStaleSample             = errors.New("sample is older than the route tail")
	ErrRouteFrozen             = errors.New("route of a finished trip is immutable")
)

// NewTrip creates a new trip in PENDING state with an empty route.
func NewTrip(vehicleID, originLabel, destinationLabel string) (*Trip, error) {
	if vehicleID = strings.TrimSpace(vehicleID); vehicleID == "" {
		return nil, ErrVehicleRequired
	}
	if originLabel = strings.TrimSpace(originLabel); originLabel == "" {
		return nil, ErrOriginRequired
	}
	if destinationLabel = strings.TrimSpace(destinationLabel); destinationLabel == "" {
		return nil, ErrDestinationRequired
	}

	now := time.Now().UTC()
	return &Trip{
		CreatedAt:        now,
		UpdatedAt:        now,
		VehicleID:        vehicleID,
		OriginLabel:      originLabel,
		DestinationLabel: destinationLabel,
		Status:           StatusPending,
	}, nil
}

// Activate transitions PENDING -> ACTIVE. The start sample is best-effort:
// when positioning failed on the client, a nil sample activates the trip with
// an empty route rather than blocking the transition.
func (t *Trip) Activate(start *geo.Sample, at time.Time) error {
	if !t.Status.CanTransitionTo(StatusActive) {
		return ErrInvalidStatusTransition
	}

	if start != nil {
		t.StartSample = start
		t.Route = geo.Route{*start}
	}
	startedAt := at.UTC()
	t.StartedAt = &startedAt
	t.setStatus(StatusActive)
	return nil
}

// AppendSample appends a streamed sample to the route of an ACTIVE trip.
// Samples older than the current route tail are rejected (the safe default
// ordering policy; callers that prefer re-sorting do so on read).
func (t *Trip) AppendSample(sample geo.Sample) error {
	if t.Status.Terminal() {
		return ErrRouteFrozen
	}
	if t.Status != StatusActive {
		return ErrTripNotActive
	}
	if tail, ok := t.Route.Tail(); ok && sample.CapturedAtMillis < tail.CapturedAtMillis {
		return ErrStaleSample
	}

	t.Route = append(t.Route, sample)
	t.touch()
	return nil
}

// Complete transitions ACTIVE -> COMPLETED, appends the closing sample, and
// computes final metrics exactly once. A metrics failure never blocks trip
// closure: DistanceKm/AvgSpeedKmh stay unset instead.
func (t *Trip) Complete(end *geo.Sample, at time.Time) error {
	if !t.Status.CanTransitionTo(StatusCompleted) {
		return ErrInvalidStatusTransition
	}

	if end != nil {
		t.EndSample = end
		t.Route = append(t.Route, *end)
	}
	endedAt := at.UTC()
	t.EndedAt = &endedAt
	t.computeMetrics()
	t.setStatus(StatusCompleted)
	return nil
}

// Cancel transitions a non-terminal trip to CANCELLED. Metrics are not
// computed; the route is retained for audit.
func (t *Trip) Cancel(reason string, at time.Time) error {
	if !t.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}

	endedAt := at.UTC()
	t.EndedAt = &endedAt
	if r := strings.TrimSpace(reason); r != "" {
		t.CancelReason = &r
	}
	t.setStatus(StatusCancelled)
	return nil
}

// Replayable reports whether the trip's route may be handed to a replay session.
func (t *Trip) Replayable() bool {
	return t.Status == StatusCompleted
}

// computeMetrics derives DistanceKm and AvgSpeedKmh. When the route holds
// samples the distance is the real haversine sum; an empty route falls back
// to a duration-based estimate flagged via MetricsSource.
func (t *Trip) computeMetrics() {
	if t.StartedAt == nil || t.EndedAt == nil {
		return
	}

	var distance float64
	if len(t.Route) > 0 {
		distance = geo.RouteDistanceKm(t.Route)
		t.MetricsSource = MetricsFromRoute
	} else {
		duration := t.EndedAt.Sub(*t.StartedAt)
		if duration <= 0 {
			duration = 0
		}
		distance = duration.Hours() * estimateSpeedKmh
		t.MetricsSource = MetricsEstimated
	}

	speed := geo.AverageSpeedKmh(distance, *t.StartedAt, *t.EndedAt)
	t.DistanceKm = &distance
	t.AvgSpeedKmh = &speed
}

// ----- internal helpers -----

func (t *Trip) setStatus(status Status) {
	t.Status = status
	t.touch()
}

func (t *Trip) touch() {
	t.UpdatedAt = time.Now().UTC()
}
