package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TripRepo persists trips using pgx and plain SQL.
type TripRepo struct{}

// NewTripRepo constructs a new TripRepo.
func NewTripRepo() ports.TripRepository {
	return &TripRepo{}
}

const tripColumns = `
	id, created_at, updated_at, vehicle_id, origin_label, destination_label,
	status, start_lat, start_lng, start_captured_at_millis,
	end_lat, end_lng, end_captured_at_millis,
	distance_km, avg_speed_kmh, metrics_source,
	started_at, ended_at, cancel_reason`

// CreateTrip inserts a new trip row and writes an initial TRIP_CREATED event.
func (repo *TripRepo) CreateTrip(ctx context.Context, t *trip.Trip) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO trips (vehicle_id, origin_label, destination_label, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`,
		t.VehicleID,
		t.OriginLabel,
		t.DestinationLabel,
		t.Status.String(), // typically "PENDING"
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}

	return insertTripEvent(ctx, tx, t.ID, trip.EventTripCreated, map[string]any{
		"vehicle_id": t.VehicleID,
		"new_status": t.Status.String(),
	})
}

// GetByID fetches a trip by primary key (uuid). The route is loaded separately
// by RouteRepository when the caller needs it.
func (repo *TripRepo) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	out, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trip.ErrTripNotFound
		}
		return nil, err
	}
	return out, nil
}

// GetActiveForVehicle fetches the single ACTIVE trip for a vehicle, or nil.
func (repo *TripRepo) GetActiveForVehicle(ctx context.Context, vehicleID string) (*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE vehicle_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at DESC
		LIMIT 1
	`, vehicleID)
	out, err := scanTrip(row)
	if err != nil {
		// no active trip found
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// GetTripsByVehicle returns recent trips for a vehicle.
func (repo *TripRepo) GetTripsByVehicle(ctx context.Context, vehicleID string, limit int) ([]*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transaction from context: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE vehicle_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("query trips by vehicle: %w", err)
	}
	defer rows.Close()

	var trips []*trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return trips, nil
}

// UpdateStatus sets the trip status and appends a STATUS_CHANGED event.
func (repo *TripRepo) UpdateStatus(ctx context.Context, id string, status trip.Status, ts time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status.String(), ts.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrTripNotFound
	}

	return insertTripEvent(ctx, tx, id, trip.EventStatusChanged, map[string]any{
		"new_status": status.String(),
	})
}

// Start stamps started_at, records the optional start sample, and flips the
// trip to ACTIVE.
func (repo *TripRepo) Start(ctx context.Context, tripID string, start *geo.Sample, startedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var startLat, startLng *float64
	var startCaptured *int64
	if start != nil {
		startLat, startLng, startCaptured = &start.Lat, &start.Lng, &start.CapturedAtMillis
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET status = 'ACTIVE',
		    start_lat = $2, start_lng = $3, start_captured_at_millis = $4,
		    started_at = $5, updated_at = NOW()
		WHERE id = $1
	`, tripID, startLat, startLng, startCaptured, startedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrTripNotFound
	}

	return insertTripEvent(ctx, tx, tripID, trip.EventTripStarted, map[string]any{
		"has_start_fix": start != nil,
	})
}

// Complete writes the terminal COMPLETED state along with the final metrics
// that the domain computed exactly once.
func (repo *TripRepo) Complete(ctx context.Context, t *trip.Trip) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var endLat, endLng *float64
	var endCaptured *int64
	if t.EndSample != nil {
		endLat, endLng, endCaptured = &t.EndSample.Lat, &t.EndSample.Lng, &t.EndSample.CapturedAtMillis
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET status = 'COMPLETED',
		    end_lat = $2, end_lng = $3, end_captured_at_millis = $4,
		    distance_km = $5, avg_speed_kmh = $6, metrics_source = $7,
		    ended_at = $8, updated_at = NOW()
		WHERE id = $1
	`, t.ID, endLat, endLng, endCaptured,
		t.DistanceKm, t.AvgSpeedKmh, string(t.MetricsSource), t.EndedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrTripNotFound
	}

	eventData := map[string]any{"metrics_source": string(t.MetricsSource)}
	if t.DistanceKm != nil {
		eventData["distance_km"] = *t.DistanceKm
	}
	if t.AvgSpeedKmh != nil {
		eventData["avg_speed_kmh"] = *t.AvgSpeedKmh
	}
	return insertTripEvent(ctx, tx, t.ID, trip.EventTripCompleted, eventData)
}

// Cancel writes the terminal CANCELLED state. The accumulated route rows are
// retained for audit.
func (repo *TripRepo) Cancel(ctx context.Context, tripID, reason string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var cancelReason *string
	if reason != "" {
		cancelReason = &reason
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET status = 'CANCELLED', cancel_reason = $2, ended_at = $3, updated_at = NOW()
		WHERE id = $1
	`, tripID, cancelReason, cancelledAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrTripNotFound
	}

	return insertTripEvent(ctx, tx, tripID, trip.EventTripCancelled, map[string]any{
		"reason": reason,
	})
}

// CountActive counts trips currently in ACTIVE state.
func (repo *TripRepo) CountActive(ctx context.Context) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM trips WHERE status = 'ACTIVE'`).Scan(&n)
	return n, err
}

// CountCompletedBetween counts trips completed within [start, end).
func (repo *TripRepo) CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM trips
		WHERE status = 'COMPLETED' AND ended_at >= $1 AND ended_at < $2
	`, start.UTC(), end.UTC()).Scan(&n)
	return n, err
}

// SumDistanceCompletedBetween sums distance_km over trips completed within [start, end).
func (repo *TripRepo) SumDistanceCompletedBetween(ctx context.Context, start, end time.Time) (float64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var total float64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(distance_km), 0) FROM trips
		WHERE status = 'COMPLETED' AND ended_at >= $1 AND ended_at < $2
	`, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// scanTrip maps one trips row onto the domain entity.
func scanTrip(row pgx.Row) (*trip.Trip, error) {
	var (
		out                trip.Trip
		status             string
		startLat, startLng *float64
		startCaptured      *int64
		endLat, endLng     *float64
		endCaptured        *int64
		metricsSource      *string
	)

	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.VehicleID, &out.OriginLabel, &out.DestinationLabel,
		&status, &startLat, &startLng, &startCaptured,
		&endLat, &endLng, &endCaptured,
		&out.DistanceKm, &out.AvgSpeedKmh, &metricsSource,
		&out.StartedAt, &out.EndedAt, &out.CancelReason,
	)
	if err != nil {
		return nil, err
	}

	out.Status = trip.Status(status)
	if metricsSource != nil {
		out.MetricsSource = trip.MetricsSource(*metricsSource)
	}
	if startLat != nil && startLng != nil && startCaptured != nil {
		out.StartSample = &geo.Sample{Lat: *startLat, Lng: *startLng, CapturedAtMillis: *startCaptured}
	}
	if endLat != nil && endLng != nil && endCaptured != nil {
		out.EndSample = &geo.Sample{Lat: *endLat, Lng: *endLng, CapturedAtMillis: *endCaptured}
	}

	return &out, nil
}
