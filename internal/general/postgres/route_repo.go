package postgres

import (
	"context"
	"fmt"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/ports"
)

// RouteRepo persists accumulated trip routes in the trip_samples table,
// one row per accepted sample.
type RouteRepo struct{}

// NewRouteRepo constructs a new RouteRepo.
func NewRouteRepo() ports.RouteRepository {
	return &RouteRepo{}
}

// AppendSample inserts one accepted sample for a trip's route.
func (repo *RouteRepo) AppendSample(ctx context.Context, tripID string, sample geo.Sample) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trip_samples (trip_id, lat, lng, speed_mps, captured_at_millis)
		VALUES ($1, $2, $3, $4, $5)
	`, tripID, sample.Lat, sample.Lng, sample.SpeedMps, sample.CapturedAtMillis)
	return err
}

// GetRoute returns the full route of a trip ordered by capture time, so a
// reader always sees a chronologically consistent path even if late rows
// were ever admitted.
func (repo *RouteRepo) GetRoute(ctx context.Context, tripID string) (geo.Route, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT lat, lng, speed_mps, captured_at_millis
		FROM trip_samples
		WHERE trip_id = $1
		ORDER BY captured_at_millis ASC, id ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query trip samples: %w", err)
	}
	defer rows.Close()

	var route geo.Route
	for rows.Next() {
		var s geo.Sample
		if err := rows.Scan(&s.Lat, &s.Lng, &s.SpeedMps, &s.CapturedAtMillis); err != nil {
			return nil, fmt.Errorf("scan trip sample: %w", err)
		}
		route = append(route, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return route, nil
}

// TailSample returns the newest stored sample of a trip, or nil when the
// route is still empty. The ingestion path uses it for its ordering check
// without loading the whole route.
func (repo *RouteRepo) TailSample(ctx context.Context, tripID string) (*geo.Sample, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT lat, lng, speed_mps, captured_at_millis
		FROM trip_samples
		WHERE trip_id = $1
		ORDER BY captured_at_millis DESC, id DESC
		LIMIT 1
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query route tail: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var s geo.Sample
	if err := rows.Scan(&s.Lat, &s.Lng, &s.SpeedMps, &s.CapturedAtMillis); err != nil {
		return nil, fmt.Errorf("scan route tail: %w", err)
	}
	return &s, nil
}

// CountSamples returns the number of stored samples for a trip.
func (repo *RouteRepo) CountSamples(ctx context.Context, tripID string) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM trip_samples WHERE trip_id = $1`, tripID).Scan(&n)
	return n, err
}
