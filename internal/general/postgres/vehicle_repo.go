package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"

	"github.com/jackc/pgx/v5"
)

// VehicleRepo persists vehicles using pgx and plain SQL.
type VehicleRepo struct{}

// NewVehicleRepo constructs a new VehicleRepo.
func NewVehicleRepo() ports.VehicleRepository {
	return &VehicleRepo{}
}

const vehicleColumns = `
	id, created_at, updated_at, name, plate_number, intended_status,
	assigned_trip_id, last_lat, last_lng, last_speed_mps,
	last_captured_at_millis, last_heartbeat_millis, decommissioned_at`

// CreateVehicle inserts a new vehicle row and backfills generated columns.
func (repo *VehicleRepo) CreateVehicle(ctx context.Context, v *vehicle.Vehicle) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO vehicles (name, plate_number, intended_status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`,
		v.Name,
		v.PlateNumber,
		v.IntendedStatus.String(), // typically "IDLE"
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID fetches a vehicle by primary key (uuid).
func (repo *VehicleRepo) GetByID(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	out, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vehicle.ErrVehicleNotFound
		}
		return nil, err
	}
	return out, nil
}

// List returns registered vehicles, newest first.
func (repo *VehicleRepo) List(ctx context.Context, limit int) ([]*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE decommissioned_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*vehicle.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return vehicles, nil
}

// UpdateIntendedStatus sets the vehicle's intended status.
func (repo *VehicleRepo) UpdateIntendedStatus(ctx context.Context, id string, status vehicle.IntendedStatus) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET intended_status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vehicle.ErrVehicleNotFound
	}
	return nil
}

// UpdateLastKnown persists the last-known position. Monotonic at the SQL
// level: a sample older than the stored one leaves the row untouched.
func (repo *VehicleRepo) UpdateLastKnown(ctx context.Context, id string, sample geo.Sample) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE vehicles
		SET last_lat = $2,
		    last_lng = $3,
		    last_speed_mps = $4,
		    last_captured_at_millis = $5,
		    updated_at = NOW()
		WHERE id = $1
		  AND (last_captured_at_millis IS NULL OR last_captured_at_millis <= $5)
	`, id, sample.Lat, sample.Lng, sample.SpeedMps, sample.CapturedAtMillis)
	return err
}

// UpdateHeartbeat refreshes the liveness timestamp, monotonically.
func (repo *VehicleRepo) UpdateHeartbeat(ctx context.Context, id string, atMillis int64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE vehicles
		SET last_heartbeat_millis = $2, updated_at = NOW()
		WHERE id = $1
		  AND (last_heartbeat_millis IS NULL OR last_heartbeat_millis < $2)
	`, id, atMillis)
	return err
}

// AssignTrip binds a trip to the vehicle and flips it to ON_TRIP.
func (repo *VehicleRepo) AssignTrip(ctx context.Context, vehicleID, tripID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET assigned_trip_id = $2, intended_status = $3, updated_at = NOW()
		WHERE id = $1 AND decommissioned_at IS NULL
	`, vehicleID, tripID, vehicle.IntendedOnTrip.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vehicle.ErrVehicleNotFound
	}
	return nil
}

// ReleaseTrip clears the trip binding and returns the vehicle to IDLE.
func (repo *VehicleRepo) ReleaseTrip(ctx context.Context, vehicleID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET assigned_trip_id = NULL, intended_status = $2, updated_at = NOW()
		WHERE id = $1
	`, vehicleID, vehicle.IntendedIdle.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vehicle.ErrVehicleNotFound
	}
	return nil
}

// scanVehicle maps one vehicles row onto the domain entity.
func scanVehicle(row pgx.Row) (*vehicle.Vehicle, error) {
	var (
		out              vehicle.Vehicle
		intendedStatus   string
		lastLat, lastLng *float64
		lastSpeed        *float64
		lastCaptured     *int64
		lastHeartbeat    *int64
		decommissionedAt *time.Time
	)

	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.Name, &out.PlateNumber, &intendedStatus,
		&out.AssignedTripID, &lastLat, &lastLng, &lastSpeed,
		&lastCaptured, &lastHeartbeat, &decommissionedAt,
	)
	if err != nil {
		return nil, err
	}

	out.IntendedStatus = vehicle.IntendedStatus(intendedStatus)
	out.DecommissionedAt = decommissionedAt
	if lastHeartbeat != nil {
		out.LastHeartbeatMillis = *lastHeartbeat
	}
	if lastLat != nil && lastLng != nil && lastCaptured != nil {
		out.LastKnownLocation = &geo.Sample{
			Lat:              *lastLat,
			Lng:              *lastLng,
			SpeedMps:         lastSpeed,
			CapturedAtMillis: *lastCaptured,
		}
	}

	return &out, nil
}
