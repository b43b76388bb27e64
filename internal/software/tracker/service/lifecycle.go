package service

import (
	"context"
	"errors"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"
)

// ErrVehicleBusy rejects a second concurrent trip for the same vehicle.
var ErrVehicleBusy = errors.New("vehicle already has an active trip")

// CreateTrip registers a PENDING trip for a vehicle.
func (service *trackerService) CreateTrip(ctx context.Context, in ports.CreateTripInput) (ports.CreateTripResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(ctx, corrID)

	t, err := trip.NewTrip(in.VehicleID, in.OriginLabel, in.DestinationLabel)
	if err != nil {
		return ports.CreateTripResult{}, err
	}

	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		v, err := service.vehicles.GetByID(ctx, in.VehicleID)
		if err != nil {
			return err
		}
		if v.DecommissionedAt != nil {
			return vehicle.ErrDecommissioned
		}

		if active, err := service.trips.GetActiveForVehicle(ctx, in.VehicleID); err != nil {
			return err
		} else if active != nil {
			return ErrVehicleBusy
		}

		return service.trips.CreateTrip(ctx, t)
	})
	if err != nil {
		service.logger.Error(ctx, "trip_create_failed", "Failed to create trip", err, map[string]any{
			"vehicle_id": in.VehicleID,
		})
		return ports.CreateTripResult{}, err
	}

	ctx = service.logger.WithTripID(ctx, t.ID)
	service.logger.Info(ctx, "trip_created", "Trip created", map[string]any{
		"vehicle_id":  t.VehicleID,
		"origin":      t.OriginLabel,
		"destination": t.DestinationLabel,
	})

	// best effort: a failed status publish never undoes the trip
	if err := service.publishTripStatus(ctx, t, corrID); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status", err, nil)
	}

	return ports.CreateTripResult{
		TripID:    t.ID,
		VehicleID: t.VehicleID,
		Status:    t.Status.String(),
		Message:   "trip created",
	}, nil
}

// StartTrip transitions PENDING -> ACTIVE and binds the vehicle to the trip.
// The start location is best effort: starting without a fix is allowed.
func (service *trackerService) StartTrip(ctx context.Context, in ports.StartTripInput) (ports.StartTripResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(service.logger.WithTripID(ctx, in.TripID), corrID)

	now := time.Now().UTC()
	start, err := toSample(in.StartLocation, now.UnixMilli())
	if err != nil {
		return ports.StartTripResult{}, err
	}

	var t *trip.Trip
	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		t, err = service.trips.GetByID(ctx, in.TripID)
		if err != nil {
			return err
		}

		if err := newTripLifecycle(t).Start(ctx, t, start, now); err != nil {
			return err
		}

		if err := service.trips.Start(ctx, t.ID, start, now); err != nil {
			return err
		}
		if start != nil {
			if err := service.routes.AppendSample(ctx, t.ID, *start); err != nil {
				return err
			}
		}
		return service.vehicles.AssignTrip(ctx, t.VehicleID, t.ID)
	})
	if err != nil {
		service.logger.Error(ctx, "trip_start_failed", "Failed to start trip", err, nil)
		return ports.StartTripResult{}, err
	}

	if err := service.presence.SetIntendedStatus(ctx, t.VehicleID, vehicle.IntendedOnTrip); err != nil {
		service.logger.Error(ctx, "presence_status_failed", "Failed to cache intended status", err, nil)
	}

	service.logger.Info(ctx, "trip_started", "Trip started", map[string]any{
		"vehicle_id":    t.VehicleID,
		"has_start_fix": start != nil,
	})

	if err := service.publishTripStatus(ctx, t, corrID); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status", err, nil)
	}

	return ports.StartTripResult{
		TripID:    t.ID,
		Status:    t.Status.String(),
		StartedAt: *t.StartedAt,
		Message:   "trip started",
	}, nil
}

// CompleteTrip transitions ACTIVE -> COMPLETED, appends the optional closing
// sample, computes final metrics once, and releases the vehicle.
func (service *trackerService) CompleteTrip(ctx context.Context, in ports.CompleteTripInput) (ports.CompleteTripResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(service.logger.WithTripID(ctx, in.TripID), corrID)

	now := time.Now().UTC()
	end, err := toSample(in.EndLocation, now.UnixMilli())
	if err != nil {
		return ports.CompleteTripResult{}, err
	}

	var t *trip.Trip
	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		t, err = service.trips.GetByID(ctx, in.TripID)
		if err != nil {
			return err
		}

		// metrics are computed over the full persisted route
		t.Route, err = service.routes.GetRoute(ctx, t.ID)
		if err != nil {
			return err
		}

		if err := newTripLifecycle(t).Complete(ctx, t, end, now); err != nil {
			return err
		}

		if end != nil {
			if err := service.routes.AppendSample(ctx, t.ID, *end); err != nil {
				return err
			}
		}
		if err := service.trips.Complete(ctx, t); err != nil {
			return err
		}
		return service.vehicles.ReleaseTrip(ctx, t.VehicleID)
	})
	if err != nil {
		service.logger.Error(ctx, "trip_complete_failed", "Failed to complete trip", err, nil)
		return ports.CompleteTripResult{}, err
	}

	if err := service.presence.SetIntendedStatus(ctx, t.VehicleID, vehicle.IntendedIdle); err != nil {
		service.logger.Error(ctx, "presence_status_failed", "Failed to cache intended status", err, nil)
	}

	out := ports.CompleteTripResult{
		TripID:        t.ID,
		Status:        t.Status.String(),
		CompletedAt:   *t.EndedAt,
		MetricsSource: string(t.MetricsSource),
		Message:       "trip completed",
	}
	if t.DistanceKm != nil {
		out.DistanceKm = *t.DistanceKm
	}
	if t.AvgSpeedKmh != nil {
		out.AvgSpeedKmh = *t.AvgSpeedKmh
	}

	service.logger.Info(ctx, "trip_completed", "Trip completed", map[string]any{
		"vehicle_id":     t.VehicleID,
		"distance_km":    out.DistanceKm,
		"avg_speed_kmh":  out.AvgSpeedKmh,
		"metrics_source": out.MetricsSource,
	})

	if err := service.publishTripStatus(ctx, t, corrID); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status", err, nil)
	}

	return out, nil
}

// CancelTrip transitions a non-terminal trip to CANCELLED. The accumulated
// route is kept for audit; metrics are never computed.
func (service *trackerService) CancelTrip(ctx context.Context, in ports.CancelTripInput) (ports.CancelTripResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(service.logger.WithTripID(ctx, in.TripID), corrID)

	now := time.Now().UTC()

	var t *trip.Trip
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = service.trips.GetByID(ctx, in.TripID)
		if err != nil {
			return err
		}

		wasAssigned := t.Status == trip.StatusActive

		if err := newTripLifecycle(t).Cancel(ctx, t, in.Reason, now); err != nil {
			return err
		}

		if err := service.trips.Cancel(ctx, t.ID, in.Reason, now); err != nil {
			return err
		}
		if wasAssigned {
			return service.vehicles.ReleaseTrip(ctx, t.VehicleID)
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "trip_cancel_failed", "Failed to cancel trip", err, nil)
		return ports.CancelTripResult{}, err
	}

	if err := service.presence.SetIntendedStatus(ctx, t.VehicleID, vehicle.IntendedIdle); err != nil {
		service.logger.Error(ctx, "presence_status_failed", "Failed to cache intended status", err, nil)
	}

	service.logger.Info(ctx, "trip_cancelled", "Trip cancelled", map[string]any{
		"vehicle_id": t.VehicleID,
		"reason":     in.Reason,
	})

	if err := service.publishTripStatus(ctx, t, corrID); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status", err, nil)
	}

	return ports.CancelTripResult{
		TripID:      t.ID,
		Status:      t.Status.String(),
		CancelledAt: t.EndedAt.Format(time.RFC3339),
		Message:     "trip cancelled",
	}, nil
}

// GetTrip returns the read model for a single trip, including live
// distance-so-far over the accumulated route.
func (service *trackerService) GetTrip(ctx context.Context, tripID string) (ports.TripView, error) {
	var (
		t     *trip.Trip
		route geo.Route
	)
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = service.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		route, err = service.routes.GetRoute(ctx, tripID)
		return err
	})
	if err != nil {
		return ports.TripView{}, err
	}

	view := ports.TripView{
		TripID:           t.ID,
		VehicleID:        t.VehicleID,
		OriginLabel:      t.OriginLabel,
		DestinationLabel: t.DestinationLabel,
		Status:           t.Status.String(),
		RouteSamples:     len(route),
		DistanceSoFarKm:  geo.RouteDistanceKm(route),
		DistanceKm:       t.DistanceKm,
		AvgSpeedKmh:      t.AvgSpeedKmh,
		MetricsSource:    string(t.MetricsSource),
		StartedAt:        t.StartedAt,
		EndedAt:          t.EndedAt,
	}
	if t.CancelReason != nil {
		view.CancelReason = *t.CancelReason
	}

	return view, nil
}

// TripRoute returns the trip status and its route as transport points.
func (service *trackerService) TripRoute(ctx context.Context, tripID string) (trip.Status, []ports.GeoPoint, error) {
	var (
		t     *trip.Trip
		route geo.Route
	)
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = service.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		route, err = service.routes.GetRoute(ctx, tripID)
		return err
	})
	if err != nil {
		return "", nil, err
	}

	points := make([]ports.GeoPoint, 0, len(route))
	for _, s := range route {
		points = append(points, ports.GeoPoint{Latitude: s.Lat, Longitude: s.Lng})
	}
	return t.Status, points, nil
}
