package service

import (
	"context"
	"errors"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"
)

// IngestSample processes one telemetry sample. Invalid samples are rejected
// before touching any state. Valid samples update the vehicle's last-known
// location and, when the vehicle is on an ACTIVE trip, extend the trip route
// unless they are older than the current route tail. Accepted samples are
// broadcast to the dashboard fanout best effort.
func (service *trackerService) IngestSample(ctx context.Context, in ports.IngestSampleInput) (ports.IngestSampleResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(service.logger.WithVehicleID(ctx, in.VehicleID), corrID)

	result := ports.IngestSampleResult{VehicleID: in.VehicleID}

	sample, err := geo.NewSample(in.Latitude, in.Longitude, in.SpeedMps, in.CapturedAtMillis)
	if err != nil {
		result.RejectedReason = err.Error()
		service.logger.Info(ctx, "sample_rejected", "Rejected invalid telemetry sample", map[string]any{
			"lat":    in.Latitude,
			"lng":    in.Longitude,
			"reason": result.RejectedReason,
		})
		return result, nil
	}

	var activeTrip *trip.Trip
	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		v, err := service.vehicles.GetByID(ctx, in.VehicleID)
		if err != nil {
			return err
		}

		if v.ObserveLocation(sample) {
			if err := service.vehicles.UpdateLastKnown(ctx, v.ID, sample); err != nil {
				return err
			}
			result.LastKnownUpdated = true
		}

		activeTrip, err = service.trips.GetActiveForVehicle(ctx, in.VehicleID)
		if err != nil || activeTrip == nil {
			return err
		}
		result.TripID = activeTrip.ID

		tail, err := service.routes.TailSample(ctx, activeTrip.ID)
		if err != nil {
			return err
		}
		if tail != nil && sample.CapturedAtMillis < tail.CapturedAtMillis {
			result.RejectedReason = trip.ErrStaleSample.Error()
			event, err := trip.NewEvent(activeTrip.ID, trip.EventSampleRejected, map[string]any{
				"captured_at_millis": sample.CapturedAtMillis,
				"tail_at_millis":     tail.CapturedAtMillis,
				"reason":             "stale",
			})
			if err != nil {
				return err
			}
			return service.tripEvents.Append(ctx, event)
		}

		if err := service.routes.AppendSample(ctx, activeTrip.ID, sample); err != nil {
			return err
		}
		result.AppendedToRoute = true
		return nil
	})
	if err != nil {
		if errors.Is(err, vehicle.ErrVehicleNotFound) {
			result.RejectedReason = err.Error()
			service.logger.Info(ctx, "sample_rejected", "Sample for unknown vehicle", map[string]any{
				"reason": result.RejectedReason,
			})
			return result, nil
		}
		service.logger.Error(ctx, "sample_ingest_failed", "Failed to ingest telemetry sample", err, nil)
		return ports.IngestSampleResult{}, err
	}

	// a sample can move the marker even when it was too old for the route,
	// so the cache and the dashboard follow the durable row, not the route
	if result.LastKnownUpdated {
		if err := service.presence.SetLastKnown(ctx, in.VehicleID, sample); err != nil {
			service.logger.Error(ctx, "presence_cache_failed", "Failed to cache last-known location", err, nil)
		}
		if err := service.broadcastLocationUpdate(ctx, in.VehicleID, result.TripID, sample, corrID); err != nil {
			service.logger.Error(ctx, "location_broadcast_failed", "Failed to broadcast location update", err, nil)
		}
	}

	if result.RejectedReason != "" {
		service.logger.Debug(ctx, "sample_rejected", "Rejected out-of-order trip sample", map[string]any{
			"trip_id": result.TripID,
			"reason":  result.RejectedReason,
		})
	}

	return result, nil
}
