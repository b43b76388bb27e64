package service

import (
	"context"
	"time"

	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"
)

// overviewVehicleLimit caps the vehicle list in the overview payload.
const overviewVehicleLimit = 200

// FleetOverview aggregates the operator dashboard read model: KPI counters
// plus a per-vehicle presence listing. Presence is derived from heartbeats
// at read time, so the same vehicle can count as ON_TRIP in intent and
// OFFLINE in effect.
func (service *trackerService) FleetOverview(ctx context.Context) (ports.FleetOverviewResult, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		metrics  ports.OverviewMetrics
		vehicles []*vehicle.Vehicle
	)
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if metrics.ActiveTrips, err = service.trips.CountActive(ctx); err != nil {
			return err
		}
		if metrics.TripsCompletedToday, err = service.trips.CountCompletedBetween(ctx, dayStart, now); err != nil {
			return err
		}
		if metrics.DistanceTodayKm, err = service.trips.SumDistanceCompletedBetween(ctx, dayStart, now); err != nil {
			return err
		}
		vehicles, err = service.vehicles.List(ctx, overviewVehicleLimit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "overview_failed", "Failed to build fleet overview", err, nil)
		return ports.FleetOverviewResult{}, err
	}

	rows := make([]ports.OverviewVehicleRow, 0, len(vehicles))
	for _, v := range vehicles {
		// the cache may be fresher than the row when a consumer is behind
		if hb, err := service.presence.GetHeartbeat(ctx, v.ID); err == nil && hb > v.LastHeartbeatMillis {
			v.LastHeartbeatMillis = hb
		}
		if cached, err := service.presence.GetLastKnown(ctx, v.ID); err == nil && cached != nil {
			if v.LastKnownLocation == nil || cached.CapturedAtMillis >= v.LastKnownLocation.CapturedAtMillis {
				v.LastKnownLocation = cached
			}
		}

		effective := v.EffectiveStatusAt(now)
		switch effective {
		case vehicle.EffectiveOnline:
			metrics.VehiclesOnline++
		case vehicle.EffectiveOnTrip:
			metrics.VehiclesOnTrip++
		default:
			metrics.VehiclesOffline++
		}

		row := ports.OverviewVehicleRow{
			VehicleID:       v.ID,
			Name:            v.Name,
			EffectiveStatus: effective.String(),
		}
		if v.AssignedTripID != nil {
			row.AssignedTripID = *v.AssignedTripID
		}
		if v.LastKnownLocation != nil {
			row.LastKnown = &ports.GeoPoint{
				Latitude:  v.LastKnownLocation.Lat,
				Longitude: v.LastKnownLocation.Lng,
			}
			row.LastSampleMillis = v.LastKnownLocation.CapturedAtMillis
		}
		rows = append(rows, row)
	}

	return ports.FleetOverviewResult{
		Timestamp: now,
		Metrics:   metrics,
		Vehicles:  rows,
	}, nil
}
