package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-track/internal/domain/trip"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"
)

func TestCreateTripStartsPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	out, err := env.svc.CreateTrip(ctx, ports.CreateTripInput{
		VehicleID:        vehicleID,
		OriginLabel:      "Warehouse",
		DestinationLabel: "Harbor",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.TripID)
	assert.Equal(t, trip.StatusPending.String(), out.Status)
	assert.Equal(t, vehicleID, out.VehicleID)
}

func TestCreateTripRejectsSecondConcurrentTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	env.seedActiveTrip(ctx, vehicleID, nil)

	_, err := env.svc.CreateTrip(ctx, ports.CreateTripInput{
		VehicleID:        vehicleID,
		OriginLabel:      "Warehouse",
		DestinationLabel: "Harbor",
	})
	assert.ErrorIs(t, err, ErrVehicleBusy)
}

func TestCreateTripUnknownVehicle(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.CreateTrip(context.Background(), ports.CreateTripInput{
		VehicleID:        "veh_missing",
		OriginLabel:      "Warehouse",
		DestinationLabel: "Harbor",
	})
	assert.ErrorIs(t, err, vehicle.ErrVehicleNotFound)
}

func TestStartTripAssignsVehicleAndSeedsRoute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	created, err := env.svc.CreateTrip(ctx, ports.CreateTripInput{
		VehicleID:        vehicleID,
		OriginLabel:      "Warehouse",
		DestinationLabel: "Harbor",
	})
	require.NoError(t, err)

	started, err := env.svc.StartTrip(ctx, ports.StartTripInput{
		TripID:        created.TripID,
		StartLocation: &ports.GeoPoint{Latitude: 12.9716, Longitude: 77.5946},
	})
	require.NoError(t, err)
	assert.Equal(t, trip.StatusActive.String(), started.Status)
	assert.False(t, started.StartedAt.IsZero())

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, v.AssignedTripID)
	assert.Equal(t, created.TripID, *v.AssignedTripID)
	assert.Equal(t, vehicle.IntendedOnTrip, v.IntendedStatus)

	n, err := env.routes.CountSamples(ctx, created.TripID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, vehicle.IntendedOnTrip, env.presence.statuses[vehicleID])
}

func TestStartTripWithoutFixLeavesRouteEmpty(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	n, err := env.routes.CountSamples(ctx, tripID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartTripTwiceFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	_, err := env.svc.StartTrip(ctx, ports.StartTripInput{TripID: tripID})
	assert.ErrorIs(t, err, trip.ErrInvalidStatusTransition)
}

func TestCompleteTripComputesRouteMetrics(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, &ports.GeoPoint{Latitude: 12.9716, Longitude: 77.5946})

	// feed a couple of samples so metrics come from the real route
	for i, p := range []ports.GeoPoint{
		{Latitude: 12.9750, Longitude: 77.6000},
		{Latitude: 12.9800, Longitude: 77.6100},
	} {
		out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
			VehicleID:        vehicleID,
			Latitude:         p.Latitude,
			Longitude:        p.Longitude,
			CapturedAtMillis: nowMillis() + int64(i+1),
		})
		require.NoError(t, err)
		require.True(t, out.AppendedToRoute)
	}

	completed, err := env.svc.CompleteTrip(ctx, ports.CompleteTripInput{
		TripID:      tripID,
		EndLocation: &ports.GeoPoint{Latitude: 12.9850, Longitude: 77.6200},
	})
	require.NoError(t, err)
	assert.Equal(t, trip.StatusCompleted.String(), completed.Status)
	assert.Equal(t, string(trip.MetricsFromRoute), completed.MetricsSource)
	assert.Greater(t, completed.DistanceKm, 0.0)

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	assert.Nil(t, v.AssignedTripID)
	assert.Equal(t, vehicle.IntendedIdle, v.IntendedStatus)
	assert.Equal(t, vehicle.IntendedIdle, env.presence.statuses[vehicleID])
}

func TestCompleteTripEmptyRouteFlagsEstimate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	completed, err := env.svc.CompleteTrip(ctx, ports.CompleteTripInput{TripID: tripID})
	require.NoError(t, err)
	assert.Equal(t, string(trip.MetricsEstimated), completed.MetricsSource)
}

func TestCompletePendingTripFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	created, err := env.svc.CreateTrip(ctx, ports.CreateTripInput{
		VehicleID:        vehicleID,
		OriginLabel:      "Warehouse",
		DestinationLabel: "Harbor",
	})
	require.NoError(t, err)

	_, err = env.svc.CompleteTrip(ctx, ports.CompleteTripInput{TripID: created.TripID})
	assert.ErrorIs(t, err, trip.ErrInvalidStatusTransition)
}

func TestCancelActiveTripReleasesVehicle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	out, err := env.svc.CancelTrip(ctx, ports.CancelTripInput{TripID: tripID, Reason: "operator request"})
	require.NoError(t, err)
	assert.Equal(t, trip.StatusCancelled.String(), out.Status)

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	assert.Nil(t, v.AssignedTripID)

	view, err := env.svc.GetTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, "operator request", view.CancelReason)
}

func TestCancelCompletedTripFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	_, err := env.svc.CompleteTrip(ctx, ports.CompleteTripInput{TripID: tripID})
	require.NoError(t, err)

	_, err = env.svc.CancelTrip(ctx, ports.CancelTripInput{TripID: tripID, Reason: "too late"})
	assert.ErrorIs(t, err, trip.ErrInvalidStatusTransition)
}

func TestGetTripReportsLiveDistance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, &ports.GeoPoint{Latitude: 12.9716, Longitude: 77.5946})

	_, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9800,
		Longitude:        77.6100,
		CapturedAtMillis: nowMillis() + 1,
	})
	require.NoError(t, err)

	view, err := env.svc.GetTrip(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusActive.String(), view.Status)
	assert.Equal(t, 2, view.RouteSamples)
	assert.Greater(t, view.DistanceSoFarKm, 0.0)
	assert.Nil(t, view.DistanceKm)
}

func TestTripRouteReturnsOrderedPoints(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, &ports.GeoPoint{Latitude: 12.9716, Longitude: 77.5946})

	status, points, err := env.svc.TripRoute(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusActive, status)
	require.Len(t, points, 1)
	assert.InDelta(t, 12.9716, points[0].Latitude, 1e-9)
}

func TestFleetOverviewCountsPresence(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	onTrip := env.seedVehicle(ctx, "Unit 1", "KA-01-0001")
	online := env.seedVehicle(ctx, "Unit 2", "KA-01-0002")
	env.seedVehicle(ctx, "Unit 3", "KA-01-0003") // never heartbeats, stays offline

	env.seedActiveTrip(ctx, onTrip, nil)
	for _, id := range []string{onTrip, online} {
		_, err := env.svc.RecordHeartbeat(ctx, ports.HeartbeatInput{VehicleID: id})
		require.NoError(t, err)
	}

	out, err := env.svc.FleetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Metrics.ActiveTrips)
	assert.Equal(t, 1, out.Metrics.VehiclesOnTrip)
	assert.Equal(t, 1, out.Metrics.VehiclesOnline)
	assert.Equal(t, 1, out.Metrics.VehiclesOffline)
	assert.Len(t, out.Vehicles, 3)
}
