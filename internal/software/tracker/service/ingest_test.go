package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-track/internal/domain/trip"
	"fleet-track/internal/ports"
)

func TestIngestSampleUpdatesLastKnownAndRoute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	at := nowMillis()
	out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9716,
		Longitude:        77.5946,
		CapturedAtMillis: at,
	})
	require.NoError(t, err)
	assert.Equal(t, tripID, out.TripID)
	assert.True(t, out.AppendedToRoute)
	assert.True(t, out.LastKnownUpdated)
	assert.Empty(t, out.RejectedReason)

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, v.LastKnownLocation)
	assert.Equal(t, at, v.LastKnownLocation.CapturedAtMillis)

	cached, err := env.presence.GetLastKnown(ctx, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, at, cached.CapturedAtMillis)
}

func TestIngestSampleWithoutActiveTripOnlyMovesMarker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9716,
		Longitude:        77.5946,
		CapturedAtMillis: nowMillis(),
	})
	require.NoError(t, err)
	assert.Empty(t, out.TripID)
	assert.False(t, out.AppendedToRoute)
	assert.True(t, out.LastKnownUpdated)
}

func TestIngestSampleRejectsInvalidCoordinates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         123.0, // out of range
		Longitude:        77.5946,
		CapturedAtMillis: nowMillis(),
	})
	require.NoError(t, err)
	assert.False(t, out.LastKnownUpdated)
	assert.Equal(t, "latitude must be between -90 and 90", out.RejectedReason)

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	assert.Nil(t, v.LastKnownLocation)
}

func TestIngestSampleRejectsStaleForRoute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	tripID := env.seedActiveTrip(ctx, vehicleID, nil)

	at := nowMillis()
	_, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9716,
		Longitude:        77.5946,
		CapturedAtMillis: at,
	})
	require.NoError(t, err)

	// older than the route tail: kept off the route, audited
	out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9700,
		Longitude:        77.5900,
		CapturedAtMillis: at - 5000,
	})
	require.NoError(t, err)
	assert.False(t, out.AppendedToRoute)
	assert.Equal(t, trip.ErrStaleSample.Error(), out.RejectedReason)

	n, err := env.routes.CountSamples(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events, err := env.events.ListForTrip(ctx, tripID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, trip.EventSampleRejected, events[0].Type)
}

func TestIngestSampleStaleForRouteStillCachesMovedMarker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")
	env.seedActiveTrip(ctx, vehicleID, &ports.GeoPoint{Latitude: 12.9716, Longitude: 77.5946})

	// older than the start sample at the route tail, but the vehicle has no
	// last-known yet: the marker moves even though the route rejects it
	at := nowMillis() - 5000
	out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9700,
		Longitude:        77.5900,
		CapturedAtMillis: at,
	})
	require.NoError(t, err)
	assert.True(t, out.LastKnownUpdated)
	assert.False(t, out.AppendedToRoute)
	assert.Equal(t, trip.ErrStaleSample.Error(), out.RejectedReason)

	// the presence cache follows the durable row, not the route decision
	cached, err := env.presence.GetLastKnown(ctx, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, at, cached.CapturedAtMillis)
}

func TestIngestSampleStaleStillNotMovingMarkerBackwards(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	at := nowMillis()
	_, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.9716,
		Longitude:        77.5946,
		CapturedAtMillis: at,
	})
	require.NoError(t, err)

	out, err := env.svc.IngestSample(ctx, ports.IngestSampleInput{
		VehicleID:        vehicleID,
		Latitude:         12.0000,
		Longitude:        77.0000,
		CapturedAtMillis: at - 60000,
	})
	require.NoError(t, err)
	assert.False(t, out.LastKnownUpdated)

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	assert.Equal(t, at, v.LastKnownLocation.CapturedAtMillis)
}

func TestIngestSampleUnknownVehicle(t *testing.T) {
	env := newTestEnv()

	out, err := env.svc.IngestSample(context.Background(), ports.IngestSampleInput{
		VehicleID:        "veh_missing",
		Latitude:         12.9716,
		Longitude:        77.5946,
		CapturedAtMillis: nowMillis(),
	})
	require.NoError(t, err)
	assert.Equal(t, "vehicle not found", out.RejectedReason)
}

func TestRecordHeartbeatIsMonotonic(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	vehicleID := env.seedVehicle(ctx, "Unit 7", "KA-01-7777")

	at := nowMillis()
	out, err := env.svc.RecordHeartbeat(ctx, ports.HeartbeatInput{VehicleID: vehicleID, AtMillis: at})
	require.NoError(t, err)
	assert.Equal(t, "ONLINE", out.EffectiveStatus)

	// an older heartbeat must not rewind liveness
	_, err = env.svc.RecordHeartbeat(ctx, ports.HeartbeatInput{VehicleID: vehicleID, AtMillis: at - 90000})
	require.NoError(t, err)

	v, err := env.vehicles.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	assert.Equal(t, at, v.LastHeartbeatMillis)
}
