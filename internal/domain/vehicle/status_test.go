package vehicle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-track/internal/domain/geo"
)

func TestDeriveEffectiveStatusLapsedHeartbeatWins(t *testing.T) {
	now := time.Now().UnixMilli()

	// heartbeat 61s old: OFFLINE regardless of intent
	stale := now - 61_000
	assert.Equal(t, EffectiveOffline, DeriveEffectiveStatus(IntendedOnTrip, stale, now))
	assert.Equal(t, EffectiveOffline, DeriveEffectiveStatus(IntendedIdle, stale, now))

	// heartbeat 10s old: intent is translated
	fresh := now - 10_000
	assert.Equal(t, EffectiveOnTrip, DeriveEffectiveStatus(IntendedOnTrip, fresh, now))
	assert.Equal(t, EffectiveOnline, DeriveEffectiveStatus(IntendedIdle, fresh, now))
	assert.Equal(t, EffectiveOffline, DeriveEffectiveStatus(IntendedOffline, fresh, now))
}

func TestDeriveEffectiveStatusBoundary(t *testing.T) {
	now := time.Now().UnixMilli()

	// exactly at the timeout is still live; one millisecond past is not
	atLimit := now - HeartbeatTimeout.Milliseconds()
	assert.Equal(t, EffectiveOnline, DeriveEffectiveStatus(IntendedIdle, atLimit, now))
	assert.Equal(t, EffectiveOffline, DeriveEffectiveStatus(IntendedIdle, atLimit-1, now))
}

func TestHeartbeatIsMonotonic(t *testing.T) {
	v, err := NewVehicle("Unit 12", "KW-4821")
	require.NoError(t, err)

	v.Heartbeat(5_000)
	v.Heartbeat(3_000) // late arrival, ignored
	assert.Equal(t, int64(5_000), v.LastHeartbeatMillis)

	v.Heartbeat(9_000)
	assert.Equal(t, int64(9_000), v.LastHeartbeatMillis)
}

func TestObserveLocationIgnoresStaleSamples(t *testing.T) {
	v, err := NewVehicle("Unit 12", "KW-4821")
	require.NoError(t, err)

	newer, err := geo.NewSample(29.31, 47.91, nil, 2_000)
	require.NoError(t, err)
	older, err := geo.NewSample(29.30, 47.90, nil, 1_000)
	require.NoError(t, err)

	assert.True(t, v.ObserveLocation(newer))
	assert.False(t, v.ObserveLocation(older))
	require.NotNil(t, v.LastKnownLocation)
	assert.Equal(t, int64(2_000), v.LastKnownLocation.CapturedAtMillis)
}

func TestAssignAndReleaseTrip(t *testing.T) {
	v, err := NewVehicle("Unit 12", "KW-4821")
	require.NoError(t, err)

	require.NoError(t, v.AssignTrip("trip-1"))
	assert.Equal(t, IntendedOnTrip, v.IntendedStatus)
	require.NotNil(t, v.AssignedTripID)

	v.ReleaseTrip()
	assert.Equal(t, IntendedIdle, v.IntendedStatus)
	assert.Nil(t, v.AssignedTripID)
}

func TestDecommissionedVehicleRejectsAssignment(t *testing.T) {
	v, err := NewVehicle("Unit 12", "KW-4821")
	require.NoError(t, err)

	v.Decommission(time.Now())
	assert.ErrorIs(t, v.AssignTrip("trip-1"), ErrDecommissioned)
	assert.Equal(t, IntendedOffline, v.IntendedStatus)
}

func TestParseIntendedStatus(t *testing.T) {
	s, err := ParseIntendedStatus(" on_trip ")
	require.NoError(t, err)
	assert.Equal(t, IntendedOnTrip, s)

	_, err = ParseIntendedStatus("PARKED")
	assert.ErrorIs(t, err, ErrInvalidIntendedStatus)
}
