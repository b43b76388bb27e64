package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-track/internal/domain/geo"
)

func fixAt(lat, lng float64, millis int64) geo.Sample {
	return geo.Sample{Lat: lat, Lng: lng, CapturedAtMillis: millis}
}

func TestShouldEmitFirstSampleAlways(t *testing.T) {
	assert.True(t, shouldEmit(nil, fixAt(29.30, 47.90, 1000), 25, 15*time.Second))
}

func TestShouldEmitBelowBothThresholds(t *testing.T) {
	// roughly 2 meters north, 1 second later: stays quiet
	last := fixAt(29.30, 47.90, 1000)
	current := fixAt(29.300018, 47.90, 2000)

	require.Less(t, geo.HaversineMeters(last, current), 25.0)
	assert.False(t, shouldEmit(&last, current, 25, 15*time.Second))
}

func TestShouldEmitOnMovementRegardlessOfTime(t *testing.T) {
	// roughly 50 meters north, only 2 seconds later
	last := fixAt(29.30, 47.90, 1000)
	current := fixAt(29.300450, 47.90, 3000)

	require.Greater(t, geo.HaversineMeters(last, current), 25.0)
	assert.True(t, shouldEmit(&last, current, 25, 15*time.Second))
}

func TestShouldEmitOnElapsedTimeWithoutMovement(t *testing.T) {
	last := fixAt(29.30, 47.90, 1000)
	current := fixAt(29.30, 47.90, 1000+16_000)

	assert.True(t, shouldEmit(&last, current, 25, 15*time.Second))
}

func TestSyncSpeedThresholds(t *testing.T) {
	assert.Equal(t, 5*time.Second, SyncFast.TimeThreshold())
	assert.Equal(t, 15*time.Second, SyncMedium.TimeThreshold())
	assert.Equal(t, 60*time.Second, SyncSlow.TimeThreshold())
}

func TestParseSyncSpeed(t *testing.T) {
	speed, err := ParseSyncSpeed(" medium ")
	require.NoError(t, err)
	assert.Equal(t, SyncMedium, speed)

	_, err = ParseSyncSpeed("WARP")
	assert.ErrorIs(t, err, ErrInvalidSyncSpeed)
}

func TestWaypointWalkerAdvancesTowardsTarget(t *testing.T) {
	walker, err := NewWaypointWalker([]string{"29.30,47.90", "29.31,47.90"}, 100)
	require.NoError(t, err)

	start := fixAt(29.30, 47.90, 0)
	first, err := walker.Next(context.Background())
	require.NoError(t, err)
	second, err := walker.Next(context.Background())
	require.NoError(t, err)

	d1 := geo.HaversineMeters(start, first)
	d2 := geo.HaversineMeters(start, second)
	assert.InDelta(t, 100, d1, 5)
	assert.Greater(t, d2, d1)
	assert.False(t, walker.Done())
}

func TestWaypointWalkerParksAtFinalWaypoint(t *testing.T) {
	// the whole polyline is ~111m; a few big steps must exhaust it
	walker, err := NewWaypointWalker([]string{"29.30,47.90", "29.301,47.90"}, 60)
	require.NoError(t, err)

	var last geo.Sample
	for i := 0; i < 5; i++ {
		last, err = walker.Next(context.Background())
		require.NoError(t, err)
	}

	assert.True(t, walker.Done())
	assert.InDelta(t, 29.301, last.Lat, 1e-9)

	// parked: position stops changing
	again, err := walker.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, last.Lat, again.Lat)
	assert.Equal(t, last.Lng, again.Lng)
}

func TestWaypointWalkerRejectsBadInput(t *testing.T) {
	_, err := NewWaypointWalker([]string{"29.30,47.90"}, 40)
	assert.Error(t, err)

	_, err = NewWaypointWalker([]string{"29.30,47.90", "not-a-pair"}, 40)
	assert.Error(t, err)

	_, err = NewWaypointWalker([]string{"29.30,47.90", "95.0,47.90"}, 40)
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)

	_, err = NewWaypointWalker([]string{"29.30,47.90", "29.31,47.91"}, 0)
	assert.Error(t, err)
}

func TestDerivedSpeed(t *testing.T) {
	prev := fixAt(29.30, 47.90, 0)
	current := fixAt(29.300450, 47.90, 2000) // ~50m in 2s

	mps := derivedSpeedMps(&prev, current)
	require.NotNil(t, mps)
	assert.InDelta(t, 25, *mps, 1)

	assert.Nil(t, derivedSpeedMps(nil, current))
	assert.Nil(t, derivedSpeedMps(&current, prev)) // time going backwards
}
