package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Both publish modes must fail fast on a disconnected client instead of
// blocking; the reporter's drop-on-failure path depends on this.
func TestPublishWithoutConnectionFailsFast(t *testing.T) {
	pub := NewMQPublisher(&Client{})

	err := pub.Publish("telemetry_topic", "trip.status.ACTIVE", []byte(`{}`))
	require.EqualError(t, err, "rabbitmq: connection is not open")

	err = pub.PublishTransient("telemetry_topic", "telemetry.sample.veh_001", []byte(`{}`))
	require.EqualError(t, err, "rabbitmq: connection is not open")
}
