package reporter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/general/contracts"
)

// RunHeartbeatLoop publishes a liveness heartbeat on a fixed cadence until
// ctx is cancelled. Heartbeats are independent of trip activity: a parked
// vehicle with its unit on still reports as reachable. Like samples, a failed
// publish is dropped and the next tick supersedes it.
func (rep *Reporter) RunHeartbeatLoop(ctx context.Context) {
	ctx = rep.logger.WithVehicleID(ctx, rep.vehicleID)
	ticker := time.NewTicker(vehicle.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rep.publishHeartbeat(); err != nil {
				rep.logger.Error(ctx, "heartbeat_publish_failed", "Dropped heartbeat after failed publish", err, nil)
			}
		}
	}
}

func (rep *Reporter) publishHeartbeat() error {
	msg := contracts.HeartbeatMessage{
		VehicleID: rep.vehicleID,
		AtMillis:  time.Now().UTC().UnixMilli(),
		Envelope: contracts.Envelope{
			CorrelationID: uuid.NewString(),
			Producer:      producerName,
			SentAt:        time.Now().UTC(),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return rep.pub.PublishTransient(contracts.ExchangeTelemetryTopic, contracts.RouteHeartbeatPrefix+rep.vehicleID, body)
}
