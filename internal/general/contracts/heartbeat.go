package contracts

// HeartbeatMessage is published by the reporter fleet on a fixed cadence,
// independent of sample emission. Routing key: "vehicle.heartbeat.{vehicle_id}"
// on ExchangeTelemetryTopic.
type HeartbeatMessage struct {
	VehicleID string `json:"vehicle_id"`
	AtMillis  int64  `json:"at_millis"`
	Envelope
}
