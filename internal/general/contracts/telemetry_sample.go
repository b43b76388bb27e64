package contracts

// TelemetrySampleMessage is published by the reporter fleet for every emitted
// geo sample. Routing key: "telemetry.sample.{vehicle_id}" on
// ExchangeTelemetryTopic. Delivery is at-most-once: a sample that fails to
// publish is dropped, never retried.
type TelemetrySampleMessage struct {
	VehicleID        string   `json:"vehicle_id"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	SpeedMps         *float64 `json:"speed_mps,omitempty"`
	CapturedAtMillis int64    `json:"captured_at_millis"`
	Envelope
}
