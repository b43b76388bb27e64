package contracts

// LocationUpdateMessage is broadcast by the tracker after a sample is
// accepted, so dashboard feeds see the fleet move in near real time.
// Exchange: ExchangeLocationFanout (fanout, no routing key).
type LocationUpdateMessage struct {
	VehicleID        string   `json:"vehicle_id"`
	TripID           string   `json:"trip_id,omitempty"`
	Location         GeoPoint `json:"location"`
	SpeedMps         *float64 `json:"speed_mps,omitempty"`
	CapturedAtMillis int64    `json:"captured_at_millis"`
	Envelope
}
