package contracts

// WSFeedLocationUpdate mirrors "vehicle_location_update" frames sent to
// dashboard feed subscribers.
type WSFeedLocationUpdate struct {
	Type             string   `json:"type"` // "vehicle_location_update"
	VehicleID        string   `json:"vehicle_id"`
	TripID           string   `json:"trip_id,omitempty"`
	Location         GeoPoint `json:"location"`
	SpeedMps         *float64 `json:"speed_mps,omitempty"`
	CapturedAtMillis int64    `json:"captured_at_millis"`
	Envelope
}

// WSReplayFrame mirrors frames sent to a replay session subscriber.
type WSReplayFrame struct {
	Type            string   `json:"type"` // "replay_frame"
	TripID          string   `json:"trip_id"`
	Index           int      `json:"index"`
	Location        GeoPoint `json:"location"`
	CapturedAt      int64    `json:"captured_at_millis"`
	DistanceSoFarKm float64  `json:"distance_so_far_km"`
	Progress        float64  `json:"progress"` // 0..1
	Playing         bool     `json:"playing"`
}

// WSReplayCommand mirrors client commands controlling a replay session.
type WSReplayCommand struct {
	Type     string `json:"type"`               // "play" | "pause" | "seek" | "speed"
	Index    int    `json:"index,omitempty"`    // for "seek"
	Speed    int    `json:"speed,omitempty"`    // for "speed": 1, 2 or 4
	ClientID string `json:"client_id,omitempty"`
}

// WSReplayState acknowledges a command or reports a session-level error.
type WSReplayState struct {
	Type    string `json:"type"` // "replay_state" | "error"
	TripID  string `json:"trip_id,omitempty"`
	Playing bool   `json:"playing"`
	Index   int    `json:"index"`
	Speed   int    `json:"speed"`
	Message string `json:"message,omitempty"`
}
