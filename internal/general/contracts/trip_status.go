package contracts

import "time"

// TripStatusMessage is published by the tracker when a trip changes state so
// reporters can start or stop their sample loops.
// Routing key: "trip.status.{status}" on ExchangeTripTopic.
type TripStatusMessage struct {
	TripID    string    `json:"trip_id"`
	VehicleID string    `json:"vehicle_id"`
	Status    string    `json:"status"` // PENDING|ACTIVE|COMPLETED|CANCELLED
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
