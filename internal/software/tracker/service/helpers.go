package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/ports"
)

const producerName = "tracker-service"

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// envelope builds the standard message envelope for this service.
func envelope(corrID string) contracts.Envelope {
	return contracts.Envelope{
		CorrelationID: corrID,
		Producer:      producerName,
		SentAt:        time.Now().UTC(),
	}
}

// publishTripStatus sends a trip status update to the trip_topic exchange
// using routing key "trip.status.{status}" (topic).
func (service *trackerService) publishTripStatus(ctx context.Context, t *trip.Trip, corrID string) error {
	msg := contracts.TripStatusMessage{
		TripID:    t.ID,
		VehicleID: t.VehicleID,
		Status:    t.Status.String(),
		Timestamp: time.Now().UTC(),
		Envelope:  envelope(corrID),
	}

	routingKey := contracts.RouteTripStatusPrefix + msg.Status

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeTripTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "trip_status_published", "Published trip status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"trip_id":     t.ID,
		"vehicle_id":  t.VehicleID,
		"status":      msg.Status,
	})

	return nil
}

// broadcastLocationUpdate broadcasts an accepted sample on the fanout
// exchange. Fanout ignores routing keys; pass an empty routing key.
func (service *trackerService) broadcastLocationUpdate(ctx context.Context, vehicleID, tripID string, sample geo.Sample, corrID string) error {
	msg := contracts.LocationUpdateMessage{
		VehicleID:        vehicleID,
		TripID:           tripID,
		Location:         contracts.GeoPoint{Lat: sample.Lat, Lng: sample.Lng},
		SpeedMps:         sample.SpeedMps,
		CapturedAtMillis: sample.CapturedAtMillis,
		Envelope:         envelope(corrID),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeLocationFanout, "", body); err != nil {
		return err
	}

	service.logger.Debug(ctx, "location_update_published", "Broadcasted location update to RabbitMQ", map[string]any{
		"vehicle_id": vehicleID,
		"trip_id":    tripID,
		"lat":        sample.Lat,
		"lng":        sample.Lng,
	})

	return nil
}

// toSample converts an optional transport point into a domain sample
// captured at the given instant.
func toSample(p *ports.GeoPoint, atMillis int64) (*geo.Sample, error) {
	if p == nil {
		return nil, nil
	}
	s, err := geo.NewSample(p.Latitude, p.Longitude, nil, atMillis)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
