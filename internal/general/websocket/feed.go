package websocket

import (
	"context"
	"encoding/json"

	"fleet-track/internal/general/contracts"
	"fleet-track/internal/general/rabbitmq"

	gws "github.com/gorilla/websocket"
	amqp "github.com/rabbitmq/amqp091-go"
)

// BroadcastLocation pushes a location update to every feed subscriber.
// Slow or broken subscribers are dropped rather than back-pressuring the rest.
func (ws *WebSocket) BroadcastLocation(msg contracts.LocationUpdateMessage) {
	frame := contracts.WSFeedLocationUpdate{
		Type:             "vehicle_location_update",
		VehicleID:        msg.VehicleID,
		TripID:           msg.TripID,
		Location:         msg.Location,
		SpeedMps:         msg.SpeedMps,
		CapturedAtMillis: msg.CapturedAtMillis,
		Envelope:         msg.Envelope,
	}

	ws.feedConns.Range(func(key, _ any) bool {
		conn, ok := key.(*gws.Conn)
		if !ok {
			return true
		}
		if err := ws.writeJSON(conn, frame); err != nil {
			ws.feedConns.Delete(conn)
			_ = conn.Close()
		}
		return true
	})
}

// RunLocationFeed consumes the location fanout and mirrors every update to
// the connected dashboard subscribers. Blocks until ctx is cancelled.
func (ws *WebSocket) RunLocationFeed(ctx context.Context, client *rabbitmq.Client) error {
	return client.ConsumeFanout(ctx, contracts.ExchangeLocationFanout, "dashboard_feed",
		func(hCtx context.Context, d amqp.Delivery) error {
			var msg contracts.LocationUpdateMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				ws.logger.Error(hCtx, "feed_decode_failed", "Failed to decode location update", err, nil)
				return err
			}
			ws.BroadcastLocation(msg)
			return nil
		})
}
