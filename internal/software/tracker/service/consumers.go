package service

import (
	"context"
	"encoding/json"

	"fleet-track/internal/general/contracts"
	"fleet-track/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RunBackgroundConsumers starts consuming telemetry samples and heartbeats
// from RabbitMQ. Both loops run until ctx is cancelled.
func (service *trackerService) RunBackgroundConsumers(ctx context.Context) {
	// Consumer for telemetry samples from telemetry_topic exchange
	go service.rabbitmq.Consume(ctx, contracts.QueueTelemetrySamples, "tracker-telemetry-samples", 10,
		func(ctx context.Context, d amqp.Delivery) error {
			var msg contracts.TelemetrySampleMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				service.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse telemetry sample", err,
					map[string]any{"routing_key": d.RoutingKey})
				return err
			}

			result, err := service.IngestSample(ctx, ports.IngestSampleInput{
				VehicleID:        msg.VehicleID,
				Latitude:         msg.Lat,
				Longitude:        msg.Lng,
				SpeedMps:         msg.SpeedMps,
				CapturedAtMillis: msg.CapturedAtMillis,
			})
			if err != nil {
				return err
			}

			service.logger.Debug(ctx, "sample_consumed", "Processed telemetry sample from MQ", map[string]any{
				"vehicle_id":       result.VehicleID,
				"trip_id":          result.TripID,
				"appended":         result.AppendedToRoute,
				"last_known_moved": result.LastKnownUpdated,
				"rejected_reason":  result.RejectedReason,
			})
			return nil
		})

	// Consumer for vehicle heartbeats from telemetry_topic exchange
	go service.rabbitmq.Consume(ctx, contracts.QueueHeartbeats, "tracker-vehicle-heartbeats", 10,
		func(ctx context.Context, d amqp.Delivery) error {
			var msg contracts.HeartbeatMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				service.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse heartbeat", err,
					map[string]any{"routing_key": d.RoutingKey})
				return err
			}

			result, err := service.RecordHeartbeat(ctx, ports.HeartbeatInput{
				VehicleID: msg.VehicleID,
				AtMillis:  msg.AtMillis,
			})
			if err != nil {
				return err
			}

			service.logger.Debug(ctx, "heartbeat_consumed", "Processed heartbeat from MQ", map[string]any{
				"vehicle_id":       result.VehicleID,
				"effective_status": result.EffectiveStatus,
			})
			return nil
		})

	service.logger.Info(ctx, "consumers_started", "Background MQ consumers started", map[string]any{
		"queues": []string{contracts.QueueTelemetrySamples, contracts.QueueHeartbeats},
	})
}
