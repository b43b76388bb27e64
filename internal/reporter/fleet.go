package reporter

import (
	"context"
	"encoding/json"
	"fmt"

	"fleet-track/internal/domain/trip"
	"fleet-track/internal/general/config"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Fleet hosts one Reporter goroutine pair (samples + heartbeats) per
// configured vehicle and gates them by trip status messages from the tracker.
type Fleet struct {
	logger    *logger.Logger
	rabbitmq  *rabbitmq.Client
	reporters map[string]*Reporter
}

// NewFleet builds reporters for every route in the reporter config.
func NewFleet(log *logger.Logger, client *rabbitmq.Client, cfg config.ReporterConfig) (*Fleet, error) {
	pub := rabbitmq.NewMQPublisher(client)

	reporters := make(map[string]*Reporter, len(cfg.Routes))
	for _, route := range cfg.Routes {
		walker, err := NewWaypointWalker(route.Waypoints, cfg.StepMeters)
		if err != nil {
			return nil, fmt.Errorf("route for vehicle %s: %w", route.VehicleID, err)
		}
		reporters[route.VehicleID] = NewReporter(route.VehicleID, log, pub, walker)
	}

	return &Fleet{
		logger:    log,
		rabbitmq:  client,
		reporters: reporters,
	}, nil
}

// Run starts all reporter loops and the trip status consumer, then blocks
// until ctx is cancelled.
func (fleet *Fleet) Run(ctx context.Context) error {
	for _, rep := range fleet.reporters {
		go rep.Run(ctx)
		go rep.RunHeartbeatLoop(ctx)
	}

	fleet.logger.Info(ctx, "fleet_started", "Reporter fleet started", map[string]any{
		"vehicles": len(fleet.reporters),
	})

	// trip status messages wake and tear down per-vehicle emission loops
	return fleet.rabbitmq.Consume(ctx, contracts.QueueTripStatus, "reporter-fleet-trip-status", 10,
		func(ctx context.Context, d amqp.Delivery) error {
			var msg contracts.TripStatusMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				fleet.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse trip status", err,
					map[string]any{"routing_key": d.RoutingKey})
				return err
			}

			rep, ok := fleet.reporters[msg.VehicleID]
			if !ok {
				// trips of vehicles this process does not host are fine
				return nil
			}

			ctx = fleet.logger.WithVehicleID(fleet.logger.WithTripID(ctx, msg.TripID), msg.VehicleID)
			switch trip.Status(msg.Status) {
			case trip.StatusActive:
				rep.SetActiveTrip(msg.TripID)
				fleet.logger.Info(ctx, "reporter_activated", "Reporter loop activated for trip", nil)
			case trip.StatusCompleted, trip.StatusCancelled:
				rep.ClearActiveTrip()
				fleet.logger.Info(ctx, "reporter_deactivated", "Reporter loop torn down", map[string]any{
					"status": msg.Status,
				})
			}
			return nil
		})
}
