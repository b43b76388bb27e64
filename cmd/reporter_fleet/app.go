package reporterfleet

import (
	"context"
	"log"

	"fleet-track/internal/general/config"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/reporter"
)

func Run(ctx context.Context) error {
	// set up a new logger for the reporter fleet with a static request ID for startup logs
	logger := logger.New("reporter-fleet")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration (watched for live changes; sync_speed edits apply within a cycle)
	cfg, err := config.LoadFromFile("./config/config.yaml")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// build one reporter per configured vehicle route
	fleet, err := reporter.NewFleet(logger, rmq, cfg.Reporter)
	if err != nil {
		logger.Error(ctx, "fleet_setup_failed", "Failed to build reporter fleet", err, nil)
		return err
	}

	// run sample/heartbeat loops and the trip status consumer until shutdown
	if err := fleet.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "fleet_stopped", "Reporter fleet stopped with error", err, nil)
		return err
	}

	logger.Info(ctx, "service_stopped", "Reporter fleet shut down", nil)
	return nil
}
