package service

import (
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/ports"
)

// trackerService holds all dependencies required by the tracker service.
type trackerService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	vehicles   ports.VehicleRepository
	trips      ports.TripRepository
	routes     ports.RouteRepository
	tripEvents ports.TripEventRepository
	presence   ports.PresenceStore
	pub        *rabbitmq.MQPublisher
	rabbitmq   *rabbitmq.Client
}

// NewTrackerService constructs the service with required dependencies.
func NewTrackerService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	vehicles ports.VehicleRepository,
	trips ports.TripRepository,
	routes ports.RouteRepository,
	tripEvents ports.TripEventRepository,
	presence ports.PresenceStore,
	pub *rabbitmq.MQPublisher,
	rabbitmq *rabbitmq.Client,
) ports.TrackerService {
	return &trackerService{
		logger:     logger,
		uow:        uow,
		vehicles:   vehicles,
		trips:      trips,
		routes:     routes,
		tripEvents: tripEvents,
		presence:   presence,
		pub:        pub,
		rabbitmq:   rabbitmq,
	}
}
