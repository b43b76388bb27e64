package contracts

// Exchanges
const (
	ExchangeTelemetryTopic = "telemetry_topic"
	ExchangeTripTopic      = "trip_topic"
	ExchangeLocationFanout = "location_fanout"
)

// Queues
const (
	QueueTelemetrySamples = "telemetry_samples"
	QueueHeartbeats       = "vehicle_heartbeats"
	QueueTripStatus       = "trip_status"
)

// Routing patterns
const (
	RouteSamplePrefix     = "telemetry.sample."  // {vehicle_id}
	RouteHeartbeatPrefix  = "vehicle.heartbeat." // {vehicle_id}
	RouteTripStatusPrefix = "trip.status."       // {status}
)
