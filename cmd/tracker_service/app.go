package trackerservice

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"fleet-track/internal/general/config"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/postgres"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/general/redis"
	"fleet-track/internal/general/websocket"
	"fleet-track/internal/software/tracker/handler"
	"fleet-track/internal/software/tracker/service"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger for the tracker service with a static request ID for startup logs
	logger := logger.New("tracker-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration (watched for live changes)
	cfg, err := config.LoadFromFile("./config/config.yaml")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// set up the RabbitMQ publisher
	pub := &rabbitmq.MQPublisher{Client: rmq}

	// connect to Redis for the presence cache
	rdb, err := redis.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer rdb.Close()

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	vehicleRepo := postgres.NewVehicleRepo()
	tripRepo := postgres.NewTripRepo()
	routeRepo := postgres.NewRouteRepo()
	tripEventRepo := postgres.NewTripEventRepo()
	presence := redis.NewPresenceStore(rdb)

	// set up the websocket handler (dashboard feed + replay sessions)
	ws := websocket.NewWebSocket(logger, uow, tripRepo, routeRepo)

	// set up the tracker service
	svc := service.NewTrackerService(logger, uow, vehicleRepo, tripRepo, routeRepo, tripEventRepo, presence, pub, rmq)

	// start the background RabbitMQ consumers for telemetry samples and heartbeats
	svc.RunBackgroundConsumers(ctx)

	// feed the dashboard sockets from the location fanout exchange
	go func() {
		if err := ws.RunLocationFeed(ctx, rmq); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "location_feed_stopped", "Dashboard location feed stopped", err, nil)
		}
	}()

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewTrackerHTTPHandler(svc, logger, ws)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Tracker.Port),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Tracker Service started on port %d", cfg.Tracker.Port),
		map[string]any{"port": cfg.Tracker.Port, "max_concurrent": maxConcurrent},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Tracker.Port})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
