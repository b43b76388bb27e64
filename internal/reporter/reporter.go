package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/general/config"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
)

const producerName = "reporter-fleet"

// sampleEvery is the raw position polling cadence. Emission is further gated
// by the movement and time thresholds.
const sampleEvery = time.Second

// Reporter owns the emission loop for a single vehicle. It polls the position
// source while a trip is ACTIVE and publishes threshold-gated samples.
// Delivery is at-most-once: a failed publish is dropped and superseded by the
// next successful sample, so lastEmitted only moves on success.
type Reporter struct {
	vehicleID string
	logger    *logger.Logger
	pub       *rabbitmq.MQPublisher
	source    PositionSource

	mu           sync.Mutex
	activeTripID string
	lastEmitted  *geo.Sample
	lastFix      *geo.Sample
}

// NewReporter constructs a dormant reporter for one vehicle.
func NewReporter(vehicleID string, log *logger.Logger, pub *rabbitmq.MQPublisher, source PositionSource) *Reporter {
	return &Reporter{
		vehicleID: vehicleID,
		logger:    log,
		pub:       pub,
		source:    source,
	}
}

// SetActiveTrip wakes the emission loop for the given trip.
func (rep *Reporter) SetActiveTrip(tripID string) {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	rep.activeTripID = tripID
	rep.lastEmitted = nil
	rep.lastFix = nil
}

// ClearActiveTrip tears the emission loop back down to dormant. Any in-flight
// sample may still land; nothing after it will.
func (rep *Reporter) ClearActiveTrip() {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	rep.activeTripID = ""
}

// ActiveTrip returns the trip the reporter is currently emitting for.
func (rep *Reporter) ActiveTrip() string {
	rep.mu.Lock()
	defer rep.mu.Unlock()
	return rep.activeTripID
}

// Run polls the position source until ctx is cancelled. Thresholds and sync
// speed are re-read from the live config snapshot every cycle, so an operator
// edit takes effect within one cycle without a restart.
func (rep *Reporter) Run(ctx context.Context) {
	ctx = rep.logger.WithVehicleID(ctx, rep.vehicleID)
	ticker := time.NewTicker(sampleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rep.cycle(ctx)
		}
	}
}

func (rep *Reporter) cycle(ctx context.Context) {
	tripID := rep.ActiveTrip()
	if tripID == "" {
		return // dormant between trips; heartbeats run separately
	}

	cfg := config.Current()
	if cfg == nil {
		return
	}
	speed, err := ParseSyncSpeed(cfg.Reporter.SyncSpeed)
	if err != nil {
		speed = SyncMedium
	}

	fix, err := rep.source.Next(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			rep.logger.Error(ctx, "position_denied", "Position access denied, skipping sample", err, nil)
		case errors.Is(err, ErrNoFix):
			rep.logger.Debug(ctx, "position_no_fix", "No position fix, skipping sample", nil)
		default:
			rep.logger.Error(ctx, "position_read_failed", "Failed to read position, skipping sample", err, nil)
		}
		return
	}

	rep.mu.Lock()
	last := rep.lastEmitted
	prevFix := rep.lastFix
	rep.lastFix = &fix
	rep.mu.Unlock()

	if !shouldEmit(last, fix, cfg.Reporter.MovementThresholdMeters, speed.TimeThreshold()) {
		return
	}

	sample := fix
	if mps := derivedSpeedMps(prevFix, fix); mps != nil {
		sample.SpeedMps = mps
	}

	if err := rep.publishSample(tripID, sample); err != nil {
		// at-most-once: drop, keep lastEmitted so the next sample supersedes
		rep.logger.Error(ctx, "sample_publish_failed", "Dropped sample after failed publish", err,
			map[string]any{"trip_id": tripID})
		return
	}

	rep.mu.Lock()
	rep.lastEmitted = &sample
	rep.mu.Unlock()

	rep.logger.Debug(ctx, "sample_emitted", "Emitted telemetry sample", map[string]any{
		"trip_id": tripID,
		"lat":     sample.Lat,
		"lng":     sample.Lng,
	})
}

func (rep *Reporter) publishSample(tripID string, sample geo.Sample) error {
	msg := contracts.TelemetrySampleMessage{
		VehicleID:        rep.vehicleID,
		Lat:              sample.Lat,
		Lng:              sample.Lng,
		SpeedMps:         sample.SpeedMps,
		CapturedAtMillis: sample.CapturedAtMillis,
		Envelope: contracts.Envelope{
			CorrelationID: uuid.NewString(),
			Producer:      producerName,
			SentAt:        time.Now().UTC(),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return rep.pub.PublishTransient(contracts.ExchangeTelemetryTopic, contracts.RouteSamplePrefix+rep.vehicleID, body)
}

// shouldEmit applies the emission rule: emit when the vehicle moved farther
// than the movement threshold since the last emitted sample, or when more
// time than the sync-speed threshold has elapsed. The first sample of a trip
// always emits.
func shouldEmit(last *geo.Sample, current geo.Sample, movementThresholdMeters float64, timeThreshold time.Duration) bool {
	if last == nil {
		return true
	}
	if geo.HaversineMeters(*last, current) > movementThresholdMeters {
		return true
	}
	elapsed := time.Duration(current.CapturedAtMillis-last.CapturedAtMillis) * time.Millisecond
	return elapsed > timeThreshold
}

// derivedSpeedMps estimates ground speed from two consecutive raw fixes.
func derivedSpeedMps(prev *geo.Sample, current geo.Sample) *float64 {
	if prev == nil || current.CapturedAtMillis <= prev.CapturedAtMillis {
		return nil
	}
	seconds := float64(current.CapturedAtMillis-prev.CapturedAtMillis) / 1000
	mps := geo.HaversineMeters(*prev, current) / seconds
	return &mps
}
