package service

import (
	"context"

	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"
)

// RegisterVehicle creates a new vehicle in IDLE state.
func (service *trackerService) RegisterVehicle(ctx context.Context, in ports.RegisterVehicleInput) (ports.RegisterVehicleResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRequestID(ctx, corrID)

	v, err := vehicle.NewVehicle(in.Name, in.PlateNumber)
	if err != nil {
		return ports.RegisterVehicleResult{}, err
	}

	err = service.uow.WithinTx(ctx, func(ctx context.Context) error {
		return service.vehicles.CreateVehicle(ctx, v)
	})
	if err != nil {
		service.logger.Error(ctx, "vehicle_register_failed", "Failed to register vehicle", err, map[string]any{
			"name":  in.Name,
			"plate": in.PlateNumber,
		})
		return ports.RegisterVehicleResult{}, err
	}

	// seed the presence cache; a registration without a heartbeat is OFFLINE
	if err := service.presence.SetIntendedStatus(ctx, v.ID, v.IntendedStatus); err != nil {
		service.logger.Error(ctx, "presence_seed_failed", "Failed to seed presence cache", err, map[string]any{
			"vehicle_id": v.ID,
		})
	}

	service.logger.Info(ctx, "vehicle_registered", "Vehicle registered", map[string]any{
		"vehicle_id": v.ID,
		"name":       v.Name,
		"plate":      v.PlateNumber,
	})

	return ports.RegisterVehicleResult{
		VehicleID: v.ID,
		Status:    v.IntendedStatus.String(),
		Message:   "vehicle registered",
	}, nil
}

// GetVehicle returns the read model for a single vehicle. The presence cache
// is consulted first because it sees samples and heartbeats before the
// durable row does.
func (service *trackerService) GetVehicle(ctx context.Context, vehicleID string) (ports.VehicleView, error) {
	var v *vehicle.Vehicle
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = service.vehicles.GetByID(ctx, vehicleID)
		return err
	})
	if err != nil {
		return ports.VehicleView{}, err
	}

	lastKnown := v.LastKnownLocation
	if cached, err := service.presence.GetLastKnown(ctx, vehicleID); err == nil && cached != nil {
		if lastKnown == nil || cached.CapturedAtMillis >= lastKnown.CapturedAtMillis {
			lastKnown = cached
		}
	}

	heartbeat := v.LastHeartbeatMillis
	if cached, err := service.presence.GetHeartbeat(ctx, vehicleID); err == nil && cached > heartbeat {
		heartbeat = cached
	}

	view := ports.VehicleView{
		VehicleID:           v.ID,
		Name:                v.Name,
		PlateNumber:         v.PlateNumber,
		IntendedStatus:      v.IntendedStatus.String(),
		EffectiveStatus:     vehicle.DeriveEffectiveStatus(v.IntendedStatus, heartbeat, nowMillis()).String(),
		LastHeartbeatMillis: heartbeat,
	}
	if v.AssignedTripID != nil {
		view.AssignedTripID = *v.AssignedTripID
	}
	if lastKnown != nil {
		view.LastKnownLocation = &ports.GeoPoint{Latitude: lastKnown.Lat, Longitude: lastKnown.Lng}
		view.LastSampleMillis = lastKnown.CapturedAtMillis
	}

	return view, nil
}

// RecordHeartbeat refreshes vehicle liveness from a heartbeat message or the
// HTTP fallback endpoint. Heartbeats are monotonic at every layer.
func (service *trackerService) RecordHeartbeat(ctx context.Context, in ports.HeartbeatInput) (ports.HeartbeatResult, error) {
	ctx = service.logger.WithVehicleID(ctx, in.VehicleID)

	at := in.AtMillis
	if at == 0 {
		at = nowMillis()
	}

	var intended vehicle.IntendedStatus
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		v, err := service.vehicles.GetByID(ctx, in.VehicleID)
		if err != nil {
			return err
		}
		intended = v.IntendedStatus
		return service.vehicles.UpdateHeartbeat(ctx, in.VehicleID, at)
	})
	if err != nil {
		service.logger.Error(ctx, "heartbeat_failed", "Failed to record heartbeat", err, map[string]any{
			"at_millis": at,
		})
		return ports.HeartbeatResult{}, err
	}

	if err := service.presence.SetHeartbeat(ctx, in.VehicleID, at); err != nil {
		service.logger.Error(ctx, "presence_heartbeat_failed", "Failed to cache heartbeat", err, nil)
	}

	service.logger.Debug(ctx, "heartbeat_recorded", "Heartbeat recorded", map[string]any{
		"at_millis": at,
	})

	return ports.HeartbeatResult{
		VehicleID:       in.VehicleID,
		EffectiveStatus: vehicle.DeriveEffectiveStatus(intended, at, nowMillis()).String(),
		ObservedAt:      at,
	}, nil
}
