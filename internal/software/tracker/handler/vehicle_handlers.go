package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fleet-track/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type registerVehicleRequest struct {
	Name        string `json:"name"`
	PlateNumber string `json:"plate_number"`
}

type heartbeatRequest struct {
	AtMillis int64 `json:"at_millis"`
}

// ----- Handler: POST /vehicles -----

func (handler *TrackerHTTPHandler) handleRegisterVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req registerVehicleRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if strings.TrimSpace(req.PlateNumber) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "plate_number is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.RegisterVehicle(ctxWithTimeout, ports.RegisterVehicleInput{
		Name:        req.Name,
		PlateNumber: req.PlateNumber,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to register vehicle")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: GET /vehicles/{vehicle_id} -----

func (handler *TrackerHTTPHandler) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	vehicleID := strings.TrimSpace(r.PathValue("vehicle_id"))
	if vehicleID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing vehicle_id in path", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.GetVehicle(ctxWithTimeout, vehicleID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to fetch vehicle")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: POST /vehicles/{vehicle_id}/heartbeat -----

func (handler *TrackerHTTPHandler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	vehicleID := strings.TrimSpace(r.PathValue("vehicle_id"))
	if vehicleID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing vehicle_id in path", nil)
		return
	}

	// the body is optional: an empty heartbeat means "now"
	var req heartbeatRequest
	if r.ContentLength > 0 {
		if !handler.decodeJSON(ctx, w, r, &req) {
			return
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.RecordHeartbeat(ctxWithTimeout, ports.HeartbeatInput{
		VehicleID: vehicleID,
		AtMillis:  req.AtMillis,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to record heartbeat")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
