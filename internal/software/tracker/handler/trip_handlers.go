package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fleet-track/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type createTripRequest struct {
	VehicleID        string `json:"vehicle_id"`
	OriginLabel      string `json:"origin_label"`
	DestinationLabel string `json:"destination_label"`
}

type startTripRequest struct {
	StartLocation *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"start_location"`
}

type completeTripRequest struct {
	EndLocation *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"end_location"`
}

type cancelTripRequest struct {
	Reason string `json:"reason"`
}

// tripRouteResponse is the payload of GET /trips/{trip_id}/route.
type tripRouteResponse struct {
	TripID string           `json:"trip_id"`
	Status string           `json:"status"`
	Route  []ports.GeoPoint `json:"route"`
}

// ----- Handler: POST /trips -----

func (handler *TrackerHTTPHandler) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createTripRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	if strings.TrimSpace(req.VehicleID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_id is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CreateTrip(ctxWithTimeout, ports.CreateTripInput{
		VehicleID:        req.VehicleID,
		OriginLabel:      req.OriginLabel,
		DestinationLabel: req.DestinationLabel,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to create trip")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: POST /trips/{trip_id}/start -----

func (handler *TrackerHTTPHandler) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing trip_id in path", nil)
		return
	}

	// the body is optional: starting without a position fix is allowed
	var req startTripRequest
	if r.ContentLength > 0 {
		if !handler.decodeJSON(ctx, w, r, &req) {
			return
		}
	}

	in := ports.StartTripInput{TripID: tripID}
	if req.StartLocation != nil {
		in.StartLocation = &ports.GeoPoint{
			Latitude:  req.StartLocation.Latitude,
			Longitude: req.StartLocation.Longitude,
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.StartTrip(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to start trip")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /trips/{trip_id}/complete -----

func (handler *TrackerHTTPHandler) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing trip_id in path", nil)
		return
	}

	var req completeTripRequest
	if r.ContentLength > 0 {
		if !handler.decodeJSON(ctx, w, r, &req) {
			return
		}
	}

	in := ports.CompleteTripInput{TripID: tripID}
	if req.EndLocation != nil {
		in.EndLocation = &ports.GeoPoint{
			Latitude:  req.EndLocation.Latitude,
			Longitude: req.EndLocation.Longitude,
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CompleteTrip(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to complete trip")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /trips/{trip_id}/cancel -----

func (handler *TrackerHTTPHandler) handleCancelTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing trip_id in path", nil)
		return
	}

	var req cancelTripRequest
	if r.ContentLength > 0 {
		if !handler.decodeJSON(ctx, w, r, &req) {
			return
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CancelTrip(ctxWithTimeout, ports.CancelTripInput{
		TripID: tripID,
		Reason: req.Reason,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to cancel trip")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /trips/{trip_id} -----

func (handler *TrackerHTTPHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing trip_id in path", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.GetTrip(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to fetch trip")
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: GET /trips/{trip_id}/route -----

func (handler *TrackerHTTPHandler) handleTripRoute(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing trip_id in path", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, route, err := handler.svc.TripRoute(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err, "failed to fetch trip route")
		return
	}

	if route == nil {
		route = []ports.GeoPoint{}
	}
	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, tripRouteResponse{
		TripID: tripID,
		Status: status.String(),
		Route:  route,
	})
}
