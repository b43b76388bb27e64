package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/websocket"
	"fleet-track/internal/ports"
	"fleet-track/internal/software/tracker/service"

	"github.com/jackc/pgx/v5/pgconn"
)

// TrackerHTTPHandler adapts HTTP requests to the TrackerService.
type TrackerHTTPHandler struct {
	svc       ports.TrackerService
	logger    *logger.Logger
	websocket *websocket.WebSocket
}

// NewTrackerHTTPHandler wires an HTTP handler around the TrackerService.
func NewTrackerHTTPHandler(
	svc ports.TrackerService,
	logger *logger.Logger,
	ws *websocket.WebSocket,
) *TrackerHTTPHandler {
	return &TrackerHTTPHandler{svc: svc, logger: logger, websocket: ws}
}

// RegisterRoutes mounts tracker endpoints on the provided mux.
func (handler *TrackerHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /vehicles", handler.handleRegisterVehicle)
	mux.HandleFunc("GET /vehicles/{vehicle_id}", handler.handleGetVehicle)
	mux.HandleFunc("POST /vehicles/{vehicle_id}/heartbeat", handler.handleHeartbeat)

	mux.HandleFunc("POST /trips", handler.handleCreateTrip)
	mux.HandleFunc("GET /trips/{trip_id}", handler.handleGetTrip)
	mux.HandleFunc("GET /trips/{trip_id}/route", handler.handleTripRoute)
	mux.HandleFunc("POST /trips/{trip_id}/start", handler.handleStartTrip)
	mux.HandleFunc("POST /trips/{trip_id}/complete", handler.handleCompleteTrip)
	mux.HandleFunc("POST /trips/{trip_id}/cancel", handler.handleCancelTrip)

	mux.HandleFunc("GET /fleet/overview", handler.handleOverview)

	mux.HandleFunc("GET /ws/feed", handler.websocket.ConnectFeed)
	mux.HandleFunc("GET /ws/replay/{trip_id}", handler.websocket.ConnectReplay)

	mux.HandleFunc("GET /health", handler.handleHealth)
}

// ----- general helpers -----

// decodeJSON enforces the JSON content type, a body size cap, and strict
// field checking. Returns true when dst is populated.
func (handler *TrackerHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	return true
}

// serviceError maps service and domain errors onto HTTP responses.
func (handler *TrackerHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, vehicle.ErrVehicleNotFound), errors.Is(err, trip.ErrTripNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)

	case errors.Is(err, service.ErrVehicleBusy),
		errors.Is(err, trip.ErrInvalidStatusTransition),
		errors.Is(err, vehicle.ErrDecommissioned):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)

	case errors.Is(err, trip.ErrVehicleRequired),
		errors.Is(err, trip.ErrOriginRequired),
		errors.Is(err, trip.ErrDestinationRequired),
		errors.Is(err, vehicle.ErrNameRequired),
		errors.Is(err, vehicle.ErrPlateRequired),
		errors.Is(err, geo.ErrInvalidLatitude),
		errors.Is(err, geo.ErrInvalidLongitude),
		errors.Is(err, geo.ErrNegativeSpeed),
		errors.Is(err, geo.ErrZeroTimestamp):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)

	default:
		// distinguish DB failures for the logs, same status either way
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusInternalServerError, fallback, err)
	}
}

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *TrackerHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *TrackerHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *TrackerHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
