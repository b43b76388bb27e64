package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-track/internal/domain/trip"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/ports"
	"fleet-track/internal/software/tracker/service"
)

// stubService lets each test script the service boundary with plain funcs.
type stubService struct {
	registerVehicle func(ctx context.Context, in ports.RegisterVehicleInput) (ports.RegisterVehicleResult, error)
	createTrip      func(ctx context.Context, in ports.CreateTripInput) (ports.CreateTripResult, error)
	cancelTrip      func(ctx context.Context, in ports.CancelTripInput) (ports.CancelTripResult, error)
	getTrip         func(ctx context.Context, tripID string) (ports.TripView, error)
	tripRoute       func(ctx context.Context, tripID string) (trip.Status, []ports.GeoPoint, error)
}

func (s *stubService) RegisterVehicle(ctx context.Context, in ports.RegisterVehicleInput) (ports.RegisterVehicleResult, error) {
	return s.registerVehicle(ctx, in)
}

func (s *stubService) GetVehicle(context.Context, string) (ports.VehicleView, error) {
	return ports.VehicleView{}, nil
}

func (s *stubService) RecordHeartbeat(context.Context, ports.HeartbeatInput) (ports.HeartbeatResult, error) {
	return ports.HeartbeatResult{}, nil
}

func (s *stubService) IngestSample(context.Context, ports.IngestSampleInput) (ports.IngestSampleResult, error) {
	return ports.IngestSampleResult{}, nil
}

func (s *stubService) CreateTrip(ctx context.Context, in ports.CreateTripInput) (ports.CreateTripResult, error) {
	return s.createTrip(ctx, in)
}

func (s *stubService) StartTrip(context.Context, ports.StartTripInput) (ports.StartTripResult, error) {
	return ports.StartTripResult{}, nil
}

func (s *stubService) CompleteTrip(context.Context, ports.CompleteTripInput) (ports.CompleteTripResult, error) {
	return ports.CompleteTripResult{}, nil
}

func (s *stubService) CancelTrip(ctx context.Context, in ports.CancelTripInput) (ports.CancelTripResult, error) {
	return s.cancelTrip(ctx, in)
}

func (s *stubService) GetTrip(ctx context.Context, tripID string) (ports.TripView, error) {
	return s.getTrip(ctx, tripID)
}

func (s *stubService) TripRoute(ctx context.Context, tripID string) (trip.Status, []ports.GeoPoint, error) {
	return s.tripRoute(ctx, tripID)
}

func (s *stubService) FleetOverview(context.Context) (ports.FleetOverviewResult, error) {
	return ports.FleetOverviewResult{}, nil
}

func (s *stubService) RunBackgroundConsumers(context.Context) {}

func newTestMux(svc ports.TrackerService) *http.ServeMux {
	h := NewTrackerHTTPHandler(svc, logger.New("tracker-test"), nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestRegisterVehicleReturnsCreated(t *testing.T) {
	svc := &stubService{
		registerVehicle: func(_ context.Context, in ports.RegisterVehicleInput) (ports.RegisterVehicleResult, error) {
			assert.Equal(t, "Unit 7", in.Name)
			return ports.RegisterVehicleResult{VehicleID: "veh_001", Status: "IDLE", Message: "vehicle registered"}, nil
		},
	}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/vehicles",
		strings.NewReader(`{"name":"Unit 7","plate_number":"KA-01-7777"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body ports.RegisterVehicleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "veh_001", body.VehicleID)
	assert.Equal(t, "IDLE", body.Status)
}

func TestRegisterVehicleRejectsWrongContentType(t *testing.T) {
	mux := newTestMux(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/vehicles", strings.NewReader(`name=x`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRegisterVehicleRejectsUnknownFields(t *testing.T) {
	mux := newTestMux(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/vehicles",
		strings.NewReader(`{"name":"Unit 7","plate_number":"KA-01-7777","color":"red"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTripMapsNotFound(t *testing.T) {
	svc := &stubService{
		getTrip: func(_ context.Context, tripID string) (ports.TripView, error) {
			return ports.TripView{}, trip.ErrTripNotFound
		},
	}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/trips/trip_missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTripMapsBusyVehicleToConflict(t *testing.T) {
	svc := &stubService{
		createTrip: func(context.Context, ports.CreateTripInput) (ports.CreateTripResult, error) {
			return ports.CreateTripResult{}, service.ErrVehicleBusy
		},
	}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/trips",
		strings.NewReader(`{"vehicle_id":"veh_001","origin_label":"A","destination_label":"B"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelTripMapsInvalidTransitionToConflict(t *testing.T) {
	svc := &stubService{
		cancelTrip: func(context.Context, ports.CancelTripInput) (ports.CancelTripResult, error) {
			return ports.CancelTripResult{}, trip.ErrInvalidStatusTransition
		},
	}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/trips/trip_001/cancel",
		strings.NewReader(`{"reason":"too late"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTripRouteAlwaysReturnsArray(t *testing.T) {
	svc := &stubService{
		tripRoute: func(_ context.Context, tripID string) (trip.Status, []ports.GeoPoint, error) {
			return trip.StatusActive, nil, nil
		},
	}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/trips/trip_001/route", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"route":[]`)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
