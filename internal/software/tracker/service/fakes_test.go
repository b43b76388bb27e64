package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/ports"
)

// In-memory fakes for the repository ports. They keep the transactional
// contract trivial: WithinTx just runs the function.

type fakeUOW struct{}

func (u *fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeVehicleRepo struct {
	byID map[string]*vehicle.Vehicle
	seq  int
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{byID: map[string]*vehicle.Vehicle{}}
}

func (r *fakeVehicleRepo) CreateVehicle(_ context.Context, v *vehicle.Vehicle) error {
	r.seq++
	v.ID = fmt.Sprintf("veh_%03d", r.seq)
	r.byID[v.ID] = v
	return nil
}

func (r *fakeVehicleRepo) GetByID(_ context.Context, id string) (*vehicle.Vehicle, error) {
	v, ok := r.byID[id]
	if !ok {
		return nil, vehicle.ErrVehicleNotFound
	}
	clone := *v
	return &clone, nil
}

func (r *fakeVehicleRepo) List(_ context.Context, limit int) ([]*vehicle.Vehicle, error) {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*vehicle.Vehicle
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		clone := *r.byID[id]
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeVehicleRepo) UpdateIntendedStatus(_ context.Context, id string, status vehicle.IntendedStatus) error {
	v, ok := r.byID[id]
	if !ok {
		return vehicle.ErrVehicleNotFound
	}
	v.IntendedStatus = status
	return nil
}

func (r *fakeVehicleRepo) UpdateLastKnown(_ context.Context, id string, sample geo.Sample) error {
	v, ok := r.byID[id]
	if !ok {
		return vehicle.ErrVehicleNotFound
	}
	v.ObserveLocation(sample)
	return nil
}

func (r *fakeVehicleRepo) UpdateHeartbeat(_ context.Context, id string, atMillis int64) error {
	v, ok := r.byID[id]
	if !ok {
		return vehicle.ErrVehicleNotFound
	}
	v.Heartbeat(atMillis)
	return nil
}

func (r *fakeVehicleRepo) AssignTrip(_ context.Context, vehicleID, tripID string) error {
	v, ok := r.byID[vehicleID]
	if !ok {
		return vehicle.ErrVehicleNotFound
	}
	return v.AssignTrip(tripID)
}

func (r *fakeVehicleRepo) ReleaseTrip(_ context.Context, vehicleID string) error {
	v, ok := r.byID[vehicleID]
	if !ok {
		return vehicle.ErrVehicleNotFound
	}
	v.ReleaseTrip()
	return nil
}

type fakeTripRepo struct {
	byID map[string]*trip.Trip
	seq  int
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{byID: map[string]*trip.Trip{}}
}

func (r *fakeTripRepo) CreateTrip(_ context.Context, t *trip.Trip) error {
	r.seq++
	t.ID = fmt.Sprintf("trip_%03d", r.seq)
	clone := *t
	r.byID[t.ID] = &clone
	return nil
}

func (r *fakeTripRepo) GetByID(_ context.Context, id string) (*trip.Trip, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTripRepo) GetActiveForVehicle(_ context.Context, vehicleID string) (*trip.Trip, error) {
	for _, t := range r.byID {
		if t.VehicleID == vehicleID && !t.Status.Terminal() {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeTripRepo) GetTripsByVehicle(_ context.Context, vehicleID string, limit int) ([]*trip.Trip, error) {
	var out []*trip.Trip
	for _, t := range r.byID {
		if t.VehicleID != vehicleID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		clone := *t
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeTripRepo) UpdateStatus(_ context.Context, id string, status trip.Status, ts time.Time) error {
	t, ok := r.byID[id]
	if !ok {
		return trip.ErrTripNotFound
	}
	t.Status = status
	t.UpdatedAt = ts
	return nil
}

func (r *fakeTripRepo) Start(_ context.Context, tripID string, start *geo.Sample, startedAt time.Time) error {
	t, ok := r.byID[tripID]
	if !ok {
		return trip.ErrTripNotFound
	}
	t.Status = trip.StatusActive
	t.StartSample = start
	at := startedAt.UTC()
	t.StartedAt = &at
	return nil
}

func (r *fakeTripRepo) Complete(_ context.Context, completed *trip.Trip) error {
	t, ok := r.byID[completed.ID]
	if !ok {
		return trip.ErrTripNotFound
	}
	*t = *completed
	return nil
}

func (r *fakeTripRepo) Cancel(_ context.Context, tripID, reason string, cancelledAt time.Time) error {
	t, ok := r.byID[tripID]
	if !ok {
		return trip.ErrTripNotFound
	}
	t.Status = trip.StatusCancelled
	at := cancelledAt.UTC()
	t.EndedAt = &at
	if reason != "" {
		t.CancelReason = &reason
	}
	return nil
}

func (r *fakeTripRepo) CountActive(_ context.Context) (int, error) {
	n := 0
	for _, t := range r.byID {
		if t.Status == trip.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeTripRepo) CountCompletedBetween(_ context.Context, start, end time.Time) (int, error) {
	n := 0
	for _, t := range r.byID {
		if t.Status == trip.StatusCompleted && t.EndedAt != nil &&
			!t.EndedAt.Before(start) && !t.EndedAt.After(end) {
			n++
		}
	}
	return n, nil
}

func (r *fakeTripRepo) SumDistanceCompletedBetween(_ context.Context, start, end time.Time) (float64, error) {
	var sum float64
	for _, t := range r.byID {
		if t.Status == trip.StatusCompleted && t.EndedAt != nil && t.DistanceKm != nil &&
			!t.EndedAt.Before(start) && !t.EndedAt.After(end) {
			sum += *t.DistanceKm
		}
	}
	return sum, nil
}

type fakeRouteRepo struct {
	byTrip map[string]geo.Route
}

func newFakeRouteRepo() *fakeRouteRepo {
	return &fakeRouteRepo{byTrip: map[string]geo.Route{}}
}

func (r *fakeRouteRepo) AppendSample(_ context.Context, tripID string, sample geo.Sample) error {
	r.byTrip[tripID] = append(r.byTrip[tripID], sample)
	return nil
}

func (r *fakeRouteRepo) GetRoute(_ context.Context, tripID string) (geo.Route, error) {
	route := append(geo.Route(nil), r.byTrip[tripID]...)
	sort.SliceStable(route, func(i, j int) bool {
		return route[i].CapturedAtMillis < route[j].CapturedAtMillis
	})
	return route, nil
}

func (r *fakeRouteRepo) TailSample(_ context.Context, tripID string) (*geo.Sample, error) {
	route, _ := r.GetRoute(context.Background(), tripID)
	if tail, ok := route.Tail(); ok {
		return &tail, nil
	}
	return nil, nil
}

func (r *fakeRouteRepo) CountSamples(_ context.Context, tripID string) (int, error) {
	return len(r.byTrip[tripID]), nil
}

type fakeEventRepo struct {
	events []*trip.Event
}

func (r *fakeEventRepo) Append(_ context.Context, e *trip.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *fakeEventRepo) ListForTrip(_ context.Context, tripID string, limit int) ([]*trip.Event, error) {
	var out []*trip.Event
	for _, e := range r.events {
		if e.TripID != tripID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

type fakePresence struct {
	lastKnown  map[string]geo.Sample
	heartbeats map[string]int64
	statuses   map[string]vehicle.IntendedStatus
}

func newFakePresence() *fakePresence {
	return &fakePresence{
		lastKnown:  map[string]geo.Sample{},
		heartbeats: map[string]int64{},
		statuses:   map[string]vehicle.IntendedStatus{},
	}
}

func (p *fakePresence) SetLastKnown(_ context.Context, vehicleID string, sample geo.Sample) error {
	p.lastKnown[vehicleID] = sample
	return nil
}

func (p *fakePresence) GetLastKnown(_ context.Context, vehicleID string) (*geo.Sample, error) {
	if s, ok := p.lastKnown[vehicleID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (p *fakePresence) SetHeartbeat(_ context.Context, vehicleID string, atMillis int64) error {
	p.heartbeats[vehicleID] = atMillis
	return nil
}

func (p *fakePresence) GetHeartbeat(_ context.Context, vehicleID string) (int64, error) {
	return p.heartbeats[vehicleID], nil
}

func (p *fakePresence) SetIntendedStatus(_ context.Context, vehicleID string, status vehicle.IntendedStatus) error {
	p.statuses[vehicleID] = status
	return nil
}

func (p *fakePresence) GetIntendedStatus(_ context.Context, vehicleID string) (vehicle.IntendedStatus, error) {
	if s, ok := p.statuses[vehicleID]; ok {
		return s, nil
	}
	return vehicle.IntendedOffline, nil
}

// testEnv bundles the service under test with its fakes.
type testEnv struct {
	svc      ports.TrackerService
	vehicles *fakeVehicleRepo
	trips    *fakeTripRepo
	routes   *fakeRouteRepo
	events   *fakeEventRepo
	presence *fakePresence
}

// newTestEnv wires the service against in-memory fakes. The RabbitMQ client
// is disconnected, so publishes fail and exercise the best-effort paths.
func newTestEnv() *testEnv {
	env := &testEnv{
		vehicles: newFakeVehicleRepo(),
		trips:    newFakeTripRepo(),
		routes:   newFakeRouteRepo(),
		events:   &fakeEventRepo{},
		presence: newFakePresence(),
	}

	client := &rabbitmq.Client{}
	env.svc = NewTrackerService(
		logger.New("tracker-test"),
		&fakeUOW{},
		env.vehicles,
		env.trips,
		env.routes,
		env.events,
		env.presence,
		rabbitmq.NewMQPublisher(client),
		client,
	)
	return env
}

// seedVehicle registers a vehicle through the service and returns its ID.
func (env *testEnv) seedVehicle(ctx context.Context, name, plate string) string {
	out, err := env.svc.RegisterVehicle(ctx, ports.RegisterVehicleInput{Name: name, PlateNumber: plate})
	if err != nil {
		panic(err)
	}
	return out.VehicleID
}

// seedActiveTrip creates and starts a trip for the vehicle, returning the trip ID.
func (env *testEnv) seedActiveTrip(ctx context.Context, vehicleID string, start *ports.GeoPoint) string {
	created, err := env.svc.CreateTrip(ctx, ports.CreateTripInput{
		VehicleID:        vehicleID,
		OriginLabel:      "Depot A",
		DestinationLabel: "Depot B",
	})
	if err != nil {
		panic(err)
	}
	if _, err := env.svc.StartTrip(ctx, ports.StartTripInput{TripID: created.TripID, StartLocation: start}); err != nil {
		panic(err)
	}
	return created.TripID
}
