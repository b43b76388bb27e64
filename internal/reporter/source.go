package reporter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleet-track/internal/domain/geo"
)

var (
	// ErrNoFix signals a transient positioning failure. The caller skips the
	// sample and tries again next cycle.
	ErrNoFix = errors.New("no position fix available")
	// ErrPermissionDenied signals that positioning is not allowed at all.
	// Treated the same as ErrNoFix by the loop, but logged distinctly.
	ErrPermissionDenied = errors.New("position access denied")
)

// PositionSource yields raw position readings for one vehicle.
type PositionSource interface {
	Next(ctx context.Context) (geo.Sample, error)
}

// WaypointWalker is a simulated PositionSource that walks a polyline of
// waypoints in fixed-length steps, emitting a reading per Next call. When the
// final waypoint is reached it keeps reporting that position, like a parked
// vehicle with its unit still on.
type WaypointWalker struct {
	waypoints  []geo.Sample
	stepMeters float64

	segment  int     // index of the segment start waypoint
	traveled float64 // meters progressed into the current segment
	now      func() time.Time
}

// NewWaypointWalker builds a walker from "lat,lng" waypoint strings.
func NewWaypointWalker(waypoints []string, stepMeters float64) (*WaypointWalker, error) {
	if len(waypoints) < 2 {
		return nil, errors.New("waypoint walker needs at least two waypoints")
	}
	if stepMeters <= 0 {
		return nil, errors.New("step meters must be positive")
	}

	parsed := make([]geo.Sample, 0, len(waypoints))
	for i, raw := range waypoints {
		point, err := parseWaypoint(raw)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		parsed = append(parsed, point)
	}

	return &WaypointWalker{
		waypoints:  parsed,
		stepMeters: stepMeters,
		now:        time.Now,
	}, nil
}

// Next advances one step along the polyline and returns the reading.
func (walker *WaypointWalker) Next(_ context.Context) (geo.Sample, error) {
	at := walker.now().UTC()

	if walker.segment >= len(walker.waypoints)-1 {
		last := walker.waypoints[len(walker.waypoints)-1]
		return geo.Sample{Lat: last.Lat, Lng: last.Lng, CapturedAtMillis: at.UnixMilli()}, nil
	}

	from := walker.waypoints[walker.segment]
	to := walker.waypoints[walker.segment+1]
	length := geo.HaversineMeters(from, to)

	walker.traveled += walker.stepMeters
	for walker.traveled >= length {
		walker.traveled -= length
		walker.segment++
		if walker.segment >= len(walker.waypoints)-1 {
			last := walker.waypoints[len(walker.waypoints)-1]
			return geo.Sample{Lat: last.Lat, Lng: last.Lng, CapturedAtMillis: at.UnixMilli()}, nil
		}
		from = walker.waypoints[walker.segment]
		to = walker.waypoints[walker.segment+1]
		length = geo.HaversineMeters(from, to)
	}

	frac := 0.0
	if length > 0 {
		frac = walker.traveled / length
	}
	return geo.Sample{
		Lat:              from.Lat + (to.Lat-from.Lat)*frac,
		Lng:              from.Lng + (to.Lng-from.Lng)*frac,
		CapturedAtMillis: at.UnixMilli(),
	}, nil
}

// Done reports whether the walker has reached the final waypoint.
func (walker *WaypointWalker) Done() bool {
	return walker.segment >= len(walker.waypoints)-1
}

// parseWaypoint parses a "lat,lng" pair.
func parseWaypoint(raw string) (geo.Sample, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return geo.Sample{}, errors.New(`expected "lat,lng"`)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Sample{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Sample{}, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return geo.Sample{}, geo.ErrInvalidLatitude
	}
	if lng < -180 || lng > 180 {
		return geo.Sample{}, geo.ErrInvalidLongitude
	}
	return geo.Sample{Lat: lat, Lng: lng}, nil
}
