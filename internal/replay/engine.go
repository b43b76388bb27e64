// Package replay provides deterministic, scrubbable playback of a completed
// trip's recorded route. Playback reproduces the recorded order sample by
// sample; there is no interpolation between samples.
package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleet-track/internal/domain/geo"
)

// SpeedMultiplier controls the playback cadence relative to the base tick.
type SpeedMultiplier int

const (
	Speed1x SpeedMultiplier = 1
	Speed2x SpeedMultiplier = 2
	Speed4x SpeedMultiplier = 4
)

// Valid reports whether the multiplier is one of the supported values.
func (m SpeedMultiplier) Valid() bool {
	switch m {
	case Speed1x, Speed2x, Speed4x:
		return true
	default:
		return false
	}
}

// DefaultBaseTick is the wall-clock interval between cursor advances at 1x.
const DefaultBaseTick = time.Second

var (
	ErrInvalidSpeed  = errors.New("speed multiplier must be 1, 2, or 4")
	ErrNotReplayable = errors.New("only completed trips can be replayed")
)

// Frame is one playback position handed to consumers.
type Frame struct {
	Index           int        `json:"index"`
	Sample          geo.Sample `json:"sample"`
	DistanceSoFarKm float64    `json:"distance_so_far_km"`
	Progress        float64    `json:"progress"`
	Playing         bool       `json:"playing"`
}

// Engine is a time-indexed cursor over a read-only route. All operations are
// safe for concurrent use; each viewer owns its own Engine.
type Engine struct {
	mu       sync.Mutex
	route    geo.Route
	prefixKm []float64 // prefixKm[i] = distance from route[0] to route[i]
	cursor   int
	playing  bool
	speed    SpeedMultiplier
	baseTick time.Duration
	resume   chan struct{}
}

// NewEngine copies the route and positions the cursor at the first sample.
// A route of length 0 or 1 is a valid but degenerate replay.
func NewEngine(route geo.Route) *Engine {
	owned := make(geo.Route, len(route))
	copy(owned, route)

	prefix := make([]float64, len(owned))
	for i := 1; i < len(owned); i++ {
		prefix[i] = prefix[i-1] + geo.HaversineKm(owned[i-1], owned[i])
	}

	return &Engine{
		route:    owned,
		prefixKm: prefix,
		speed:    Speed1x,
		baseTick: DefaultBaseTick,
		resume:   make(chan struct{}, 1),
	}
}

// Seek clamps the index to [0, len(route)-1] and moves the cursor there.
// Seeking never fails and never changes the playing flag.
func (e *Engine) Seek(index int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cursor = clamp(index, 0, len(e.route)-1)
	return e.cursor
}

// Play starts advancing the cursor on each tick. On a route already at its
// final sample (including empty and single-sample routes) it immediately
// self-pauses without advancing and reports false.
func (e *Engine) Play() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cursor >= len(e.route)-1 {
		e.playing = false
		return false
	}
	e.playing = true

	select {
	case e.resume <- struct{}{}:
	default:
	}
	return true
}

// Pause stops cursor advancement without moving the cursor.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

// SetSpeed changes the tick cadence without resetting the position.
func (e *Engine) SetSpeed(m SpeedMultiplier) error {
	if !m.Valid() {
		return ErrInvalidSpeed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = m
	return nil
}

// Speed returns the current playback speed multiplier.
func (e *Engine) Speed() SpeedMultiplier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Playing reports whether the cursor is currently advancing.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Cursor returns the current cursor index.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Len returns the number of samples under playback.
func (e *Engine) Len() int {
	return len(e.route)
}

// Frame snapshots the current playback position. On an empty route the
// zero Frame is returned.
func (e *Engine) Frame() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

// Tick advances the cursor by one sample while playing. It reports the new
// frame and whether an advance happened. Reaching the final sample sets
// playing=false on the same tick.
func (e *Engine) Tick() (Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing || e.cursor >= len(e.route)-1 {
		e.playing = false
		return e.frameLocked(), false
	}

	e.cursor++
	if e.cursor == len(e.route)-1 {
		e.playing = false
	}
	return e.frameLocked(), true
}

// Run drives playback until ctx is cancelled, invoking onFrame after every
// advance. Pausing keeps Run parked without busy-waiting; Play resumes it.
func (e *Engine) Run(ctx context.Context, onFrame func(Frame)) {
	for {
		e.mu.Lock()
		interval := e.baseTick / time.Duration(e.speed)
		playing := e.playing
		e.mu.Unlock()

		if !playing {
			select {
			case <-ctx.Done():
				return
			case <-e.resume:
			}
			continue
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if frame, advanced := e.Tick(); advanced && onFrame != nil {
				onFrame(frame)
			}
		}
	}
}

// frameLocked builds a Frame; callers must hold e.mu.
func (e *Engine) frameLocked() Frame {
	if len(e.route) == 0 {
		return Frame{Playing: e.playing}
	}
	return Frame{
		Index:           e.cursor,
		Sample:          e.route[e.cursor],
		DistanceSoFarKm: e.prefixKm[e.cursor],
		Progress:        e.progressLocked(),
		Playing:         e.playing,
	}
}

// progressLocked returns playback completion in [0,1]. Routes shorter than
// two samples never divide by len(route)-1: empty is 0, single-sample is 1.
func (e *Engine) progressLocked() float64 {
	switch len(e.route) {
	case 0:
		return 0
	case 1:
		return 1
	default:
		return float64(e.cursor) / float64(len(e.route)-1)
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
