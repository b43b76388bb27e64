package service

import (
	"context"
	"errors"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/trip"

	"github.com/looplab/fsm"
)

const (
	// eventStart moves PENDING -> ACTIVE.
	eventStart = "event_start"
	// eventComplete moves ACTIVE -> COMPLETED.
	eventComplete = "event_complete"
	// eventCancel moves any non-terminal state -> CANCELLED.
	eventCancel = "event_cancel"
)

// tripLifecycle drives a single trip through its states. The domain entity
// stays the source of truth; callbacks apply the domain transition and any
// domain rejection cancels the machine transition too.
type tripLifecycle struct {
	*fsm.FSM
}

func newTripLifecycle(t *trip.Trip) *tripLifecycle {
	l := &tripLifecycle{}

	events := fsm.Events{
		{Name: eventStart, Src: []string{trip.StatusPending.String()}, Dst: trip.StatusActive.String()},
		{Name: eventComplete, Src: []string{trip.StatusActive.String()}, Dst: trip.StatusCompleted.String()},
		{Name: eventCancel, Src: []string{trip.StatusPending.String(), trip.StatusActive.String()}, Dst: trip.StatusCancelled.String()},
	}

	callbacks := fsm.Callbacks{
		"enter_" + trip.StatusActive.String():    wrapEvent(l.actionActivate),
		"enter_" + trip.StatusCompleted.String(): wrapEvent(l.actionComplete),
		"enter_" + trip.StatusCancelled.String(): wrapEvent(l.actionCancel),
	}

	l.FSM = fsm.NewFSM(t.Status.String(), events, callbacks)
	return l
}

// Start fires the PENDING -> ACTIVE transition with an optional first fix.
func (l *tripLifecycle) Start(ctx context.Context, t *trip.Trip, start *geo.Sample, at time.Time) error {
	return mapFSMError(l.Event(ctx, eventStart, t, start, at))
}

// Complete fires the ACTIVE -> COMPLETED transition with an optional last fix.
func (l *tripLifecycle) Complete(ctx context.Context, t *trip.Trip, end *geo.Sample, at time.Time) error {
	return mapFSMError(l.Event(ctx, eventComplete, t, end, at))
}

// Cancel fires the transition into CANCELLED.
func (l *tripLifecycle) Cancel(ctx context.Context, t *trip.Trip, reason string, at time.Time) error {
	return mapFSMError(l.Event(ctx, eventCancel, t, reason, at))
}

func (l *tripLifecycle) actionActivate(_ context.Context, e *fsm.Event) error {
	t := e.Args[0].(*trip.Trip)
	start, _ := e.Args[1].(*geo.Sample)
	at := e.Args[2].(time.Time)
	return t.Activate(start, at)
}

func (l *tripLifecycle) actionComplete(_ context.Context, e *fsm.Event) error {
	t := e.Args[0].(*trip.Trip)
	end, _ := e.Args[1].(*geo.Sample)
	at := e.Args[2].(time.Time)
	return t.Complete(end, at)
}

func (l *tripLifecycle) actionCancel(_ context.Context, e *fsm.Event) error {
	t := e.Args[0].(*trip.Trip)
	reason, _ := e.Args[1].(string)
	at := e.Args[2].(time.Time)
	return t.Cancel(reason, at)
}

// wrapEvent adapts an error-returning callback to the fsm.Callback shape.
func wrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// mapFSMError converts machine-level rejections to the domain error so
// callers and handlers only deal with one taxonomy.
func mapFSMError(err error) error {
	if err == nil {
		return nil
	}

	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return trip.ErrInvalidStatusTransition
	}
	return err
}
