// Package event carries the typed domain events emitted when committed state
// changes need side effects. Services dispatch an event only after the
// backing write has succeeded; handlers run off the request path and a
// failing handler is logged, never propagated to the caller.
package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Event names.
const (
	TypeSubmissionSubmitted = "submission.submitted"
	TypeSubmissionGraded    = "submission.graded"
	TypeMembershipCreated   = "membership.created"
)

// SubmissionSubmitted fires when a draft first transitions to SUBMITTED.
type SubmissionSubmitted struct {
	SubmissionID uint
}

// SubmissionGraded fires whenever the stored grade value changes, including
// the first assignment. Saving an identical grade does not fire it.
type SubmissionGraded struct {
	SubmissionID  uint
	Score         int
	PreviousScore *int
}

// MembershipCreated fires when a student joins a classroom for the first
// time. An idempotent re-join never fires it.
type MembershipCreated struct {
	MembershipID uint
	ClassroomID  uint
	StudentID    uint
}

// Name returns the event type label.
func (SubmissionSubmitted) Name() string { return TypeSubmissionSubmitted }

// Name returns the event type label.
func (SubmissionGraded) Name() string { return TypeSubmissionGraded }

// Name returns the event type label.
func (MembershipCreated) Name() string { return TypeMembershipCreated }

// Event is implemented by all domain events.
type Event interface {
	Name() string
}

// Handler consumes a dispatched event.
type Handler func(ctx context.Context, evt Event) error

// Dispatcher routes events to subscribed handlers.
type Dispatcher interface {
	Subscribe(name string, handler Handler)
	Dispatch(ctx context.Context, evt Event)
}

// LocalDispatcher is the in-process Dispatcher implementation.
type LocalDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
	async    bool
	wg       sync.WaitGroup
}

// NewDispatcher constructs the in-process dispatcher. Handlers run on a
// background goroutine per dispatched event.
func NewDispatcher(logger zerolog.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		handlers: make(map[string][]Handler),
		logger:   logger.With().Str("component", "event_dispatcher").Logger(),
		async:    true,
	}
}

// NewSyncDispatcher constructs a dispatcher that runs handlers inline. Used
// in tests where deterministic ordering matters.
func NewSyncDispatcher(logger zerolog.Logger) *LocalDispatcher {
	d := NewDispatcher(logger)
	d.async = false
	return d
}

// Subscribe registers a handler for the named event type.
func (d *LocalDispatcher) Subscribe(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], handler)
}

// Dispatch fans the event out to every subscribed handler. The caller has
// already committed the state change; handler errors are logged only.
func (d *LocalDispatcher) Dispatch(ctx context.Context, evt Event) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers[evt.Name()]))
	copy(handlers, d.handlers[evt.Name()])
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	run := func() {
		// Detach from the request context so an ended request does not
		// cancel delivery mid-flight.
		handlerCtx := context.WithoutCancel(ctx)
		for _, handler := range handlers {
			if err := handler(handlerCtx, evt); err != nil {
				d.logger.Error().Err(err).Str("event", evt.Name()).Msg("event handler failed")
			}
		}
	}

	if d.async {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			run()
		}()
		return
	}

	run()
}

// Wait blocks until all in-flight handlers finish. Used during shutdown.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
