package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/pg"
)

// Storage persists audit events. Implementations receive the caller's
// Querier so an event commits or rolls back together with the flow that
// produced it.
type Storage interface {
	Store(ctx context.Context, q pg.Querier, event Event) error
}

// Recorder builds and stores audit events.
type Recorder struct {
	storage Storage
	now     func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates an audit recorder over the given storage.
func NewRecorder(storage Storage, opts ...Option) *Recorder {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	r := &Recorder{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one event for the action within the caller's transaction.
func (r *Recorder) Record(ctx context.Context, q pg.Querier, action string, opts ...EventOption) error {
	event := Event{
		ID:        uuid.New(),
		Action:    action,
		CreatedAt: r.now(),
	}

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	return r.storage.Store(ctx, q, event)
}
