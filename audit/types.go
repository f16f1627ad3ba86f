package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a single append-only audit log entry. UserID is nullable to
// cover pre-auth actions (failed sign-ins, reset requests for unknown
// accounts). Events are never mutated or deleted by the core.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the event has all required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during recording.
type EventOption func(*Event)

// WithUser attributes the event to a user.
func WithUser(id uuid.UUID) EventOption {
	return func(e *Event) {
		e.UserID = &id
	}
}

// WithMetadata attaches one metadata key. Secrets must never be passed
// here; callers log token identifiers and actions only.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}
