package domain

import "time"

type EventKind string

const (
	EventStarted            EventKind = "started"
	EventProgress           EventKind = "progress"
	EventComplete           EventKind = "complete"
	EventValidationStarted  EventKind = "validation_started"
	EventValidationProgress EventKind = "validation_progress"
	EventValidationComplete EventKind = "validation_complete"
	EventRetryAttempt       EventKind = "retry_attempt"
	EventError              EventKind = "error"
)

// Event is a progress notification for one request. Events for a request
// arrive in order and end with exactly one Complete or Error.
type Event struct {
	RequestID string    `json:"request_id"`
	Kind      EventKind `json:"kind"`
	Time      time.Time `json:"time"`

	Downloaded int64   `json:"downloaded,omitempty"`
	Total      int64   `json:"total,omitempty"`
	SpeedBPS   float64 `json:"speed_bps,omitempty"`

	Attempt     int `json:"attempt,omitempty"`
	MaxAttempts int `json:"max_attempts,omitempty"`

	Outcome Outcome `json:"outcome,omitempty"`
	Err     error   `json:"-"`
}

// Terminal reports whether no further events follow for the request.
func (e Event) Terminal() bool {
	return e.Kind == EventComplete || e.Kind == EventError
}

// ProgressFunc receives events. It may be called from many goroutines, but
// never concurrently for the same request.
type ProgressFunc func(Event)
