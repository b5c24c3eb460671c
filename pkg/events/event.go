package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeTurnCompleted = "TURN_COMPLETED"
	TypeTurnFailed    = "TURN_FAILED"
)

// TurnOutcome is what a finished chat turn reports on the bus.
type TurnOutcome struct {
	SessionID      string
	Query          string
	Stage          string
	Mode           string
	ExpandedSearch bool
	Rows           int
	Duration       time.Duration
}

// NewTurnEvent builds a TURN_COMPLETED event, or TURN_FAILED when the turn
// ended in an error stage.
func NewTurnEvent(o TurnOutcome, at time.Time) BaseEvent {
	typ := TypeTurnCompleted
	if o.Stage == "error" {
		typ = TypeTurnFailed
	}
	return BaseEvent{
		Type: typ,
		Data: map[string]interface{}{
			"session_id":      o.SessionID,
			"query":           o.Query,
			"stage":           o.Stage,
			"mode":            o.Mode,
			"expanded_search": o.ExpandedSearch,
			"rows":            o.Rows,
			"duration_ms":     o.Duration.Milliseconds(),
			"occurred_at":     at,
		},
		OccurredAt: at,
	}
}
