package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTurnEvent(t *testing.T) {
	at := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		stage    string
		wantType string
	}{
		{"result", "result", TypeTurnCompleted},
		{"no function call", "no_function_call", TypeTurnCompleted},
		{"error", "error", TypeTurnFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := NewTurnEvent(TurnOutcome{
				SessionID: "s-1",
				Query:     "salinity in the Arabian Sea",
				Stage:     tt.stage,
				Mode:      "box",
				Rows:      12,
				Duration:  1500 * time.Millisecond,
			}, at)

			assert.Equal(t, tt.wantType, evt.EventType())
			assert.Equal(t, at, evt.Timestamp())
			assert.Equal(t, int64(1500), evt.Payload()["duration_ms"])
			assert.Equal(t, "s-1", evt.Payload()["session_id"])
			assert.Equal(t, 12, evt.Payload()["rows"])
		})
	}
}
