package dto

import "floatchat-be/pkg/ocean"

// Stages of a chat turn, in the order they are emitted.
const (
	StageAnalyzing      = "analyzing"
	StageSQLGeneration  = "sql_generation"
	StageNoFunctionCall = "no_function_call"
	StageDBFetch        = "db_fetch"
	StageProcessing     = "processing"
	StageCompleted      = "completed"
	StageResult         = "result"
	StageError          = "error"
)

// QueryRequest is the only inbound message on the chat socket.
type QueryRequest struct {
	Query string `json:"query" validate:"required"`
}

// StreamMessage is every outbound frame: progress notices, the three
// terminal stages, and the bare {error} reply to malformed input.
type StreamMessage struct {
	Stage     string           `json:"stage,omitempty"`
	Message   string           `json:"message,omitempty"`
	Thinking  []string         `json:"thinking,omitempty"`
	Result    map[string]any   `json:"result,omitempty"`
	QueryMeta *ocean.QueryMeta `json:"query_meta,omitempty"`
	Traceback string           `json:"traceback,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// IsTerminal reports whether the frame ends a turn.
func (m StreamMessage) IsTerminal() bool {
	switch m.Stage {
	case StageResult, StageError, StageNoFunctionCall:
		return true
	}
	return false
}
