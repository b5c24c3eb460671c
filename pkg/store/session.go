package store

import (
	"time"

	"github.com/google/uuid"
)

// Session is the per-connection chat state. History is owned by the
// connection's turn loop and must not be touched from elsewhere.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	history   []string
	LastQuery string `json:"last_query"`
}

func NewSession(userID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// AppendQuery records a raw query as the newest history entry.
func (s *Session) AppendQuery(query string) {
	s.history = append(s.history, query)
	s.LastQuery = query
}

// History returns a copy of the queries received so far, oldest first.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Turns() int {
	return len(s.history)
}
