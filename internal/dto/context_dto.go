package dto

import "floatchat-be/pkg/ocean"

// PublishContextMessage carries an analysed turn to the context consumer.
type PublishContextMessage struct {
	Record ocean.ContextRecord `json:"record"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	StoredContexts int64  `json:"stored_contexts"`
	Uptime         string `json:"uptime"`
}
