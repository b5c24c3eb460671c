package entity

import (
	"time"

	"github.com/google/uuid"
)

type QueryContext struct {
	Id             uuid.UUID
	Query          string
	Document       string
	QueryMeta      string // JSON text
	Timestamp      time.Time
	EmbeddingValue []float32
	CreatedAt      time.Time
}
