package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// QueryContext is one analysed turn kept for similarity lookups. Rows are
// written once and never updated.
type QueryContext struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Query          string          `gorm:"type:text;not null"`
	Document       string          `gorm:"type:text;not null"` // generated analysis
	QueryMeta      datatypes.JSON  `gorm:"type:jsonb"`
	Timestamp      time.Time       `gorm:"not null;index"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (QueryContext) TableName() string {
	return "query_contexts"
}
