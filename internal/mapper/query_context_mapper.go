package mapper

import (
	"time"

	"floatchat-be/internal/entity"
	"floatchat-be/internal/model"
	"floatchat-be/pkg/ocean"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type QueryContextMapper struct{}

func NewQueryContextMapper() *QueryContextMapper {
	return &QueryContextMapper{}
}

func (m *QueryContextMapper) ToEntity(q *model.QueryContext) *entity.QueryContext {
	if q == nil {
		return nil
	}
	return &entity.QueryContext{
		Id:             q.Id,
		Query:          q.Query,
		Document:       q.Document,
		QueryMeta:      string(q.QueryMeta),
		Timestamp:      q.Timestamp,
		EmbeddingValue: q.EmbeddingValue.Slice(),
		CreatedAt:      q.CreatedAt,
	}
}

func (m *QueryContextMapper) ToModel(e *entity.QueryContext) *model.QueryContext {
	if e == nil {
		return nil
	}
	var meta datatypes.JSON
	if e.QueryMeta != "" {
		meta = datatypes.JSON(e.QueryMeta)
	}
	return &model.QueryContext{
		Id:             e.Id,
		Query:          e.Query,
		Document:       e.Document,
		QueryMeta:      meta,
		Timestamp:      e.Timestamp,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}

// ToRecord converts a stored row to the domain record. The timestamp is
// rendered in RFC 3339.
func (m *QueryContextMapper) ToRecord(e *entity.QueryContext) ocean.ContextRecord {
	return ocean.ContextRecord{
		ID:       e.Id.String(),
		Document: e.Document,
		Metadata: ocean.ContextMetadata{
			Query:     e.Query,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			QueryMeta: e.QueryMeta,
		},
	}
}

// FromRecord is the inverse of ToRecord. An unparsable id or timestamp is
// replaced by a fresh id or the current time.
func (m *QueryContextMapper) FromRecord(r ocean.ContextRecord, embedding []float32) *entity.QueryContext {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
	}
	ts, err := time.Parse(time.RFC3339, r.Metadata.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	return &entity.QueryContext{
		Id:             id,
		Query:          r.Metadata.Query,
		Document:       r.Document,
		QueryMeta:      r.Metadata.QueryMeta,
		Timestamp:      ts,
		EmbeddingValue: embedding,
	}
}
