package implementation

import (
	"context"

	"floatchat-be/internal/entity"
	"floatchat-be/internal/mapper"
	"floatchat-be/internal/model"
	"floatchat-be/internal/repository/contract"
	"floatchat-be/internal/repository/scope"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type QueryContextRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QueryContextMapper
}

func NewQueryContextRepository(db *gorm.DB) contract.QueryContextRepository {
	return &QueryContextRepositoryImpl{
		db:     db,
		mapper: mapper.NewQueryContextMapper(),
	}
}

func (r *QueryContextRepositoryImpl) Create(ctx context.Context, qc *entity.QueryContext) error {
	m := r.mapper.ToModel(qc)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*qc = *r.mapper.ToEntity(m)
	return nil
}

func (r *QueryContextRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]*contract.ScoredQueryContext, error) {
	if limit <= 0 {
		limit = 3
	}

	// pgvector <=> is cosine distance
	type result struct {
		model.QueryContext
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("query_contexts").
		Select("query_contexts.*, (embedding_value <=> ?) AS distance", queryVector).
		Where("(embedding_value <=> ?) <= ?", queryVector, maxDistance).
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredQueryContext, len(results))
	for i := range results {
		scored[i] = &contract.ScoredQueryContext{
			Context:  r.mapper.ToEntity(&results[i].QueryContext),
			Distance: results[i].Distance,
		}
	}
	return scored, nil
}

func (r *QueryContextRepositoryImpl) FindRecent(ctx context.Context, limit, offset int) ([]*entity.QueryContext, error) {
	var models []*model.QueryContext
	err := r.db.WithContext(ctx).
		Omit("embedding_value").
		Scopes(scope.OrderByCreatedDesc, scope.Paginate(limit, offset)).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*entity.QueryContext, len(models))
	for i, m := range models {
		out[i] = r.mapper.ToEntity(m)
	}
	return out, nil
}

func (r *QueryContextRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.QueryContext{}).Count(&count).Error
	return count, err
}
