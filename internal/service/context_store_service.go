package service

import (
	"context"
	"fmt"

	"floatchat-be/internal/mapper"
	"floatchat-be/internal/pkg/logger"
	"floatchat-be/internal/repository/contract"
	"floatchat-be/pkg/embedding"
	"floatchat-be/pkg/ocean"
)

// IContextStoreService is the similarity store: analysed turns go in, the
// nearest earlier turns for a new query come out.
type IContextStoreService interface {
	Search(ctx context.Context, query string) ([]ocean.SimilarRecord, error)
	Save(ctx context.Context, rec ocean.ContextRecord) error
	Recent(ctx context.Context, page, limit int) ([]ocean.ContextRecord, error)
	Count(ctx context.Context) (int64, error)
}

type contextStoreService struct {
	repo              contract.QueryContextRepository
	embeddingProvider embedding.EmbeddingProvider
	mapper            *mapper.QueryContextMapper
	logger            logger.ILogger
	limit             int
	maxDistance       float64
}

func NewContextStoreService(
	repo contract.QueryContextRepository,
	embeddingProvider embedding.EmbeddingProvider,
	limit int,
	maxDistance float64,
	log logger.ILogger,
) IContextStoreService {
	if limit <= 0 {
		limit = 3
	}
	if maxDistance <= 0 {
		maxDistance = 0.8
	}
	return &contextStoreService{
		repo:              repo,
		embeddingProvider: embeddingProvider,
		mapper:            mapper.NewQueryContextMapper(),
		logger:            log,
		limit:             limit,
		maxDistance:       maxDistance,
	}
}

func (s *contextStoreService) Search(ctx context.Context, query string) ([]ocean.SimilarRecord, error) {
	vec, err := s.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.repo.SearchSimilar(ctx, vec, s.limit, s.maxDistance)
	if err != nil {
		return nil, fmt.Errorf("search contexts: %w", err)
	}

	out := make([]ocean.SimilarRecord, 0, len(scored))
	for _, sc := range scored {
		if sc == nil || sc.Context == nil {
			continue
		}
		out = append(out, ocean.SimilarRecord{
			ContextRecord: s.mapper.ToRecord(sc.Context),
			Distance:      sc.Distance,
		})
	}

	s.logger.Debug("CONTEXT", "Similar contexts found", map[string]interface{}{
		"query": query,
		"count": len(out),
	})
	return out, nil
}

// Save embeds the query together with its analysis so later lookups match on
// either.
func (s *contextStoreService) Save(ctx context.Context, rec ocean.ContextRecord) error {
	text := rec.Metadata.Query + "\n\n" + rec.Document
	vec, err := s.embeddingProvider.Generate(ctx, text, embedding.TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("embed context %s: %w", rec.ID, err)
	}

	e := s.mapper.FromRecord(rec, vec)
	if err := s.repo.Create(ctx, e); err != nil {
		return fmt.Errorf("store context %s: %w", rec.ID, err)
	}

	s.logger.Info("CONTEXT", "Context stored", map[string]interface{}{
		"id":    e.Id.String(),
		"query": rec.Metadata.Query,
	})
	return nil
}

func (s *contextStoreService) Recent(ctx context.Context, page, limit int) ([]ocean.ContextRecord, error) {
	if page < 1 {
		page = 1
	}
	stored, err := s.repo.FindRecent(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	out := make([]ocean.ContextRecord, 0, len(stored))
	for _, e := range stored {
		out = append(out, s.mapper.ToRecord(e))
	}
	return out, nil
}

func (s *contextStoreService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
