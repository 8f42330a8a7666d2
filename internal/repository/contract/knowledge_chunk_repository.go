package contract

import (
	"context"

	"dental-triage-be/internal/entity"
	"dental-triage-be/internal/repository/specification"
)

// ScoredKnowledgeChunk wraps a chunk with the score its index gave it.
// For dense search it is cosine similarity, for lexical search ts_rank_cd.
type ScoredKnowledgeChunk struct {
	Chunk *entity.KnowledgeChunk
	Score float64
}

type KnowledgeChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error
	DeleteBySource(ctx context.Context, source string) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	CountSources(ctx context.Context) (int64, error)
	// SearchSimilarWithScore returns chunks whose cosine similarity is at least threshold
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredKnowledgeChunk, error)
	// SearchLexical ranks chunks by full-text match of any of the terms
	SearchLexical(ctx context.Context, terms []string, limit int) ([]*ScoredKnowledgeChunk, error)
}
