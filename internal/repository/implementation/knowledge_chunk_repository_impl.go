package implementation

import (
	"context"
	"strings"

	"dental-triage-be/internal/entity"
	"dental-triage-be/internal/mapper"
	"dental-triage-be/internal/model"
	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeChunkMapper
}

func NewKnowledgeChunkRepository(db *gorm.DB) contract.KnowledgeChunkRepository {
	return &KnowledgeChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeChunkMapper(),
	}
}

func (r *KnowledgeChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *KnowledgeChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *KnowledgeChunkRepositoryImpl) DeleteBySource(ctx context.Context, source string) error {
	return r.db.WithContext(ctx).Where("source = ?", source).Delete(&model.KnowledgeChunk{}).Error
}

func (r *KnowledgeChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error) {
	var models []*model.KnowledgeChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *KnowledgeChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.KnowledgeChunk{}).Count(&count).Error
	return count, err
}

func (r *KnowledgeChunkRepositoryImpl) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.KnowledgeChunk{}).Distinct("source").Count(&count).Error
	return count, err
}

type scoredRow struct {
	model.KnowledgeChunk
	Score float64
}

func (r *KnowledgeChunkRepositoryImpl) toScored(rows []scoredRow) []*contract.ScoredKnowledgeChunk {
	out := make([]*contract.ScoredKnowledgeChunk, len(rows))
	for i := range rows {
		out[i] = &contract.ScoredKnowledgeChunk{
			Chunk: r.mapper.ToEntity(&rows[i].KnowledgeChunk),
			Score: rows[i].Score,
		}
	}
	return out
}

// SearchSimilarWithScore ranks by cosine similarity.
// pgvector's <=> is cosine distance, so similarity = 1 - distance.
func (r *KnowledgeChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	if limit <= 0 {
		limit = 8
	}

	var rows []scoredRow
	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("knowledge_chunks").
		Select("knowledge_chunks.*, 1 - (embedding_value <=> ?) as score", queryVector).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("score DESC").
		Order("chunk_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

// SearchLexical OR-matches the terms against the normalized text with the
// 'simple' configuration (no stemming; clitic variants are supplied by the caller).
func (r *KnowledgeChunkRepositoryImpl) SearchLexical(ctx context.Context, terms []string, limit int) ([]*contract.ScoredKnowledgeChunk, error) {
	if len(terms) == 0 {
		return []*contract.ScoredKnowledgeChunk{}, nil
	}
	if limit <= 0 {
		limit = 8
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = "'" + t + "'"
	}
	tsQuery := strings.Join(quoted, " | ")

	var rows []scoredRow
	err := r.db.WithContext(ctx).
		Table("knowledge_chunks").
		Select("knowledge_chunks.*, ts_rank_cd(to_tsvector('simple', search_text), to_tsquery('simple', ?)) as score", tsQuery).
		Where("to_tsvector('simple', search_text) @@ to_tsquery('simple', ?)", tsQuery).
		Order("score DESC").
		Order("chunk_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}
