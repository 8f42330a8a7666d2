package mapper

import (
	"encoding/json"
	"time"

	"dental-triage-be/internal/entity"
	"dental-triage-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KnowledgeChunkMapper struct{}

func NewKnowledgeChunkMapper() *KnowledgeChunkMapper {
	return &KnowledgeChunkMapper{}
}

func (m *KnowledgeChunkMapper) ToEntity(e *model.KnowledgeChunk) *entity.KnowledgeChunk {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	meta := map[string]interface{}{}
	if len(e.Metadata) > 0 {
		// Bad metadata is not worth failing a search over
		_ = json.Unmarshal(e.Metadata, &meta)
	}

	return &entity.KnowledgeChunk{
		Id:             e.Id,
		ChunkId:        e.ChunkId,
		Source:         e.Source,
		ChunkIndex:     e.ChunkIndex,
		Content:        e.Content,
		SearchText:     e.SearchText,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		Metadata:       meta,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *KnowledgeChunkMapper) ToModel(e *entity.KnowledgeChunk) *model.KnowledgeChunk {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	meta := datatypes.JSON([]byte("{}"))
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			meta = datatypes.JSON(raw)
		}
	}

	return &model.KnowledgeChunk{
		Id:             e.Id,
		ChunkId:        e.ChunkId,
		Source:         e.Source,
		ChunkIndex:     e.ChunkIndex,
		Content:        e.Content,
		SearchText:     e.SearchText,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Metadata:       meta,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *KnowledgeChunkMapper) ToEntities(chunks []*model.KnowledgeChunk) []*entity.KnowledgeChunk {
	entities := make([]*entity.KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *KnowledgeChunkMapper) ToModels(chunks []*entity.KnowledgeChunk) []*model.KnowledgeChunk {
	models := make([]*model.KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
