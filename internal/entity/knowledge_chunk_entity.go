package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeChunk is one slice of a knowledge-base document.
type KnowledgeChunk struct {
	Id             uuid.UUID
	ChunkId        string // "<source>#<index>", stable across reindexes
	Source         string
	ChunkIndex     int
	Content        string
	SearchText     string // normalized content for lexical search
	EmbeddingValue []float32
	Metadata       map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
