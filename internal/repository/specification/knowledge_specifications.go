package specification

import "gorm.io/gorm"

// BySource selects every chunk of one knowledge-base file.
type BySource struct {
	Source string
}

func (s BySource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source = ?", s.Source)
}

type ByChunkIDs struct {
	ChunkIDs []string
}

func (s ByChunkIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chunk_id IN ?", s.ChunkIDs)
}

// InChunkOrder keeps a document's chunks in reading order.
type InChunkOrder struct{}

func (s InChunkOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("source ASC").Order("chunk_index ASC")
}
