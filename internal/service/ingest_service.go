package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dental-triage-be/internal/entity"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/internal/repository/unitofwork"
	"dental-triage-be/pkg/embedding"
	"dental-triage-be/pkg/lexical"
	"dental-triage-be/pkg/store"
	"dental-triage-be/pkg/utils"

	"github.com/google/uuid"
)

const ingestModule = "INGEST"

const (
	ChunkSize    = 800
	ChunkOverlap = 150
)

var ErrNoDocuments = errors.New("no usable knowledge documents found")

type IngestReport struct {
	Files   int
	Skipped int
	Chunks  int
}

type KnowledgeStats struct {
	Chunks  int64
	Sources int64
}

type IIngestService interface {
	Ingest(ctx context.Context, dir string) (*IngestReport, error)
	Stats(ctx context.Context) (*KnowledgeStats, error)
}

type ingestService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewIngestService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

type knowledgeDocument struct {
	source string
	title  string
	text   string
}

// Ingest replaces the indexed chunks of every .txt and .md file under dir.
func (s *ingestService) Ingest(ctx context.Context, dir string) (*IngestReport, error) {
	report := &IngestReport{}
	paths, err := collectKnowledgeFiles(dir, func(path string, err error) {
		s.logger.Warn(ingestModule, "Skipping unreadable path", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		report.Skipped++
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	var docs []knowledgeDocument
	for _, path := range paths {
		doc, err := readKnowledgeFile(dir, path)
		if err != nil {
			s.logger.Warn(ingestModule, "Skipping knowledge file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			report.Skipped++
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return report, ErrNoDocuments
	}

	for _, doc := range docs {
		chunks, err := s.buildChunks(ctx, doc)
		if err != nil {
			return report, err
		}
		if err := s.replaceSource(ctx, doc.source, chunks); err != nil {
			return report, err
		}
		report.Files++
		report.Chunks += len(chunks)
		s.logger.Info(ingestModule, "Indexed knowledge file", map[string]interface{}{
			"source": doc.source,
			"chunks": len(chunks),
		})
	}
	return report, nil
}

func (s *ingestService) buildChunks(ctx context.Context, doc knowledgeDocument) ([]*entity.KnowledgeChunk, error) {
	pieces := utils.SplitText(doc.text, ChunkSize, ChunkOverlap)
	chunks := make([]*entity.KnowledgeChunk, 0, len(pieces))
	for i, piece := range pieces {
		res, err := s.embeddingProvider.Generate(ctx, piece, embedding.TaskDocument)
		if err != nil {
			return nil, fmt.Errorf("embed %s chunk %d: %w", doc.source, i, err)
		}
		chunks = append(chunks, &entity.KnowledgeChunk{
			Id:             uuid.New(),
			ChunkId:        fmt.Sprintf("%s#%d", doc.source, i),
			Source:         doc.source,
			ChunkIndex:     i,
			Content:        piece,
			SearchText:     lexical.Normalize(piece),
			EmbeddingValue: res.Embedding.Values,
			Metadata: map[string]interface{}{
				store.MetaSource: doc.source,
				store.MetaTitle:  doc.title,
				"chunk_index":    i,
			},
		})
	}
	return chunks, nil
}

func (s *ingestService) replaceSource(ctx context.Context, source string, chunks []*entity.KnowledgeChunk) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.KnowledgeChunkRepository()
	if err := repo.DeleteBySource(ctx, source); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", source, err)
	}
	if err := repo.CreateBulk(ctx, chunks); err != nil {
		return fmt.Errorf("insert chunks of %s: %w", source, err)
	}
	return uow.Commit()
}

func (s *ingestService) Stats(ctx context.Context) (*KnowledgeStats, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).KnowledgeChunkRepository()
	chunks, err := repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	sources, err := repo.CountSources(ctx)
	if err != nil {
		return nil, err
	}
	return &KnowledgeStats{Chunks: chunks, Sources: sources}, nil
}

// walkDir is swapped in tests to simulate unreadable entries.
var walkDir = filepath.WalkDir

// collectKnowledgeFiles lists .txt and .md files under dir. Entries that
// cannot be read are reported to skip and left out; only a failure on dir
// itself is returned.
func collectKnowledgeFiles(dir string, skip func(path string, err error)) ([]string, error) {
	var paths []string
	err := walkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			skip(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func readKnowledgeFile(dir, path string) (knowledgeDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return knowledgeDocument{}, err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return knowledgeDocument{}, errors.New("file is empty")
	}

	source, err := filepath.Rel(dir, path)
	if err != nil {
		source = filepath.Base(path)
	}
	source = filepath.ToSlash(source)
	return knowledgeDocument{
		source: source,
		title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		text:   text,
	}, nil
}
