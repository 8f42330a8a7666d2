package service

import (
	"context"
	"encoding/json"
	"strings"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/repository/specification"
	"dental-triage-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IKnowledgeService interface {
	RequestReindex(ctx context.Context, request *dto.ReindexRequest) (*dto.ReindexResponse, error)
	Stats(ctx context.Context) (*dto.KnowledgeStatsResponse, error)
	ListChunks(ctx context.Context, request *dto.ListChunksRequest) ([]*dto.ChunkResponse, error)
}

type knowledgeService struct {
	publisherService IPublisherService
	ingestService    IIngestService
	uowFactory       unitofwork.RepositoryFactory
	topicName        string
}

func NewKnowledgeService(
	publisherService IPublisherService,
	ingestService IIngestService,
	uowFactory unitofwork.RepositoryFactory,
	topicName string,
) IKnowledgeService {
	return &knowledgeService{
		publisherService: publisherService,
		ingestService:    ingestService,
		uowFactory:       uowFactory,
		topicName:        topicName,
	}
}

// RequestReindex queues a job; the consumer picks it up asynchronously.
func (s *knowledgeService) RequestReindex(ctx context.Context, request *dto.ReindexRequest) (*dto.ReindexResponse, error) {
	payload := dto.ReindexMessage{
		JobId: uuid.NewString(),
		Dir:   strings.TrimSpace(request.Dir),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := s.publisherService.Publish(ctx, raw); err != nil {
		return nil, err
	}
	return &dto.ReindexResponse{JobId: payload.JobId, Topic: s.topicName}, nil
}

func (s *knowledgeService) Stats(ctx context.Context) (*dto.KnowledgeStatsResponse, error) {
	stats, err := s.ingestService.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.KnowledgeStatsResponse{Chunks: stats.Chunks, Sources: stats.Sources}, nil
}

// ListChunks shows indexed chunks in reading order, for checking what a
// cited source actually contains.
func (s *knowledgeService) ListChunks(ctx context.Context, request *dto.ListChunksRequest) ([]*dto.ChunkResponse, error) {
	specs := []specification.Specification{specification.InChunkOrder{}}
	if source := strings.TrimSpace(request.Source); source != "" {
		specs = append(specs, specification.BySource{Source: source})
	}
	if ids := splitIds(request.Ids); len(ids) > 0 {
		specs = append(specs, specification.ByChunkIDs{ChunkIDs: ids})
	}
	specs = append(specs, specification.Pagination{Limit: request.Limit, Offset: request.Offset})

	chunks, err := s.uowFactory.NewUnitOfWork(ctx).KnowledgeChunkRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		res = append(res, &dto.ChunkResponse{
			ChunkId:    c.ChunkId,
			Source:     c.Source,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			Metadata:   c.Metadata,
		})
	}
	return res, nil
}

func splitIds(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
