package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "CONSUMER"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	defaultDir     string
	ingestService  IIngestService
	eventPublisher events.Publisher
	logger         logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	defaultDir string,
	ingestService IIngestService,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IConsumerService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		defaultDir:     defaultDir,
		ingestService:  ingestService,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// Consume processes reindex jobs until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			cs.processMessage(ctx, msg)
		}
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ReindexMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal reindex job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// redelivery cannot fix a bad payload
		msg.Ack()
		return
	}
	if payload.JobId == "" {
		payload.JobId = msg.UUID
	}
	dir := strings.TrimSpace(payload.Dir)
	if dir == "" {
		dir = cs.defaultDir
	}

	cs.logger.Info(consumerModule, "Processing reindex job", map[string]interface{}{
		"job_id": payload.JobId,
		"dir":    dir,
	})

	report, err := cs.ingestService.Ingest(ctx, dir)
	if errors.Is(err, ErrNoDocuments) {
		cs.logger.Warn(consumerModule, "Reindex found no documents", map[string]interface{}{
			"job_id": payload.JobId,
			"dir":    dir,
		})
		msg.Ack()
		return
	}
	if err != nil {
		cs.logger.Error(consumerModule, "Reindex job failed", map[string]interface{}{
			"job_id": payload.JobId,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	evt := events.KnowledgeReindexed(payload.JobId, report.Files, report.Skipped, report.Chunks, time.Now())
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.logger.Warn(consumerModule, "Failed to publish reindex event", map[string]interface{}{
			"job_id": payload.JobId,
			"error":  err.Error(),
		})
	}

	cs.logger.Info(consumerModule, "Reindex job done", map[string]interface{}{
		"job_id":  payload.JobId,
		"files":   report.Files,
		"skipped": report.Skipped,
		"chunks":  report.Chunks,
	})
	msg.Ack()
}
