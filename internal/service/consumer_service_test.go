package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngest struct {
	dirs   []string
	report *IngestReport
	err    error
}

func (f *fakeIngest) Ingest(ctx context.Context, dir string) (*IngestReport, error) {
	f.dirs = append(f.dirs, dir)
	return f.report, f.err
}

func (f *fakeIngest) Stats(ctx context.Context) (*KnowledgeStats, error) {
	return &KnowledgeStats{}, nil
}

func newJob(t *testing.T, payload dto.ReindexMessage) *message.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), raw)
}

func acked(msg *message.Message) bool {
	select {
	case <-msg.Acked():
		return true
	default:
		return false
	}
}

func nacked(msg *message.Message) bool {
	select {
	case <-msg.Nacked():
		return true
	default:
		return false
	}
}

func TestConsumerProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("success acks and publishes", func(t *testing.T) {
		ingest := &fakeIngest{report: &IngestReport{Files: 2, Chunks: 5}}
		pub := &recordingPublisher{}
		cs := NewConsumerService(nil, "knowledge.reindex", "data", ingest, pub, logger.NewNopLogger()).(*consumerService)

		msg := newJob(t, dto.ReindexMessage{JobId: "job-1"})
		cs.processMessage(ctx, msg)

		assert.True(t, acked(msg))
		assert.Equal(t, []string{"data"}, ingest.dirs)
		require.Len(t, pub.events, 1)
		assert.Equal(t, events.TypeKnowledgeReindexed, pub.events[0].EventType())
		assert.Equal(t, "job-1", pub.events[0].Payload()["job_id"])
	})

	t.Run("explicit dir wins", func(t *testing.T) {
		ingest := &fakeIngest{report: &IngestReport{}}
		cs := NewConsumerService(nil, "t", "data", ingest, nil, logger.NewNopLogger()).(*consumerService)

		cs.processMessage(ctx, newJob(t, dto.ReindexMessage{Dir: "/srv/kb"}))
		assert.Equal(t, []string{"/srv/kb"}, ingest.dirs)
	})

	t.Run("failure nacks", func(t *testing.T) {
		ingest := &fakeIngest{err: errors.New("db down")}
		cs := NewConsumerService(nil, "t", "data", ingest, nil, logger.NewNopLogger()).(*consumerService)

		msg := newJob(t, dto.ReindexMessage{})
		cs.processMessage(ctx, msg)
		assert.True(t, nacked(msg))
	})

	t.Run("empty knowledge base is not retried", func(t *testing.T) {
		ingest := &fakeIngest{report: &IngestReport{}, err: ErrNoDocuments}
		cs := NewConsumerService(nil, "t", "data", ingest, nil, logger.NewNopLogger()).(*consumerService)

		msg := newJob(t, dto.ReindexMessage{})
		cs.processMessage(ctx, msg)
		assert.True(t, acked(msg))
	})

	t.Run("bad payload is dropped", func(t *testing.T) {
		ingest := &fakeIngest{}
		cs := NewConsumerService(nil, "t", "data", ingest, nil, logger.NewNopLogger()).(*consumerService)

		msg := message.NewMessage(watermill.NewUUID(), []byte("{"))
		cs.processMessage(ctx, msg)
		assert.True(t, acked(msg))
		assert.Empty(t, ingest.dirs)
	})
}

func TestPublishAndConsumeOverGoChannel(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ingest := &fakeIngest{report: &IngestReport{Files: 1, Chunks: 1}}
	pub := &recordingPublisher{}
	consumer := NewConsumerService(pubSub, "knowledge.reindex", "data", ingest, pub, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx) }()

	// gochannel drops messages published before the subscription exists
	publisher := NewPublisherService("knowledge.reindex", pubSub)
	raw, err := json.Marshal(dto.ReindexMessage{JobId: "job-9"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		if pub.count() > 0 {
			return true
		}
		_, _ = publisher.Publish(context.Background(), raw)
		return false
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
