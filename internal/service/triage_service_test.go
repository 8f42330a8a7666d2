package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/internal/repository/memory"
	"dental-triage-be/pkg/events"
	"dental-triage-be/pkg/rag/emergency"
	"dental-triage-be/pkg/rag/executor"
	"dental-triage-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result *executor.TurnResult
	err    error
	turns  []executor.Turn
}

func (f *fakeRunner) Run(ctx context.Context, s *store.Session, turn executor.Turn) (*executor.TurnResult, error) {
	f.turns = append(f.turns, turn)
	s.History = append(s.History, store.Message{Role: store.RoleUser, Content: turn.Message})
	if f.err != nil {
		return nil, f.err
	}
	s.LastState = f.result.State
	return f.result, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type stubSessions struct {
	getErr error
	saved  []*store.Session
}

func (s *stubSessions) Get(ctx context.Context, id string) (*store.Session, error) {
	return nil, s.getErr
}

func (s *stubSessions) Set(ctx context.Context, session *store.Session) error {
	s.saved = append(s.saved, session)
	return nil
}

func (s *stubSessions) Delete(ctx context.Context, id string) error { return nil }
func (s *stubSessions) Close() error                                { return nil }

func triagedResult() *executor.TurnResult {
	specialty := "لبية"
	return &executor.TurnResult{
		State:     store.StateTriaged,
		Answer:    "الاختصاص الأنسب: - لبية",
		Emergency: emergency.Info{RedFlags: []string{}},
		Triage:    store.Triage{Specialty: &specialty, IsFinal: true},
		FollowUps: []string{},
		Sources: []executor.Source{
			{Source: "endo.md", Snippet: "ألم ليلي"},
		},
		Branch: executor.BranchTriage,
	}
}

func TestTriageServiceChat(t *testing.T) {
	ctx := context.Background()

	t.Run("new session gets an id and is saved", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		sessions := memory.NewSessionRepository(0)
		pub := &recordingPublisher{}
		svc := NewTriageService(runner, sessions, pub, logger.NewNopLogger())

		res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "ألم بالليل"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.SessionId)
		assert.Equal(t, store.StateTriaged, res.State)
		assert.True(t, res.Triage.IsFinal)
		assert.Nil(t, res.Emergency)
		assert.Len(t, res.Sources, 1)
		assert.NotNil(t, res.FollowUp.Questions)

		stored, err := sessions.Get(ctx, res.SessionId)
		require.NoError(t, err)
		assert.Len(t, stored.History, 1)

		require.Len(t, pub.events, 1)
		assert.Equal(t, events.TypeTriageCompleted, pub.events[0].EventType())
	})

	t.Run("caller supplied id is kept", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		svc := NewTriageService(runner, memory.NewSessionRepository(0), nil, logger.NewNopLogger())

		res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "hi", SessionId: "abc"})
		require.NoError(t, err)
		assert.Equal(t, "abc", res.SessionId)
	})

	t.Run("emergency publishes a second event", func(t *testing.T) {
		result := triagedResult()
		result.Emergency = emergency.Detect("عندي صعوبة تنفس")
		runner := &fakeRunner{result: result}
		pub := &recordingPublisher{}
		svc := NewTriageService(runner, memory.NewSessionRepository(0), pub, logger.NewNopLogger())

		res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "عندي صعوبة تنفس"})
		require.NoError(t, err)
		assert.True(t, res.IsEmergency)
		require.NotNil(t, res.Emergency)
		assert.NotEmpty(t, res.Emergency.RedFlags)

		require.Len(t, pub.events, 2)
		assert.Equal(t, events.TypeEmergencyFlagged, pub.events[1].EventType())
	})

	t.Run("publisher failure does not fail the turn", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		pub := &recordingPublisher{err: errors.New("bus down")}
		svc := NewTriageService(runner, memory.NewSessionRepository(0), pub, logger.NewNopLogger())

		_, err := svc.Chat(ctx, &dto.ChatRequest{Message: "ألم"})
		assert.NoError(t, err)
	})

	t.Run("engine error leaves stored session untouched", func(t *testing.T) {
		sessions := memory.NewSessionRepository(0)
		existing := store.NewSession("s1", time.Now())
		require.NoError(t, sessions.Set(ctx, existing))

		runner := &fakeRunner{err: errors.New("rewrite query: upstream down")}
		svc := NewTriageService(runner, sessions, nil, logger.NewNopLogger())

		_, err := svc.Chat(ctx, &dto.ChatRequest{Message: "ألم", SessionId: "s1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream down")

		stored, err := sessions.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, stored.History)
	})

	t.Run("blank message is rejected before loading", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		svc := NewTriageService(runner, memory.NewSessionRepository(0), nil, logger.NewNopLogger())

		_, err := svc.Chat(ctx, &dto.ChatRequest{Message: "   "})
		assert.ErrorIs(t, err, executor.ErrEmptyMessage)
		assert.Empty(t, runner.turns)
	})

	t.Run("corrupt session starts fresh under the same id", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		sessions := &stubSessions{getErr: store.ErrSessionCorrupt}
		svc := NewTriageService(runner, sessions, nil, logger.NewNopLogger())

		res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "ألم", SessionId: "broken"})
		require.NoError(t, err)
		assert.Equal(t, "broken", res.SessionId)
		require.Len(t, sessions.saved, 1)
		assert.Len(t, sessions.saved[0].History, 1)
	})

	t.Run("unreachable store fails the turn", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		sessions := &stubSessions{getErr: errors.New("connection refused")}
		svc := NewTriageService(runner, sessions, nil, logger.NewNopLogger())

		_, err := svc.Chat(ctx, &dto.ChatRequest{Message: "ألم", SessionId: "x"})
		require.Error(t, err)
		assert.Empty(t, runner.turns)
	})

	t.Run("image result is forwarded to the engine", func(t *testing.T) {
		runner := &fakeRunner{result: triagedResult()}
		svc := NewTriageService(runner, memory.NewSessionRepository(0), nil, logger.NewNopLogger())
		conf := 0.8

		_, err := svc.Chat(ctx, &dto.ChatRequest{
			Message: "شو النتيجة",
			ImageAI: &dto.ImageAIDTO{Prediction: "caries", Confidence: &conf, Status: store.ImageStatusDiseaseDetected},
		})
		require.NoError(t, err)
		require.Len(t, runner.turns, 1)
		require.NotNil(t, runner.turns[0].ImageAI)
		assert.Equal(t, "caries", runner.turns[0].ImageAI.Prediction)
	})
}

func TestTriageServiceSessions(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionRepository(0)
	svc := NewTriageService(&fakeRunner{result: triagedResult()}, sessions, nil, logger.NewNopLogger())

	res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "ألم", SessionId: "s2"})
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "s2", got.SessionId)
	assert.Equal(t, store.StateTriaged, got.LastState)
	assert.Len(t, got.History, 1)

	require.NoError(t, svc.DeleteSession(ctx, "s2"))
	_, err = svc.GetSession(ctx, "s2")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
