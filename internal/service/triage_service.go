package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/pkg/events"
	"dental-triage-be/pkg/rag/executor"
	"dental-triage-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const sessionModule = "SESSION"

type ITriageService interface {
	Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

// TurnRunner is the part of the engine the service depends on.
type TurnRunner interface {
	Run(ctx context.Context, s *store.Session, turn executor.Turn) (*executor.TurnResult, error)
}

type triageService struct {
	engine    TurnRunner
	sessions  contract.SessionRepository
	publisher events.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewTriageService(
	engine TurnRunner,
	sessions contract.SessionRepository,
	publisher events.Publisher,
	log logger.ILogger,
) ITriageService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &triageService{
		engine:    engine,
		sessions:  sessions,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (s *triageService) Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error) {
	ctx, span := otel.Tracer("service.triage").Start(ctx, "TriageService.Chat")
	defer span.End()

	if strings.TrimSpace(request.Message) == "" {
		return nil, executor.ErrEmptyMessage
	}

	session, err := s.loadSession(ctx, strings.TrimSpace(request.SessionId))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	// the engine mutates a copy; the stored session only changes on success
	working := session.Clone()
	result, err := s.engine.Run(ctx, working, executor.Turn{
		Message: request.Message,
		Age:     request.Age,
		ImageAI: imageFromDTO(request.ImageAI),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.sessions.Set(ctx, working); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.publishTurn(ctx, working.ID, result)
	return toChatResponse(working.ID, result), nil
}

// loadSession returns the stored session, or a fresh one when the id is
// new, empty or its payload cannot be decoded.
func (s *triageService) loadSession(ctx context.Context, id string) (*store.Session, error) {
	if id == "" {
		return store.NewSession(uuid.NewString(), s.now()), nil
	}

	session, err := s.sessions.Get(ctx, id)
	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, store.ErrSessionNotFound):
		return store.NewSession(id, s.now()), nil
	case errors.Is(err, store.ErrSessionCorrupt):
		s.logger.Warn(sessionModule, "Stored session is corrupt, starting fresh", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return store.NewSession(id, s.now()), nil
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}
}

func (s *triageService) publishTurn(ctx context.Context, sessionId string, result *executor.TurnResult) {
	now := s.now()
	if err := s.publisher.Publish(ctx, events.TriageCompleted(sessionId, result.State, result.Triage.Specialty, result.Triage.IsFinal, now)); err != nil {
		s.logger.Warn(sessionModule, "Failed to publish triage event", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	if !result.IsEmergency() {
		return
	}
	advice := ""
	if result.Emergency.Advice != nil {
		advice = *result.Emergency.Advice
	}
	if err := s.publisher.Publish(ctx, events.EmergencyFlagged(sessionId, result.Emergency.RedFlags, advice, now)); err != nil {
		s.logger.Warn(sessionModule, "Failed to publish emergency event", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func (s *triageService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	session, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	history := make([]dto.MessageDTO, 0, len(session.History))
	for _, m := range session.History {
		history = append(history, dto.MessageDTO{Role: m.Role, Content: m.Content})
	}

	res := &dto.SessionResponse{
		SessionId: session.ID,
		Age:       session.Age,
		History:   history,
		CaseParts: append([]string{}, session.CaseParts...),
		LastState: session.LastState,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if session.LastTriage != nil {
		res.LastTriage = &dto.TriageDTO{
			Specialty:  session.LastTriage.Specialty,
			IsFinal:    session.LastTriage.IsFinal,
			Confidence: session.LastTriage.Confidence,
		}
	}
	if session.ImageAI != nil {
		res.ImageAI = &dto.ImageAIDTO{
			Prediction: session.ImageAI.Prediction,
			Confidence: session.ImageAI.Confidence,
			Status:     session.ImageAI.Status,
		}
	}
	return res, nil
}

func (s *triageService) DeleteSession(ctx context.Context, sessionId string) error {
	return s.sessions.Delete(ctx, sessionId)
}

func imageFromDTO(in *dto.ImageAIDTO) *store.ImageResult {
	if in == nil {
		return nil
	}
	return &store.ImageResult{
		Prediction: in.Prediction,
		Confidence: in.Confidence,
		Status:     in.Status,
	}
}

func toChatResponse(sessionId string, result *executor.TurnResult) *dto.ChatResponse {
	res := &dto.ChatResponse{
		SessionId:   sessionId,
		State:       result.State,
		Answer:      result.Answer,
		IsEmergency: result.IsEmergency(),
		Triage: dto.TriageDTO{
			Specialty:  result.Triage.Specialty,
			IsFinal:    result.Triage.IsFinal,
			Confidence: result.Triage.Confidence,
		},
		FollowUp: dto.FollowUpDTO{Questions: append([]string{}, result.FollowUps...)},
		Sources:  make([]dto.SourceDTO, 0, len(result.Sources)),
	}
	if res.IsEmergency {
		res.Emergency = &dto.EmergencyDTO{
			RedFlags: append([]string{}, result.Emergency.RedFlags...),
			Advice:   result.Emergency.Advice,
		}
	}
	for _, src := range result.Sources {
		res.Sources = append(res.Sources, dto.SourceDTO{
			Source:  src.Source,
			Snippet: src.Snippet,
			Score:   src.Score,
		})
	}
	return res
}
