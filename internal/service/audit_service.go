package service

import (
	"context"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/events"
)

const (
	auditModule         = "AUDIT"
	emergencyAuditGroup = "emergency-audit"
)

// EventSubscriber registers a durable handler for one subject.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler func(ctx context.Context, event events.Event) error) error
}

type IAuditService interface {
	Start(ctx context.Context) error
	HandleEmergency(ctx context.Context, event events.Event) error
}

// auditService keeps a log trail of every flagged emergency.
type auditService struct {
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewAuditService(subscriber EventSubscriber, log logger.ILogger) IAuditService {
	return &auditService{subscriber: subscriber, logger: log}
}

func (s *auditService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		return nil
	}
	return s.subscriber.Subscribe(ctx, events.Subject(events.TypeEmergencyFlagged), emergencyAuditGroup, s.HandleEmergency)
}

func (s *auditService) HandleEmergency(ctx context.Context, event events.Event) error {
	details := map[string]interface{}{
		"occurred_at": event.Timestamp(),
	}
	for k, v := range event.Payload() {
		details[k] = v
	}
	s.logger.Warn(auditModule, "Emergency flagged", details)
	return nil
}
