package events

import (
	"context"
	"strings"
	"time"
)

const (
	TypeTriageCompleted    = "TRIAGE_COMPLETED"
	TypeEmergencyFlagged   = "EMERGENCY_FLAGGED"
	TypeKnowledgeReindexed = "KNOWLEDGE_REINDEXED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TRIAGE_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher delivers events to whatever bus is configured.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject maps an event type to its bus subject:
// TRIAGE_COMPLETED -> events.triage.completed.
func Subject(eventType string) string {
	return "events." + strings.ToLower(strings.ReplaceAll(eventType, "_", "."))
}

func TriageCompleted(sessionID, state string, specialty *string, isFinal bool, at time.Time) BaseEvent {
	var sp interface{}
	if specialty != nil {
		sp = *specialty
	}
	return BaseEvent{
		Type: TypeTriageCompleted,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"state":       state,
			"specialty":   sp,
			"is_final":    isFinal,
			"occurred_at": at,
		},
		OccurredAt: at,
	}
}

func EmergencyFlagged(sessionID string, redFlags []string, advice string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeEmergencyFlagged,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"red_flags":   redFlags,
			"advice":      advice,
			"occurred_at": at,
		},
		OccurredAt: at,
	}
}

func KnowledgeReindexed(jobID string, files, skipped, chunks int, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeKnowledgeReindexed,
		Data: map[string]interface{}{
			"job_id":      jobID,
			"files":       files,
			"skipped":     skipped,
			"chunks":      chunks,
			"occurred_at": at,
		},
		OccurredAt: at,
	}
}

// NopPublisher drops every event. Used when no bus is reachable.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
