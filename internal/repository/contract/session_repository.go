package contract

import (
	"context"

	"dental-triage-be/pkg/store"
)

// SessionRepository is the durable per-session state.
// Get returns store.ErrSessionNotFound when the id is unknown and
// store.ErrSessionCorrupt when the stored payload cannot be decoded.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*store.Session, error)
	Set(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
