package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "dental:session:"

// SessionRepository stores each session as one JSON value.
type SessionRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSessionRepository: ttl <= 0 stores without expiry.
func NewSessionRepository(client *goredis.Client, ttl time.Duration) *SessionRepository {
	if ttl < 0 {
		ttl = 0
	}
	return &SessionRepository{client: client, ttl: ttl}
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

func key(id string) string {
	return keyPrefix + id
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	if id == "" {
		return nil, store.ErrSessionNotFound
	}

	raw, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var session store.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrSessionCorrupt, err)
	}
	if session.ID == "" {
		session.ID = id
	}
	return &session, nil
}

func (r *SessionRepository) Set(ctx context.Context, session *store.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	// Expiration 0 means no TTL for go-redis
	if err := r.client.Set(ctx, key(session.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", session.ID, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, key(id)).Err()
}

func (r *SessionRepository) Close() error {
	return r.client.Close()
}
