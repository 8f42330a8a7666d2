package memory

import (
	"context"
	"time"

	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. Sessions are cloned
// on the way in and out so callers never share a live pointer.
type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository uses ttl as the default expiration; ttl <= 0 keeps
// sessions until Delete or process exit.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	expiration := cache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	return &SessionRepository{
		cache: cache.New(expiration, 10*time.Minute),
	}
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*store.Session).Clone(), nil
	}
	return nil, store.ErrSessionNotFound
}

func (r *SessionRepository) Set(ctx context.Context, session *store.Session) error {
	r.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) Close() error {
	r.cache.Flush()
	return nil
}
