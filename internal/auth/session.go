package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is a server-side admin session, referenced by an opaque cookie value.
type Session struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

var ErrSessionNotFound = errors.New("session not found")

type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	// Get returns ErrSessionNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessions keeps sessions in process; expired ones linger until Prune or lookup.
type MemorySessions struct {
	mu sync.Mutex
	m  map[string]Session
}

func NewMemorySessions() *MemorySessions { return &MemorySessions{m: make(map[string]Session)} }

func (ms *MemorySessions) Save(_ context.Context, s *Session) error {
	ms.mu.Lock()
	ms.m[s.ID] = *s
	ms.mu.Unlock()
	return nil
}

func (ms *MemorySessions) Get(_ context.Context, id string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s, ok := ms.m[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (ms *MemorySessions) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	delete(ms.m, id)
	ms.mu.Unlock()
	return nil
}

// Prune drops expired sessions and returns how many were removed.
func (ms *MemorySessions) Prune(now time.Time) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for id, s := range ms.m {
		if s.Expired(now) {
			delete(ms.m, id)
			n++
		}
	}
	return n
}

// RedisSessions stores sessions as JSON with a TTL matching their expiry.
type RedisSessions struct {
	rc     *redis.Client
	prefix string
}

func NewRedisSessions(rc *redis.Client) *RedisSessions {
	return &RedisSessions{rc: rc, prefix: "session:"}
}

func (rs *RedisSessions) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return rs.rc.Set(ctx, rs.prefix+s.ID, b, ttl).Err()
}

func (rs *RedisSessions) Get(ctx context.Context, id string) (*Session, error) {
	b, err := rs.rc.Get(ctx, rs.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (rs *RedisSessions) Delete(ctx context.Context, id string) error {
	return rs.rc.Del(ctx, rs.prefix+id).Err()
}

func (rs *RedisSessions) Name() string { return "redis" }

func (rs *RedisSessions) Heartbeat(ctx context.Context) error { return rs.rc.Ping(ctx).Err() }
