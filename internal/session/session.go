// Package session records which admin tokens are live. A token is accepted
// only while its session exists, so signing out revokes it immediately.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("session not found or expired")
	ErrExpired  = errors.New("session already expired")
)

type Session struct {
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store interface {
	Save(ctx context.Context, key string, s Session) error
	Lookup(ctx context.Context, key string) (Session, error)
	Revoke(ctx context.Context, key string) error
}

// MemoryStore keeps sessions in process. Used when no Redis is configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, key string, s Session) error {
	if !s.ExpiresAt.After(m.now()) {
		return ErrExpired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = s
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, key string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !s.ExpiresAt.After(m.now()) {
		delete(m.sessions, key)
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Revoke(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
