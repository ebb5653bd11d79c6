package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

// SessionManager mints bearer tokens on successful verification and resolves
// them back to sessions. Token format is the tokenizer's business; the
// manager owns the lifecycle.
type SessionManager struct {
	store  ports.SessionStore
	tokens ports.Tokenizer
	ttl    time.Duration // 0 means sessions only end on logout
	now    func() time.Time
}

// NewSessionManager creates a session manager. A zero ttl disables automatic
// expiry; sessions then live until explicitly revoked.
func NewSessionManager(store ports.SessionStore, tokens ports.Tokenizer, ttl time.Duration) *SessionManager {
	return &SessionManager{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a session for the username and returns its bearer token.
func (m *SessionManager) Issue(ctx context.Context, username string) (string, *core.Session, error) {
	now := m.now()
	session := &core.Session{
		ID:       uuid.New().String(),
		Username: username,
		IssuedAt: now,
	}
	if m.ttl > 0 {
		session.ExpiresAt = now.Add(m.ttl)
	}

	token, err := m.tokens.Issue(session)
	if err != nil {
		return "", nil, err
	}
	key, err := m.tokens.Parse(token)
	if err != nil {
		return "", nil, err
	}
	if err := m.store.Save(ctx, key, session); err != nil {
		return "", nil, err
	}
	return token, session, nil
}

// Resolve maps a bearer token back to its session, or
// core.ErrUnauthenticated for anything unknown, expired or revoked.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*core.Session, error) {
	key, err := m.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return m.store.Get(ctx, key, m.now())
}

// Revoke deletes the session behind the token. Revoking an unknown or
// garbage token is not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	key, err := m.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, key)
}
