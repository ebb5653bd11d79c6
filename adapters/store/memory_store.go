package store

import (
	"context"
	"sync"
	"time"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

// MemoryChallengeStore keeps challenges in a mutex-guarded map. Expired
// records are evicted lazily on lookup; nothing depends on prompt collection.
type MemoryChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]*core.Challenge
}

// NewMemoryChallengeStore creates an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]*core.Challenge)}
}

// Save implements ports.ChallengeStore.
func (s *MemoryChallengeStore) Save(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *challenge
	s.challenges[challenge.ID] = &copied
	return nil
}

// Get implements ports.ChallengeStore.
func (s *MemoryChallengeStore) Get(ctx context.Context, id string, now time.Time) (*core.Challenge, error) {
	// Consume mutates records in place under the write lock, so the copy
	// has to happen before the read lock is released.
	s.mu.RLock()
	challenge, ok := s.challenges[id]
	var copied core.Challenge
	if ok {
		copied = *challenge
	}
	s.mu.RUnlock()

	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	if copied.Expired(now) {
		s.evict(id)
		return nil, core.ErrChallengeExpired
	}
	if copied.Used {
		return nil, core.ErrChallengeUsed
	}
	return &copied, nil
}

// Consume implements ports.ChallengeStore. The used flag flips under the
// write lock, so of two concurrent consumers exactly one wins.
func (s *MemoryChallengeStore) Consume(ctx context.Context, id string, now time.Time) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[id]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	if challenge.Expired(now) {
		delete(s.challenges, id)
		return nil, core.ErrChallengeExpired
	}
	if challenge.Used {
		return nil, core.ErrChallengeUsed
	}
	challenge.Used = true
	copied := *challenge
	return &copied, nil
}

func (s *MemoryChallengeStore) evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, id)
}

// MemorySessionStore keeps sessions in a mutex-guarded map keyed by the
// tokenizer's lookup key.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*core.Session)}
}

// Save implements ports.SessionStore.
func (s *MemorySessionStore) Save(ctx context.Context, key string, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[key] = &copied
	return nil
}

// Get implements ports.SessionStore. Expired sessions are evicted on lookup.
func (s *MemorySessionStore) Get(ctx context.Context, key string, now time.Time) (*core.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[key]
	s.mu.RUnlock()

	if !ok {
		return nil, core.ErrUnauthenticated
	}
	if session.Expired(now) {
		_ = s.Delete(ctx, key)
		return nil, core.ErrUnauthenticated
	}
	copied := *session
	return &copied, nil
}

// Delete implements ports.SessionStore.
func (s *MemorySessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// MemoryAttemptStore keeps lockout bookkeeping in a mutex-guarded map.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	records map[string]*core.AttemptRecord
}

// NewMemoryAttemptStore creates an empty in-memory attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{records: make(map[string]*core.AttemptRecord)}
}

// Get implements ports.AttemptStore.
func (s *MemoryAttemptStore) Get(ctx context.Context, username string) (*core.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[username]
	if !ok {
		return &core.AttemptRecord{Username: username}, nil
	}
	copied := *record
	return &copied, nil
}

// RecordFailure implements ports.AttemptStore. The increment happens under
// the lock, so concurrent failures are never lost.
func (s *MemoryAttemptStore) RecordFailure(ctx context.Context, username string) (*core.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[username]
	if !ok {
		record = &core.AttemptRecord{Username: username}
		s.records[username] = record
	}
	record.FailedAttempts++
	copied := *record
	return &copied, nil
}

// SetBlock implements ports.AttemptStore.
func (s *MemoryAttemptStore) SetBlock(ctx context.Context, username string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[username]
	if !ok {
		record = &core.AttemptRecord{Username: username}
		s.records[username] = record
	}
	record.BlockedUntil = until
	return nil
}

// Reset implements ports.AttemptStore.
func (s *MemoryAttemptStore) Reset(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, username)
	return nil
}

var (
	_ ports.ChallengeStore = (*MemoryChallengeStore)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.AttemptStore   = (*MemoryAttemptStore)(nil)
)
