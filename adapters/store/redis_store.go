package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

const (
	challengePrefix = "zkvault:challenge:"
	sessionPrefix   = "zkvault:session:"
	attemptPrefix   = "zkvault:attempts:"
	blockPrefix     = "zkvault:block:"

	// challengeGrace keeps consumed and expired challenge records around a
	// little longer than their expiry so a late retry sees "expired" or
	// "already used" instead of "not found".
	challengeGrace = time.Hour
)

// consumeScript flips the used flag atomically inside Redis. It returns nil
// when the key is gone, the string USED when the challenge was consumed
// before, and the updated record otherwise.
var consumeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return nil
end
local rec = cjson.decode(raw)
if rec.used then
  return 'USED'
end
rec.used = true
local ttl = redis.call('PTTL', KEYS[1])
local encoded = cjson.encode(rec)
if ttl > 0 then
  redis.call('SET', KEYS[1], encoded, 'PX', ttl)
else
  redis.call('SET', KEYS[1], encoded)
end
return encoded
`)

type challengeRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	C         string `json:"c"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
	Used      bool   `json:"used"`
}

func encodeChallenge(challenge *core.Challenge) ([]byte, error) {
	return json.Marshal(challengeRecord{
		ID:        challenge.ID,
		Username:  challenge.Username,
		C:         hex.EncodeToString(challenge.C.Bytes()),
		IssuedAt:  challenge.IssuedAt.UTC().Format(time.RFC3339Nano),
		ExpiresAt: challenge.ExpiresAt.UTC().Format(time.RFC3339Nano),
		Used:      challenge.Used,
	})
}

func decodeChallenge(raw []byte) (*core.Challenge, error) {
	var rec challengeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode challenge record: %w", err)
	}
	cBytes, err := hex.DecodeString(rec.C)
	if err != nil {
		return nil, fmt.Errorf("decode challenge scalar: %w", err)
	}
	issuedAt, err := time.Parse(time.RFC3339Nano, rec.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("decode challenge issued_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, rec.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("decode challenge expires_at: %w", err)
	}
	return &core.Challenge{
		ID:        rec.ID,
		Username:  rec.Username,
		C:         new(big.Int).SetBytes(cBytes),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Used:      rec.Used,
	}, nil
}

// RedisChallengeStore persists challenges in Redis with a TTL slightly past
// their expiry.
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore creates a Redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

// Save implements ports.ChallengeStore.
func (s *RedisChallengeStore) Save(ctx context.Context, challenge *core.Challenge) error {
	raw, err := encodeChallenge(challenge)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	ttl := time.Until(challenge.ExpiresAt) + challengeGrace
	if err := s.client.Set(ctx, challengePrefix+challenge.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Get implements ports.ChallengeStore.
func (s *RedisChallengeStore) Get(ctx context.Context, id string, now time.Time) (*core.Challenge, error) {
	raw, err := s.client.Get(ctx, challengePrefix+id).Bytes()
	if err == redis.Nil {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	challenge, err := decodeChallenge(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if challenge.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	if challenge.Used {
		return nil, core.ErrChallengeUsed
	}
	return challenge, nil
}

// Consume implements ports.ChallengeStore.
func (s *RedisChallengeStore) Consume(ctx context.Context, id string, now time.Time) (*core.Challenge, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{challengePrefix + id}).Result()
	if err == redis.Nil {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected script reply", core.ErrStoreOperationFailed)
	}
	if raw == "USED" {
		return nil, core.ErrChallengeUsed
	}
	challenge, err := decodeChallenge([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if challenge.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	return challenge, nil
}

type sessionRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RedisSessionStore persists sessions in Redis, with a TTL when the session
// carries an expiry.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Save implements ports.SessionStore.
func (s *RedisSessionStore) Save(ctx context.Context, key string, session *core.Session) error {
	rec := sessionRecord{
		ID:       session.ID,
		Username: session.Username,
		IssuedAt: session.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		rec.ExpiresAt = session.ExpiresAt.UTC().Format(time.RFC3339Nano)
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if err := s.client.Set(ctx, sessionPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Get implements ports.SessionStore.
func (s *RedisSessionStore) Get(ctx context.Context, key string, now time.Time) (*core.Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, core.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	session := &core.Session{ID: rec.ID, Username: rec.Username}
	if session.IssuedAt, err = time.Parse(time.RFC3339Nano, rec.IssuedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if rec.ExpiresAt != "" {
		if session.ExpiresAt, err = time.Parse(time.RFC3339Nano, rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
		}
	}
	if session.Expired(now) {
		_ = s.Delete(ctx, key)
		return nil, core.ErrUnauthenticated
	}
	return session, nil
}

// Delete implements ports.SessionStore.
func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// RedisAttemptStore keeps the failure counter and block marker in separate
// keys so the counter increment stays a single atomic INCR.
type RedisAttemptStore struct {
	client *redis.Client
}

// NewRedisAttemptStore creates a Redis-backed attempt store.
func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

// Get implements ports.AttemptStore.
func (s *RedisAttemptStore) Get(ctx context.Context, username string) (*core.AttemptRecord, error) {
	record := &core.AttemptRecord{Username: username}

	count, err := s.client.Get(ctx, attemptPrefix+username).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	record.FailedAttempts = count

	until, err := s.client.Get(ctx, blockPrefix+username).Result()
	if err == redis.Nil {
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if record.BlockedUntil, err = time.Parse(time.RFC3339Nano, until); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return record, nil
}

// RecordFailure implements ports.AttemptStore.
func (s *RedisAttemptStore) RecordFailure(ctx context.Context, username string) (*core.AttemptRecord, error) {
	count, err := s.client.Incr(ctx, attemptPrefix+username).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	record, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	record.FailedAttempts = int(count)
	return record, nil
}

// SetBlock implements ports.AttemptStore. Both keys expire at the unblock
// time: the counter dies with the block, so an elapsed window starts a clean
// slate just like the memory backend.
func (s *RedisAttemptStore) SetBlock(ctx context.Context, username string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	value := until.UTC().Format(time.RFC3339Nano)
	if err := s.client.Set(ctx, blockPrefix+username, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if err := s.client.Expire(ctx, attemptPrefix+username, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Reset implements ports.AttemptStore.
func (s *RedisAttemptStore) Reset(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, attemptPrefix+username, blockPrefix+username).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

var (
	_ ports.ChallengeStore = (*RedisChallengeStore)(nil)
	_ ports.SessionStore   = (*RedisSessionStore)(nil)
	_ ports.AttemptStore   = (*RedisAttemptStore)(nil)
)
