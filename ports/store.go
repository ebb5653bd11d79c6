package ports

import (
	"context"
	"time"

	"github.com/zkvault/zkvault/core"
)

// ChallengeStore owns challenge records keyed by challenge id. Implementations
// must make Consume atomic with respect to the Used flag: of two concurrent
// consumers exactly one receives the record, the other core.ErrChallengeUsed.
type ChallengeStore interface {
	// Save persists a freshly issued challenge.
	Save(ctx context.Context, challenge *core.Challenge) error

	// Get returns the challenge without mutating it. It returns
	// core.ErrChallengeNotFound for unknown ids, core.ErrChallengeExpired
	// past the expiry and core.ErrChallengeUsed for consumed ones.
	Get(ctx context.Context, id string, now time.Time) (*core.Challenge, error)

	// Consume atomically flips Used from false to true and returns the
	// record. Error cases match Get.
	Consume(ctx context.Context, id string, now time.Time) (*core.Challenge, error)
}

// SessionStore maps opaque lookup keys to sessions. Expired sessions are
// evicted on lookup.
type SessionStore interface {
	// Save persists a session under the given key.
	Save(ctx context.Context, key string, session *core.Session) error

	// Get returns the session or core.ErrUnauthenticated when the key is
	// unknown or the session is past its expiry.
	Get(ctx context.Context, key string, now time.Time) (*core.Session, error)

	// Delete removes the session unconditionally. Deleting an unknown key
	// is not an error.
	Delete(ctx context.Context, key string) error
}

// AttemptStore tracks failed verification attempts per username. RecordFailure
// must increment atomically so concurrent failures are never lost.
type AttemptStore interface {
	// Get returns the record for the username, or a zero record when none
	// exists yet.
	Get(ctx context.Context, username string) (*core.AttemptRecord, error)

	// RecordFailure increments the failure count and returns the updated
	// record.
	RecordFailure(ctx context.Context, username string) (*core.AttemptRecord, error)

	// SetBlock marks the username as blocked until the given time.
	SetBlock(ctx context.Context, username string, until time.Time) error

	// Reset clears the failure count and any block.
	Reset(ctx context.Context, username string) error
}
