package service

import (
	"context"
	"time"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

const (
	// DefaultMaxAttempts is the failure count that triggers a lockout.
	DefaultMaxAttempts = 5

	// DefaultBlockDuration is how long a locked-out username stays blocked.
	DefaultBlockDuration = 15 * time.Minute
)

// Guard enforces the brute-force lockout policy. It is consulted before any
// cryptographic work happens, so a blocked username never consumes a
// challenge or touches the group arithmetic.
type Guard struct {
	attempts    ports.AttemptStore
	maxAttempts int
	blockFor    time.Duration
	now         func() time.Time
}

// NewGuard creates a guard over the given attempt store. Non-positive limits
// fall back to the defaults.
func NewGuard(attempts ports.AttemptStore, maxAttempts int, blockFor time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if blockFor <= 0 {
		blockFor = DefaultBlockDuration
	}
	return &Guard{
		attempts:    attempts,
		maxAttempts: maxAttempts,
		blockFor:    blockFor,
		now:         time.Now,
	}
}

// Check returns a core.LockoutError while the username is inside its lockout
// window. An expired block resets the failure count on observation.
func (g *Guard) Check(ctx context.Context, username string) error {
	record, err := g.attempts.Get(ctx, username)
	if err != nil {
		return err
	}
	now := g.now()
	if record.Blocked(now) {
		return &core.LockoutError{Until: record.BlockedUntil}
	}
	if !record.BlockedUntil.IsZero() {
		// Block has elapsed; the slate is wiped clean.
		if err := g.attempts.Reset(ctx, username); err != nil {
			return err
		}
	}
	return nil
}

// RecordFailure counts one failed proof. When the count reaches the limit it
// activates the lockout window and reports the unblock time.
func (g *Guard) RecordFailure(ctx context.Context, username string) (locked bool, until time.Time, err error) {
	record, err := g.attempts.RecordFailure(ctx, username)
	if err != nil {
		return false, time.Time{}, err
	}
	if record.FailedAttempts < g.maxAttempts {
		return false, time.Time{}, nil
	}
	until = g.now().Add(g.blockFor)
	if err := g.attempts.SetBlock(ctx, username, until); err != nil {
		return false, time.Time{}, err
	}
	return true, until, nil
}

// RecordSuccess resets the failure count and any block.
func (g *Guard) RecordSuccess(ctx context.Context, username string) error {
	return g.attempts.Reset(ctx, username)
}
