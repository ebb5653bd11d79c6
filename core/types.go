package core

import (
	"encoding/json"
	"math/big"
	"time"
)

// Challenge is a single-use random value bound to a username. A challenge is
// consumable exactly once: Used flips false to true on the first verification
// attempt that reaches the cryptographic check, whether or not the proof holds.
type Challenge struct {
	ID        string    // Unique identifier, never guessable
	Username  string    // Account the challenge was issued for
	C         *big.Int  // Random scalar in [0, n), n the group order
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge stops being consumable
	Used      bool      // Whether a verification attempt already burned it
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session represents an authenticated session resolved from a bearer token.
type Session struct {
	ID        string    // Unique session identifier
	Username  string    // Authenticated account
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // Zero value means the session only ends on logout
}

// Expired reports whether the session is past its expiry. Sessions without an
// expiry never expire.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// KDFParams describes the client-side key derivation the account was
// registered with. The server stores and returns them verbatim; it never runs
// the KDF itself.
type KDFParams struct {
	Alg         string `json:"alg"`
	MemKiB      int    `json:"mem_kib,omitempty"`
	Iterations  int    `json:"iter"`
	Parallelism int    `json:"par,omitempty"`
}

// Identity is an account record in the identity directory. PublicKey holds the
// encoded group element Y = x*G; the secret x never leaves the client.
type Identity struct {
	Username  string
	PublicKey []byte
	Salt      string
	KDF       KDFParams
	CreatedAt time.Time
}

// VaultRecord wraps an opaque encrypted vault blob. The blob is ciphertext the
// server never inspects; ID and CreatedAt are assigned server-side on first
// write.
type VaultRecord struct {
	ID        string          `json:"id"`
	Blob      json.RawMessage `json:"blob"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AttemptRecord tracks failed verification attempts for a username.
// FailedAttempts never decreases except through a full reset on success or
// block expiry.
type AttemptRecord struct {
	Username       string
	FailedAttempts int
	BlockedUntil   time.Time // Zero value means not blocked
}

// Blocked reports whether the record is inside its lockout window.
func (a *AttemptRecord) Blocked(now time.Time) bool {
	return !a.BlockedUntil.IsZero() && now.Before(a.BlockedUntil)
}
