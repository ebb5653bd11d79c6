package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownUser is returned when the identity directory has no record
	// for the requested username.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrChallengeNotFound is returned when a challenge id does not resolve.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a challenge is past its expiry.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrChallengeUsed is returned when a challenge was already consumed.
	ErrChallengeUsed = errors.New("challenge already used")

	// ErrMalformedProof is returned when a submitted commitment, public key
	// or response scalar does not decode to a valid group element or scalar.
	ErrMalformedProof = errors.New("malformed proof")

	// ErrInvalidProof is returned when a well-formed proof fails the
	// verification equation. Only this error counts toward lockout.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrLockedOut is returned while a username is inside its lockout
	// window. Match with errors.Is; the concrete value is a LockoutError
	// carrying the unblock time.
	ErrLockedOut = errors.New("account locked out")

	// ErrUnauthenticated is returned when a session token is unknown,
	// expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidRequest is returned for structurally invalid requests that
	// never reach the cryptographic path.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStoreOperationFailed is returned when a backing store fails.
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// LockoutError reports that a username is blocked until a point in time.
// errors.Is(err, ErrLockedOut) holds for it.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked out until %s", e.Until.Format(time.RFC3339))
}

func (e *LockoutError) Unwrap() error {
	return ErrLockedOut
}
