package ports

import (
	"context"

	"github.com/zkvault/zkvault/core"
)

// IdentityDirectory stores account records. The authentication engine only
// ever reads the public key; writes happen exclusively through registration.
type IdentityDirectory interface {
	// Lookup returns the identity or core.ErrUnknownUser.
	Lookup(ctx context.Context, username string) (*core.Identity, error)

	// Create stores a new identity, failing with core.ErrUserExists when
	// the username is taken.
	Create(ctx context.Context, identity *core.Identity) error
}

// VaultStore holds opaque encrypted vault blobs keyed by username. The engine
// gates access by session token; it never inspects blob contents.
type VaultStore interface {
	// Get returns the vault record for the username, or nil when the user
	// has not stored one yet.
	Get(ctx context.Context, username string) (*core.VaultRecord, error)

	// Put stores or replaces the vault record for the username and returns
	// what was stored. When a record already exists its ID and CreatedAt
	// carry over; implementations apply that merge atomically, so
	// concurrent first writes converge on a single ID.
	Put(ctx context.Context, username string, record *core.VaultRecord) (*core.VaultRecord, error)
}
