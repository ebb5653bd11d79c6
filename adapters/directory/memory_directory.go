// Package directory provides identity directory backends. The authentication
// engine treats the directory as an external collaborator: it reads public
// keys during login and writes only through registration.
package directory

import (
	"context"
	"sync"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

// MemoryDirectory keeps identities in a mutex-guarded map.
type MemoryDirectory struct {
	mu         sync.RWMutex
	identities map[string]*core.Identity
}

// NewMemoryDirectory creates an empty in-memory identity directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{identities: make(map[string]*core.Identity)}
}

// Lookup implements ports.IdentityDirectory.
func (d *MemoryDirectory) Lookup(ctx context.Context, username string) (*core.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	identity, ok := d.identities[username]
	if !ok {
		return nil, core.ErrUnknownUser
	}
	copied := *identity
	return &copied, nil
}

// Create implements ports.IdentityDirectory.
func (d *MemoryDirectory) Create(ctx context.Context, identity *core.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.identities[identity.Username]; ok {
		return core.ErrUserExists
	}
	copied := *identity
	d.identities[identity.Username] = &copied
	return nil
}

var _ ports.IdentityDirectory = (*MemoryDirectory)(nil)
