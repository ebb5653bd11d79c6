// Package vault provides opaque blob storage backends. Blob contents are
// ciphertext produced client-side; the server only gates access by session.
package vault

import (
	"context"
	"sync"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

// MemoryVault keeps vault records in a mutex-guarded map.
type MemoryVault struct {
	mu      sync.RWMutex
	records map[string]*core.VaultRecord
}

// NewMemoryVault creates an empty in-memory vault store.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{records: make(map[string]*core.VaultRecord)}
}

// Get implements ports.VaultStore.
func (v *MemoryVault) Get(ctx context.Context, username string) (*core.VaultRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	record, ok := v.records[username]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// Put implements ports.VaultStore. The merge with an existing record happens
// under the write lock, so concurrent first writes settle on one ID.
func (v *MemoryVault) Put(ctx context.Context, username string, record *core.VaultRecord) (*core.VaultRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	copied := *record
	if existing, ok := v.records[username]; ok {
		copied.ID = existing.ID
		copied.CreatedAt = existing.CreatedAt
	}
	stored := copied
	v.records[username] = &stored
	return &copied, nil
}

var _ ports.VaultStore = (*MemoryVault)(nil)
