package directory

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

const identityPrefix = "zkvault:identity:"

type identityRecord struct {
	Username  string         `json:"username"`
	PublicKey string         `json:"public_key"`
	Salt      string         `json:"salt,omitempty"`
	KDF       core.KDFParams `json:"kdf_params"`
	CreatedAt time.Time      `json:"created_at"`
}

// RedisDirectory persists identities in Redis without expiry; accounts live
// until deleted out of band.
type RedisDirectory struct {
	client *redis.Client
}

// NewRedisDirectory creates a Redis-backed identity directory.
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{client: client}
}

// Lookup implements ports.IdentityDirectory.
func (d *RedisDirectory) Lookup(ctx context.Context, username string) (*core.Identity, error) {
	raw, err := d.client.Get(ctx, identityPrefix+username).Bytes()
	if err == redis.Nil {
		return nil, core.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	var rec identityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	publicKey, err := hex.DecodeString(rec.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return &core.Identity{
		Username:  rec.Username,
		PublicKey: publicKey,
		Salt:      rec.Salt,
		KDF:       rec.KDF,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Create implements ports.IdentityDirectory. SetNX keeps registration atomic:
// the first writer wins, every other one gets core.ErrUserExists.
func (d *RedisDirectory) Create(ctx context.Context, identity *core.Identity) error {
	raw, err := json.Marshal(identityRecord{
		Username:  identity.Username,
		PublicKey: hex.EncodeToString(identity.PublicKey),
		Salt:      identity.Salt,
		KDF:       identity.KDF,
		CreatedAt: identity.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	created, err := d.client.SetNX(ctx, identityPrefix+identity.Username, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	if !created {
		return core.ErrUserExists
	}
	return nil
}

var _ ports.IdentityDirectory = (*RedisDirectory)(nil)
