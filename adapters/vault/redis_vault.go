package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zkvault/zkvault/core"
	"github.com/zkvault/zkvault/ports"
)

const vaultPrefix = "zkvault:vault:"

// putScript stores the record, carrying the ID and CreatedAt of any existing
// record over inside Redis so the merge cannot race a concurrent writer.
var putScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if not existing then
  redis.call('SET', KEYS[1], ARGV[1])
  return ARGV[1]
end
local old = cjson.decode(existing)
local new = cjson.decode(ARGV[1])
new.id = old.id
new.created_at = old.created_at
local encoded = cjson.encode(new)
redis.call('SET', KEYS[1], encoded)
return encoded
`)

// RedisVault persists vault records in Redis without expiry.
type RedisVault struct {
	client *redis.Client
}

// NewRedisVault creates a Redis-backed vault store.
func NewRedisVault(client *redis.Client) *RedisVault {
	return &RedisVault{client: client}
}

// Get implements ports.VaultStore.
func (v *RedisVault) Get(ctx context.Context, username string) (*core.VaultRecord, error) {
	raw, err := v.client.Get(ctx, vaultPrefix+username).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	var record core.VaultRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return &record, nil
}

// Put implements ports.VaultStore.
func (v *RedisVault) Put(ctx context.Context, username string, record *core.VaultRecord) (*core.VaultRecord, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	res, err := putScript.Run(ctx, v.client, []string{vaultPrefix + username}, string(raw)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	stored, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected script reply", core.ErrStoreOperationFailed)
	}
	var out core.VaultRecord
	if err := json.Unmarshal([]byte(stored), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return &out, nil
}

var _ ports.VaultStore = (*RedisVault)(nil)
