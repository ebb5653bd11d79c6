package ports

import (
	"context"
	"time"
)

// EventPublisher notifies other instances about authentication lifecycle
// events. Publishing failures must never fail the request that triggered
// them.
type EventPublisher interface {
	PublishLogin(ctx context.Context, username, sessionID string) error
	PublishLockout(ctx context.Context, username string, until time.Time) error
	PublishLogout(ctx context.Context, username, sessionID string) error
}
