// Package events publishes authentication lifecycle events so other
// instances can react to logins, lockouts and logouts.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/zkvault/zkvault/ports"
)

const (
	// TopicLogin carries successful proof verifications.
	TopicLogin = "auth.login"

	// TopicLockout carries brute-force lockout activations.
	TopicLockout = "auth.lockout"

	// TopicLogout carries explicit session revocations.
	TopicLogout = "auth.logout"
)

// LoginEvent is published on successful verification.
type LoginEvent struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

// LockoutEvent is published when a username enters its lockout window.
type LockoutEvent struct {
	Username string    `json:"username"`
	Until    time.Time `json:"until"`
}

// LogoutEvent is published on explicit logout.
type LogoutEvent struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

// WatermillPublisher implements ports.EventPublisher over a watermill
// message.Publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a watermill-backed event publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// PublishLogin implements ports.EventPublisher.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, username, sessionID string) error {
	return p.publish(TopicLogin, LoginEvent{Username: username, SessionID: sessionID})
}

// PublishLockout implements ports.EventPublisher.
func (p *WatermillPublisher) PublishLockout(ctx context.Context, username string, until time.Time) error {
	return p.publish(TopicLockout, LockoutEvent{Username: username, Until: until})
}

// PublishLogout implements ports.EventPublisher.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, username, sessionID string) error {
	return p.publish(TopicLogout, LogoutEvent{Username: username, SessionID: sessionID})
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)
