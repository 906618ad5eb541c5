// Package events publishes user and role lifecycle events so other services can
// react to identity changes without polling.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	UserCreated         = "user.created"
	UserUpdated         = "user.updated"
	UserPasswordChanged = "user.password_changed"
	UserDeleted         = "user.deleted"
	UserRolesReplaced   = "user.roles_replaced"
	RoleCreated         = "role.created"
	RoleRenamed         = "role.renamed"
	RoleDeleted         = "role.deleted"
)

// Event is the message body published for every lifecycle change.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       string            `json:"type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New builds an event with a fresh id and timestamp.
func New(eventType string, entityID uuid.UUID, attrs map[string]string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		EntityID:   entityID,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emit publishes event and logs delivery failures. Events are emitted after the
// change is committed, so a publish failure never fails the operation.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish event", "type", event.Type, "entityId", event.EntityID, "error", err)
	}
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// RecordingPublisher keeps events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *RecordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Types returns the recorded event types in publish order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}
