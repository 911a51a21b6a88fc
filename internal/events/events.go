// Package events publishes ledger change notifications after a mutation commits.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type names a ledger change. It doubles as the routing key.
type Type string

const (
	LedgerCreated      Type = "ledger.created"
	ExpenseCreated     Type = "expense.created"
	ExpenseUpdated     Type = "expense.updated"
	ExpenseDeleted     Type = "expense.deleted"
	ParticipantChanged Type = "participant.changed"
	CategoryChanged    Type = "category.changed"
	GroupChanged       Type = "group.changed"
)

// Event is a small change message. Consumers fetch the entity itself.
type Event struct {
	Type     Type   `json:"type"`
	CoupleID string `json:"coupleId"`
	EntityID string `json:"entityId"`
	// Version is set for expense events.
	Version   int64     `json:"version,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event stamped with the current time.
func New(t Type, coupleID, entityID, actorID string) Event {
	return Event{
		Type:      t,
		CoupleID:  coupleID,
		EntityID:  entityID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
