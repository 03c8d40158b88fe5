package sdk

import "github.com/blockberries/appcore/types"

// Common event kinds and attribute keys.
const (
	EventTypeMessage = "message"
	EventTypeTx      = "tx"

	AttributeKeyAction   = "action"
	AttributeKeyModule   = "module"
	AttributeKeySender   = "sender"
	AttributeKeyFee      = "fee"
	AttributeKeySequence = "acc_seq"
	AttributeKeyAmount   = "amount"
)

// NewAttribute returns an indexed attribute.
func NewAttribute(key, value string) types.EventAttribute {
	return types.EventAttribute{Key: key, Value: value, Index: true}
}

// NewEvent builds an event.
func NewEvent(kind string, attrs ...types.EventAttribute) types.Event {
	return types.Event{Kind: kind, Attributes: attrs}
}

// EventManager collects the events emitted during one execution.
type EventManager struct {
	events []types.Event
}

// NewEventManager returns an empty manager.
func NewEventManager() *EventManager { return &EventManager{} }

// Emit records an event.
func (em *EventManager) Emit(event types.Event) {
	em.events = append(em.events, event)
}

// EmitEvents records several events.
func (em *EventManager) EmitEvents(events []types.Event) {
	em.events = append(em.events, events...)
}

// Events returns the recorded events in emission order.
func (em *EventManager) Events() []types.Event { return em.events }
