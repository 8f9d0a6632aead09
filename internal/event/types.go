package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier (e.g. "module.loaded").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeModuleLoaded   = "module.loaded"
	TypeMailboxSet     = "mailbox.set"
	TypeMailboxDeleted = "mailbox.deleted"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// ModuleLoadedEvent is emitted after a module has been resolved, decoded and
// executed.
type ModuleLoadedEvent struct {
	baseEvent
	Module  string   // Module name
	Path    string   // Resolved source path
	Symbols []string // Top-level names in definition order
}

// NewModuleLoadedEvent creates a ModuleLoadedEvent.
func NewModuleLoadedEvent(module, path string, symbols []string) ModuleLoadedEvent {
	return ModuleLoadedEvent{
		baseEvent: newBaseEvent(TypeModuleLoaded),
		Module:    module,
		Path:      path,
		Symbols:   symbols,
	}
}

// MailboxSetEvent is emitted when a mailbox key is inserted or overwritten.
type MailboxSetEvent struct {
	baseEvent
	Key      string
	Inserted bool // false when an existing entry was overwritten
}

// NewMailboxSetEvent creates a MailboxSetEvent.
func NewMailboxSetEvent(key string, inserted bool) MailboxSetEvent {
	return MailboxSetEvent{
		baseEvent: newBaseEvent(TypeMailboxSet),
		Key:       key,
		Inserted:  inserted,
	}
}

// MailboxDeletedEvent is emitted when a mailbox key is removed.
type MailboxDeletedEvent struct {
	baseEvent
	Key string
}

// NewMailboxDeletedEvent creates a MailboxDeletedEvent.
func NewMailboxDeletedEvent(key string) MailboxDeletedEvent {
	return MailboxDeletedEvent{
		baseEvent: newBaseEvent(TypeMailboxDeleted),
		Key:       key,
	}
}
