package mailbox

import "github.com/Iron-Ham/postoffice/internal/event"

type options struct {
	bus *event.Bus
}

// Option configures a Mailbox.
type Option func(*options)

// WithBus attaches an event bus to the Mailbox. When set, a MailboxSetEvent
// is published after every Set and a MailboxDeletedEvent after every
// successful Delete.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}
