// Package mailbox provides an insertion-ordered key-value container.
//
// A [Mailbox] exposes the mapping capability set (get, set, delete,
// iterate, length) over a backing map. Keys are unique; overwriting a key
// keeps its original position, and iteration yields keys in the order they
// were first inserted.
//
// # Basic Usage
//
//	mb := mailbox.New[string, int]()
//	mb.Set("a", 1)
//	mb.Set("b", 2)
//
//	v, err := mb.Get("a") // 1, nil
//	_ = mb.Delete("a")
//	_, err = mb.Get("a")  // *errors.KeyNotFoundError
//
//	for k := range mb.Keys() {
//	    fmt.Println(k)
//	}
//
// # Observing Changes
//
// Pass [WithBus] to publish event.MailboxSetEvent and
// event.MailboxDeletedEvent after every mutation.
//
// # Thread Safety
//
// A Mailbox is not safe for concurrent use. Callers sharing one across
// goroutines must provide their own synchronization.
package mailbox
