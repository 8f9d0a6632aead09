// Package event provides a synchronous publish/subscribe bus used to observe
// postoffice components without coupling them.
//
// The loader publishes [ModuleLoadedEvent] after a module executes; a
// mailbox created with a bus publishes [MailboxSetEvent] and
// [MailboxDeletedEvent] on every mutation.
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeModuleLoaded, func(e event.Event) {
//	    loaded := e.(event.ModuleLoadedEvent)
//	    fmt.Println(loaded.Module, loaded.Symbols)
//	})
//
// Handlers run on the publishing goroutine, in registration order.
package event
