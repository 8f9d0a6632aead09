package mailbox

import (
	"fmt"
	"iter"
	"slices"

	"github.com/Iron-Ham/postoffice/internal/errors"
	"github.com/Iron-Ham/postoffice/internal/event"
)

// Mailbox is an insertion-ordered associative container.
type Mailbox[K comparable, V any] struct {
	index map[K]int // key -> position in keys and vals
	keys  []K
	vals  []V
	bus   *event.Bus
}

// New creates an empty Mailbox.
func New[K comparable, V any](opts ...Option) *Mailbox[K, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Mailbox[K, V]{
		index: make(map[K]int),
		bus:   o.bus,
	}
}

// Get returns the value stored under key, or a *errors.KeyNotFoundError.
func (m *Mailbox[K, V]) Get(key K) (V, error) {
	i, ok := m.index[key]
	if !ok {
		var zero V
		return zero, errors.NewKeyNotFoundError(key)
	}
	return m.vals[i], nil
}

// Has reports whether key is set.
func (m *Mailbox[K, V]) Has(key K) bool {
	_, ok := m.index[key]
	return ok
}

// Set inserts value under key, or overwrites the existing value in place.
func (m *Mailbox[K, V]) Set(key K, value V) {
	i, ok := m.index[key]
	if ok {
		m.vals[i] = value
	} else {
		m.index[key] = len(m.keys)
		m.keys = append(m.keys, key)
		m.vals = append(m.vals, value)
	}
	if m.bus != nil {
		m.bus.Publish(event.NewMailboxSetEvent(fmt.Sprint(key), !ok))
	}
}

// Delete removes key, or returns a *errors.KeyNotFoundError if it is absent.
func (m *Mailbox[K, V]) Delete(key K) error {
	i, ok := m.index[key]
	if !ok {
		return errors.NewKeyNotFoundError(key)
	}

	m.keys = slices.Delete(m.keys, i, i+1)
	m.vals = slices.Delete(m.vals, i, i+1)
	delete(m.index, key)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}

	if m.bus != nil {
		m.bus.Publish(event.NewMailboxDeletedEvent(fmt.Sprint(key)))
	}
	return nil
}

// Keys returns a lazy sequence of the current keys in insertion order.
// Mutating the Mailbox while ranging over the sequence is not supported.
func (m *Mailbox[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, k := range m.keys {
			if !yield(k) {
				return
			}
		}
	}
}

// All returns a lazy sequence of key/value pairs in insertion order.
func (m *Mailbox[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, k := range m.keys {
			if !yield(k, m.vals[i]) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (m *Mailbox[K, V]) Len() int {
	return len(m.keys)
}

// Clear removes every entry. No events are published.
func (m *Mailbox[K, V]) Clear() {
	clear(m.index)
	m.keys = nil
	m.vals = nil
}
