package versioned

import (
	"context"
	"sync/atomic"
)

// Mailbox is a single-slot mailbox. Put overwrites any value that has not
// been taken yet, so a slow consumer only ever sees the latest value.
type Mailbox[T any] struct {
	value  atomic.Pointer[T]
	signal chan struct{}
}

// NewMailbox creates an empty mailbox
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{signal: make(chan struct{}, 1)}
}

// Put stores v, replacing any unconsumed value
func (m *Mailbox[T]) Put(v T) {
	m.value.Store(&v)
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Take blocks until a value is available or ctx is done
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	for {
		select {
		case <-m.signal:
			// A signal can outlive the value it announced when a previous
			// Take already swapped the newer value out.
			if p := m.value.Swap(nil); p != nil {
				return *p, nil
			}
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryTake returns the pending value without blocking
func (m *Mailbox[T]) TryTake() (T, bool) {
	if p := m.value.Swap(nil); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}
