package versioned

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNoChange may be returned by an Update function to leave the value
// untouched. Update then returns the current value and a nil error.
var ErrNoChange = errors.New("no change")

// ErrSuperseded may be returned by a WriteFunc that skipped a value because
// a newer one has replaced it. The value is not recorded as persisted and
// nothing is logged as a failure.
var ErrSuperseded = errors.New("superseded by a newer value")

// WriteFunc persists a whole value. Implementations must refuse values that
// are not newer than what they already hold, because concurrent writes may
// complete out of order.
type WriteFunc[T any] func(ctx context.Context, v Versioned[T]) error

// Logger receives diagnostics that are never returned as errors
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// Option configures a Synchronizer
type Option func(*options)

type options struct {
	logger Logger
}

// WithLogger sets the logger used for persistence and merge-back failures
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Synchronizer reconciles a live, locally edited value with a value that is
// persisted asynchronously.
//
// The live value is only ever replaced through a compare-and-swap loop
// guarded by Accept, so readers never block and concurrent writers never
// lose each other's edits. Persisted values reported through Observe (or Run)
// are merged with the same rule, so an external change can advance the live
// value but never clobber a newer unsaved edit.
type Synchronizer[T any] struct {
	live      atomic.Pointer[Versioned[T]]
	persisted atomic.Pointer[Versioned[T]]
	epoch     atomic.Uint64

	counter *Counter
	write   WriteFunc[T]
	log     Logger
	writes  sync.WaitGroup

	mu          sync.Mutex
	subscribers map[*Mailbox[Versioned[T]]]struct{}
}

// NewSynchronizer creates a synchronizer whose live value starts unversioned
// at initial. write may be nil, in which case nothing is persisted.
func NewSynchronizer[T any](initial T, write WriteFunc[T], opts ...Option) *Synchronizer[T] {
	o := options{logger: nopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Synchronizer[T]{
		counter:     NewCounter(),
		write:       write,
		log:         o.logger,
		subscribers: make(map[*Mailbox[Versioned[T]]]struct{}),
	}
	start := Versioned[T]{Data: initial}
	s.live.Store(&start)
	persisted := start
	s.persisted.Store(&persisted)
	return s
}

// Value returns a snapshot of the live value
func (s *Synchronizer[T]) Value() Versioned[T] {
	return *s.live.Load()
}

// Persisted returns the last value persistence reported
func (s *Synchronizer[T]) Persisted() Versioned[T] {
	return *s.persisted.Load()
}

// IsSyncing reports whether the persisted value lags the live value, that
// is whether a write is outstanding or has failed.
func (s *Synchronizer[T]) IsSyncing() bool {
	live := s.live.Load().Version
	return live.Valid && s.persisted.Load().Version.Less(live)
}

// Counter returns the version counter used by Update
func (s *Synchronizer[T]) Counter() *Counter {
	return s.counter
}

// SetValue merges v into the live value. It returns false when v is rejected
// by Accept; re-applying an accepted value is therefore a no-op.
func (s *Synchronizer[T]) SetValue(v Versioned[T]) bool {
	for {
		cur := s.live.Load()
		if !Accept(*cur, v) {
			return false
		}
		next := v
		if s.live.CompareAndSwap(cur, &next) {
			s.accepted(next)
			return true
		}
	}
}

// Update applies fn to the current live value under a fresh version. fn
// may run more than once when another writer wins the race, so it must not
// have side effects. If fn returns ErrNoChange the live value is kept and
// returned without error.
func (s *Synchronizer[T]) Update(ctx context.Context, fn func(T) (T, error)) (Versioned[T], error) {
	for {
		cur := s.live.Load()
		// SetValue may have installed a version the counter never issued
		s.counter.advance(cur.Version)
		version, err := s.counter.Next(ctx)
		if err != nil {
			return *cur, err
		}

		data, err := fn(cur.Data)
		if errors.Is(err, ErrNoChange) {
			return *cur, nil
		}
		if err != nil {
			return *cur, err
		}

		next := Versioned[T]{Version: version, Data: data}
		if !Accept(*cur, next) {
			continue
		}
		if s.live.CompareAndSwap(cur, &next) {
			s.accepted(next)
			return next, nil
		}
	}
}

// Observe records a value reported by persistence and merges it into the
// live value.
func (s *Synchronizer[T]) Observe(v Versioned[T]) {
	s.counter.Observe(v.Version)

	for {
		cur := s.persisted.Load()
		if !Accept(*cur, v) {
			break
		}
		next := v
		if s.persisted.CompareAndSwap(cur, &next) {
			break
		}
	}

	for {
		cur := s.live.Load()
		if !Accept(*cur, v) {
			return
		}
		next := v
		if s.live.CompareAndSwap(cur, &next) {
			s.notify(next)
			return
		}
	}
}

// Run feeds persisted values from updates into Observe until ctx is done.
// Values that arrive while one is being processed are coalesced.
func (s *Synchronizer[T]) Run(ctx context.Context, updates *Mailbox[Versioned[T]]) error {
	for {
		v, err := updates.Take(ctx)
		if err != nil {
			return err
		}
		s.Observe(v)
	}
}

// Reset discards pending local edits and sets the live value back to the
// last persisted value. Writes of the abandoned state that have not started
// yet are dropped; writes already in flight are allowed to complete.
func (s *Synchronizer[T]) Reset() {
	s.epoch.Add(1)
	p := s.persisted.Load()
	s.live.Store(p)
	s.notify(*p)
}

// ResetTo replaces both the persisted and the live value with v. It is used
// when persisted data was replaced wholesale, for example by an import.
func (s *Synchronizer[T]) ResetTo(v Versioned[T]) {
	s.epoch.Add(1)
	s.counter.Observe(v.Version)
	persisted, live := v, v
	s.persisted.Store(&persisted)
	s.live.Store(&live)
	s.notify(v)
}

// Wait blocks until all in-flight writes have completed
func (s *Synchronizer[T]) Wait() {
	s.writes.Wait()
}

// Subscribe returns a mailbox that receives every new live value, starting
// with the current one. The returned function cancels the subscription.
func (s *Synchronizer[T]) Subscribe() (*Mailbox[Versioned[T]], func()) {
	mb := NewMailbox[Versioned[T]]()
	s.mu.Lock()
	s.subscribers[mb] = struct{}{}
	s.mu.Unlock()
	mb.Put(s.Value())

	return mb, func() {
		s.mu.Lock()
		delete(s.subscribers, mb)
		s.mu.Unlock()
	}
}

func (s *Synchronizer[T]) notify(v Versioned[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mb := range s.subscribers {
		mb.Put(v)
	}
}

// accepted runs after v has been swapped in as the live value
func (s *Synchronizer[T]) accepted(v Versioned[T]) {
	s.notify(v)

	if s.write == nil || !s.persisted.Load().Version.Less(v.Version) {
		return
	}

	epoch := s.epoch.Load()
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		if s.epoch.Load() != epoch {
			s.log.Debugf("dropping write of version %s: state was reset", v.Version)
			return
		}
		err := s.write(context.Background(), v)
		switch {
		case errors.Is(err, ErrSuperseded):
			s.log.Debugf("version %s was not persisted: %v", v.Version, err)
			return
		case err != nil:
			s.log.Warnf("failed to persist version %s: %v", v.Version, err)
			return
		}
		if s.epoch.Load() == epoch {
			s.Observe(v)
		}
	}()
}
