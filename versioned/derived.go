package versioned

import "context"

// Derived is a child synchronizer over a projection of its parent's value.
// It holds no state of its own: reads project the parent's live value and
// writes are merged back into whatever the parent holds at that moment.
type Derived[P, C any] struct {
	parent   *Synchronizer[P]
	forward  func(P) (C, error)
	backward func(current P, child C) (P, error)
}

// Map derives a child synchronizer from parent. forward projects the parent
// value; backward merges an edited child value into the current parent value.
func Map[P, C any](parent *Synchronizer[P], forward func(P) (C, error), backward func(current P, child C) (P, error)) *Derived[P, C] {
	return &Derived[P, C]{
		parent:   parent,
		forward:  forward,
		backward: backward,
	}
}

// Value projects the parent's live value
func (d *Derived[P, C]) Value() (Versioned[C], error) {
	v := d.parent.Value()
	c, err := d.forward(v.Data)
	if err != nil {
		return Versioned[C]{Version: v.Version}, err
	}
	return Versioned[C]{Version: v.Version, Data: c}, nil
}

// IsSyncing reports the parent's syncing state
func (d *Derived[P, C]) IsSyncing() bool {
	return d.parent.IsSyncing()
}

// SetValue merges v back into the parent under v's version. A failing
// backward transform is logged and leaves the parent unchanged.
func (d *Derived[P, C]) SetValue(v Versioned[C]) bool {
	for {
		cur := d.parent.live.Load()
		if !Accept(Versioned[C]{Version: cur.Version}, v) {
			return false
		}
		merged, err := d.backward(cur.Data, v.Data)
		if err != nil {
			d.parent.log.Warnf("discarding edit at version %s: %v", v.Version, err)
			return false
		}
		next := Versioned[P]{Version: v.Version, Data: merged}
		if d.parent.live.CompareAndSwap(cur, &next) {
			d.parent.accepted(next)
			return true
		}
	}
}

// Update applies fn to the projected value and merges the result back under
// a fresh version. Errors from forward or fn are returned; a failing backward
// transform is logged and treated as no change.
func (d *Derived[P, C]) Update(ctx context.Context, fn func(C) (C, error)) (Versioned[C], error) {
	v, err := d.parent.Update(ctx, func(p P) (P, error) {
		c, err := d.forward(p)
		if err != nil {
			return p, err
		}
		c, err = fn(c)
		if err != nil {
			return p, err
		}
		next, err := d.backward(p, c)
		if err != nil {
			d.parent.log.Warnf("discarding edit: %v", err)
			return p, ErrNoChange
		}
		return next, nil
	})
	if err != nil {
		return Versioned[C]{Version: v.Version}, err
	}

	c, err := d.forward(v.Data)
	if err != nil {
		return Versioned[C]{Version: v.Version}, err
	}
	return Versioned[C]{Version: v.Version, Data: c}, nil
}
