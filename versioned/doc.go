// Package versioned provides optimistic, lock-free synchronization of a value
// that is edited in memory and persisted asynchronously.
//
// Every value carries a Version. Accept is the single merge rule: a candidate
// replaces the current value only when it has a version strictly higher than
// the current one. Because the rule is monotonic and idempotent, updates can
// be retried, replayed and delivered out of order without coordination.
//
// A Synchronizer holds the live value that callers edit and the last value
// reported by persistence. Local edits are written back in the background;
// persisted updates are merged in through Observe or Run. Map derives a child
// synchronizer over part of the value:
//
//	list := versioned.NewSynchronizer[[]string](nil, store.Write)
//	go list.Run(ctx, store.Updates())
//
//	first := versioned.Map(list,
//	    func(l []string) (string, error) { return l[0], nil },
//	    func(l []string, s string) ([]string, error) {
//	        out := append([]string(nil), l...)
//	        out[0] = s
//	        return out, nil
//	    })
//	first.Update(ctx, func(s string) (string, error) { return s + "!", nil })
package versioned
