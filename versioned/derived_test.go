package versioned

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// entryView projects the "key=value" entry with the given key out of a list
func entryView(parent *Synchronizer[[]string], key string) *Derived[[]string, string] {
	find := func(list []string) int {
		for i, e := range list {
			if strings.HasPrefix(e, key+"=") {
				return i
			}
		}
		return -1
	}

	return Map(parent,
		func(list []string) (string, error) {
			i := find(list)
			if i < 0 {
				return "", fmt.Errorf("no entry %q", key)
			}
			return strings.TrimPrefix(list[i], key+"="), nil
		},
		func(list []string, value string) ([]string, error) {
			if value == "" {
				return nil, errors.New("empty value")
			}
			i := find(list)
			if i < 0 {
				return nil, fmt.Errorf("no entry %q", key)
			}
			out := append([]string(nil), list...)
			out[i] = key + "=" + value
			return out, nil
		})
}

func TestDerived_UpdateMergesIntoCurrentParent(t *testing.T) {
	parent := NewSynchronizer[[]string](nil, nil)
	parent.Observe(Of(1, []string{"a=1", "b=2"}))

	a := entryView(parent, "a")

	// Another writer edits the list after the child was created
	if _, err := parent.Update(context.Background(), func(l []string) ([]string, error) {
		return append(append([]string(nil), l...), "c=3"), nil
	}); err != nil {
		t.Fatalf("parent Update: %v", err)
	}

	v, err := a.Update(context.Background(), func(s string) (string, error) {
		return s + "0", nil
	})
	if err != nil {
		t.Fatalf("child Update: %v", err)
	}
	if v.Data != "10" {
		t.Fatalf("child value = %q, want 10", v.Data)
	}

	got := strings.Join(parent.Value().Data, ",")
	if got != "a=10,b=2,c=3" {
		t.Fatalf("parent = %s", got)
	}
	if parent.Value().Version != v.Version {
		t.Fatalf("parent version %s != child version %s", parent.Value().Version, v.Version)
	}
}

func TestDerived_BackwardFailureIsNoOp(t *testing.T) {
	log := &recordingLogger{}
	parent := NewSynchronizer[[]string](nil, nil, WithLogger(log))
	parent.Observe(Of(1, []string{"a=1"}))
	a := entryView(parent, "a")

	v, err := a.Update(context.Background(), func(string) (string, error) {
		return "", nil
	})
	if err != nil {
		t.Fatalf("failed merge-back surfaced as error: %v", err)
	}
	if v.Data != "1" || v.Version != At(1) {
		t.Fatalf("child after failed merge-back = %+v", v)
	}
	if parent.Value().Version != At(1) {
		t.Fatalf("parent version moved to %s", parent.Value().Version)
	}

	if a.SetValue(Of(9, "")) {
		t.Fatal("SetValue with failing backward transform reported success")
	}
	if parent.Value().Version != At(1) {
		t.Fatalf("parent version moved to %s", parent.Value().Version)
	}
	if log.count() != 2 {
		t.Fatalf("logged %d warnings, want 2", log.count())
	}
}

func TestDerived_SetValue(t *testing.T) {
	store := &fakeStore[[]string]{}
	parent := NewSynchronizer[[]string](nil, store.write)
	parent.Observe(Of(1, []string{"a=1", "b=2"}))
	b := entryView(parent, "b")

	if !b.SetValue(Of(4, "20")) {
		t.Fatal("SetValue rejected newer value")
	}
	if b.SetValue(Of(4, "30")) {
		t.Fatal("SetValue accepted a value at the current version")
	}
	parent.Wait()

	held, writes := store.snapshot()
	if writes != 1 || strings.Join(held.Data, ",") != "a=1,b=20" {
		t.Fatalf("store holds %v after %d writes", held.Data, writes)
	}
	if b.IsSyncing() {
		t.Fatal("child reports syncing after write completed")
	}
}

func TestDerived_ForwardError(t *testing.T) {
	parent := NewSynchronizer[[]string](nil, nil)
	parent.Observe(Of(1, []string{"a=1"}))
	missing := entryView(parent, "zzz")

	if _, err := missing.Value(); err == nil {
		t.Fatal("expected error projecting a missing entry")
	}
	if _, err := missing.Update(context.Background(), func(s string) (string, error) {
		return s, nil
	}); err == nil {
		t.Fatal("expected error updating a missing entry")
	}
}
