package spacevault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/absfs/spacevault/versioned"
)

func mustCreate(t *testing.T, v *Vault, name, password, plaintext string) *Session {
	t.Helper()
	s, err := v.CreateSpace(context.Background(), name, []byte(password), []byte(plaintext))
	if err != nil {
		t.Fatalf("CreateSpace(%q) failed: %v", name, err)
	}
	return s
}

func names(spaces Spaces) []string {
	out := make([]string, len(spaces))
	for i, s := range spaces {
		out[i] = s.Name
	}
	return out
}

func content(t *testing.T, s *Session) string {
	t.Helper()
	d, err := s.Content()
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	return string(d.Plaintext)
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(nil, testConfig()); !errors.Is(err, ErrNilFileSystem) {
		t.Errorf("nil fs: err = %v", err)
	}
	bad := testConfig()
	bad.KeyLength = 5
	if _, err := New(setupTestFS(t), bad); err == nil {
		t.Error("invalid config should be rejected")
	}
	if _, err := New(setupTestFS(t), nil); err != nil {
		t.Errorf("nil config should use defaults: %v", err)
	}
}

func TestVault_Lifecycle(t *testing.T) {
	ctx := context.Background()
	v, err := New(setupTestFS(t), testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := v.CreateSpace(ctx, "x", []byte("pw"), nil); !errors.Is(err, ErrNotOpen) {
		t.Errorf("before Open: err = %v, want ErrNotOpen", err)
	}
	if err := v.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := v.Open(ctx); err != nil {
		t.Errorf("second Open failed: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := v.RemoveSpace(ctx, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("after Close: err = %v, want ErrClosed", err)
	}
	if err := v.Open(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close: err = %v, want ErrClosed", err)
	}
}

func TestVault_CreateAndUnlock(t *testing.T) {
	ctx := context.Background()
	base := setupTestFS(t)
	v := openTestVault(t, base, nil)

	s := mustCreate(t, v, "diary", "secret1", "cat")
	if got := content(t, s); got != "cat" {
		t.Errorf("content = %q, want %q", got, "cat")
	}
	s.Close()

	if got := names(v.Spaces()); len(got) != 1 || got[0] != "diary" {
		t.Fatalf("spaces = %v", got)
	}

	s, err := v.Unlock(ctx, 0, []byte("secret1"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if got := content(t, s); got != "cat" {
		t.Errorf("unlocked content = %q", got)
	}

	if _, err := v.Unlock(ctx, 0, []byte("secret2")); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("wrong password: err = %v, want ErrIncorrectPassword", err)
	}
	if _, err := v.Unlock(ctx, 5, []byte("secret1")); !errors.Is(err, ErrSpaceNotFound) {
		t.Errorf("bad index: err = %v, want ErrSpaceNotFound", err)
	}
	if _, err := v.CreateSpace(ctx, "", []byte("pw"), nil); !IsValidationError(err) {
		t.Errorf("empty name: err = %v, want ValidationError", err)
	}
}

func TestVault_Persistence(t *testing.T) {
	ctx := context.Background()
	base := setupTestFS(t)

	v := openTestVault(t, base, nil)
	s := mustCreate(t, v, "notes", "pw", "v1")
	if err := s.SetPlaintext(ctx, []byte("v2")); err != nil {
		t.Fatalf("SetPlaintext failed: %v", err)
	}
	mustCreate(t, v, "todo", "pw2", "milk").Close()
	v.Wait()
	if v.IsSyncing() {
		t.Error("vault still syncing after Wait")
	}
	want := v.Version()
	v.Close()

	reopened := openTestVault(t, base, nil)
	if reopened.Version() != want {
		t.Errorf("reopened version = %s, want %s", reopened.Version(), want)
	}
	if got := names(reopened.Spaces()); len(got) != 2 || got[0] != "notes" || got[1] != "todo" {
		t.Fatalf("reopened spaces = %v", got)
	}
	s, err := reopened.Unlock(ctx, 0, []byte("pw"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if got := content(t, s); got != "v2" {
		t.Errorf("persisted content = %q, want %q", got, "v2")
	}
}

func TestVault_VersionsIncrease(t *testing.T) {
	v := openTestVault(t, setupTestFS(t), nil)
	if v.Version() != versioned.At(0) {
		t.Fatalf("empty vault version = %s, want 0", v.Version())
	}

	mustCreate(t, v, "a", "pw", "").Close()
	first := v.Version()
	mustCreate(t, v, "b", "pw", "").Close()
	if !first.Less(v.Version()) {
		t.Errorf("version did not increase: %s then %s", first, v.Version())
	}
}

func TestVault_ListOperations(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)
	for _, name := range []string{"a", "b", "c", "d"} {
		mustCreate(t, v, name, "pw", name).Close()
	}

	if err := v.MoveSpace(ctx, 0, 3); err != nil {
		t.Fatalf("MoveSpace failed: %v", err)
	}
	if got := fmt.Sprint(names(v.Spaces())); got != "[b c d a]" {
		t.Errorf("after move down: %s", got)
	}
	if err := v.MoveSpace(ctx, 2, 0); err != nil {
		t.Fatalf("MoveSpace failed: %v", err)
	}
	if got := fmt.Sprint(names(v.Spaces())); got != "[d b c a]" {
		t.Errorf("after move up: %s", got)
	}

	before := v.Version()
	if err := v.MoveSpace(ctx, 1, 1); err != nil {
		t.Fatalf("MoveSpace to same slot failed: %v", err)
	}
	if v.Version() != before {
		t.Error("a no-op move should not create a version")
	}

	if err := v.RenameSpace(ctx, 1, "bee"); err != nil {
		t.Fatalf("RenameSpace failed: %v", err)
	}
	if err := v.RemoveSpace(ctx, 2); err != nil {
		t.Fatalf("RemoveSpace failed: %v", err)
	}
	if got := fmt.Sprint(names(v.Spaces())); got != "[d bee a]" {
		t.Errorf("after rename and remove: %s", got)
	}

	if err := v.RemoveSpace(ctx, 3); !errors.Is(err, ErrSpaceNotFound) {
		t.Errorf("RemoveSpace out of range: err = %v", err)
	}
	if err := v.MoveSpace(ctx, 0, -1); !errors.Is(err, ErrSpaceNotFound) {
		t.Errorf("MoveSpace out of range: err = %v", err)
	}
	if err := v.RenameSpace(ctx, 0, ""); !IsValidationError(err) {
		t.Errorf("RenameSpace to empty: err = %v", err)
	}

	// Renaming keeps the space unlockable
	s, err := v.Unlock(ctx, 1, []byte("pw"))
	if err != nil {
		t.Fatalf("Unlock after rename failed: %v", err)
	}
	if got := content(t, s); got != "b" {
		t.Errorf("content = %q, want %q", got, "b")
	}
}

func TestVault_DuplicateNames(t *testing.T) {
	v := openTestVault(t, setupTestFS(t), nil)
	mustCreate(t, v, "same", "one", "1").Close()
	mustCreate(t, v, "same", "two", "2").Close()

	if got := names(v.Spaces()); len(got) != 2 {
		t.Fatalf("spaces = %v, names need not be unique", got)
	}
}

func TestSession_FollowsSlot(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)
	mustCreate(t, v, "first", "pw", "1").Close()
	s := mustCreate(t, v, "mine", "pw", "2")
	mustCreate(t, v, "last", "pw", "3").Close()

	if err := v.MoveSpace(ctx, 1, 0); err != nil {
		t.Fatalf("MoveSpace failed: %v", err)
	}
	if err := v.RemoveSpace(ctx, 1); err != nil {
		t.Fatalf("RemoveSpace failed: %v", err)
	}

	if err := s.SetPlaintext(ctx, []byte("edited")); err != nil {
		t.Fatalf("SetPlaintext failed: %v", err)
	}
	if err := s.Rename(ctx, "renamed"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if got := fmt.Sprint(names(v.Spaces())); got != "[renamed last]" {
		t.Errorf("spaces = %s", got)
	}
	if name, _ := s.Name(); name != "renamed" {
		t.Errorf("Name() = %q", name)
	}
	if i, err := s.Index(); err != nil || i != 0 {
		t.Errorf("Index() = %d, %v; want 0", i, err)
	}

	u, err := v.Unlock(ctx, 0, []byte("pw"))
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if got := content(t, u); got != "edited" {
		t.Errorf("content = %q, want %q", got, "edited")
	}
}

func TestSession_SpaceRemoved(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)
	s := mustCreate(t, v, "gone", "pw", "x")

	if err := v.RemoveSpace(ctx, 0); err != nil {
		t.Fatalf("RemoveSpace failed: %v", err)
	}
	if _, err := s.Content(); !errors.Is(err, ErrSpaceNotFound) {
		t.Errorf("Content: err = %v, want ErrSpaceNotFound", err)
	}
	if err := s.SetPlaintext(ctx, []byte("y")); !errors.Is(err, ErrSpaceNotFound) {
		t.Errorf("SetPlaintext: err = %v, want ErrSpaceNotFound", err)
	}
	if _, err := s.Index(); !errors.Is(err, ErrSpaceNotFound) {
		t.Errorf("Index: err = %v, want ErrSpaceNotFound", err)
	}
	if len(v.Spaces()) != 0 {
		t.Error("edit of a removed space brought it back")
	}
}

// TestSession_ConcurrentEdits edits different spaces from many goroutines;
// every edit must survive because each merges into the current list.
func TestSession_ConcurrentEdits(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)

	const spaces = 4
	const edits = 25
	sessions := make([]*Session, spaces)
	for i := range sessions {
		sessions[i] = mustCreate(t, v, fmt.Sprintf("s%d", i), "pw", "")
	}

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			for n := 0; n < edits; n++ {
				err := s.Update(ctx, func(p []byte) ([]byte, error) {
					return append(p, 'x'), nil
				})
				if err != nil {
					t.Errorf("session %d edit %d: %v", i, n, err)
					return
				}
			}
		}(i, s)
	}
	wg.Wait()

	for i, s := range sessions {
		if got := content(t, s); len(got) != edits {
			t.Errorf("session %d has %d edits, want %d", i, len(got), edits)
		}
	}

	v.Wait()
	if v.IsSyncing() {
		t.Error("vault still syncing after Wait")
	}
	stored, err := v.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stored.Version != v.Version() {
		t.Errorf("stored version %s, live version %s", stored.Version, v.Version())
	}
}

func TestSession_ChangePassword(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)
	mustCreate(t, v, "other", "pw", "o").Close()
	s := mustCreate(t, v, "mine", "old", "payload")

	if err := s.ChangePassword(ctx, []byte("new")); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if got := content(t, s); got != "payload" {
		t.Errorf("content after password change = %q", got)
	}
	if err := s.SetPlaintext(ctx, []byte("after")); err != nil {
		t.Fatalf("SetPlaintext after password change failed: %v", err)
	}

	if _, err := v.Unlock(ctx, 1, []byte("old")); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("old password: err = %v, want ErrIncorrectPassword", err)
	}
	u, err := v.Unlock(ctx, 1, []byte("new"))
	if err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if got := content(t, u); got != "after" {
		t.Errorf("content = %q, want %q", got, "after")
	}
	if got := names(v.Spaces()); got[0] != "other" {
		t.Errorf("other space disturbed: %v", got)
	}
}

func TestSession_Close(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)
	s := mustCreate(t, v, "x", "pw", "data")
	s.Close()
	s.Close()

	if _, err := s.Content(); !errors.Is(err, ErrClosed) {
		t.Errorf("Content after Close: err = %v", err)
	}
	if err := s.SetPlaintext(ctx, []byte("y")); !errors.Is(err, ErrClosed) {
		t.Errorf("SetPlaintext after Close: err = %v", err)
	}
	if err := s.ChangePassword(ctx, []byte("y")); !errors.Is(err, ErrClosed) {
		t.Errorf("ChangePassword after Close: err = %v", err)
	}
}

func TestVault_FindSpaces(t *testing.T) {
	ctx := context.Background()
	config := testConfig()
	config.Parallel = ParallelConfig{Enabled: true, MaxWorkers: 3}
	v := openTestVault(t, setupTestFS(t), config)

	for i, pw := range []string{"a", "b", "a", "c", "a"} {
		mustCreate(t, v, fmt.Sprintf("s%d", i), pw, pw).Close()
	}

	found, err := v.FindSpaces(ctx, []byte("a"))
	if err != nil {
		t.Fatalf("FindSpaces failed: %v", err)
	}
	var got []string
	for _, s := range found {
		name, err := s.Name()
		if err != nil {
			t.Fatalf("Name failed: %v", err)
		}
		got = append(got, name)
	}
	if fmt.Sprint(got) != "[s0 s2 s4]" {
		t.Errorf("found %v, want [s0 s2 s4]", got)
	}

	none, err := v.FindSpaces(ctx, []byte("zzz"))
	if err != nil || len(none) != 0 {
		t.Errorf("FindSpaces with unknown password = %v, %v", none, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := v.FindSpaces(cancelled, []byte("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled FindSpaces: err = %v", err)
	}
}

func TestVault_Reset(t *testing.T) {
	ctx := context.Background()
	base := setupTestFS(t)
	v := openTestVault(t, base, nil)
	mustCreate(t, v, "a", "pw", "").Close()
	mustCreate(t, v, "b", "pw", "").Close()
	before := v.Version()

	if err := v.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if !before.Less(v.Version()) {
		t.Errorf("version after reset = %s, want above %s", v.Version(), before)
	}
	if len(v.Spaces()) != 0 {
		t.Errorf("spaces after reset = %v", names(v.Spaces()))
	}
	if v.IsSyncing() {
		t.Error("vault syncing after reset")
	}
	v.Wait()
	if stored, err := v.store.Load(ctx); err != nil || len(stored.Data) != 0 {
		t.Errorf("stored after reset = %v, %v", stored.Data, err)
	}

	// The vault keeps working after a reset
	mustCreate(t, v, "c", "pw", "").Close()
	v.Wait()
	v.Close()
	reopened := openTestVault(t, base, nil)
	if got := names(reopened.Spaces()); len(got) != 1 || got[0] != "c" {
		t.Errorf("spaces after reopen = %v", got)
	}
}

func TestVault_ImportExport(t *testing.T) {
	ctx := context.Background()
	src := openTestVault(t, setupTestFS(t), nil)
	mustCreate(t, src, "x", "pw", "exported").Close()
	mustCreate(t, src, "y", "pw", "too").Close()

	var buf bytes.Buffer
	if err := src.Export(&buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := openTestVault(t, setupTestFS(t), nil)
	mustCreate(t, dst, "old", "pw", "").Close()
	if err := dst.Import(ctx, &buf); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if got := fmt.Sprint(names(dst.Spaces())); got != "[x y]" {
		t.Errorf("spaces after import = %s", got)
	}
	if dst.IsSyncing() {
		t.Error("import should leave nothing to sync")
	}
	s, err := dst.Unlock(ctx, 0, []byte("pw"))
	if err != nil {
		t.Fatalf("Unlock of imported space failed: %v", err)
	}
	if got := content(t, s); got != "exported" {
		t.Errorf("imported content = %q", got)
	}

	if err := dst.Import(ctx, bytes.NewBufferString("not a vault")); !IsCorruptionError(err) {
		t.Errorf("bad import: err = %v, want CorruptionError", err)
	}
	if got := len(dst.Spaces()); got != 2 {
		t.Errorf("failed import changed the vault: %d spaces", got)
	}
}

func TestVault_PersistSupersededWrite(t *testing.T) {
	ctx := context.Background()
	v := openTestVault(t, setupTestFS(t), nil)

	if err := v.store.Write(ctx, versioned.Of(5, Spaces{})); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	err := v.persist(ctx, versioned.Of(3, Spaces{}))
	if !errors.Is(err, versioned.ErrSuperseded) {
		t.Fatalf("persist of an older version: err = %v, want ErrSuperseded", err)
	}
	if got := v.sync.Persisted().Version; got == versioned.At(3) {
		t.Error("skipped version recorded as persisted")
	}
}
