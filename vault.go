package spacevault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/absfs/absfs"

	"github.com/absfs/spacevault/internal/logging"
	"github.com/absfs/spacevault/versioned"
)

// Vault is the space list of one vault file. Edits are applied to an
// in-memory copy at once and persisted in the background; changes made by
// other processes are picked up by polling the file.
type Vault struct {
	config *Config
	store  *Store
	sync   *versioned.Synchronizer[Spaces]
	log    Logger

	mu     sync.Mutex
	opened bool
	closed bool
	cancel context.CancelFunc
	loops  sync.WaitGroup
	unsub  func()
}

// New creates a vault stored in base. A nil config uses DefaultConfig.
// Nothing is read until Open.
func New(base absfs.FileSystem, config *Config) (*Vault, error) {
	if base == nil {
		return nil, ErrNilFileSystem
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Logger
	if log == nil {
		log = logging.Logger{}
	}
	store, err := NewStore(base, config.Path, log)
	if err != nil {
		return nil, err
	}
	return newVault(store, config, log), nil
}

func newVault(store *Store, config *Config, log Logger) *Vault {
	v := &Vault{
		config: config,
		store:  store,
		log:    log,
	}
	v.sync = versioned.NewSynchronizer(Spaces{}, v.persist, versioned.WithLogger(log))
	return v
}

// Open loads the vault file and starts following it. Version numbers for
// edits are only issued once the stored version is known.
func (v *Vault) Open(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.opened {
		return nil
	}

	loaded, err := v.store.Load(ctx)
	if err != nil {
		return err
	}
	v.sync.Observe(loaded)

	updates, unsub := v.store.Subscribe()
	runCtx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.unsub = unsub

	v.loops.Add(1)
	go func() {
		defer v.loops.Done()
		v.sync.Run(runCtx, updates)
	}()

	interval := v.config.WatchInterval
	if interval == 0 {
		interval = DefaultWatchInterval
	}
	if interval > 0 {
		v.loops.Add(1)
		go func() {
			defer v.loops.Done()
			v.store.Watch(runCtx, interval)
		}()
	}

	v.opened = true
	v.log.Infof("opened %s at version %s with %d spaces", v.store.Path(), loaded.Version, len(loaded.Data))
	return nil
}

// Close stops following the file and waits for writes still in flight
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	if !v.opened {
		return nil
	}

	v.cancel()
	v.loops.Wait()
	v.unsub()
	v.sync.Wait()
	return nil
}

func (v *Vault) ready() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.closed:
		return ErrClosed
	case !v.opened:
		return ErrNotOpen
	}
	return nil
}

// Spaces returns a snapshot of the space list in display order
func (v *Vault) Spaces() Spaces {
	return slices.Clone(v.sync.Value().Data)
}

// Version returns the version of the live space list
func (v *Vault) Version() versioned.Version {
	return v.sync.Value().Version
}

// IsSyncing reports whether the file lags the live space list
func (v *Vault) IsSyncing() bool {
	return v.sync.IsSyncing()
}

// Wait blocks until writes in flight have completed
func (v *Vault) Wait() {
	v.sync.Wait()
}

// Subscribe returns a mailbox that receives the live space list whenever
// it changes. Only the latest unconsumed value is kept.
func (v *Vault) Subscribe() (*versioned.Mailbox[versioned.Versioned[Spaces]], func()) {
	return v.sync.Subscribe()
}

// CreateSpace encrypts plaintext under a new key derived from password,
// appends the space to the list and returns it unlocked.
func (v *Vault) CreateSpace(ctx context.Context, name string, password, plaintext []byte) (*Session, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	if err := ValidateSpaceName(name); err != nil {
		return nil, err
	}

	key, err := GenerateKeyLength(ctx, v.config.Scrypt, password, v.config.KeyLength)
	if err != nil {
		return nil, err
	}
	info, err := EncryptSpace(name, key, plaintext)
	if err != nil {
		key.Wipe()
		return nil, err
	}

	if _, err := v.sync.Update(ctx, func(cur Spaces) (Spaces, error) {
		return append(slices.Clone(cur), *info), nil
	}); err != nil {
		key.Wipe()
		return nil, err
	}

	v.log.Debugf("created space %q", name)
	return newSession(v, key), nil
}

// Unlock opens the space at index with password. A wrong password is
// reported as ErrIncorrectPassword.
func (v *Vault) Unlock(ctx context.Context, index int, password []byte) (*Session, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	spaces := v.sync.Value().Data
	if err := ValidateIndex(index, len(spaces)); err != nil {
		return nil, err
	}

	d, err := DecryptSpace(ctx, &spaces[index], password)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrIncorrectPassword
	}
	return newSession(v, d.PrivateKey), nil
}

// FindSpaces tries password against every space and returns sessions for
// the ones it unlocks, in display order.
func (v *Vault) FindSpaces(ctx context.Context, password []byte) ([]*Session, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	spaces := v.sync.Value().Data
	jobs := make([]unlockJob, len(spaces))
	for i := range spaces {
		jobs[i].info = spaces[i]
	}

	if err := decryptAll(ctx, v.config.Parallel, jobs, password); err != nil {
		return nil, err
	}

	var sessions []*Session
	for _, j := range jobs {
		if j.result != nil {
			sessions = append(sessions, newSession(v, j.result.PrivateKey))
		}
	}
	v.log.Debugf("password matched %d of %d spaces", len(sessions), len(spaces))
	return sessions, nil
}

// RemoveSpace deletes the space at index
func (v *Vault) RemoveSpace(ctx context.Context, index int) error {
	return v.update(ctx, func(cur Spaces) (Spaces, error) {
		if err := ValidateIndex(index, len(cur)); err != nil {
			return nil, err
		}
		return slices.Delete(slices.Clone(cur), index, index+1), nil
	})
}

// MoveSpace moves the space at from to position to, shifting the spaces in
// between.
func (v *Vault) MoveSpace(ctx context.Context, from, to int) error {
	return v.update(ctx, func(cur Spaces) (Spaces, error) {
		if err := ValidateIndex(from, len(cur)); err != nil {
			return nil, err
		}
		if err := ValidateIndex(to, len(cur)); err != nil {
			return nil, err
		}
		if from == to {
			return nil, versioned.ErrNoChange
		}
		next := slices.Clone(cur)
		moved := next[from]
		next = slices.Delete(next, from, from+1)
		return slices.Insert(next, to, moved), nil
	})
}

// RenameSpace changes the display name of the space at index. The name is
// not encrypted, so no password is needed.
func (v *Vault) RenameSpace(ctx context.Context, index int, name string) error {
	if err := ValidateSpaceName(name); err != nil {
		return err
	}
	return v.update(ctx, func(cur Spaces) (Spaces, error) {
		if err := ValidateIndex(index, len(cur)); err != nil {
			return nil, err
		}
		if cur[index].Name == name {
			return nil, versioned.ErrNoChange
		}
		next := slices.Clone(cur)
		next[index].Name = name
		return next, nil
	})
}

func (v *Vault) update(ctx context.Context, fn func(Spaces) (Spaces, error)) error {
	if err := v.ready(); err != nil {
		return err
	}
	_, err := v.sync.Update(ctx, fn)
	return err
}

// Reset deletes every space. Unsaved edits are discarded and writes already
// in flight are waited for. The vault file is then removed and replaced by
// an empty list under a fresh version, so other instances following the
// file drop their spaces too instead of writing them back.
func (v *Vault) Reset(ctx context.Context) error {
	if err := v.ready(); err != nil {
		return err
	}
	v.sync.Reset()
	v.sync.Wait()

	counter := v.sync.Counter()
	stored, err := v.store.Load(ctx)
	switch {
	case err == nil:
		counter.Observe(stored.Version)
	case !IsCorruptionError(err):
		return err
	}
	if err := v.store.DeleteAll(ctx); err != nil {
		return err
	}

	version, err := counter.Next(ctx)
	if err != nil {
		return err
	}
	empty := versioned.Versioned[Spaces]{Version: version, Data: Spaces{}}
	if err := v.store.Write(ctx, empty); err != nil {
		return err
	}
	v.sync.ResetTo(empty)
	v.log.Infof("reset %s at version %s", v.store.Path(), version)
	return nil
}

// Import replaces the whole space list with the contents of a vault file.
// The imported list is stored under a new version, so it supersedes
// everything written before.
func (v *Vault) Import(ctx context.Context, r io.Reader) error {
	if err := v.ready(); err != nil {
		return err
	}
	vf, err := ReadVaultFile(r, "import")
	if err != nil {
		return err
	}

	v.sync.Reset()
	v.sync.Wait()

	version, err := v.sync.Counter().Next(ctx)
	if err != nil {
		return err
	}
	imported := versioned.Versioned[Spaces]{Version: version, Data: vf.Versioned().Data}
	if err := v.store.Write(ctx, imported); err != nil {
		return err
	}
	v.sync.ResetTo(imported)
	v.log.Infof("imported %d spaces at version %s", len(imported.Data), version)
	return nil
}

// Export writes the live space list in vault file format
func (v *Vault) Export(w io.Writer) error {
	_, err := NewVaultFile(v.sync.Value()).WriteTo(w)
	return err
}

// persist is the synchronizer's write function. A stale write that lost a
// race against a write of the same version by another process means that
// process's list won: the live list is reset to what is on disk. Either way
// val itself was not stored, which is reported as versioned.ErrSuperseded.
func (v *Vault) persist(ctx context.Context, val versioned.Versioned[Spaces]) error {
	err := v.store.Write(ctx, val)
	if !errors.Is(err, ErrStaleWrite) {
		return err
	}

	if v.sync.Value().Version != val.Version {
		return fmt.Errorf("%w: version %s is already stored", versioned.ErrSuperseded, val.Version)
	}
	stored, err := v.store.Load(ctx)
	if err != nil {
		return err
	}
	if v.sync.Value().Version == val.Version {
		v.log.Warnf("version %s was also written by another process; discarding local changes", val.Version)
		v.sync.ResetTo(stored)
	}
	return fmt.Errorf("%w: another process wrote version %s", versioned.ErrSuperseded, val.Version)
}
