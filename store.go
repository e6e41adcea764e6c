package spacevault

import (
	"context"
	"errors"
	"os"
	"path"
	"sync"
	"time"

	"github.com/absfs/absfs"
	"github.com/google/uuid"

	"github.com/absfs/spacevault/versioned"
)

// Store persists the space list as a single vault file on an absfs
// filesystem. The whole list is always read and written as one unit.
type Store struct {
	fs   absfs.FileSystem
	path string
	log  Logger

	mu    sync.Mutex // serializes file access
	stamp fileStamp  // last state of the file seen by this store

	subMu       sync.Mutex
	subscribers map[*versioned.Mailbox[versioned.Versioned[Spaces]]]struct{}
}

// fileStamp identifies a version of the file on disk without reading it
type fileStamp struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (a fileStamp) equal(b fileStamp) bool {
	return a.exists == b.exists && a.size == b.size && a.modTime.Equal(b.modTime)
}

// NewStore creates a store for the vault file at path in fs
func NewStore(fs absfs.FileSystem, path string, log Logger) (*Store, error) {
	if fs == nil {
		return nil, ErrNilFileSystem
	}
	if err := ValidateFilePath(path); err != nil {
		return nil, err
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Store{
		fs:          fs,
		path:        path,
		log:         log,
		subscribers: make(map[*versioned.Mailbox[versioned.Versioned[Spaces]]]struct{}),
	}, nil
}

// Path returns the vault file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole space list. A missing file is an empty list at
// version 0.
func (s *Store) Load(ctx context.Context) (versioned.Versioned[Spaces], error) {
	if err := ctx.Err(); err != nil {
		return versioned.Versioned[Spaces]{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (versioned.Versioned[Spaces], error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.stamp = fileStamp{}
			return versioned.Of(0, Spaces{}), nil
		}
		return versioned.Versioned[Spaces]{}, NewIOError("stat", s.path, err)
	}

	f, err := s.fs.Open(s.path)
	if err != nil {
		return versioned.Versioned[Spaces]{}, NewIOError("read", s.path, err)
	}
	defer f.Close()

	vf, err := ReadVaultFile(f, s.path)
	if err != nil {
		return versioned.Versioned[Spaces]{}, err
	}
	s.stamp = fileStamp{exists: true, size: info.Size(), modTime: info.ModTime()}
	return vf.Versioned(), nil
}

// Write replaces the stored list with v. The file is written to a temporary
// name and renamed into place, so readers never see a partial file. Values
// without a version are refused with ErrUnversioned and values that are not
// newer than the stored one with ErrStaleWrite, so concurrent writes that
// complete out of order cannot roll the file back.
func (s *Store) Write(ctx context.Context, v versioned.Versioned[Spaces]) error {
	if !v.Version.Valid {
		return ErrUnversioned
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.load()
	if err != nil && !IsCorruptionError(err) {
		return err
	}
	if err == nil && !stored.Version.Less(v.Version) {
		return ErrStaleWrite
	}
	if err != nil {
		s.log.Warnf("overwriting unreadable vault file %s: %v", s.path, err)
	}

	dir, base := path.Split(s.path)
	if dir != "" {
		if err := s.fs.MkdirAll(dir, 0700); err != nil {
			return NewIOError("mkdir", dir, err)
		}
	}
	tmp := path.Join(dir, "."+base+"."+uuid.New().String()+".tmp")

	if err := s.writeFile(tmp, NewVaultFile(v)); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	if err := s.rename(tmp); err != nil {
		s.fs.Remove(tmp)
		return err
	}

	if info, err := s.fs.Stat(s.path); err == nil {
		s.stamp = fileStamp{exists: true, size: info.Size(), modTime: info.ModTime()}
	}
	s.log.Debugf("wrote version %s of %s (%d spaces)", v.Version, s.path, len(v.Data))
	s.publish(v)
	return nil
}

func (s *Store) writeFile(name string, vf *VaultFile) error {
	f, err := s.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return NewIOError("write", name, err)
	}
	if _, err := vf.WriteTo(f); err != nil {
		f.Close()
		return NewIOError("write", name, err)
	}
	if err := f.Close(); err != nil {
		return NewIOError("write", name, err)
	}
	return nil
}

// rename moves tmp over the vault file. Filesystems that refuse to rename
// over an existing file get the target removed first.
func (s *Store) rename(tmp string) error {
	err := s.fs.Rename(tmp, s.path)
	if err == nil {
		return nil
	}
	if _, statErr := s.fs.Stat(s.path); statErr != nil {
		return NewIOError("rename", s.path, err)
	}
	if err := s.fs.Remove(s.path); err != nil {
		return NewIOError("remove", s.path, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return NewIOError("rename", s.path, err)
	}
	return nil
}

// DeleteAll removes the vault file. Subscribers see an empty list at
// version 0.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return NewIOError("remove", s.path, err)
	}
	s.stamp = fileStamp{}
	s.log.Debugf("deleted %s", s.path)
	s.publish(versioned.Of(0, Spaces{}))
	return nil
}

// Subscribe returns a mailbox that receives every value the store writes or
// notices on disk. Only the latest unconsumed value is kept.
func (s *Store) Subscribe() (*versioned.Mailbox[versioned.Versioned[Spaces]], func()) {
	mb := versioned.NewMailbox[versioned.Versioned[Spaces]]()
	s.subMu.Lock()
	s.subscribers[mb] = struct{}{}
	s.subMu.Unlock()
	return mb, func() {
		s.subMu.Lock()
		delete(s.subscribers, mb)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(v versioned.Versioned[Spaces]) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for mb := range s.subscribers {
		mb.Put(v)
	}
}

// Watch polls the vault file every interval until ctx is done and
// publishes its contents whenever another writer has changed it. Read
// errors are logged and retried on the next tick.
func (s *Store) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return NewValidationError("interval", interval, "watch interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.poll(); err != nil {
				s.log.Warnf("failed to reload %s: %v", s.path, err)
			}
		}
	}
}

// poll reloads and publishes the file if its stamp changed
func (s *Store) poll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var now fileStamp
	info, err := s.fs.Stat(s.path)
	switch {
	case err == nil:
		now = fileStamp{exists: true, size: info.Size(), modTime: info.ModTime()}
	case os.IsNotExist(err):
	default:
		return NewIOError("stat", s.path, err)
	}
	if now.equal(s.stamp) {
		return nil
	}

	v, err := s.load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	s.log.Debugf("%s changed on disk, now at version %s", s.path, v.Version)
	s.publish(v)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
