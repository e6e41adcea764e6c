package spacevault

import (
	"encoding/json"
	"os"
	"path"
	"sync"

	"github.com/absfs/absfs"
)

// PreferenceStore keeps a small JSON document of application preferences.
// There is a single writer, so it is not versioned: a missing or corrupt
// file yields the defaults and every save replaces the file.
type PreferenceStore[T any] struct {
	fs       absfs.FileSystem
	path     string
	defaults func() T
	log      Logger

	mu sync.Mutex
}

// NewPreferenceStore creates a preference store at path in fs. defaults is
// called whenever no usable document exists.
func NewPreferenceStore[T any](fs absfs.FileSystem, path string, defaults func() T, log Logger) (*PreferenceStore[T], error) {
	if fs == nil {
		return nil, ErrNilFileSystem
	}
	if err := ValidateFilePath(path); err != nil {
		return nil, err
	}
	if defaults == nil {
		defaults = func() T {
			var zero T
			return zero
		}
	}
	if log == nil {
		log = nopLogger{}
	}
	return &PreferenceStore[T]{fs: fs, path: path, defaults: defaults, log: log}, nil
}

// Load returns the stored preferences, or the defaults when the file is
// missing or cannot be decoded.
func (p *PreferenceStore[T]) Load() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *PreferenceStore[T]) load() T {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warnf("failed to read preferences %s: %v", p.path, err)
		}
		return p.defaults()
	}
	defer f.Close()

	v := p.defaults()
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		p.log.Warnf("ignoring corrupt preferences %s: %v", p.path, err)
		return p.defaults()
	}
	return v
}

// Save replaces the stored preferences with v
func (p *PreferenceStore[T]) Save(v T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save(v)
}

func (p *PreferenceStore[T]) save(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := path.Dir(p.path); dir != "." && dir != "/" {
		if err := p.fs.MkdirAll(dir, 0700); err != nil {
			return NewIOError("mkdir", dir, err)
		}
	}

	f, err := p.fs.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return NewIOError("write", p.path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return NewIOError("write", p.path, err)
	}
	if err := f.Close(); err != nil {
		return NewIOError("write", p.path, err)
	}
	return nil
}

// Update loads the preferences, applies fn and saves the result
func (p *PreferenceStore[T]) Update(fn func(T) T) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := fn(p.load())
	return v, p.save(v)
}
