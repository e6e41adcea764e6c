// Package osfs exposes a directory of the host filesystem as an
// absfs.FileSystem. Paths are slash separated and resolved against the
// directory, so a vault never reaches outside of it.
package osfs

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/absfs/absfs"
)

// FileSystem is an absfs.FileSystem rooted at a host directory
type FileSystem struct {
	root string

	mu  sync.Mutex
	cwd string
}

var _ absfs.FileSystem = (*FileSystem)(nil)

// New returns a filesystem rooted at dir, creating dir if needed
func New(dir string) (*FileSystem, error) {
	if dir == "" {
		return nil, errors.New("root directory cannot be empty")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, err
	}
	return &FileSystem{root: root, cwd: "/"}, nil
}

// Root returns the host directory
func (fs *FileSystem) Root() string {
	return fs.root
}

// resolve maps a slash path onto the host. ".." never climbs above root.
func (fs *FileSystem) resolve(name string) string {
	if !path.IsAbs(name) {
		fs.mu.Lock()
		name = path.Join(fs.cwd, name)
		fs.mu.Unlock()
	}
	return filepath.Join(fs.root, filepath.FromSlash(path.Clean("/"+name)))
}

func (fs *FileSystem) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return os.OpenFile(fs.resolve(name), flag, perm)
}

func (fs *FileSystem) Open(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *FileSystem) Create(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
}

func (fs *FileSystem) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(fs.resolve(name), perm)
}

func (fs *FileSystem) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(fs.resolve(name), perm)
}

func (fs *FileSystem) Remove(name string) error {
	return os.Remove(fs.resolve(name))
}

func (fs *FileSystem) RemoveAll(name string) error {
	return os.RemoveAll(fs.resolve(name))
}

func (fs *FileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(fs.resolve(oldpath), fs.resolve(newpath))
}

func (fs *FileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(fs.resolve(name))
}

func (fs *FileSystem) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(fs.resolve(name), mode)
}

func (fs *FileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(fs.resolve(name), atime, mtime)
}

func (fs *FileSystem) Chown(name string, uid, gid int) error {
	return os.Chown(fs.resolve(name), uid, gid)
}

func (fs *FileSystem) Truncate(name string, size int64) error {
	return os.Truncate(fs.resolve(name), size)
}

func (fs *FileSystem) Separator() uint8 {
	return '/'
}

func (fs *FileSystem) ListSeparator() uint8 {
	return os.PathListSeparator
}

// Chdir changes the directory relative paths are resolved against
func (fs *FileSystem) Chdir(dir string) error {
	info, err := fs.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: errors.New("not a directory")}
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !path.IsAbs(dir) {
		dir = path.Join(fs.cwd, dir)
	}
	fs.cwd = path.Clean("/" + dir)
	return nil
}

func (fs *FileSystem) Getwd() (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.cwd, nil
}

func (fs *FileSystem) TempDir() string {
	return "/tmp"
}
