package spacevault

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/absfs/spacevault/versioned"
)

// Session is an unlocked space. It follows its slot in the vault by key
// salt rather than by position, so spaces added, removed or moved around it
// do not disturb it, and its edits are merged into whatever the vault holds
// at that moment.
type Session struct {
	vault *Vault
	view  *versioned.Derived[Spaces, *DecryptedSpaceInfo]
	key   atomic.Pointer[PrivateKey]

	mu     sync.Mutex // serializes edits
	closed bool
}

func newSession(v *Vault, key *PrivateKey) *Session {
	s := &Session{vault: v}
	s.key.Store(key)
	s.view = versioned.Map(v.sync, s.project, s.merge)
	return s
}

// slot returns the position of the space encrypted under key
func slot(spaces Spaces, key *PrivateKey) int {
	return slices.IndexFunc(spaces, func(info EncryptedSpaceInfo) bool {
		return bytes.Equal(info.PublicKey.Salt, key.Salt)
	})
}

// project decrypts this session's slot with the key already held
func (s *Session) project(spaces Spaces) (*DecryptedSpaceInfo, error) {
	key := s.key.Load()
	if key == nil {
		return nil, ErrClosed
	}
	i := slot(spaces, key)
	if i < 0 {
		return nil, ErrSpaceNotFound
	}
	info := spaces[i]
	plaintext, err := AESDecrypt(info.EncryptedData.Ciphertext, key.key, info.EncryptedData.IV)
	if err != nil {
		return nil, NewEncryptionError("decrypt", info.Name, err)
	}
	return &DecryptedSpaceInfo{
		Name:          info.Name,
		PrivateKey:    key,
		EncryptedData: info.EncryptedData,
		Plaintext:     plaintext,
	}, nil
}

// merge writes an edited space back into its slot of the current list
func (s *Session) merge(current Spaces, d *DecryptedSpaceInfo) (Spaces, error) {
	key := s.key.Load()
	if key == nil {
		return nil, ErrClosed
	}
	i := slot(current, key)
	if i < 0 {
		return nil, ErrSpaceNotFound
	}
	next := slices.Clone(current)
	next[i] = d.Encrypted()
	return next, nil
}

// Content returns the decrypted space as it is in the live list
func (s *Session) Content() (*DecryptedSpaceInfo, error) {
	v, err := s.view.Value()
	if err != nil {
		return nil, err
	}
	return v.Data, nil
}

// Name returns the current name of the space
func (s *Session) Name() (string, error) {
	d, err := s.Content()
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

// Index returns the current position of the space in the vault
func (s *Session) Index() (int, error) {
	key := s.key.Load()
	if key == nil {
		return -1, ErrClosed
	}
	i := slot(s.vault.sync.Value().Data, key)
	if i < 0 {
		return -1, ErrSpaceNotFound
	}
	return i, nil
}

// Update applies fn to the plaintext and stores the result under a new IV.
// fn may be called more than once.
func (s *Session) Update(ctx context.Context, fn func(plaintext []byte) ([]byte, error)) error {
	return s.edit(ctx, func(d *DecryptedSpaceInfo) (*DecryptedSpaceInfo, error) {
		plaintext, err := fn(slices.Clone(d.Plaintext))
		if err != nil {
			return nil, err
		}
		return d.WithPlaintext(plaintext)
	})
}

// SetPlaintext replaces the plaintext of the space
func (s *Session) SetPlaintext(ctx context.Context, plaintext []byte) error {
	return s.Update(ctx, func([]byte) ([]byte, error) {
		return plaintext, nil
	})
}

// Rename changes the name of the space
func (s *Session) Rename(ctx context.Context, name string) error {
	if err := ValidateSpaceName(name); err != nil {
		return err
	}
	return s.edit(ctx, func(d *DecryptedSpaceInfo) (*DecryptedSpaceInfo, error) {
		if d.Name == name {
			return nil, versioned.ErrNoChange
		}
		return d.WithName(name), nil
	})
}

func (s *Session) edit(ctx context.Context, fn func(*DecryptedSpaceInfo) (*DecryptedSpaceInfo, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.vault.ready(); err != nil {
		return err
	}
	_, err := s.view.Update(ctx, fn)
	return err
}

// ChangePassword re-encrypts the space under a key derived from
// newPassword with the vault's current scrypt settings. The old key is
// wiped once the list holds the new ciphertext.
func (s *Session) ChangePassword(ctx context.Context, newPassword []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.vault.ready(); err != nil {
		return err
	}

	old := s.key.Load()
	key, err := rotationKey(ctx, old, newPassword, KeyRotationOptions{
		Scrypt:    s.vault.config.Scrypt,
		KeyLength: s.vault.config.KeyLength,
	})
	if err != nil {
		return err
	}

	_, err = s.vault.sync.Update(ctx, func(cur Spaces) (Spaces, error) {
		d, err := s.project(cur)
		if err != nil {
			return nil, err
		}
		next, err := rekey(d, key)
		if err != nil {
			return nil, err
		}
		return s.merge(cur, next)
	})
	if err != nil {
		key.Wipe()
		return err
	}

	s.key.Store(key)
	old.Wipe()
	return nil
}

// IsSyncing reports whether the vault file lags the live list
func (s *Session) IsSyncing() bool {
	return s.view.IsSyncing()
}

// Close wipes the key. The session cannot be used afterwards; writes it
// already started are not affected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if key := s.key.Swap(nil); key != nil {
		key.Wipe()
	}
}
