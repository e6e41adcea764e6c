package spacevault

import (
	"context"
	"crypto/subtle"
	"fmt"
)

// PrivateKey holds key material derived from a password. It exists only in
// memory and is never serialized; its PublicKey is what gets persisted.
type PrivateKey struct {
	Config ScryptConfig
	Salt   []byte
	Hash   []byte

	key    []byte
	public *PublicKey
}

// PublicKey is the persisted half of a key pair. It carries everything
// needed to check a password except the key itself.
type PublicKey struct {
	Config    ScryptConfig `json:"config"`
	KeyLength int          `json:"keyLength"`
	Salt      []byte       `json:"salt"`
	Hash      []byte       `json:"hash"`
}

// GenerateKey derives a new key of DefaultKeyLength bytes from password
// under a fresh salt.
func GenerateKey(ctx context.Context, config ScryptConfig, password []byte) (*PrivateKey, error) {
	return GenerateKeyLength(ctx, config, password, DefaultKeyLength)
}

// GenerateKeyLength is GenerateKey with an explicit key size (16, 24 or 32)
func GenerateKeyLength(ctx context.Context, config ScryptConfig, password []byte, length int) (*PrivateKey, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(ctx, config, password, salt, length)
	if err != nil {
		return nil, err
	}
	return newPrivateKey(config, salt, key), nil
}

func newPrivateKey(config ScryptConfig, salt, key []byte) *PrivateKey {
	hash := SHA512(salt, key)
	return &PrivateKey{
		Config: config,
		Salt:   salt,
		Hash:   hash,
		key:    key,
		public: &PublicKey{
			Config:    config,
			KeyLength: len(key),
			Salt:      salt,
			Hash:      hash,
		},
	}
}

// PublicKey returns the verifiable, storable half of the key
func (k *PrivateKey) PublicKey() PublicKey {
	return *k.public
}

// Len returns the key size in bytes
func (k *PrivateKey) Len() int {
	return len(k.key)
}

// Wipe zeroes the key material. The key is unusable afterwards.
func (k *PrivateKey) Wipe() {
	if k == nil {
		return
	}
	for i := range k.key {
		k.key[i] = 0
	}
	k.key = nil
}

// Verify re-derives the key for password and compares its hash with the
// stored one. A wrong password yields a nil key and a nil error; errors are
// reserved for cancellation and for keys whose parameters are malformed.
func (p *PublicKey) Verify(ctx context.Context, password []byte) (*PrivateKey, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	key, err := DeriveKey(ctx, p.Config, password, p.Salt, p.KeyLength)
	if err != nil {
		return nil, err
	}
	return p.match(key), nil
}

// match wraps key in a PrivateKey if it hashes to p.Hash. A key that does
// not match is zeroed.
func (p *PublicKey) match(key []byte) *PrivateKey {
	if subtle.ConstantTimeCompare(SHA512(p.Salt, key), p.Hash) != 1 {
		clear(key)
		return nil
	}
	return newPrivateKey(p.Config, p.Salt, key)
}

// Validate checks that the stored parameters can be used to derive a key
func (p *PublicKey) Validate() error {
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}
	if err := ValidateKeyLength(p.KeyLength); err != nil {
		return err
	}
	if err := ValidateSalt(p.Salt); err != nil {
		return err
	}
	return ValidateHash(p.Hash)
}
