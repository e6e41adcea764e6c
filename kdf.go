package spacevault

import (
	"context"
	"crypto/sha512"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// DeriveKey stretches password into a key of length bytes with scrypt.
//
// The same inputs always produce the same key. Derivation is deliberately
// slow, so it runs on its own goroutine; if ctx is done first DeriveKey
// returns ctx.Err() and the key, once computed, is discarded.
func DeriveKey(ctx context.Context, config ScryptConfig, password, salt []byte, length int) ([]byte, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}
	if err := ValidateKeyLength(length); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		key []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		key, err := scrypt.Key(password, salt, int(config.N), int(config.R), int(config.P), length)
		done <- result{key: key, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, NewEncryptionError("derive", "", fmt.Errorf("scrypt: %w", r.err))
		}
		return r.key, nil
	}
}

// SHA512 returns the SHA-512 digest of the concatenation of parts
func SHA512(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
