package spacevault

import (
	"context"
)

// KeyRotationOptions controls how a space is re-keyed
type KeyRotationOptions struct {
	// Scrypt parameters for the new key. Zero keeps the current ones.
	Scrypt ScryptConfig

	// KeyLength of the new key. Zero keeps the current length.
	KeyLength int
}

// ChangePassword re-encrypts an unlocked space under a key derived from
// newPassword. The plaintext is taken from the already decrypted space, and
// the old key material is wiped once the new ciphertext exists. On error d
// is left untouched.
func ChangePassword(ctx context.Context, d *DecryptedSpaceInfo, newPassword []byte, opts KeyRotationOptions) (*DecryptedSpaceInfo, error) {
	if d == nil || d.PrivateKey == nil {
		return nil, NewValidationError("space", nil, "space is not unlocked")
	}

	key, err := rotationKey(ctx, d.PrivateKey, newPassword, opts)
	if err != nil {
		return nil, err
	}
	next, err := rekey(d, key)
	if err != nil {
		key.Wipe()
		return nil, err
	}

	d.PrivateKey.Wipe()
	return next, nil
}

// rotationKey derives the replacement for old. This is the slow step.
func rotationKey(ctx context.Context, old *PrivateKey, newPassword []byte, opts KeyRotationOptions) (*PrivateKey, error) {
	config := opts.Scrypt
	if config == (ScryptConfig{}) {
		config = old.Config
	}
	length := opts.KeyLength
	if length == 0 {
		length = old.Len()
	}
	return GenerateKeyLength(ctx, config, newPassword, length)
}

// rekey encrypts the plaintext of d under key. It does not touch d.
func rekey(d *DecryptedSpaceInfo, key *PrivateKey) (*DecryptedSpaceInfo, error) {
	info, err := EncryptSpace(d.Name, key, d.Plaintext)
	if err != nil {
		return nil, err
	}
	return &DecryptedSpaceInfo{
		Name:          d.Name,
		PrivateKey:    key,
		EncryptedData: info.EncryptedData,
		Plaintext:     d.Plaintext,
	}, nil
}
