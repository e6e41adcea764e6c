package spacevault

import (
	"context"
)

// EncryptedData is one AES-CBC encryption result together with its IV
type EncryptedData struct {
	IV         []byte `json:"initializationVector"`
	Ciphertext []byte `json:"encryptedBytes"`
}

// EncryptedSpaceInfo is the persisted form of a space. The name is plain
// metadata; the payload is opaque without the password.
type EncryptedSpaceInfo struct {
	Name          string        `json:"name"`
	PublicKey     PublicKey     `json:"publicKey"`
	EncryptedData EncryptedData `json:"encryptedData"`
}

// DecryptedSpaceInfo is an unlocked space. It only lives in memory.
type DecryptedSpaceInfo struct {
	Name          string
	PrivateKey    *PrivateKey
	EncryptedData EncryptedData
	Plaintext     []byte
}

// Encrypted returns the persisted view of the space
func (d *DecryptedSpaceInfo) Encrypted() EncryptedSpaceInfo {
	return EncryptedSpaceInfo{
		Name:          d.Name,
		PublicKey:     d.PrivateKey.PublicKey(),
		EncryptedData: d.EncryptedData,
	}
}

// WithPlaintext re-encrypts the space under the same key and a fresh IV
func (d *DecryptedSpaceInfo) WithPlaintext(plaintext []byte) (*DecryptedSpaceInfo, error) {
	info, err := EncryptSpace(d.Name, d.PrivateKey, plaintext)
	if err != nil {
		return nil, err
	}
	return &DecryptedSpaceInfo{
		Name:          d.Name,
		PrivateKey:    d.PrivateKey,
		EncryptedData: info.EncryptedData,
		Plaintext:     append([]byte(nil), plaintext...),
	}, nil
}

// WithName returns a copy of the space under a new name. The ciphertext is
// unchanged.
func (d *DecryptedSpaceInfo) WithName(name string) *DecryptedSpaceInfo {
	c := *d
	c.Name = name
	return &c
}

// EncryptSpace encrypts plaintext with key under a fresh IV
func EncryptSpace(name string, key *PrivateKey, plaintext []byte) (*EncryptedSpaceInfo, error) {
	if key == nil || key.key == nil {
		return nil, NewValidationError("key", nil, "private key is missing or wiped")
	}
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	ciphertext, err := AESEncrypt(plaintext, key.key, iv)
	if err != nil {
		return nil, NewEncryptionError("encrypt", name, err)
	}
	return &EncryptedSpaceInfo{
		Name:      name,
		PublicKey: key.PublicKey(),
		EncryptedData: EncryptedData{
			IV:         iv,
			Ciphertext: ciphertext,
		},
	}, nil
}

// DecryptSpace unlocks info with password. A wrong password and any
// cryptographic failure (malformed key parameters, bad padding, bad sizes)
// all yield nil, nil; only cancellation of ctx is returned as an error.
func DecryptSpace(ctx context.Context, info *EncryptedSpaceInfo, password []byte) (*DecryptedSpaceInfo, error) {
	if info == nil {
		return nil, nil
	}
	key, err := info.PublicKey.Verify(ctx, password)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, nil
	}
	if key == nil {
		return nil, nil
	}

	plaintext, err := AESDecrypt(info.EncryptedData.Ciphertext, key.key, info.EncryptedData.IV)
	if err != nil {
		key.Wipe()
		return nil, nil
	}
	return &DecryptedSpaceInfo{
		Name:          info.Name,
		PrivateKey:    key,
		EncryptedData: info.EncryptedData,
		Plaintext:     plaintext,
	}, nil
}
