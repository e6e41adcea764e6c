package spacevault

import (
	"fmt"
)

// Input validation helpers shared by the vault, keys and space codec

// ValidateKeyLength checks that n is a valid AES key size
func ValidateKeyLength(n int) error {
	switch n {
	case 16, 24, 32:
		return nil
	default:
		return &ValidationError{
			Field:   "key_length",
			Value:   n,
			Message: fmt.Sprintf("invalid key length: got %d bytes, expected 16, 24 or 32", n),
		}
	}
}

// ValidateKey checks if a key has a valid AES size
func ValidateKey(key []byte) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
		}
	}
	if err := ValidateKeyLength(len(key)); err != nil {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected 16, 24 or 32 bytes", len(key)),
		}
	}
	return nil
}

// ValidateIV checks if an initialization vector has the correct size
func ValidateIV(iv []byte) error {
	if iv == nil {
		return &ValidationError{
			Field:   "iv",
			Message: "initialization vector cannot be nil",
		}
	}
	if len(iv) != IVSize {
		return &ValidationError{
			Field:   "iv",
			Value:   len(iv),
			Message: fmt.Sprintf("invalid initialization vector size: got %d bytes, expected %d bytes", len(iv), IVSize),
		}
	}
	return nil
}

// ValidateSalt checks if a salt has the correct size
func ValidateSalt(salt []byte) error {
	if len(salt) != SaltSize {
		return &ValidationError{
			Field:   "salt",
			Value:   len(salt),
			Message: fmt.Sprintf("invalid salt size: got %d bytes, expected %d bytes", len(salt), SaltSize),
		}
	}
	return nil
}

// ValidateHash checks if a verification hash has the correct size
func ValidateHash(hash []byte) error {
	if len(hash) != HashSize {
		return &ValidationError{
			Field:   "hash",
			Value:   len(hash),
			Message: fmt.Sprintf("invalid hash size: got %d bytes, expected %d bytes", len(hash), HashSize),
		}
	}
	return nil
}

// ValidateSpaceName checks that a space name is not empty
func ValidateSpaceName(name string) error {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "space name cannot be empty",
		}
	}
	return nil
}

// ValidateIndex checks that index addresses one of n spaces
func ValidateIndex(index, n int) error {
	if index < 0 || index >= n {
		return &ValidationError{
			Field:   "index",
			Value:   index,
			Message: fmt.Sprintf("index %d out of range [0, %d)", index, n),
			Err:     ErrSpaceNotFound,
		}
	}
	return nil
}

// ValidateFilePath checks if a file path is valid (not empty)
func ValidateFilePath(path string) error {
	if path == "" {
		return &ValidationError{
			Field:   "path",
			Message: "file path cannot be empty",
		}
	}
	return nil
}
