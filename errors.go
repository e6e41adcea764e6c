package spacevault

import (
	"errors"
	"fmt"
)

var (
	// ErrPadding means AES-CBC unpadding failed. With a verified key this
	// indicates a damaged ciphertext.
	ErrPadding = errors.New("bad block padding")

	// ErrInvalidCiphertext means the ciphertext is empty or not a whole
	// number of blocks
	ErrInvalidCiphertext = errors.New("ciphertext is not a whole number of blocks")

	ErrIncorrectPassword = errors.New("incorrect password")
	ErrSpaceNotFound     = errors.New("space not found")

	// ErrStaleWrite is returned by Store.Write when the file already holds
	// the same or a newer version
	ErrStaleWrite = errors.New("stored version is not older than the write")

	// ErrUnversioned is returned when persisting a value that has no version
	ErrUnversioned = errors.New("value has no version")

	ErrClosed        = errors.New("vault is closed")
	ErrNotOpen       = errors.New("vault is not open")
	ErrNilConfig     = errors.New("nil config")
	ErrNilFileSystem = errors.New("nil filesystem")
)

// ValidationError reports an argument or setting that was rejected
type ValidationError struct {
	Field   string
	Value   any
	Message string

	// Err optionally classifies the failure, e.g. ErrSpaceNotFound
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// EncryptionError wraps a failure of a cryptographic step
type EncryptionError struct {
	Op    string // "encrypt", "decrypt" or "derive"
	Space string
	Err   error
}

func (e *EncryptionError) Error() string {
	if e.Space == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Space, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure while reading or writing vault state
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptionError reports a vault or preference file that exists but
// cannot be decoded
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("corrupt data: %v", e.Err)
	}
	return fmt.Sprintf("%s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

func NewValidationError(field string, value any, message string) error {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func NewEncryptionError(op, space string, err error) error {
	return &EncryptionError{Op: op, Space: space, Err: err}
}

func NewIOError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

func NewCorruptionError(path string, err error) error {
	return &CorruptionError{Path: path, Err: err}
}

func isA[E error](err error) bool {
	var target E
	return errors.As(err, &target)
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool { return isA[*ValidationError](err) }

// IsEncryptionError reports whether err wraps an *EncryptionError
func IsEncryptionError(err error) bool { return isA[*EncryptionError](err) }

// IsIOError reports whether err wraps an *IOError
func IsIOError(err error) bool { return isA[*IOError](err) }

// IsCorruptionError reports whether err wraps a *CorruptionError
func IsCorruptionError(err error) bool { return isA[*CorruptionError](err) }
