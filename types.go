package spacevault

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// SaltSize is the size of a key derivation salt in bytes
	SaltSize = 64

	// IVSize is the size of an AES-CBC initialization vector in bytes
	IVSize = 16

	// HashSize is the size of the SHA-512 verification hash in bytes
	HashSize = 64

	// DefaultKeyLength is the derived key size in bytes (AES-128). The length
	// is stored with every public key, so 24 and 32 byte keys also verify.
	DefaultKeyLength = 16

	// DefaultVaultPath is the vault file path inside the base filesystem
	DefaultVaultPath = "/spaces.json"

	// DefaultWatchInterval is how often the vault file is polled for
	// changes made by other processes
	DefaultWatchInterval = 2 * time.Second
)

// ScryptConfig holds the scrypt cost parameters. It is immutable once built
// and can only be obtained through NewScryptConfig or by decoding JSON, both
// of which validate it.
type ScryptConfig struct {
	N uint32 // CPU/memory cost, a power of two greater than 1
	R uint32 // Block size
	P uint32 // Parallelization
}

// NewScryptConfig validates and returns a scrypt configuration. Invalid
// parameters are rejected, never clamped.
func NewScryptConfig(n, r, p uint32) (ScryptConfig, error) {
	if n <= 1 || n&(n-1) != 0 {
		return ScryptConfig{}, &ValidationError{
			Field:   "n",
			Value:   n,
			Message: "cost parameter must be a power of two greater than 1",
		}
	}
	if r < 1 {
		return ScryptConfig{}, &ValidationError{
			Field:   "r",
			Value:   r,
			Message: "block size must be at least 1",
		}
	}

	// n must stay below 2^(128*r/8) unless that bound exceeds the range of n
	if exp := uint64(r) * 128 / 8; exp < 32 && uint64(n) >= uint64(1)<<exp {
		return ScryptConfig{}, &ValidationError{
			Field:   "n",
			Value:   n,
			Message: fmt.Sprintf("cost parameter must be less than 2^%d for block size %d", exp, r),
		}
	}

	if p == 0 {
		return ScryptConfig{}, &ValidationError{
			Field:   "p",
			Value:   p,
			Message: "parallelization must be positive",
		}
	}
	if max := uint64(math.MaxInt32) / (128 * uint64(r) * 8); uint64(p) > max {
		return ScryptConfig{}, &ValidationError{
			Field:   "p",
			Value:   p,
			Message: fmt.Sprintf("parallelization must not exceed %d for block size %d", max, r),
		}
	}

	return ScryptConfig{N: n, R: r, P: p}, nil
}

// DefaultScryptConfig returns N=32768, r=8, p=1
func DefaultScryptConfig() ScryptConfig {
	return ScryptConfig{N: 32768, R: 8, P: 1}
}

// Validate re-checks the parameters, for configs built as literals
func (c ScryptConfig) Validate() error {
	_, err := NewScryptConfig(c.N, c.R, c.P)
	return err
}

// String returns the parameters in N/r/p form
func (c ScryptConfig) String() string {
	return fmt.Sprintf("scrypt(N=%d, r=%d, p=%d)", c.N, c.R, c.P)
}

type scryptConfigJSON struct {
	N uint32 `json:"n"`
	R uint32 `json:"r"`
	P uint32 `json:"p"`
}

// MarshalJSON encodes the config as {"n":…,"r":…,"p":…}
func (c ScryptConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(scryptConfigJSON{N: c.N, R: c.R, P: c.P})
}

// UnmarshalJSON decodes and validates the config
func (c *ScryptConfig) UnmarshalJSON(data []byte) error {
	var raw scryptConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg, err := NewScryptConfig(raw.N, raw.R, raw.P)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Logger receives diagnostics for failures that are never returned to the
// caller, such as background persistence errors.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Config contains configuration for a vault
type Config struct {
	// Path of the vault file inside the base filesystem
	Path string

	// Scrypt parameters used for new spaces and password changes
	Scrypt ScryptConfig

	// KeyLength is the derived key size in bytes for new spaces (16, 24 or 32)
	KeyLength int

	// WatchInterval controls polling for changes by other processes.
	// A negative value disables watching.
	WatchInterval time.Duration

	// Parallel controls concurrent password checks in FindSpaces
	Parallel ParallelConfig

	// Logger receives background failures; defaults to stderr warnings
	Logger Logger
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Path:          DefaultVaultPath,
		Scrypt:        DefaultScryptConfig(),
		KeyLength:     DefaultKeyLength,
		WatchInterval: DefaultWatchInterval,
		Parallel:      DefaultParallelConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := ValidateFilePath(c.Path); err != nil {
		return err
	}
	if err := c.Scrypt.Validate(); err != nil {
		return fmt.Errorf("invalid scrypt config: %w", err)
	}
	if err := ValidateKeyLength(c.KeyLength); err != nil {
		return err
	}
	if err := c.Parallel.Validate(); err != nil {
		return err
	}
	return nil
}
