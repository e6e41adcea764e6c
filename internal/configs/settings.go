// Package configs loads and saves the spacevault CLI settings file.
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/absfs/spacevault"
)

// ScryptSettings is the [scrypt] table of the settings file
type ScryptSettings struct {
	N uint32 `toml:"n"`
	R uint32 `toml:"r"`
	P uint32 `toml:"p"`
}

// Settings is the on-disk CLI configuration
type Settings struct {
	// VaultDir is the host directory holding the vault file
	VaultDir string `toml:"vault_dir"`

	// VaultFile is the vault file name inside VaultDir
	VaultFile string `toml:"vault_file"`

	Scrypt    ScryptSettings `toml:"scrypt"`
	KeyLength int            `toml:"key_length"`

	// Workers bounds concurrent password checks; 0 means one per CPU
	Workers int `toml:"workers"`
}

// DefaultPath returns the settings file location in the user config dir
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(dir, "spacevault", "config.toml"), nil
}

// DefaultSettings returns settings matching spacevault.DefaultConfig,
// with the vault kept next to the settings file.
func DefaultSettings() *Settings {
	scrypt := spacevault.DefaultScryptConfig()
	dir := ""
	if configDir, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(configDir, "spacevault")
	}
	return &Settings{
		VaultDir:  dir,
		VaultFile: filepath.Base(spacevault.DefaultVaultPath),
		Scrypt:    ScryptSettings{N: scrypt.N, R: scrypt.R, P: scrypt.P},
		KeyLength: spacevault.DefaultKeyLength,
	}
}

// Load reads the settings at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()
	if _, err := toml.DecodeFile(path, s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes the settings to path, creating its directory
func Save(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(s)
}

// VaultConfig converts the settings into a vault configuration
func (s *Settings) VaultConfig() (*spacevault.Config, error) {
	scrypt, err := spacevault.NewScryptConfig(s.Scrypt.N, s.Scrypt.R, s.Scrypt.P)
	if err != nil {
		return nil, fmt.Errorf("invalid [scrypt] settings: %w", err)
	}

	config := spacevault.DefaultConfig()
	config.Path = "/" + s.VaultFile
	config.Scrypt = scrypt
	config.KeyLength = s.KeyLength
	config.Parallel.MaxWorkers = s.Workers
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
