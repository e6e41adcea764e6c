package spacevault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/absfs/spacevault/versioned"
)

// Spaces is the ordered space list. Order is display order and names are
// not required to be unique.
type Spaces = []EncryptedSpaceInfo

// VaultFile is the on-disk form of a vault:
//
//	{"version": 3, "data": [{"name": ..., "publicKey": ..., "encryptedData": ...}]}
//
// Byte fields are base64 encoded. A file without a version is treated as
// version 0.
type VaultFile struct {
	Version *int64               `json:"version,omitempty"`
	Data    []EncryptedSpaceInfo `json:"data"`
}

// NewVaultFile builds the file form of a versioned space list
func NewVaultFile(v versioned.Versioned[Spaces]) *VaultFile {
	f := &VaultFile{Data: v.Data}
	if f.Data == nil {
		f.Data = []EncryptedSpaceInfo{}
	}
	if v.Version.Valid {
		n := v.Version.N
		f.Version = &n
	}
	return f
}

// Versioned returns the file contents as a versioned list
func (f *VaultFile) Versioned() versioned.Versioned[Spaces] {
	var n int64
	if f.Version != nil {
		n = *f.Version
	}
	data := f.Data
	if data == nil {
		data = Spaces{}
	}
	return versioned.Of(n, data)
}

// Validate checks the version and every public key. Ciphertext is not
// checked here; a damaged payload only fails to unlock.
func (f *VaultFile) Validate() error {
	if f.Version != nil && *f.Version < 0 {
		return fmt.Errorf("negative version %d", *f.Version)
	}
	for i := range f.Data {
		if err := f.Data[i].PublicKey.Validate(); err != nil {
			return fmt.Errorf("space %d (%q): %w", i, f.Data[i].Name, err)
		}
	}
	return nil
}

// WriteTo writes the file as JSON
func (f *VaultFile) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode vault file: %w", err)
	}
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}

// ReadVaultFile decodes and validates a vault file. Malformed input is
// reported as a CorruptionError.
func ReadVaultFile(r io.Reader, path string) (*VaultFile, error) {
	var f VaultFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty vault file")
		}
		return nil, NewCorruptionError(path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, NewCorruptionError(path, err)
	}
	return &f, nil
}
