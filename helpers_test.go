package spacevault

import (
	"context"
	"testing"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"

	"github.com/absfs/spacevault/internal/logging"
)

// testScrypt keeps key derivation fast enough for unit tests
var testScrypt = ScryptConfig{N: 16, R: 1, P: 1}

func setupTestFS(t *testing.T) absfs.FileSystem {
	t.Helper()
	base, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("failed to create memfs: %v", err)
	}
	return base
}

func testConfig() *Config {
	config := DefaultConfig()
	config.Scrypt = testScrypt
	config.WatchInterval = -1
	config.Logger = logging.Discard()
	return config
}

// openTestVault opens a vault on base and closes it when the test ends
func openTestVault(t *testing.T, base absfs.FileSystem, config *Config) *Vault {
	t.Helper()
	if config == nil {
		config = testConfig()
	}
	v, err := New(base, config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := v.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func testKey(t *testing.T, password string) *PrivateKey {
	t.Helper()
	key, err := GenerateKey(context.Background(), testScrypt, []byte(password))
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return key
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
