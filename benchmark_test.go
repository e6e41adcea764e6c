package spacevault

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
)

// Benchmark scrypt at the default and at the test parameters
func BenchmarkDeriveKey(b *testing.B) {
	configs := []ScryptConfig{
		testScrypt,
		{N: 1024, R: 8, P: 1},
		DefaultScryptConfig(),
	}

	salt := make([]byte, SaltSize)
	rand.Read(salt)

	for _, cfg := range configs {
		b.Run(fmt.Sprintf("N=%d,r=%d", cfg.N, cfg.R), func(b *testing.B) {
			ctx := context.Background()
			for b.Loop() {
				if _, err := DeriveKey(ctx, cfg, []byte("password"), salt, DefaultKeyLength); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkAESCBC measures space payload encryption in both directions
func BenchmarkAESCBC(b *testing.B) {
	key := make([]byte, DefaultKeyLength)
	iv := make([]byte, IVSize)
	rand.Read(key)
	rand.Read(iv)

	for _, kb := range []int{1, 64, 1024} {
		plaintext := make([]byte, kb<<10)
		rand.Read(plaintext)
		ciphertext, err := AESEncrypt(plaintext, key, iv)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("encrypt/%dKiB", kb), func(b *testing.B) {
			b.SetBytes(int64(len(plaintext)))
			for b.Loop() {
				if _, err := AESEncrypt(plaintext, key, iv); err != nil {
					b.Fatal(err)
				}
			}
		})
		b.Run(fmt.Sprintf("decrypt/%dKiB", kb), func(b *testing.B) {
			b.SetBytes(int64(len(plaintext)))
			for b.Loop() {
				if _, err := AESDecrypt(ciphertext, key, iv); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// Benchmark FindSpaces, which runs one scrypt derivation per space
func BenchmarkFindSpaces(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			ctx := context.Background()
			key, err := GenerateKey(ctx, testScrypt, []byte("pw"))
			if err != nil {
				b.Fatal(err)
			}
			info, err := EncryptSpace("s", key, []byte("payload"))
			if err != nil {
				b.Fatal(err)
			}
			cfg := ParallelConfig{Enabled: true, MaxWorkers: workers}

			for b.Loop() {
				jobs := make([]unlockJob, 16)
				for j := range jobs {
					jobs[j].info = *info
				}
				if err := decryptAll(ctx, cfg, jobs, []byte("pw")); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
