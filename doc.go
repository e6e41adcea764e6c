// Package spacevault stores named, password-protected data blobs ("spaces")
// in a single vault file on any absfs filesystem.
//
// # Overview
//
// Each space is encrypted under its own key, derived from a password and a
// per-space salt with scrypt. The password and the key are never stored.
// Instead every space carries a PublicKey: the scrypt parameters, the salt
// and SHA-512(salt ++ key). Unlocking re-derives the key and compares the
// hash, so a wrong password is detected before any ciphertext is touched.
//
// Payloads are encrypted with AES-CBC and PKCS#7 padding under a fresh
// random IV for every encryption. Keys are 16 bytes (AES-128) by default;
// the length is recorded in the PublicKey, so 24 and 32 byte keys unlock as
// well.
//
// # Basic Usage
//
//	base, _ := memfs.NewFS()
//
//	vault, err := spacevault.New(base, spacevault.DefaultConfig())
//	if err != nil {
//	    panic(err)
//	}
//	if err := vault.Open(ctx); err != nil {
//	    panic(err)
//	}
//	defer vault.Close()
//
//	// Create a space
//	s, _ := vault.CreateSpace(ctx, "diary", []byte("secret1"), []byte("cat"))
//	s.SetPlaintext(ctx, []byte("cats and dogs"))
//	s.Close()
//
//	// Unlock it again
//	s, err = vault.Unlock(ctx, 0, []byte("secret1"))
//	if errors.Is(err, spacevault.ErrIncorrectPassword) {
//	    // ask again
//	}
//
// # Persistence
//
// The space list is edited in memory and written back in the background by
// a versioned.Synchronizer. Every edit gets a new version number; the vault
// file is only ever replaced by a newer version, and changes made to the
// file by other processes are merged in with the same rule. IsSyncing
// reports whether the file still lags behind the live list.
//
// # Security Considerations
//
// Protected Against:
//   - Recovery of passwords or keys from the vault file
//   - Offline guessing, to the extent the scrypt parameters make it costly
//
// Not Protected Against:
//   - Tampering with ciphertext. CBC is not authenticated; a modified
//     payload decrypts to garbage or fails to unpad.
//   - Space names, which are stored in plain text
//   - Memory dumps while a space is unlocked
package spacevault
