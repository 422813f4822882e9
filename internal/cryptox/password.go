// Package cryptox implements password hashing for stored credentials.
//
// Hashes are argon2id with fixed parameters: time=1, memory=64 MiB,
// threads=4, 32-byte key, 16-byte random salt per password. The parameters
// are part of the stored format; changing them invalidates existing hashes.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32

	// SaltLen is the length of the per-password salt in bytes.
	SaltLen = 16
)

var ErrEmptyPassword = errors.New("password is empty")

// saltReader is replaced in tests.
var saltReader io.Reader = rand.Reader

// HashPassword derives an argon2id hash for plaintext with a fresh salt.
func HashPassword(plaintext string) (hash []byte, salt []byte, err error) {
	if plaintext == "" {
		return nil, nil, ErrEmptyPassword
	}

	salt = make([]byte, SaltLen)
	if _, err := io.ReadFull(saltReader, salt); err != nil {
		return nil, nil, err
	}

	return deriveKey(plaintext, salt), salt, nil
}

// VerifyPassword recomputes the hash for plaintext under salt and compares it
// with hash in constant time. The derivation always runs, even when hash is
// empty, so callers can use it to equalise timing for unknown accounts.
func VerifyPassword(plaintext string, hash []byte, salt []byte) bool {
	candidate := deriveKey(plaintext, salt)
	if len(hash) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

func deriveKey(plaintext string, salt []byte) []byte {
	return argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
