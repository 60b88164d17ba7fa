// Package password derives and verifies salted scrypt password hashes.
//
// A stored hash has the form hex(key) + "." + hex(salt).
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen = 16
	keyLen  = 64

	costN = 16384
	costR = 8
	costP = 1
)

var (
	ErrMismatch      = errors.New("password does not match")
	ErrMalformedHash = errors.New("malformed password hash")
)

func Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("rand.Read -> %w", err)
	}

	key, err := scrypt.Key([]byte(plain), salt, costN, costR, costP, keyLen)
	if err != nil {
		return "", fmt.Errorf("scrypt.Key -> %w", err)
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// Compare checks plain against a hash produced by Hash in constant time.
func Compare(hash, plain string) error {
	encodedKey, encodedSalt, ok := strings.Cut(hash, ".")
	if !ok {
		return ErrMalformedHash
	}

	want, err := hex.DecodeString(encodedKey)
	if err != nil || len(want) == 0 {
		return ErrMalformedHash
	}
	salt, err := hex.DecodeString(encodedSalt)
	if err != nil || len(salt) == 0 {
		return ErrMalformedHash
	}

	got, err := scrypt.Key([]byte(plain), salt, costN, costR, costP, len(want))
	if err != nil {
		return fmt.Errorf("scrypt.Key -> %w", err)
	}

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrMismatch
	}

	return nil
}
