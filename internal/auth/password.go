// Package auth hashes passwords and issues the bearer tokens that identify
// callers of the API.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrMalformedDigest is returned when a stored digest is not derived.salt hex.
var ErrMalformedDigest = errors.New("malformed password digest")

// Params are the scrypt cost parameters.
type Params struct {
	N       int
	R       int
	P       int
	KeyLen  int
	SaltLen int
}

// DefaultParams is used by HashPassword and VerifyPassword.
var DefaultParams = Params{N: 32768, R: 8, P: 1, KeyLen: 64, SaltLen: 16}

// Hasher derives password digests with fixed scrypt parameters.
type Hasher struct {
	params Params
}

// NewHasher returns a Hasher using p.
func NewHasher(p Params) *Hasher {
	return &Hasher{params: p}
}

var defaultHasher = NewHasher(DefaultParams)

// HashPassword hashes password with DefaultParams.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// VerifyPassword checks password against a digest produced by HashPassword.
func VerifyPassword(password, digest string) (bool, error) {
	return defaultHasher.Verify(password, digest)
}

// Hash returns hex(derived) + "." + hex(salt) for a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	derived, err := h.derive(password, salt)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(derived) + "." + hex.EncodeToString(salt), nil
}

// Verify re-derives with the digest's salt and compares in constant time.
func (h *Hasher) Verify(password, digest string) (bool, error) {
	derivedHex, saltHex, ok := strings.Cut(digest, ".")
	if !ok || derivedHex == "" || saltHex == "" {
		return false, ErrMalformedDigest
	}
	want, err := hex.DecodeString(derivedHex)
	if err != nil {
		return false, ErrMalformedDigest
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, ErrMalformedDigest
	}

	got, err := scrypt.Key([]byte(password), salt, h.params.N, h.params.R, h.params.P, len(want))
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func (h *Hasher) derive(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, h.params.N, h.params.R, h.params.P, h.params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
