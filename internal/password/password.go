// Package password derives and verifies salted scrypt credential hashes.
//
// Stored hashes have the form "salt:derivedKeyHex" where salt is the
// hex-encoded random salt.
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
	DefaultN      = 16384
	DefaultR      = 8
	DefaultP      = 1
	DefaultKeyLen = 64
	DefaultSalt   = 16
)

var ErrMalformedHash = errors.New("malformed password hash")

type Hasher struct {
	n, r, p  int
	keyLen   int
	saltSize int
}

type Option func(*Hasher)

// WithCost overrides the scrypt cost parameters. Tests use it to keep hashing cheap.
func WithCost(n, r, p int) Option {
	return func(h *Hasher) {
		h.n, h.r, h.p = n, r, p
	}
}

func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{
		n:        DefaultN,
		r:        DefaultR,
		p:        DefaultP,
		keyLen:   DefaultKeyLen,
		saltSize: DefaultSalt,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hasher) Hash(password string) (string, error) {
	raw := make([]byte, h.saltSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	key, err := h.derive(password, salt)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return salt + ":" + hex.EncodeToString(key), nil
}

// Verify reports whether password matches stored. Only a malformed stored value
// is an error; derivation failures and mismatches report false.
func (h *Hasher) Verify(password string, stored string) (bool, error) {
	salt, keyHex, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || keyHex == "" || strings.Contains(keyHex, ":") {
		return false, ErrMalformedHash
	}

	expected, err := hex.DecodeString(keyHex)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	derived, err := h.derive(password, salt)
	if err != nil {
		return false, nil
	}

	if len(derived) != len(expected) {
		return false, nil
	}

	return subtle.ConstantTimeCompare(derived, expected) == 1, nil
}

func (h *Hasher) derive(password string, salt string) ([]byte, error) {
	return scrypt.Key([]byte(password), []byte(salt), h.n, h.r, h.p, h.keyLen)
}
