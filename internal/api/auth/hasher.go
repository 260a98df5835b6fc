package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher abstracts the password hashing scheme so the default can be swapped
// without touching the authentication flow.
type Hasher interface {
	// Hash creates a stored hash from a plaintext password.
	Hash(password string) (string, error)

	// Verify checks whether a plaintext password matches a stored hash.
	Verify(password, hash string) (bool, error)
}

var ErrEmptyHashKey = errors.New("password hashing secret must not be empty")

// HMACHasher is the compatibility scheme: a deterministic HMAC-SHA256 over
// the password keyed with a server-side secret, base64-encoded. There is no
// per-record salt, so two users sharing a password share a stored hash.
// Prefer BcryptHasher for new deployments.
type HMACHasher struct {
	key []byte
}

func NewHMACHasher(secret string) (*HMACHasher, error) {
	if secret == "" {
		return nil, ErrEmptyHashKey
	}
	return &HMACHasher{key: []byte(secret)}, nil
}

func (h *HMACHasher) Hash(password string) (string, error) {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (h *HMACHasher) Verify(password, hash string) (bool, error) {
	computed, err := h.Hash(password)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(computed), []byte(hash)), nil
}

// BcryptHasher is the recommended salted adaptive scheme.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewHasher builds the configured hashing scheme. An empty scheme selects
// the HMAC compatibility mode.
func NewHasher(scheme, secret string) (Hasher, error) {
	switch scheme {
	case "", "hmac":
		return NewHMACHasher(secret)
	case "bcrypt":
		return NewBcryptHasher(bcrypt.DefaultCost), nil
	default:
		return nil, fmt.Errorf("unknown password hashing scheme %q", scheme)
	}
}
