package auth

//go:generate mockgen -destination=mock_hasher_test.go -package=auth . Hasher

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher defines the interface for password hashing implementations.
// This abstraction allows swapping the hashing scheme without changing the
// credential lifecycle. Implementations must be salted and deliberately slow.
type Hasher interface {
	// Hash returns an opaque, salted hash of plaintext.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches hash, in constant time.
	Verify(plaintext, hash string) bool
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher creates a bcrypt hasher. A cost of 0 selects bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash hashes the password with a fresh random salt.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares plaintext against a bcrypt hash. Passwords longer than
// MaxPasswordBytes never match.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if hash == "" || len(plaintext) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
