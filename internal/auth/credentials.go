package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/payshare/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid key or password")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrPasswordTooLong    = fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
)

// MaxPasswordBytes is the longest password bcrypt distinguishes. Bytes past
// it would be ignored, so longer passwords are refused outright.
const MaxPasswordBytes = 72

// Credentials manages a collective's password hash and its access token.
//
// The token changes if and only if the password hash changes. Persisting the
// mutated collective is left to the caller's transaction.
type Credentials struct {
	hasher Hasher
	now    func() time.Time
}

// NewCredentials creates a credential manager.
func NewCredentials(hasher Hasher, now func() time.Time) *Credentials {
	if now == nil {
		now = time.Now
	}
	return &Credentials{hasher: hasher, now: now}
}

// SetPassword assigns plaintext as the collective's password.
//
// The first assignment always hashes and issues a token. Later assignments
// compare by verifying plaintext against the stored hash: setting the same
// password again changes nothing and keeps existing tokens valid; a different
// password is re-hashed and the token is rotated to a new value.
//
// It reports whether the credentials changed.
func (m *Credentials) SetPassword(c *models.Collective, plaintext string) (bool, error) {
	if plaintext == "" {
		return false, ErrEmptyPassword
	}
	if len(plaintext) > MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	if c.PasswordHash != "" && m.hasher.Verify(plaintext, c.PasswordHash) {
		return false, nil
	}

	hashed, err := m.hasher.Hash(plaintext)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	c.PasswordHash = hashed
	c.Token = rotate(c.Token)
	c.Touch(m.now())
	return true, nil
}

// CheckPassword reports whether plaintext is the collective's current password.
func (m *Credentials) CheckPassword(c *models.Collective, plaintext string) bool {
	if c.PasswordHash == "" || len(plaintext) > MaxPasswordBytes {
		return false
	}
	return m.hasher.Verify(plaintext, c.PasswordHash)
}

// NewToken returns a fresh opaque token.
func NewToken() string {
	return uuid.NewString()
}

// rotate returns a token guaranteed to differ from prev.
func rotate(prev string) string {
	for {
		if next := NewToken(); next != prev {
			return next
		}
	}
}

