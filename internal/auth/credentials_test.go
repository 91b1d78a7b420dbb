package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/payshare/internal/models"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestCredentials() *Credentials {
	return NewCredentials(NewBcryptHasher(bcrypt.MinCost), func() time.Time { return fixedNow })
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("hunter2")
	require.NoError(t, err)
	second, err := h.Hash("hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2", first)
	assert.NotEqual(t, first, second, "hashes must be salted")
	assert.True(t, h.Verify("hunter2", first))
	assert.True(t, h.Verify("hunter2", second))
	assert.False(t, h.Verify("hunter3", first))
	assert.False(t, h.Verify("", first))
	assert.False(t, h.Verify("hunter2", ""))
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
}

func TestSetPassword(t *testing.T) {
	m := newTestCredentials()
	c := &models.Collective{ID: "c1"}

	t.Run("first assignment hashes and issues a token", func(t *testing.T) {
		changed, err := m.SetPassword(c, "secret")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NotEmpty(t, c.Token)
		assert.NotEqual(t, "secret", c.PasswordHash)
		assert.True(t, strings.HasPrefix(c.PasswordHash, "$2"))
		assert.Equal(t, fixedNow, c.ModifiedAt)
	})

	t.Run("same password keeps hash and token", func(t *testing.T) {
		hash, token := c.PasswordHash, c.Token

		changed, err := m.SetPassword(c, "secret")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, hash, c.PasswordHash)
		assert.Equal(t, token, c.Token)
	})

	t.Run("different password rotates the token", func(t *testing.T) {
		token := c.Token

		changed, err := m.SetPassword(c, "another secret")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NotEqual(t, token, c.Token)
		assert.True(t, m.CheckPassword(c, "another secret"))
		assert.False(t, m.CheckPassword(c, "secret"), "prior password must stop working")
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		token := c.Token
		_, err := m.SetPassword(c, "")
		assert.ErrorIs(t, err, ErrEmptyPassword)
		assert.Equal(t, token, c.Token)
	})
}

func TestCheckPassword(t *testing.T) {
	m := newTestCredentials()
	c := &models.Collective{}

	assert.False(t, m.CheckPassword(c, ""), "no password set yet")

	_, err := m.SetPassword(c, "correct horse")
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
		want      bool
	}{
		{name: "current password", plaintext: "correct horse", want: true},
		{name: "empty string", plaintext: "", want: false},
		{name: "different case", plaintext: "Correct horse", want: false},
		{name: "prefix", plaintext: "correct", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.CheckPassword(c, tt.plaintext))
		})
	}
}

func TestSetPassword_LengthLimit(t *testing.T) {
	m := newTestCredentials()
	c := &models.Collective{}

	atLimit := strings.Repeat("a", MaxPasswordBytes)
	changed, err := m.SetPassword(c, atLimit)
	require.NoError(t, err)
	require.True(t, changed)
	assert.True(t, m.CheckPassword(c, atLimit))

	hash, token := c.PasswordHash, c.Token
	for _, long := range []string{atLimit + "a", atLimit + "-other"} {
		assert.False(t, m.CheckPassword(c, long), "passwords sharing the first %d bytes must not match", MaxPasswordBytes)

		changed, err := m.SetPassword(c, long)
		assert.ErrorIs(t, err, ErrPasswordTooLong)
		assert.False(t, changed)
		assert.Equal(t, hash, c.PasswordHash)
		assert.Equal(t, token, c.Token)
	}

	fresh := &models.Collective{}
	_, err = m.SetPassword(fresh, atLimit+"b")
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Empty(t, fresh.Token)
}

func TestBcryptHasher_RejectsOverlongInput(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	atLimit := strings.Repeat("x", MaxPasswordBytes)

	hash, err := h.Hash(atLimit)
	require.NoError(t, err)
	assert.True(t, h.Verify(atLimit, hash))
	assert.False(t, h.Verify(atLimit+"y", hash))
}

func TestSetPassword_HashFailureLeavesCollectiveUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hasher := NewMockHasher(ctrl)
	hasher.EXPECT().Verify("new", "old-hash").Return(false)
	hasher.EXPECT().Hash("new").Return("", errors.New("entropy exhausted"))

	m := NewCredentials(hasher, nil)
	c := &models.Collective{PasswordHash: "old-hash", Token: "old-token"}

	changed, err := m.SetPassword(c, "new")
	assert.EqualError(t, err, "failed to hash password: entropy exhausted")
	assert.False(t, changed)
	assert.Equal(t, "old-hash", c.PasswordHash)
	assert.Equal(t, "old-token", c.Token)
}

func TestSetPassword_ComparesThroughVerify(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// The stored hash is never compared to a fresh hash; Verify decides.
	hasher := NewMockHasher(ctrl)
	hasher.EXPECT().Verify("same", "stored").Return(true)

	m := NewCredentials(hasher, nil)
	c := &models.Collective{PasswordHash: "stored", Token: "tok"}

	changed, err := m.SetPassword(c, "same")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "tok", c.Token)
}

func TestRotateNeverRepeats(t *testing.T) {
	prev := NewToken()
	for i := 0; i < 100; i++ {
		next := rotate(prev)
		require.NotEqual(t, prev, next)
		prev = next
	}
}
