package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")

	for _, username := range []string{"alice", "bob", "user-with-dashes"} {
		token, err := codec.Issue(username, KindAccess, 30*time.Minute)
		require.NoError(t, err)

		claims, err := codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, username, claims.Username)
		assert.Equal(t, KindAccess, claims.Kind)
		assert.NotNil(t, claims.IssuedAt)
		assert.NotNil(t, claims.ExpiresAt)
	}
}

func TestCodecWireShape(t *testing.T) {
	codec := NewCodec("test-secret")
	token, err := codec.Issue("alice", KindRefresh, time.Hour)
	require.NoError(t, err)
	// header.payload.signature
	assert.Len(t, strings.Split(token, "."), 3)
}

func TestCodecExpiredVsMalformed(t *testing.T) {
	issued := time.Date(2023, 9, 5, 12, 0, 0, 0, time.UTC)
	codec := NewCodec("test-secret").WithClock(func() time.Time { return issued })

	token, err := codec.Issue("alice", KindAccess, 30*time.Minute)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		late := NewCodec("test-secret").WithClock(func() time.Time {
			return issued.Add(31 * time.Minute)
		})
		_, err := late.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("still valid just before expiry", func(t *testing.T) {
		almost := NewCodec("test-secret").WithClock(func() time.Time {
			return issued.Add(29 * time.Minute)
		})
		_, err := almost.Verify(token)
		assert.NoError(t, err)
	})

	t.Run("wrong secret is malformed, not expired", func(t *testing.T) {
		forged := NewCodec("other-secret").WithClock(func() time.Time { return issued })
		_, err := forged.Verify(token)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := codec.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		tampered := parts[0] + ".eyJ1c2VybmFtZSI6Im1hbGxvcnkifQ." + parts[2]
		_, err := codec.Verify(tampered)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})
}

func TestCodecRejectsUnknownKind(t *testing.T) {
	codec := NewCodec("test-secret")
	token, err := codec.Issue("alice", TokenKind("session"), time.Hour)
	require.NoError(t, err)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
