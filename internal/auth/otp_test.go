package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecret(t *testing.T) {
	secret, err := NewSecret("funneltrack", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, secret.Secret)
	assert.Contains(t, secret.URI, "otpauth://totp/")
	assert.Contains(t, secret.URI, "issuer=funneltrack")

	// Two generations never collide.
	other, err := NewSecret("funneltrack", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, secret.Secret, other.Secret)
}

func TestTOTPVerifier(t *testing.T) {
	secret, err := NewSecret("funneltrack", "alice")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret.Secret, time.Now())
	require.NoError(t, err)

	v := TOTPVerifier{}
	assert.True(t, v.Verify(code, secret.Secret))
	assert.False(t, v.Verify("not-a-code", secret.Secret))
}
