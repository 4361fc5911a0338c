package auth

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaintextCipher(t *testing.T) {
	c := PlaintextCipher{}
	sealed, err := c.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", sealed)
	opened, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", opened)
}

func TestAEADCipherRoundTrip(t *testing.T) {
	c, err := NewAEADCipher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	sealed, err := c.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEqual(t, "JBSWY3DPEHPK3PXP", sealed)

	opened, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", opened)

	// Fresh nonce per seal.
	again, err := c.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestAEADCipherRejects(t *testing.T) {
	c, err := NewAEADCipher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	_, err = c.Open("not base64 !!!")
	assert.Error(t, err)

	_, err = c.Open("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)

	other, err := NewAEADCipher(bytes.Repeat([]byte{0x43}, 32))
	require.NoError(t, err)
	sealed, err := c.Seal("secret")
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err, "wrong key must not open the secret")
}

func TestNewAEADCipherKeyLength(t *testing.T) {
	_, err := NewAEADCipher([]byte("short"))
	assert.Error(t, err)
}
