package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestAESEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	secret := "whsec_4f2b6a8c9d1e"
	enc, err := svc.Encrypt(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, enc)

	dec, err := svc.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, secret, dec)
}

func TestAESEncryptionService_NonceUniqueness(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	enc1, err := svc.Encrypt("same secret")
	require.NoError(t, err)
	enc2, err := svc.Encrypt("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, enc1, enc2, "GCM nonce must differ per encryption")
}

func TestNewAESEncryptionService_InvalidKey(t *testing.T) {
	_, err := NewAESEncryptionService("not-hex")
	assert.Error(t, err)

	_, err = NewAESEncryptionService("abcd")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestAESEncryptionService_Decrypt_Tampered(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	enc, err := svc.Encrypt("secret")
	require.NoError(t, err)

	tampered := strings.Replace(enc, enc[len(enc)-1:], flipHexChar(enc[len(enc)-1:]), 1)
	_, err = svc.Decrypt(tampered)
	assert.Error(t, err, "GCM must reject tampered ciphertext")
}

func TestAESEncryptionService_Decrypt_TooShort(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	_, err = svc.Decrypt("abcd")
	assert.Error(t, err)
}

func flipHexChar(s string) string {
	if s == "0" {
		return "1"
	}
	return "0"
}
