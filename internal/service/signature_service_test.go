package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_Sign_Deterministic(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"test":true}`)

	sig1 := svc.Sign("abc", payload)
	sig2 := svc.Sign("abc", payload)

	assert.Equal(t, sig1, sig2, "same payload and key must yield the same signature")
	assert.True(t, strings.HasPrefix(sig1, "sha256="))
}

func TestHMACSignatureService_Sign_MatchesReceiverComputation(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"event":"user.joined_community","user_id":42}`)

	// What a receiver would compute over the raw request body.
	mac := hmac.New(sha256.New, []byte("s3cr3t"))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, svc.Sign("s3cr3t", payload))
}

func TestHMACSignatureService_Sign_PayloadSensitivity(t *testing.T) {
	svc := NewHMACSignatureService()

	sig := svc.Sign("abc", []byte(`{"test":true}`))
	flipped := svc.Sign("abc", []byte(`{"test":trud}`))

	assert.NotEqual(t, sig, flipped, "changing one byte of the payload must change the signature")
}

func TestHMACSignatureService_Sign_KeySensitivity(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"test":true}`)

	assert.NotEqual(t, svc.Sign("key-a", payload), svc.Sign("key-b", payload))
}

func TestHMACSignatureService_Verify(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"hello":"world"}`)

	sig := svc.Sign("secret", payload)

	assert.True(t, svc.Verify("secret", payload, sig))
	assert.False(t, svc.Verify("wrong", payload, sig))
	assert.False(t, svc.Verify("secret", []byte(`{"hello":"World"}`), sig))
	assert.False(t, svc.Verify("secret", payload, "sha256=deadbeef"))
}
