// Package signature implements webhook payload authentication primitives
// shared by provider adapters.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrInvalidSignature = errors.New("invalid signature")

// HMACVerifier checks hex-encoded HMAC-SHA256 signatures over raw payloads.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier builds a verifier with the provider's shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign returns the hex-encoded HMAC-SHA256 of payload.
func (v *HMACVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks that signature matches payload in constant time.
func (v *HMACVerifier) Verify(payload []byte, sig string) error {
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrInvalidSignature
	}
	return nil
}

// SecretsEqual compares two shared secrets in constant time.
func SecretsEqual(got, want string) bool {
	return hmac.Equal([]byte(got), []byte(want))
}
