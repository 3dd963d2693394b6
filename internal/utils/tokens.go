package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueToken returns a hex-encoded random token with n bytes of entropy.
func NewOpaqueToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("utils: rand.Read: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// NewInviteToken returns an unguessable invitation token (128-bit entropy).
func NewInviteToken() string {
	return NewOpaqueToken(16)
}

// NewShareToken returns an unguessable share-link token (128-bit entropy).
func NewShareToken() string {
	return NewOpaqueToken(16)
}
