package service

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// NormalizeEmail lowercases and trims an address. Email is the identity key,
// so every lookup and token subject goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GravatarURL is the default avatar assigned at signup.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}
