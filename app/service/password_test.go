package service_test

import (
	"testing"

	"github.com/vibast-solutions/ms-go-identity/app/service"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := service.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "secret1" {
		t.Fatalf("hash must not equal plaintext")
	}

	if !service.VerifyPassword("secret1", hash) {
		t.Fatalf("expected password to verify")
	}
	if service.VerifyPassword("wrong", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPassword_Salted(t *testing.T) {
	h1, err := service.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	h2, err := service.HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	if service.VerifyPassword("secret1", "not-a-bcrypt-hash") {
		t.Fatalf("expected malformed hash to fail verification")
	}
	if service.VerifyPassword("secret1", "") {
		t.Fatalf("expected empty hash to fail verification")
	}
}
