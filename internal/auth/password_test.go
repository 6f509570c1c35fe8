package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt digest, got %q", hash)
	}
	if IsLegacy(hash) {
		t.Fatal("bcrypt digest reported as legacy")
	}
	if !h.Verify(hash, "pw1") {
		t.Fatal("correct password rejected")
	}
	if h.Verify(hash, "pw2") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestVerifyLegacy(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	legacy := LegacyHash("pw1")

	// sha256("pw1") as written by the old app.
	if len(legacy) != 64 || !IsLegacy(legacy) {
		t.Fatalf("unexpected legacy digest %q", legacy)
	}
	if !h.Verify(legacy, "pw1") {
		t.Fatal("legacy digest rejected")
	}
	if h.Verify(legacy, "nope") {
		t.Fatal("legacy digest accepted wrong password")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if got := NewHasher(0).cost; got != DefaultCost {
		t.Fatalf("cost = %d, want %d", got, DefaultCost)
	}
	if got := NewHasher(bcrypt.MaxCost + 1).cost; got != DefaultCost {
		t.Fatalf("cost = %d, want %d", got, DefaultCost)
	}
}
