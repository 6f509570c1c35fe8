// Package auth hashes and verifies passwords.
//
// New digests are bcrypt. Digests written by the earlier version of the
// app are unsalted SHA-256 hex strings; Verify still accepts them so
// existing accounts can log in, and the service rehashes them on the first
// successful login.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when the configured cost is out of bcrypt's range.
const DefaultCost = bcrypt.DefaultCost

// Hasher produces and checks password digests at a fixed bcrypt cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt digest of password.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash. Legacy SHA-256 digests
// are compared in constant time.
func (h *Hasher) Verify(hash, password string) bool {
	if IsLegacy(hash) {
		want := LegacyHash(password)
		return subtle.ConstantTimeCompare([]byte(hash), []byte(want)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsLegacy reports whether hash is an unsalted SHA-256 hex digest.
func IsLegacy(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// LegacyHash reproduces the old unsalted digest. Only used for
// verification and in tests seeding old rows.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
