package crypto

import (
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 8

// Hasher hashes and verifies passwords. Cost is configurable so tests can use bcrypt.MinCost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcryptCost
	}
	return &Hasher{cost: cost}
}

// HashPassword hashes a plaintext password with bcrypt.
func (h *Hasher) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(bytes), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (h *Hasher) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword hashes with the default cost.
func HashPassword(password string) (string, error) {
	return NewHasher(bcryptCost).HashPassword(password)
}

// CheckPassword verifies against any bcrypt hash regardless of its cost.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
