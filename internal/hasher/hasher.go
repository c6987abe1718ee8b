// Package hasher provides the one-way password hashing capability used by
// registration and login. The hash output is opaque to the rest of the
// system and stored as-is.
package hasher

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes passwords and verifies candidates against a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Bcrypt implements PasswordHasher on top of golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a Bcrypt hasher with the given cost.
// A cost below bcrypt.MinCost falls back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the bcrypt hash of the password.
func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether the password matches the stored hash.
func (b *Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
