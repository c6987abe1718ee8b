// Package token implements issuing and verifying the signed bearer
// credentials of the service. Tokens are compact HS256 JWTs carrying the
// username, an absolute expiry and the persistence flag; the signed token is
// the only record — nothing is stored server-side.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SigningKeySize is the minimum key length in bytes accepted for HS256.
const SigningKeySize = 32

var (
	// ErrInvalidToken is returned for structural or signature problems.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token's expiry has passed.
	// Callers collapse it with ErrInvalidToken into a single auth rejection;
	// the distinction exists for diagnostics only.
	ErrTokenExpired = errors.New("token expired")

	// ErrCannotSign is returned when claim serialization or signing fails.
	// It indicates an internal problem and is treated as fatal for the request.
	ErrCannotSign = errors.New("cannot sign token")
)

// Claims is the signed payload: subject (username), expiry, and the
// persistence flag carried through token rotation.
type Claims struct {
	jwt.RegisteredClaims
	Persistent bool `json:"persistent"`
}

// NewClaims builds a fresh claim set for the given subject expiring after ttl.
func NewClaims(subject string, ttl time.Duration, persistent bool) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Persistent: persistent,
	}
}

// KeyProvider supplies the HMAC signing key. Implementations decide the
// key's lifecycle; the token service holds whatever the provider returns.
type KeyProvider interface {
	SigningKey() ([]byte, error)
}

// StaticKeyProvider serves a key supplied at startup (from configuration or
// an external secret source), so token validity survives process restarts.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider validates the key length and returns the provider.
func NewStaticKeyProvider(key []byte) (*StaticKeyProvider, error) {
	if len(key) < SigningKeySize {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", SigningKeySize, len(key))
	}
	return &StaticKeyProvider{key: key}, nil
}

// SigningKey returns the configured key.
func (p *StaticKeyProvider) SigningKey() ([]byte, error) {
	return p.key, nil
}

// EphemeralKeyProvider generates a random key lazily on first use and holds
// it for the process lifetime. Every token becomes unverifiable after a
// restart; deployments that need stable verification must configure a static
// key instead.
type EphemeralKeyProvider struct {
	once sync.Once
	key  []byte
	err  error
}

// NewEphemeralKeyProvider returns a provider with no key material yet.
func NewEphemeralKeyProvider() *EphemeralKeyProvider {
	return &EphemeralKeyProvider{}
}

// SigningKey generates the key on first call. Concurrent first callers all
// observe the single winner's value.
func (p *EphemeralKeyProvider) SigningKey() ([]byte, error) {
	p.once.Do(func() {
		key := make([]byte, SigningKeySize)
		if _, err := rand.Read(key); err != nil {
			p.err = err
			return
		}
		p.key = key
	})
	return p.key, p.err
}

// Service signs and verifies claim sets with the key from its KeyProvider.
// Operations are pure and CPU-bound; no locking is needed beyond the
// provider's own initialization.
type Service struct {
	keys KeyProvider
}

// New creates a token Service using the given key provider.
func New(keys KeyProvider) *Service {
	return &Service{keys: keys}
}

// Issue serializes and signs the claim set, returning the compact token.
func (s *Service) Issue(claims *Claims) (string, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCannotSign, err)
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCannotSign, err)
	}

	return tokenString, nil
}

// Verify checks structure, signature and expiry, returning the claims on
// success. Expired tokens yield ErrTokenExpired, anything else ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
