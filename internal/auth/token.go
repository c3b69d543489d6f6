// Package auth holds the bearer-token session state. The token is the
// only durable process-wide value the client core owns.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenStore holds the backend bearer token obtained from the
// third-party login exchange. Safe for concurrent use.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Set replaces the stored token.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Token returns the stored token, empty when logged out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear drops the token. Called on logout.
func (s *TokenStore) Clear() {
	s.Set("")
}

// ExpiresWithin reports whether the token's exp claim falls inside the
// given window. The signature is not verified; the server remains the
// authority, this is only an early warning for re-login prompts.
// Tokens without a readable exp claim report false.
func ExpiresWithin(token string, window time.Duration) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < window
}
