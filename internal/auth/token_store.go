package auth

import (
	"context"
	"fmt"
	"time"

	"aizeeno/internal/cache"
)

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID, username, email string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (username, email string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

// TokenStore handles storage and retrieval of refresh tokens in Redis. The
// cache is fail-safe, so a Redis outage invalidates outstanding refresh
// tokens rather than failing logins.
type TokenStore struct {
	cache *cache.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type refreshTokenData struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// StoreRefreshToken stores a refresh token with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID, username, email string, ttl time.Duration) error {
	s.cache.SetJSON(ctx, cache.RefreshTokenKey(tokenID), refreshTokenData{Username: username, Email: email}, ttl)
	return nil
}

// GetRefreshToken retrieves refresh token data.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (username, email string, err error) {
	var data refreshTokenData
	if !s.cache.GetJSON(ctx, cache.RefreshTokenKey(tokenID), &data) {
		return "", "", fmt.Errorf("refresh token not found")
	}
	return data.Username, data.Email, nil
}

// DeleteRefreshToken removes a refresh token.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	s.cache.Delete(ctx, cache.RefreshTokenKey(tokenID))
	return nil
}
