// Package auth implements the local sign-in gate. There is no identity
// provider behind it: signing in stores an opaque token and its presence is
// what counts as authorized.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"roamfree/internal/database"
)

// Provider decides whether a profile is signed in.
type Provider interface {
	Authorized(ctx context.Context, kv database.KV) (bool, error)
	Login(ctx context.Context, kv database.KV) error
	Logout(ctx context.Context, kv database.KV) error
}

// MockProvider keeps a random token under the "authToken" key.
type MockProvider struct {
	newToken func() string
}

// NewMockProvider creates a provider issuing UUID tokens
func NewMockProvider() *MockProvider {
	return &MockProvider{newToken: uuid.NewString}
}

// Authorized reports whether a non-empty token is stored.
func (p *MockProvider) Authorized(ctx context.Context, kv database.KV) (bool, error) {
	token, err := kv.Get(ctx, database.KeyAuthToken)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth.Authorized: %w", err)
	}
	return len(token) > 0, nil
}

// Login stores a fresh token, replacing any previous one.
func (p *MockProvider) Login(ctx context.Context, kv database.KV) error {
	if err := kv.Set(ctx, database.KeyAuthToken, []byte(p.newToken())); err != nil {
		return fmt.Errorf("auth.Login: %w", err)
	}
	return nil
}

// Logout removes the token.
func (p *MockProvider) Logout(ctx context.Context, kv database.KV) error {
	if err := kv.Delete(ctx, database.KeyAuthToken); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	return nil
}
