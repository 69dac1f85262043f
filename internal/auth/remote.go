package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/starnote/ai-gateway/internal/supabase"
)

// UserFetcher resolves the user behind an Authorization header.
type UserFetcher interface {
	GetUser(ctx context.Context, authHeader string) (*supabase.User, error)
}

// RemoteVerifier delegates verification to the identity service.
type RemoteVerifier struct {
	client UserFetcher
}

// NewRemoteVerifier creates a verifier backed by client.
func NewRemoteVerifier(client UserFetcher) *RemoteVerifier {
	return &RemoteVerifier{client: client}
}

// Verify implements Verifier. Transport errors are reported as unauthorized
// too: the caller cannot be identified either way.
func (v *RemoteVerifier) Verify(ctx context.Context, authHeader string) (*User, error) {
	if BearerToken(authHeader) == "" {
		return nil, ErrUnauthorized
	}

	u, err := v.client.GetUser(ctx, authHeader)
	if err != nil {
		if errors.Is(err, supabase.ErrUnauthorized) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: identity lookup failed: %v", ErrUnauthorized, err)
	}
	return &User{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// StaticVerifier accepts any non-empty credential as one fixed user.
type StaticVerifier struct {
	UserID string
}

// Verify implements Verifier.
func (v StaticVerifier) Verify(_ context.Context, authHeader string) (*User, error) {
	if BearerToken(authHeader) == "" {
		return nil, ErrUnauthorized
	}
	id := v.UserID
	if id == "" {
		id = "anonymous"
	}
	return &User{ID: id}, nil
}

var (
	_ Verifier = (*RemoteVerifier)(nil)
	_ Verifier = StaticVerifier{}
)
