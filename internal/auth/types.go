// Package auth verifies the caller's bearer credential.
//
// DESIGN: The gateway only needs one answer from identity: which user owns
// this Authorization header. Verifier implementations:
//   - JWTVerifier:    local HS256 check against the project JWT secret
//   - RemoteVerifier: asks the identity service (/auth/v1/user)
//   - StaticVerifier: accepts any credential, for local development
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/supabase"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthorized means the credential is missing, malformed or rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired means the credential was valid but has expired.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

// =============================================================================
// TYPES
// =============================================================================

// User is the verified identity of a caller.
type User struct {
	ID    string
	Email string
	Role  string
}

// Verifier maps an Authorization header to a user.
// Every failure wraps ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, authHeader string) (*User, error)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// BearerToken extracts the bearer token value from an Authorization header.
// Input: "Bearer eyJ..." -> Output: "eyJ..."
// Input: "eyJ..." -> Output: "eyJ..." (pass-through if no Bearer prefix)
func BearerToken(authHeader string) string {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return ""
	}

	const bearerPrefix = "Bearer "
	if strings.EqualFold(authHeader, strings.TrimSpace(bearerPrefix)) {
		return ""
	}
	if len(authHeader) >= len(bearerPrefix) && strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(authHeader[len(bearerPrefix):])
	}

	// If no Bearer prefix, return as-is (some clients send bare tokens)
	return authHeader
}

// New builds the verifier selected by cfg.Mode.
func New(cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		return NewJWTVerifier(cfg.JWTSecret)
	case config.AuthModeRemote:
		return NewRemoteVerifier(supabase.NewClient(cfg.URL, cfg.AnonKey)), nil
	case config.AuthModeNone:
		return StaticVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}
