package credentials

import (
	"context"
	"errors"
)

// Fixed keys for the two persisted values.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// ErrNotFound is returned by [Store.Load] when no token has been persisted.
var ErrNotFound = errors.New("credentials not found")

// Credential is the token pair issued by the authorization server.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsZero reports whether neither token is set.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Store reads and writes the credential pair.
type Store interface {
	// Load returns the stored pair. Returns [ErrNotFound] if nothing is stored.
	// A pair with only one token set is returned as-is.
	Load(ctx context.Context) (Credential, error)

	// Save replaces both tokens.
	Save(ctx context.Context, c Credential) error

	// SaveAccessToken overwrites the access token, leaving the refresh token unchanged.
	SaveAccessToken(ctx context.Context, token string) error

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
