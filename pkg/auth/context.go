package auth

import (
	"context"

	"localtube/pkg/apperr"
)

// Identity is the authenticated user attached to a request.
type Identity struct {
	UserID   uint
	Username string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// CurrentUser returns the request's identity, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// RequireUser is CurrentUser for operations that reject anonymous callers.
func RequireUser(ctx context.Context) (*Identity, error) {
	id := CurrentUser(ctx)
	if id == nil {
		return nil, apperr.ErrAuthRequired
	}
	return id, nil
}
