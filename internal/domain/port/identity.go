package port

import (
	"context"

	"stockwatch/internal/domain/model"
)

// TokenVerifier validates a bearer token and resolves the caller's identity.
// Verification failure of any kind is an error; routes map it to 401.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}
