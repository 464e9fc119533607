package providers

import (
	"context"

	"github.com/careloop/appointment-engine/internal/domain/entities"
)

// TokenVerifier resolves a bearer credential to a principal. The session
// layer that issues tokens is an external collaborator; verification
// failures of any kind surface as an opaque unauthorized error.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*entities.Principal, error)
}
