package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// RemoteVerifier resolves bearer tokens against the session service.
// The engine does not interpret why verification failed; every non-200
// answer collapses into the same opaque unauthorized error.
type RemoteVerifier struct {
	endpoint string
	client   *http.Client
}

// NewRemoteVerifier creates a verifier backed by the session service
func NewRemoteVerifier(endpoint string, timeout time.Duration) providers.TokenVerifier {
	return &RemoteVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Verify resolves a bearer token to a principal
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*entities.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build session request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransientIOError("session service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	var principal entities.Principal
	if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if principal.ID == "" {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if principal.Role != entities.RolePatient && principal.Role != entities.RoleProvider {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	return &principal, nil
}
