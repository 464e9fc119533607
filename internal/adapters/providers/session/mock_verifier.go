package session

import (
	"context"
	"strings"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// MockVerifier accepts tokens of the form "<role>:<id>" for development
// and tests, when no session service is configured.
type MockVerifier struct{}

// NewMockVerifier creates a mock token verifier
func NewMockVerifier() providers.TokenVerifier {
	return &MockVerifier{}
}

// Verify resolves a "<role>:<id>" token to a principal
func (v *MockVerifier) Verify(ctx context.Context, token string) (*entities.Principal, error) {
	role, id, ok := strings.Cut(token, ":")
	if !ok || id == "" {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	switch entities.Role(role) {
	case entities.RolePatient, entities.RoleProvider:
		return &entities.Principal{ID: id, Role: entities.Role(role)}, nil
	default:
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
}
