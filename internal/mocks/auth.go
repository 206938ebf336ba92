package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/types"
)

// MockAuthenticator is a mock implementation of middleware.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

func (m *MockAuthenticator) LookupActor(ctx context.Context, claims *types.TokenClaims) (*types.Actor, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Actor), args.Error(1)
}
