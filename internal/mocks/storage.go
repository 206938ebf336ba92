package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/storage"
)

// MockImageStore is a mock implementation of storage.ImageStore
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, img *storage.Image) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}
