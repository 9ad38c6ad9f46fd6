// Package mockstorage provides a testify mock of storage.Storage for
// handler tests that need to simulate backend failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) GetDocument(ctx context.Context) (*models.Document, error) {
	args := m.Called(ctx)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func (m *StorageMock) SaveDocument(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
