// Package memorystorage keeps the biolink document in process memory.
// It is used when no persistent backend is configured and in tests.
package memorystorage

import (
	"context"
	"sync"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

// MemoryStorage holds the encoded document, so every get and put copies it.
type MemoryStorage struct {
	mu      sync.RWMutex
	encoded []byte
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{}, nil
}

func (theStorage *MemoryStorage) GetDocument(ctx context.Context) (*models.Document, error) {
	theStorage.mu.RLock()
	encoded := theStorage.encoded
	theStorage.mu.RUnlock()

	if encoded == nil {
		var err error
		encoded, err = theStorage.initDefault()
		if err != nil {
			return nil, err
		}
	}

	doc, err := models.DecodeDocument(encoded)
	if err != nil {
		return nil, models.NewStorageError("decode", err)
	}

	return doc, nil
}

func (theStorage *MemoryStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	encoded, err := models.EncodeDocument(doc)
	if err != nil {
		return models.NewStorageError("encode", err)
	}

	theStorage.mu.Lock()
	theStorage.encoded = encoded
	theStorage.mu.Unlock()

	return nil
}

func (theStorage *MemoryStorage) initDefault() ([]byte, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if theStorage.encoded != nil {
		return theStorage.encoded, nil
	}
	encoded, err := models.EncodeDocument(models.DefaultDocument())
	if err != nil {
		return nil, models.NewStorageError("encode", err)
	}
	theStorage.encoded = encoded

	return encoded, nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
