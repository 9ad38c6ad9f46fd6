// Package storage declares the port every document storage backend implements.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

// Storage persists the single biolink document.
//
// GetDocument returns the current document, persisting and returning
// models.DefaultDocument() when none exists yet. SaveDocument replaces the
// whole document; there is no merge and the last completed write wins.
// Backend failures are returned as *models.StorageError.
type Storage interface {
	GetDocument(ctx context.Context) (*models.Document, error)

	SaveDocument(ctx context.Context, doc *models.Document) error

	Ping(ctx context.Context) error

	Close() error
}
