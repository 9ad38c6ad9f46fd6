package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/patric-chuzhbe/biolink/internal/logger"
	"github.com/patric-chuzhbe/biolink/internal/models"
	"github.com/patric-chuzhbe/biolink/internal/render"
)

type documentKeeper interface {
	GetDocument(ctx context.Context) (*models.Document, error)

	SaveDocument(ctx context.Context, doc *models.Document) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	documentKeeper
	pinger
}

// MaxDocumentSize bounds the body accepted by SaveDocumentFrom.
const MaxDocumentSize = 1 << 20

// ErrInvalidDocument is returned when a submitted body is not a JSON document object.
var ErrInvalidDocument = errors.New("invalid document")

type Service struct {
	db storage
}

func New(db storage) *Service {
	return &Service{
		db: db,
	}
}

// GetDocument returns the current document, the default one on first access.
func (s *Service) GetDocument(ctx context.Context) (*models.Document, error) {
	return s.db.GetDocument(ctx)
}

// SaveDocument replaces the whole stored document.
func (s *Service) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return ErrInvalidDocument
	}

	return s.db.SaveDocument(ctx, doc)
}

// SaveDocumentFrom decodes a document from body and stores it. Any JSON
// object is accepted: fields the page cannot use, or that carry the wrong
// type, are stored as sent. Nothing is stored when body is not an object.
func (s *Service) SaveDocumentFrom(ctx context.Context, body io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxDocumentSize+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(data) > MaxDocumentSize {
		return fmt.Errorf("%w: larger than %d bytes", ErrInvalidDocument, MaxDocumentSize)
	}

	doc, err := models.DecodeDocument(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.HasSource() {
		logger.Log.Debugln("storing a document with fields the page does not render")
	}

	return s.SaveDocument(ctx, doc)
}

// RenderPage renders the public page from the current document.
func (s *Service) RenderPage(ctx context.Context) ([]byte, error) {
	doc, err := s.db.GetDocument(ctx)
	if err != nil {
		return nil, err
	}

	return render.Page(doc)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
