// Package models defines the biolink document, its JSON wire format,
// the API request/response shapes and the error taxonomy shared by
// the storage backends and the HTTP layer.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errDocumentNotObject = errors.New("document must be a JSON object")

// Theme values understood by the renderer. Anything else is treated as ThemeLight.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Background effects understood by the renderer. Anything else is treated as EffectNone.
const (
	EffectNone      = "none"
	EffectParticles = "particles"
)

// AnimationNone is the default animation hint. The value is opaque to the server.
const AnimationNone = "none"

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeMongo
	StorageTypeMinIO
	StorageTypeFile
	StorageTypeMemory
)

// Profile is the header block of the public page.
type Profile struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	ImageURL string `json:"imageUrl"`
}

// Link is one outbound entry of the public page. ID is assigned by the editor
// and is never touched by the server.
type Link struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Document is the single persisted record describing the owner's page.
//
// The typed fields are a best-effort view used for rendering. When a decoded
// object carries more than they can express (unknown keys, values of the
// wrong type) the object itself is kept and is what the document encodes
// to, so nothing the editor sent is lost. Edits to the fields of such a
// document are not encoded.
type Document struct {
	Profile            Profile `json:"profile"`
	Socials            Socials `json:"socials"`
	Links              []Link  `json:"links"`
	Theme              string  `json:"theme"`
	Animation          string  `json:"animation"`
	BackgroundEffect   string  `json:"backgroundEffect"`
	BackgroundImageURL string  `json:"backgroundImageUrl"`

	source json.RawMessage
}

// DefaultDocument returns the document a fresh deployment starts with.
func DefaultDocument() *Document {
	return &Document{
		Profile: Profile{
			Name: "@YourName",
			Bio:  "Welcome to my Biolink! Connect with me through the links below.",
		},
		Links:            []Link{},
		Theme:            ThemeLight,
		Animation:        AnimationNone,
		BackgroundEffect: EffectNone,
	}
}

// EncodeDocument serializes the document in its persisted form.
func EncodeDocument(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("error marshaling document: %w", err)
	}

	return data, nil
}

// DecodeDocument parses a document previously produced by EncodeDocument
// or received from the editor. Only a non-object input is an error.
func DecodeDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("error unmarshaling document: %w", err)
	}

	return doc, nil
}

// Clone returns a deep copy going through the wire format, so a clone is
// exactly what a persisting backend would hand back.
func (d *Document) Clone() (*Document, error) {
	data, err := EncodeDocument(d)
	if err != nil {
		return nil, err
	}

	return DecodeDocument(data)
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// Result is the envelope returned by every JSON write endpoint.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrStorage is matched by every error produced by a document storage backend.
var ErrStorage = errors.New("document storage failure")

// ErrUnauthorized is returned when a write is attempted without an authenticated session.
var ErrUnauthorized = errors.New("unauthorized")

// ErrCredentialMismatch is returned when a login attempt carries the wrong secret.
var ErrCredentialMismatch = errors.New("invalid password")

// StorageError wraps an I/O failure of a storage backend together with the
// operation that failed.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err, or returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}

	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorage as a match so callers need not know the concrete type.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
