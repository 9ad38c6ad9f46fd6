// Package jsondb stores the biolink document in a single JSON file.
//
// Every write goes to a temporary file in the same directory which is then
// renamed over the target, so readers observe either the old or the new
// document and never a partial one. Every read goes to the file, so a
// document edited on disk is picked up without a restart.
package jsondb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

type JSONDB struct {
	fileName string
}

// New returns a JSONDB bound to fileName and writes the default document
// there when the file does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
	}

	_, err := os.Stat(fileName)
	if err == nil {
		return db, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, models.NewStorageError("stat", err)
	}

	if err := db.initDBFile(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *JSONDB) initDBFile() error {
	return db.SaveDocument(context.Background(), models.DefaultDocument())
}

func writeToJSONFile(fileName string, data []byte) error {
	file, err := os.CreateTemp(filepath.Dir(fileName), filepath.Base(fileName)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tmpName := file.Name()
	defer os.Remove(tmpName)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("error syncing file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("error replacing file: %w", err)
	}

	return nil
}

func (db *JSONDB) GetDocument(ctx context.Context) (*models.Document, error) {
	data, err := os.ReadFile(db.fileName)
	if errors.Is(err, os.ErrNotExist) {
		if err := db.initDBFile(); err != nil {
			return nil, err
		}
		return models.DefaultDocument(), nil
	}
	if err != nil {
		return nil, models.NewStorageError("read", err)
	}

	doc, err := models.DecodeDocument(data)
	if err != nil {
		return nil, models.NewStorageError("decode", err)
	}

	return doc, nil
}

func (db *JSONDB) SaveDocument(ctx context.Context, doc *models.Document) error {
	data, err := models.EncodeDocument(doc)
	if err != nil {
		return models.NewStorageError("encode", err)
	}

	return models.NewStorageError("write", writeToJSONFile(db.fileName, data))
}

// Ping checks that the directory holding the document is reachable.
func (db *JSONDB) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(db.fileName))

	return models.NewStorageError("ping", err)
}

func (db *JSONDB) Close() error {
	return nil
}
