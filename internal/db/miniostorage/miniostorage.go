// Package miniostorage stores the biolink document as a single object in an
// S3-compatible bucket. A put replaces the whole object, which S3 semantics
// make atomic for readers.
package miniostorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/patric-chuzhbe/biolink/internal/models"
)

// Config holds MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Object    string
}

// MinIOStorage is an object-storage backed document storage.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	object string
}

// New creates the client and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, connectionTimeout time.Duration) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.MakeBucket(ctxWithTimeout, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctxWithTimeout, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, models.NewStorageError("ensure bucket", err)
		}
	}

	return &MinIOStorage{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

func (s *MinIOStorage) GetDocument(ctx context.Context) (*models.Document, error) {
	body, err := s.download(ctx)
	if isNotFound(err) {
		doc := models.DefaultDocument()
		if err := s.SaveDocument(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, models.NewStorageError("read", err)
	}

	doc, err := models.DecodeDocument(body)
	if err != nil {
		return nil, models.NewStorageError("decode", err)
	}

	return doc, nil
}

func (s *MinIOStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	body, err := models.EncodeDocument(doc)
	if err != nil {
		return models.NewStorageError("encode", err)
	}

	_, err = s.client.PutObject(
		ctx,
		s.bucket,
		s.object,
		bytes.NewReader(body),
		int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)

	return models.NewStorageError("write", err)
}

func (s *MinIOStorage) download(ctx context.Context) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

func isNotFound(err error) bool {
	return err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinIOStorage) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && !exists {
		err = fmt.Errorf("bucket %q does not exist", s.bucket)
	}

	return models.NewStorageError("ping", err)
}

func (s *MinIOStorage) Close() error {
	return nil
}

// remove deletes the document object. Used by tests to start from an empty bucket.
func (s *MinIOStorage) remove(ctx context.Context) error {
	return s.client.RemoveObject(ctx, s.bucket, s.object, minio.RemoveObjectOptions{})
}
