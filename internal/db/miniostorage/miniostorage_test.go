package miniostorage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/biolink/internal/db/storage"
	"github.com/patric-chuzhbe/biolink/internal/db/storagetest"
)

func TestIsNotFound(t *testing.T) {
	assert.False(t, isNotFound(nil))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{}, time.Second)
	assert.Error(t, err)
}

// TEST_MINIO_ENDPOINT example: localhost:9000 (credentials from TEST_MINIO_ACCESS_KEY / TEST_MINIO_SECRET_KEY)
func TestMinIOStorage(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT is not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		s, err := New(
			context.Background(),
			Config{
				Endpoint:  endpoint,
				AccessKey: os.Getenv("TEST_MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
				Bucket:    "biolink-test",
				Object:    "biolink.json",
			},
			10*time.Second,
		)
		require.NoError(t, err)
		require.NoError(t, s.remove(context.Background()))
		return s
	})
}
