package memorystorage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/biolink/internal/db/storage"
	"github.com/patric-chuzhbe/biolink/internal/db/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		theStorage, err := New()
		require.NoError(t, err)
		return theStorage
	})
}
