package app

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/biolink/internal/config"
	"github.com/patric-chuzhbe/biolink/internal/db/jsondb"
	"github.com/patric-chuzhbe/biolink/internal/mockstorage"
	"github.com/patric-chuzhbe/biolink/internal/models"
	"github.com/patric-chuzhbe/biolink/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RunAddr:                    "127.0.0.1:0",
		LogLevel:                   "debug",
		DBFileName:                 filepath.Join(t.TempDir(), "biolink.json"),
		DBConnectionTimeout:        time.Second,
		AdminPassword:              "secret",
		AuthCookieName:             "biolink_session",
		AuthCookieSigningSecretKey: base64.URLEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
		SessionTTL:                 time.Hour,
		LoginRateLimit:             1,
		LoginRateBurst:             5,
	}
}

func TestGetAvailableStorageType(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{name: "postgres wins", cfg: config.Config{DatabaseDSN: "dsn", MongoURI: "mongodb://x", DBFileName: "f.json"}, want: models.StorageTypePostgresql},
		{name: "mongo", cfg: config.Config{MongoURI: "mongodb://x", MinIOEndpoint: "minio:9000", DBFileName: "f.json"}, want: models.StorageTypeMongo},
		{name: "minio", cfg: config.Config{MinIOEndpoint: "minio:9000", DBFileName: "f.json"}, want: models.StorageTypeMinIO},
		{name: "file", cfg: config.Config{DBFileName: "f.json"}, want: models.StorageTypeFile},
		{name: "memory", cfg: config.Config{}, want: models.StorageTypeMemory},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, getAvailableStorageType(&test.cfg))
		})
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer app.closeStores()

	assert.IsType(t, &jsondb.JSONDB{}, app.db)
	assert.IsType(t, &session.MemoryStore{}, app.sessions)
	assert.FileExists(t, cfg.DBFileName)

	server := httptest.NewServer(app.Handler())
	defer server.Close()
	client := resty.New()

	resp, err := client.R().Get(server.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "<title>@YourName</title>")

	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Password: "secret"}).
		Post(server.URL + "/api/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = client.R().Get(server.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "go_goroutines")
	assert.Contains(t, resp.String(), `biolink_login_attempts_total{result="ok"} 1`)
}

func TestNewWithConfigRedisSessions(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := testConfig(t)
	cfg.DBFileName = ""
	cfg.RedisAddr = m.Addr()

	app, err := NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer app.closeStores()

	assert.IsType(t, &session.RedisStore{}, app.sessions)

	server := httptest.NewServer(app.Handler())
	defer server.Close()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Password: "secret"}).
		Post(server.URL + "/api/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, m.Keys(), 1)
}

func TestNewWithConfigErrors(t *testing.T) {
	t.Run("unreachable storage directory", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DBFileName = filepath.Join(t.TempDir(), "missing", "biolink.json")

		_, err := NewWithConfig(context.Background(), cfg)
		assert.ErrorIs(t, err, models.ErrStorage)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		m, err := mr.Run()
		require.NoError(t, err)
		addr := m.Addr()
		m.Close()

		cfg := testConfig(t)
		cfg.RedisAddr = addr

		_, err = NewWithConfig(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("bad trusted proxy", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TrustedProxies = []string{"proxy"}

		_, err := NewWithConfig(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("bad signing key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AuthCookieSigningSecretKey = "%%%"

		_, err := NewWithConfig(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestRunReportsCloseErrorOnServerFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	closeFailure := errors.New("close failed")
	db := &mockstorage.StorageMock{}
	db.On("Close").Return(closeFailure)

	cfg := testConfig(t)
	cfg.RunAddr = busy.Addr().String()
	a := &App{
		cfg:            cfg,
		db:             db,
		stopBackground: func() {},
		httpHandler:    http.NotFoundHandler(),
	}

	err = a.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, closeFailure)
	assert.Contains(t, err.Error(), "server error")
	db.AssertExpectations(t)
}
