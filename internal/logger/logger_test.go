package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud"))
	assert.NoError(t, Init("info"))
	_ = Sync()
}

func TestWithLoggingHTTPMiddleware(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	previous := Log
	Log = zap.New(core).Sugar()
	t.Cleanup(func() { Log = previous })

	handler := WithLoggingHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/kettle", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "/kettle", fields["uri"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, len("short and stout"), fields["size"])
}
