package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.IsTrustedSubnetEmpty())
	assert.False(t, checker.Check(net.ParseIP("10.0.0.1")))

	checker, err = New("10.0.0.0/8")
	require.NoError(t, err)
	assert.False(t, checker.IsTrustedSubnetEmpty())
	assert.True(t, checker.Check(net.ParseIP("10.1.2.3")))
	assert.False(t, checker.Check(net.ParseIP("192.168.0.1")))
	assert.False(t, checker.Check(nil))

	_, err = New("not-a-cidr")
	assert.Error(t, err)
}

func TestNewRejectsBadProxy(t *testing.T) {
	_, err := New("", "10.0.0.0/8", "nope")
	assert.Error(t, err)
}

func TestGetClientIP(t *testing.T) {
	direct, err := New("")
	require.NoError(t, err)
	behindProxy, err := New("", "127.0.0.0/8", "172.16.0.0/12")
	require.NoError(t, err)

	tests := []struct {
		name       string
		checker    *IPChecker
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
		wantErr    bool
	}{
		{name: "headers ignored without trusted proxies", checker: direct, realIP: "1.1.1.1", forwarded: "2.2.2.2", remoteAddr: "3.3.3.3:1234", want: "3.3.3.3"},
		{name: "headers ignored from untrusted peer", checker: behindProxy, realIP: "1.1.1.1", forwarded: "2.2.2.2", remoteAddr: "3.3.3.3:1234", want: "3.3.3.3"},
		{name: "x-real-ip from trusted proxy", checker: behindProxy, realIP: "1.1.1.1", forwarded: "2.2.2.2", remoteAddr: "127.0.0.1:1234", want: "1.1.1.1"},
		{name: "right-most untrusted forwarded entry", checker: behindProxy, forwarded: "6.6.6.6, 2.2.2.2, 172.16.0.9", remoteAddr: "127.0.0.1:1234", want: "2.2.2.2"},
		{name: "garbage headers fall back to peer", checker: behindProxy, realIP: "nope", forwarded: "nope", remoteAddr: "127.0.0.1:1234", want: "127.0.0.1"},
		{name: "remote address", checker: direct, remoteAddr: "[::1]:1234", want: "::1"},
		{name: "broken remote address", checker: direct, remoteAddr: "broken", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = test.remoteAddr
			if test.realIP != "" {
				request.Header.Set("X-Real-IP", test.realIP)
			}
			if test.forwarded != "" {
				request.Header.Set("X-Forwarded-For", test.forwarded)
			}

			ip, err := test.checker.GetClientIP(request)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, net.ParseIP(test.want).Equal(ip), ip.String())
		})
	}
}

func TestTrustedOnly(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(checker *IPChecker, remoteAddr, realIP string) int {
		request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		request.RemoteAddr = remoteAddr
		if realIP != "" {
			request.Header.Set("X-Real-IP", realIP)
		}
		recorder := httptest.NewRecorder()
		checker.TrustedOnly(ok).ServeHTTP(recorder, request)
		return recorder.Code
	}

	open, err := New("")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(open, "8.8.8.8:1000", ""))

	guarded, err := New("192.168.1.0/24")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(guarded, "192.168.1.10:1000", ""))
	assert.Equal(t, http.StatusForbidden, serve(guarded, "8.8.8.8:1000", ""))
	assert.Equal(t, http.StatusForbidden, serve(guarded, "8.8.8.8:1000", "192.168.1.10"))

	proxied, err := New("192.168.1.0/24", "10.0.0.1/32")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(proxied, "10.0.0.1:1000", "192.168.1.10"))
	assert.Equal(t, http.StatusForbidden, serve(proxied, "10.0.0.1:1000", "8.8.8.8"))
}
