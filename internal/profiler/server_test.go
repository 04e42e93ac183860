package profiler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	server := New(0)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	return server
}

func TestServer_AddrBeforeStart(t *testing.T) {
	assert.Empty(t, New(0).Addr())
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := New(0)
	require.NoError(t, server.Start(context.Background()))
	assert.Contains(t, server.Addr(), "127.0.0.1:")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}

func TestServer_PprofEndpoints(t *testing.T) {
	server := startServer(t)
	baseURL := "http://" + server.Addr()

	tests := []struct {
		name     string
		endpoint string
		want     int
	}{
		{name: "index", endpoint: "/debug/pprof/", want: http.StatusOK},
		{name: "heap", endpoint: "/debug/pprof/heap", want: http.StatusOK},
		{name: "cmdline", endpoint: "/debug/pprof/cmdline", want: http.StatusOK},
		{name: "symbol", endpoint: "/debug/pprof/symbol", want: http.StatusOK},
		{name: "unknown", endpoint: "/metrics", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(baseURL + tt.endpoint)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
