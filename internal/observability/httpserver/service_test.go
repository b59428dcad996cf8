package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func startService(t *testing.T, cfg Config, health HealthFunc) *Service {
	t.Helper()
	cfg.Enabled = true
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hwbot_poll_cycles_total 1\n")
	})
	s := New(cfg, metrics, health, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	require.NotEmpty(t, s.Addr())
	return s
}

func get(t *testing.T, url string, hdr map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHealthzAndMetrics(t *testing.T) {
	var unhealthy atomic.Bool
	s := startService(t, Config{}, func() (bool, any) {
		return !unhealthy.Load(), map[string]string{"last_outcome": "ok"}
	})
	base := "http://" + s.Addr()

	resp, body := get(t, base+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "ok", doc["status"])
	assert.Equal(t, map[string]any{"last_outcome": "ok"}, doc["poll"])

	unhealthy.Store(true)
	resp, _ = get(t, base+"/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body = get(t, base+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "hwbot_poll_cycles_total")

	resp, _ = get(t, base+"/debug/pprof/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "pprof is off by default")
}

func TestPprofRequiresToken(t *testing.T) {
	s := startService(t, Config{Pprof: true, Token: "s3cret"}, nil)
	base := "http://" + s.Addr()

	resp, _ := get(t, base+"/debug/pprof/", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, bad := range []string{"Bearer s3cre", "Bearer s3cret2", "Bearer ", "s3cret"} {
		resp, _ = get(t, base+"/debug/pprof/", map[string]string{"Authorization": bad})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, bad)
	}

	resp, _ = get(t, base+"/debug/pprof/", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPprofOnPublicAddrNeedsToken(t *testing.T) {
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0", Pprof: true}, nil, nil, logx.Nop())
	assert.Error(t, s.Start(context.Background()))
	assert.Empty(t, s.Addr())
}

func TestDisabledIsNoop(t *testing.T) {
	s := New(Config{}, nil, nil, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	assert.Empty(t, s.Addr())
	s.Stop(context.Background())
}

func TestIsLoopbackAddr(t *testing.T) {
	assert.True(t, isLoopbackAddr("127.0.0.1:9464"))
	assert.True(t, isLoopbackAddr("localhost:1"))
	assert.True(t, isLoopbackAddr("[::1]:1"))
	assert.False(t, isLoopbackAddr(":9464"))
	assert.False(t, isLoopbackAddr("10.0.0.1:9464"))
}
