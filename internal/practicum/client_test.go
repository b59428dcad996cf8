package practicum

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{Endpoint: srv.URL + "/api/user_api/homework_statuses/", Token: "secret"}, logx.Nop())
	require.NoError(t, err)
	return c
}

func TestFetchSendsWindowAndAuth(t *testing.T) {
	var gotAuth, gotFrom, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"status":"approved","homework_name":"hw1"}],"current_date":1000}`))
	})

	payload, err := c.Fetch(context.Background(), 1234567)
	require.NoError(t, err)

	assert.Equal(t, "OAuth secret", gotAuth)
	assert.Equal(t, "1234567", gotFrom)
	assert.Equal(t, "/api/user_api/homework_statuses/", gotPath)

	obj, ok := payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("1000"), obj["current_date"])
}

func TestFetchNon2xxIsUnreachable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := c.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnreachable)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchMalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"html":     "<html>oops</html>",
		"trailing": `{"homeworks":[]} {"again":1}`,
		"empty":    "",
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Fetch(context.Background(), 1)
			require.ErrorIs(t, err, ErrMalformed)
			assert.NotErrorIs(t, err, ErrUnreachable)
		})
	}
}

func TestFetchArrayBodyIsNotAFetchError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	})
	payload, err := c.Fetch(context.Background(), 1)
	require.NoError(t, err)
	_, isSlice := payload.([]any)
	assert.True(t, isSlice)
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c, err := New(Config{Endpoint: endpoint, Token: "t", Timeout: time.Second}, logx.Nop())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnreachable)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
}

func TestFetchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, 1)
	require.ErrorIs(t, err, ErrUnreachable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Token: ""}, logx.Nop())
	assert.Error(t, err)

	_, err = New(Config{Token: "t", Endpoint: "ftp://example.org"}, logx.Nop())
	assert.Error(t, err)

	c, err := New(Config{Token: "t"}, logx.Logger{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.endpoint.String())
}
