package httpc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapstack/tap-tableau/internal/errors"
)

func TestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "secret", r.Header.Get("X-Tableau-Auth"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	c, err := New(nil, srv.URL, map[string]string{"X-Tableau-Auth": "secret"})
	require.NoError(t, err)

	req, err := c.NewRequest(http.MethodPost, "/", map[string]string{"a": "b"})
	require.NoError(t, err)

	var body map[string]string
	resp, err := c.Do(context.Background(), req, &body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, map[string]string{"hello": "world"}, body)
}

func TestClient_Do_NetworkErrorKind(t *testing.T) {
	c, err := New(nil, "http://127.0.0.1:1", nil)
	require.NoError(t, err)

	req, err := c.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), req, nil)
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindNetwork, err))
}

func TestClient_RetryAttempts(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(nil, srv.URL, nil)
	require.NoError(t, err)
	c.SetRetryAttempts(3)

	req, err := c.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	// a response, even 5xx, is not a transport failure and must not be retried
	resp, err := c.Do(context.Background(), req, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, 1, hits)
}

func TestClient_RetryReplaysRequestBody(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// kill the first connection mid-exchange, answer the retry
		if atomic.AddInt32(&hits, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"a":"b"}`, string(b))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":"yes"}`))
	}))
	defer srv.Close()

	c, err := New(nil, srv.URL, nil)
	require.NoError(t, err)
	c.SetRetryAttempts(3)

	req, err := c.NewRequest(http.MethodPost, "/", map[string]string{"a": "b"})
	require.NoError(t, err)

	var body map[string]string
	resp, err := c.Do(context.Background(), req, &body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, map[string]string{"ok": "yes"}, body)
	require.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
