package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/runs", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("stream"))
		assert.Equal(t, "true", r.URL.Query().Get("multiple_content"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"role": "user", "content": "hello"}, body["message"])
		assert.Equal(t, "agent-1", body["agent_id"])
		_, hasThread := body["thread_id"]
		assert.False(t, hasThread, "thread_id must be omitted when empty")

		_, _ = w.Write([]byte(`{"thread_id":"t1","run_id":"r1","attempt":2}`))
	}))
	defer server.Close()

	svc := NewService(NewHTTPClient(5*time.Second, 10, 2), server.URL+"/runs/")
	payload, err := svc.TriggerRun(context.Background(), "tok", NewUserRunRequest("hello", "agent-1", ""))
	require.NoError(t, err)

	data, ok := payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "r1", data["run_id"])
	assert.Equal(t, json.Number("2"), data["attempt"])
}

func TestGetRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/runs/r%2F1", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"status":"running"}`))
	}))
	defer server.Close()

	svc := NewService(server.Client(), server.URL+"/runs")
	payload, err := svc.GetRun(context.Background(), "tok", "r/1")
	require.NoError(t, err)
	assert.Equal(t, "running", payload.(map[string]interface{})["status"])
}

func TestUpstreamErrors(t *testing.T) {
	t.Run("non-2xx carries status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"agent not found"}`))
		}))
		defer server.Close()

		svc := NewService(server.Client(), server.URL)
		_, err := svc.TriggerRun(context.Background(), "tok", NewUserRunRequest("q", "a", ""))

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
		assert.Equal(t, `{"detail":"agent not found"}`, httpErr.Body)
	})

	t.Run("connection failure has no status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := server.URL
		server.Close()

		svc := NewService(http.DefaultClient, endpoint)
		_, err := svc.GetRun(context.Background(), "tok", "r1")

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Zero(t, httpErr.StatusCode)
	})

	t.Run("malformed body is not an upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		svc := NewService(server.Client(), server.URL)
		_, err := svc.GetRun(context.Background(), "tok", "r1")
		require.Error(t, err)

		var httpErr *HTTPError
		assert.False(t, errors.As(err, &httpErr))
	})
}

func TestOpenStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("stream"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"delta\":\"hi\"}\n\n"))
	}))
	defer server.Close()

	svc := NewService(server.Client(), server.URL)
	body, err := svc.OpenStream(context.Background(), "tok", NewUserRunRequest("q", "a", "t1"))
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"delta\":\"hi\"}\n\n", string(raw))
}

func TestNewHTTPClientPoolLimits(t *testing.T) {
	client := NewHTTPClient(30*time.Second, 100, 20)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.Equal(t, 100, transport.MaxConnsPerHost)
	assert.Equal(t, 20, transport.MaxIdleConns)
	assert.Equal(t, 20, transport.MaxIdleConnsPerHost)
}
