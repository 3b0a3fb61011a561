package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/deepgram/threadgate/internal/services/chat/models"
)

func TestInitializeServices(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("GROQ_API_KEY", "")

	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	}))
	defer issuer.Close()

	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "inline", "thread_id": "t9"})
	}))
	defer agent.Close()

	svc, err := InitializeServices(config.UpstreamConfig{
		ThreadEndpoint:     agent.URL,
		TokenEndpoint:      issuer.URL,
		APIKey:             "key",
		TokenTTL:           time.Minute,
		IssuerMode:         config.IssuerModeJSON,
		PollTimeout:        time.Second,
		PollInterval:       10 * time.Millisecond,
		HTTPTimeout:        time.Second,
		MaxConnections:     4,
		MaxIdleConnections: 2,
	})
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.GetSearchService())
	assert.Nil(t, svc.GetRateLimitCounter())
	assert.False(t, svc.HasRedis())
	assert.NotNil(t, svc.GetStreamService())
	assert.NotNil(t, svc.GetConnectionManager())

	resp, err := svc.GetChatService().ProcessChat(context.Background(), models.ChatRequest{Query: "hi", AgentID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "inline", resp.Response)
	require.NotNil(t, resp.ThreadID)
	assert.Equal(t, "t9", *resp.ThreadID)

	svc.Close()
	svc.Close()
}
