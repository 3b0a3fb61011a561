package chat

import (
	"context"

	"github.com/deepgram/threadgate/internal/infrastructure/upstream"
	"github.com/deepgram/threadgate/internal/services/chat/models"
	"github.com/deepgram/threadgate/internal/services/token"
)

// Service defines the interface for chat operations
type Service interface {
	// ProcessChat sends one query to an agent and waits for its final answer
	ProcessChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

type TokenSource interface {
	Get(ctx context.Context) (token.Credential, error)
}

type RunTrigger interface {
	TriggerRun(ctx context.Context, token string, req upstream.RunRequest) (interface{}, error)
}

type RunWaiter interface {
	Wait(ctx context.Context, runID, token string) (interface{}, error)
}
