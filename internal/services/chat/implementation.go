package chat

import (
	"context"
	"fmt"

	"github.com/deepgram/threadgate/internal/infrastructure/upstream"
	"github.com/deepgram/threadgate/internal/services/chat/models"
	"github.com/deepgram/threadgate/internal/services/extract"
	"github.com/rs/zerolog/log"
)

const (
	statusCompleted = "completed"
	statusUnknown   = "unknown"
)

type Implementation struct {
	tokens  TokenSource
	trigger RunTrigger
	waiter  RunWaiter
}

func NewService(tokens TokenSource, trigger RunTrigger, waiter RunWaiter) (*Implementation, error) {
	if tokens == nil || trigger == nil || waiter == nil {
		return nil, fmt.Errorf("chat service requires a token source, run trigger and run waiter")
	}

	return &Implementation{
		tokens:  tokens,
		trigger: trigger,
		waiter:  waiter,
	}, nil
}

// ProcessChat triggers a run and prefers an inline answer, falling back to
// polling the run when the trigger only acknowledged it
func (s *Implementation) ProcessChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	cred, err := s.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}

	triggered, err := s.trigger.TriggerRun(ctx, cred.Token, upstream.NewUserRunRequest(req.Query, req.AgentID, req.ThreadID))
	if err != nil {
		return nil, err
	}

	threadID := firstNonEmpty(extract.Field(triggered, "thread_id"), req.ThreadID)

	if text := extract.Text(triggered); text != "" {
		log.Debug().Str("agent_id", req.AgentID).Str("thread_id", threadID).Msg("Run answered inline")
		return envelope(statusCompleted, text, threadID, triggered, req.IncludeRaw), nil
	}

	runID := extract.Field(triggered, "run_id")
	if runID == "" {
		status := firstNonEmpty(extract.Field(triggered, "status"), statusUnknown)
		log.Info().Str("agent_id", req.AgentID).Str("status", status).Msg("Run returned neither text nor run id")
		return envelope(status, "", threadID, triggered, req.IncludeRaw), nil
	}

	log.Debug().Str("run_id", runID).Str("thread_id", threadID).Msg("No inline answer, polling run")

	final, err := s.waiter.Wait(ctx, runID, cred.Token)
	if err != nil {
		return nil, err
	}

	threadID = firstNonEmpty(extract.Field(final, "thread_id"), threadID)
	status := firstNonEmpty(extract.Field(final, "status"), statusCompleted)

	return envelope(status, extract.Text(final), threadID, final, req.IncludeRaw), nil
}

func envelope(status, text, threadID string, raw interface{}, includeRaw bool) *models.ChatResponse {
	resp := &models.ChatResponse{
		ErrorMessage: false,
		Status:       status,
		Response:     text,
	}
	if threadID != "" {
		resp.ThreadID = &threadID
	}
	if includeRaw {
		resp.Raw = raw
	}
	return resp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
