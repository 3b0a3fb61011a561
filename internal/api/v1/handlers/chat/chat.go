package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/threadgate/internal/services/chat"
	"github.com/deepgram/threadgate/internal/services/chat/models"
	"github.com/deepgram/threadgate/pkg/httpext"
)

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleChat answers POST /v1/chat with a JSON body
func HandleChat(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected chat request")
		httpext.JsonDetail(w, err.Error(), http.StatusBadRequest)
		return
	}

	processChat(chatService, req, w, r)
}

// HandleChatQuery answers GET /chat/v2 with query parameters
func HandleChatQuery(chatService chat.Service, w http.ResponseWriter, r *http.Request) {
	req, err := parseChatQuery(r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected chat request")
		httpext.JsonDetail(w, err.Error(), http.StatusBadRequest)
		return
	}

	processChat(chatService, req, w, r)
}

func processChat(chatService chat.Service, req models.ChatRequest, w http.ResponseWriter, r *http.Request) {
	resp, err := chatService.ProcessChat(r.Context(), req)
	if err != nil {
		status, detail := StatusForError(err)
		log.Error().
			Err(err).
			Int("status", status).
			Str("agent_id", req.AgentID).
			Msg("Chat request failed")
		httpext.JsonDetail(w, detail, status)
		return
	}

	httpext.JsonResponse(w, resp, http.StatusOK)
}

func decodeChatRequest(r *http.Request) (models.ChatRequest, error) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.ChatRequest{}, errors.New("Invalid request format")
	}
	if err := validate.Struct(req); err != nil {
		return models.ChatRequest{}, fmt.Errorf("Invalid request: %v", err)
	}
	return req, nil
}

// parseChatQuery reads query, agent_id, thread_id and include_raw, where
// include_raw is an integer flag
func parseChatQuery(r *http.Request) (models.ChatRequest, error) {
	params := r.URL.Query()
	req := models.ChatRequest{
		Query:    params.Get("query"),
		AgentID:  params.Get("agent_id"),
		ThreadID: params.Get("thread_id"),
	}

	if raw := params.Get("include_raw"); raw != "" {
		flag, err := strconv.Atoi(raw)
		if err != nil {
			return models.ChatRequest{}, errors.New("Invalid include_raw: must be an integer")
		}
		req.IncludeRaw = flag != 0
	}

	if err := validate.Struct(req); err != nil {
		return models.ChatRequest{}, fmt.Errorf("Invalid request: %v", err)
	}
	return req, nil
}
