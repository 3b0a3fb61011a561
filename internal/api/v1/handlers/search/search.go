package search

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/threadgate/internal/services/search"
	"github.com/deepgram/threadgate/pkg/httpext"
)

type Request struct {
	Query string `json:"query" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleSearch answers POST /v1/search with a summarised web search
func HandleSearch(searchService *search.Service, w http.ResponseWriter, r *http.Request) {
	if searchService == nil {
		httpext.JsonDetail(w, "Search is not configured", http.StatusServiceUnavailable)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonDetail(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		httpext.JsonDetail(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	httpext.JsonResponse(w, searchService.Search(r.Context(), req.Query), http.StatusOK)
}
