package handlers

import (
	"net/http"

	"github.com/deepgram/threadgate/pkg/httpext"
)

type HealthResponse struct {
	Status         string `json:"status"`
	RateLimitStore string `json:"rate_limit_store"`
}

// HandleHealth is a liveness probe; it never calls the agent service
func HandleHealth(redisActive bool, w http.ResponseWriter, r *http.Request) {
	store := "memory"
	if redisActive {
		store = "redis"
	}
	httpext.JsonResponse(w, HealthResponse{Status: "ok", RateLimitStore: store}, http.StatusOK)
}
