package httpext

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents a standardised JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetailResponse is the error body returned by the chat endpoints
type DetailResponse struct {
	Detail string `json:"detail"`
}

// JsonError writes a JSON error response with the specified status code
func JsonError(w http.ResponseWriter, message string, code int) {
	JsonResponse(w, ErrorResponse{Error: message}, code)
}

// JsonDetail writes a {"detail": ...} error response with the specified status code
func JsonDetail(w http.ResponseWriter, detail string, code int) {
	JsonResponse(w, DetailResponse{Detail: detail}, code)
}

// JsonResponse encodes v as the response body with the given status code
func JsonResponse(w http.ResponseWriter, v interface{}, code int) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Int("status", code).Msg("Failed to encode response")
		// Fallback to writing JSON body as plain text if JSON encoding fails
		http.Error(w, "{\"error\":\"Internal Server Error\"}", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Debug().Err(err).Msg("Failed to write response body")
	}
}
