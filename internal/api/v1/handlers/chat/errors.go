package chat

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/deepgram/threadgate/internal/infrastructure/iam"
	"github.com/deepgram/threadgate/internal/infrastructure/upstream"
	"github.com/deepgram/threadgate/internal/services/poller"
)

// StatusForError maps a chat failure to the HTTP status and detail text
// reported to the client
func StatusForError(err error) (int, string) {
	var (
		authErr    *iam.AuthError
		httpErr    *upstream.HTTPError
		runErr     *poller.RunFailedError
		timeoutErr *poller.TimeoutError
	)

	switch {
	case errors.As(err, &authErr):
		if authErr.StatusCode != 0 {
			return authErr.StatusCode, fmt.Sprintf("Upstream error: %s", authErr.Reason)
		}
		return http.StatusBadGateway, fmt.Sprintf("Upstream auth error: %s", authErr.Error())
	case errors.As(err, &httpErr):
		if httpErr.StatusCode == 0 {
			return http.StatusBadGateway, fmt.Sprintf("Upstream error: %v", httpErr.Err)
		}
		return httpErr.StatusCode, fmt.Sprintf("Upstream error: %s", httpErr.Body)
	case errors.As(err, &runErr):
		return http.StatusBadRequest, fmt.Sprintf("Run failed: %s", runErr.PayloadJSON())
	case errors.As(err, &timeoutErr):
		return http.StatusRequestTimeout, "Polling timed out."
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Internal server error: %v", err)
	}
}
