package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/threadgate/internal/services/chat/models"
	"github.com/deepgram/threadgate/internal/services/stream"
	"github.com/deepgram/threadgate/pkg/httpext"
)

// StreamOpener starts a streaming run for one chat request
type StreamOpener interface {
	Open(ctx context.Context, req models.ChatRequest) (*stream.Stream, error)
}

// HandleChatStream relays an upstream run as Server-Sent Events. GET takes
// query parameters, POST a JSON body.
func HandleChatStream(streams StreamOpener, w http.ResponseWriter, r *http.Request) {
	var (
		req models.ChatRequest
		err error
	)
	if r.Method == http.MethodPost {
		req, err = decodeChatRequest(r)
	} else {
		req, err = parseChatQuery(r)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Rejected stream request")
		httpext.JsonDetail(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpext.JsonDetail(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	upstreamStream, err := streams.Open(r.Context(), req)
	if err != nil {
		status, detail := StatusForError(err)
		log.Error().Err(err).Int("status", status).Msg("Failed to open upstream stream")
		httpext.JsonDetail(w, detail, status)
		return
	}
	defer upstreamStream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := 0
	for {
		event, err := upstreamStream.Next()
		if err != nil {
			if !stream.IsEOF(err) && r.Context().Err() == nil {
				log.Error().Err(err).Int("events", events).Msg("Upstream stream broke")
			}
			return
		}

		if _, err := fmt.Fprint(w, formatEvent(event)); err != nil {
			log.Debug().Err(err).Msg("Client went away during stream")
			return
		}
		flusher.Flush()
		events++

		if stream.IsDone(event) {
			log.Debug().Int("events", events).Msg("Upstream stream finished")
			return
		}
	}
}

// formatEvent writes event in text/event-stream framing, one data line per
// payload line
func formatEvent(event stream.Event) string {
	var b strings.Builder
	if event.ID != "" {
		b.WriteString("id: " + event.ID + "\n")
	}
	if event.Retry != "" {
		b.WriteString("retry: " + event.Retry + "\n")
	}
	if event.Name != "" {
		b.WriteString("event: " + event.Name + "\n")
	}
	if !event.IsControl() {
		for _, line := range strings.Split(event.Data, "\n") {
			b.WriteString("data: " + line + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}
