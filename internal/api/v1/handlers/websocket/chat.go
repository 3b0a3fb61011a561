package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	chathandlers "github.com/deepgram/threadgate/internal/api/v1/handlers/chat"
	"github.com/deepgram/threadgate/internal/connections"
	"github.com/deepgram/threadgate/internal/services/chat/models"
	"github.com/deepgram/threadgate/internal/services/stream"
	"github.com/deepgram/threadgate/pkg/httpext"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// access is controlled by bearer token, not origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleChatWebSocket relays one streaming run over a WebSocket. The request
// comes from the upgrade URL's query parameters; each upstream event becomes
// one text message and the socket is closed normally when the run ends.
func HandleChatWebSocket(streams chathandlers.StreamOpener, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	req := models.ChatRequest{
		Query:    r.URL.Query().Get("query"),
		AgentID:  r.URL.Query().Get("agent_id"),
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if req.Query == "" || req.AgentID == "" {
		httpext.JsonDetail(w, "Invalid request: query and agent_id are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// open upstream first so failures still get a regular HTTP status
	upstreamStream, err := streams.Open(ctx, req)
	if err != nil {
		status, detail := chathandlers.StatusForError(err)
		log.Error().Err(err).Int("status", status).Msg("Failed to open upstream stream")
		httpext.JsonDetail(w, detail, status)
		return
	}
	defer upstreamStream.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	if !manager.AddConnection(conn) {
		conn.Close()
		return
	}
	defer func() {
		manager.RemoveConnection(conn)
		conn.Close()
	}()

	timeouts := manager.GetTimeouts()
	conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go readUntilClosed(conn, cancel)
	go keepAlive(conn, timeouts, done)

	events := 0
	for {
		event, err := upstreamStream.Next()
		if err != nil {
			if stream.IsEOF(err) {
				closeNormally(conn, timeouts.WriteWait, "stream finished")
			} else if ctx.Err() == nil {
				log.Error().Err(err).Int("events", events).Msg("Upstream stream broke")
				closeWith(conn, timeouts.WriteWait, websocket.CloseInternalServerErr, "upstream stream failed")
			}
			return
		}

		if event.IsControl() {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(timeouts.WriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(event.Data)); err != nil {
			log.Debug().Err(err).Msg("Client went away during stream")
			return
		}
		events++

		if stream.IsDone(event) {
			closeNormally(conn, timeouts.WriteWait, "stream finished")
			return
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are handled,
// cancelling the relay once the client disconnects
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Unexpected WebSocket closure")
			}
			return
		}
	}
}

func keepAlive(conn *websocket.Conn, timeouts connections.TimeoutConfig, done <-chan struct{}) {
	ticker := time.NewTicker(timeouts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeouts.WriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func closeNormally(conn *websocket.Conn, writeWait time.Duration, reason string) {
	closeWith(conn, writeWait, websocket.CloseNormalClosure, reason)
}

func closeWith(conn *websocket.Conn, writeWait time.Duration, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
