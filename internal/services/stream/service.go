package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/deepgram/threadgate/internal/infrastructure/upstream"
	"github.com/deepgram/threadgate/internal/services/chat/models"
	"github.com/deepgram/threadgate/internal/services/token"
	"github.com/rs/zerolog/log"
)

const maxEventSize = 1 << 20

type TokenSource interface {
	Get(ctx context.Context) (token.Credential, error)
}

type Opener interface {
	OpenStream(ctx context.Context, token string, req upstream.RunRequest) (io.ReadCloser, error)
}

// Event is one upstream stream event, passed through without interpretation
type Event struct {
	ID    string
	Retry string
	Name  string
	Data  string
}

// IsControl reports an event that only carries id or retry fields
func (e Event) IsControl() bool {
	return e.Data == "" && e.Name == "" && (e.ID != "" || e.Retry != "")
}

// Service opens streaming runs against the agent service
type Service struct {
	tokens TokenSource
	opener Opener
}

func NewService(tokens TokenSource, opener Opener) *Service {
	return &Service{tokens: tokens, opener: opener}
}

// Open starts a streaming run; the caller must Close the returned Stream
func (s *Service) Open(ctx context.Context, req models.ChatRequest) (*Stream, error) {
	cred, err := s.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.opener.OpenStream(ctx, cred.Token, upstream.NewUserRunRequest(req.Query, req.AgentID, req.ThreadID))
	if err != nil {
		return nil, err
	}

	log.Debug().Str("agent_id", req.AgentID).Str("thread_id", req.ThreadID).Msg("Opened upstream stream")
	return NewStream(body), nil
}

// Stream splits an upstream body into events. SSE blocks are joined per the
// event-stream rules; any other nonblank line is an event of its own.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func NewStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &Stream{body: body, scanner: scanner}
}

// Next returns the next event, or io.EOF once the upstream finished
func (s *Stream) Next() (Event, error) {
	var (
		event   Event
		data    []string
		pending bool
	)

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")

		if line == "" {
			if pending {
				event.Data = strings.Join(data, "\n")
				return event, nil
			}
			continue
		}

		field, value, isField := parseField(line)
		if !isField {
			if pending {
				// malformed block; keep the raw line rather than lose it
				data = append(data, line)
				continue
			}
			return Event{Data: line}, nil
		}

		switch field {
		case "":
			// comment
		case "event":
			event.Name = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		case "id":
			event.ID = value
			pending = true
		case "retry":
			event.Retry = value
			pending = true
		}
	}

	if err := s.scanner.Err(); err != nil {
		return Event{}, err
	}
	if pending {
		event.Data = strings.Join(data, "\n")
		return event, nil
	}
	return Event{}, io.EOF
}

func (s *Stream) Close() error {
	return s.body.Close()
}

// parseField recognises "field: value" SSE lines for the fields we care about
func parseField(line string) (string, string, bool) {
	if strings.HasPrefix(line, ":") {
		return "", "", true
	}

	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	switch name {
	case "event", "data", "id", "retry":
		return name, strings.TrimPrefix(value, " "), true
	}
	return "", "", false
}

// IsDone reports the conventional end-of-stream sentinel
func IsDone(event Event) bool {
	return strings.TrimSpace(event.Data) == "[DONE]"
}

// IsEOF reports whether err marks the normal end of a stream
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
