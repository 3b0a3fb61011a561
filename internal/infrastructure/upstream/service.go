package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const maxErrorBody = 64 * 1024

// HTTPError is a non-2xx answer (or no answer at all) from the agent service.
// StatusCode is zero when the request never got a response.
type HTTPError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream unavailable: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunRequest is the body posted to the thread endpoint to start a run
type RunRequest struct {
	Message  Message `json:"message"`
	AgentID  string  `json:"agent_id,omitempty"`
	ThreadID string  `json:"thread_id,omitempty"`
}

func NewUserRunRequest(query, agentID, threadID string) RunRequest {
	return RunRequest{
		Message:  Message{Role: "user", Content: query},
		AgentID:  agentID,
		ThreadID: threadID,
	}
}

// Service talks to the thread/run endpoints of the agent service
type Service struct {
	client         *http.Client
	streamClient   *http.Client
	threadEndpoint string
}

// NewHTTPClient builds the pooled client shared by every upstream call.
// The transport only caps connections per host.
func NewHTTPClient(timeout time.Duration, maxConns, maxIdle int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConns
	transport.MaxIdleConns = maxIdle
	transport.MaxIdleConnsPerHost = maxIdle

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func NewService(client *http.Client, threadEndpoint string) *Service {
	return &Service{
		client: client,
		// streams outlive the per-request timeout; cancellation comes from the context
		streamClient:   &http.Client{Transport: client.Transport},
		threadEndpoint: strings.TrimRight(threadEndpoint, "/"),
	}
}

// RunURL is where the status of runID can be polled
func (s *Service) RunURL(runID string) string {
	return s.threadEndpoint + "/" + url.PathEscape(runID)
}

// TriggerRun starts a non-streaming run and returns the decoded response
func (s *Service) TriggerRun(ctx context.Context, token string, runReq RunRequest) (interface{}, error) {
	req, err := s.newRunRequest(ctx, token, runReq, false)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("agent_id", runReq.AgentID).Str("thread_id", runReq.ThreadID).Msg("Triggering upstream run")
	return s.doJSON(req)
}

// GetRun fetches the current state of a run
func (s *Service) GetRun(ctx context.Context, token, runID string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.RunURL(runID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	return s.doJSON(req)
}

// OpenStream starts a streaming run; the caller owns the returned body
func (s *Service) OpenStream(ctx context.Context, token string, runReq RunRequest) (io.ReadCloser, error) {
	req, err := s.newRunRequest(ctx, token, runReq, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.streamClient.Do(req)
	if err != nil {
		return nil, &HTTPError{Err: err}
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// Close releases pooled connections at shutdown
func (s *Service) Close() {
	s.client.CloseIdleConnections()
}

func (s *Service) newRunRequest(ctx context.Context, token string, runReq RunRequest, stream bool) (*http.Request, error) {
	jsonData, err := json.Marshal(runReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.threadEndpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	params := url.Values{}
	params.Set("stream", fmt.Sprintf("%t", stream))
	params.Set("multiple_content", "true")
	req.URL.RawQuery = params.Encode()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *Service) doJSON(req *http.Request) (interface{}, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &HTTPError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return payload, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	log.Error().
		Int("status", resp.StatusCode).
		Str("url", resp.Request.URL.Redacted()).
		Str("body", string(body)).
		Msg("Upstream returned non-2xx status")

	return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
}
