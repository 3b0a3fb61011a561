package models

// ChatRequest is one synchronous question for an agent
type ChatRequest struct {
	Query      string `json:"query" validate:"required"`
	AgentID    string `json:"agent_id" validate:"required"`
	ThreadID   string `json:"thread_id,omitempty"`
	IncludeRaw bool   `json:"include_raw,omitempty"`
}

// ChatResponse is the envelope returned to clients. ErrorMessage stays false
// on every success path; failures are reported as HTTP errors instead.
type ChatResponse struct {
	ErrorMessage bool        `json:"error_message"`
	Status       string      `json:"status"`
	Response     string      `json:"response"`
	ThreadID     *string     `json:"thread_id"`
	Raw          interface{} `json:"raw,omitempty"`
}
