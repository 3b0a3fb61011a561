package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"
	formIssuerHost  = "iam.cloud.ibm.com"

	maxErrorBody = 4096
)

// AuthError reports a failed credential exchange with the issuer
type AuthError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth error: issuer returned status %d: %s", e.StatusCode, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Reason, e.Err)
	}
	return "auth error: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Service exchanges the configured API key for a short-lived bearer token
type Service struct {
	client   *http.Client
	endpoint string
	apiKey   string
	mode     string
}

type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

func NewService(client *http.Client, endpoint, apiKey, mode string) *Service {
	resolved := ResolveMode(endpoint, mode)
	log.Info().Str("endpoint", endpoint).Str("mode", resolved).Msg("Initialising token issuer")

	return &Service{
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
		mode:     resolved,
	}
}

// ResolveMode turns the configured issuer mode into form or json; auto picks
// form for IAM hosts
func ResolveMode(endpoint, mode string) string {
	switch mode {
	case config.IssuerModeForm, config.IssuerModeJSON:
		return mode
	}

	if u, err := url.Parse(endpoint); err == nil && strings.Contains(u.Host, formIssuerHost) {
		return config.IssuerModeForm
	}
	return config.IssuerModeJSON
}

func (s *Service) Mode() string {
	return s.mode
}

// Issue performs one exchange and returns the raw bearer token
func (s *Service) Issue(ctx context.Context) (string, error) {
	req, err := s.newRequest(ctx)
	if err != nil {
		return "", &AuthError{Reason: "failed to create issuer request", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "issuer unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Token issuer rejected the exchange")
		return "", &AuthError{StatusCode: resp.StatusCode, Reason: strings.TrimSpace(string(body))}
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", &AuthError{Reason: "failed to decode issuer response", Err: err}
	}

	token := tokenResp.Token
	if token == "" {
		token = tokenResp.AccessToken
	}
	if token == "" {
		return "", &AuthError{Reason: "auth server did not return a token"}
	}

	log.Debug().Str("mode", s.mode).Msg("Issued upstream bearer token")
	return token, nil
}

func (s *Service) newRequest(ctx context.Context) (*http.Request, error) {
	if s.mode == config.IssuerModeForm {
		form := url.Values{}
		form.Set("grant_type", apiKeyGrantType)
		form.Set("apikey", s.apiKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, err := json.Marshal(map[string]string{"apikey": s.apiKey})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}
