package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	IssuerModeAuto = "auto"
	IssuerModeForm = "form"
	IssuerModeJSON = "json"

	DefaultTokenTTL           = 50 * time.Minute
	DefaultPollTimeout        = 300 * time.Second
	DefaultPollInterval       = 2 * time.Second
	DefaultHTTPTimeout        = 30 * time.Second
	DefaultMaxConnections     = 100
	DefaultMaxIdleConnections = 20
)

// UpstreamConfig describes the agent service the gateway fronts
type UpstreamConfig struct {
	ThreadEndpoint string
	TokenEndpoint  string
	APIKey         string
	TokenTTL       time.Duration
	IssuerMode     string

	PollTimeout  time.Duration
	PollInterval time.Duration

	HTTPTimeout        time.Duration
	MaxConnections     int
	MaxIdleConnections int
}

func GetThreadEndpoint() string {
	return GetEnvOrDefault("THREAD_ENDPOINT", "")
}

func GetTokenEndpoint() string {
	return GetEnvOrDefault("TOKEN_ENDPOINT", "")
}

func GetAPIKey() string {
	return GetEnvOrDefault("API_KEY", "")
}

// LoadUpstreamConfig reads the upstream settings and fails when a required
// variable is missing
func LoadUpstreamConfig() (UpstreamConfig, error) {
	cfg := UpstreamConfig{
		ThreadEndpoint:     GetThreadEndpoint(),
		TokenEndpoint:      GetTokenEndpoint(),
		APIKey:             GetAPIKey(),
		TokenTTL:           GetEnvSecondsOrDefault("TOKEN_TTL_SECONDS", DefaultTokenTTL),
		IssuerMode:         strings.ToLower(GetEnvOrDefault("TOKEN_ISSUER_MODE", IssuerModeAuto)),
		PollTimeout:        GetEnvSecondsOrDefault("POLL_TIMEOUT_SECONDS", DefaultPollTimeout),
		PollInterval:       GetEnvSecondsOrDefault("POLL_INTERVAL_SECONDS", DefaultPollInterval),
		HTTPTimeout:        GetEnvSecondsOrDefault("HTTP_TIMEOUT_SECONDS", DefaultHTTPTimeout),
		MaxConnections:     GetEnvIntOrDefault("HTTP_MAX_CONNECTIONS", DefaultMaxConnections),
		MaxIdleConnections: GetEnvIntOrDefault("HTTP_MAX_IDLE_CONNECTIONS", DefaultMaxIdleConnections),
	}

	var missing []string
	if cfg.ThreadEndpoint == "" {
		missing = append(missing, "THREAD_ENDPOINT")
	}
	if cfg.TokenEndpoint == "" {
		missing = append(missing, "TOKEN_ENDPOINT")
	}
	if cfg.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if len(missing) > 0 {
		return UpstreamConfig{}, fmt.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}

	switch cfg.IssuerMode {
	case IssuerModeAuto, IssuerModeForm, IssuerModeJSON:
	default:
		return UpstreamConfig{}, fmt.Errorf("invalid TOKEN_ISSUER_MODE %q: expected auto, form or json", cfg.IssuerMode)
	}

	return cfg, nil
}
