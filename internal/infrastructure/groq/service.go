package groq

import (
	"net/http"
	"sync"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Groq speaks the OpenAI chat completions dialect
type Service struct {
	mu     sync.RWMutex
	client *openai.Client
	model  string
}

type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, values := range t.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return t.base.RoundTrip(req)
}

// NewService returns nil when GROQ_API_KEY is not set
func NewService(httpClient *http.Client) *Service {
	key := config.GetGroqAPIKey()
	if key == "" {
		log.Warn().Msg("Groq service not configured - GROQ_API_KEY missing, search tool disabled")
		return nil
	}

	return NewServiceWithConfig(httpClient, key, config.GetGroqBaseURL(), config.GetGroqModel())
}

func NewServiceWithConfig(httpClient *http.Client, key, baseURL, model string) *Service {
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	headers := http.Header{}
	headers.Set("Groq-Model-Version", "latest")

	clientConfig := openai.DefaultConfig(key)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout:   httpClient.Timeout,
		Transport: &headerTransport{base: base, headers: headers},
	}

	log.Info().Str("base_url", baseURL).Str("model", model).Msg("Groq service initialised")

	return &Service{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (s *Service) GetClient() *openai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Service) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}
