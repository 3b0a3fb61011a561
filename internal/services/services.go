package services

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/deepgram/threadgate/internal/connections"
	"github.com/deepgram/threadgate/internal/infrastructure/groq"
	"github.com/deepgram/threadgate/internal/infrastructure/iam"
	"github.com/deepgram/threadgate/internal/infrastructure/redis"
	"github.com/deepgram/threadgate/internal/infrastructure/upstream"
	"github.com/deepgram/threadgate/internal/services/chat"
	"github.com/deepgram/threadgate/internal/services/poller"
	"github.com/deepgram/threadgate/internal/services/search"
	"github.com/deepgram/threadgate/internal/services/stream"
	"github.com/deepgram/threadgate/internal/services/token"
	"github.com/deepgram/threadgate/pkg/ratelimit"
)

type Services struct {
	tokenCache      *token.Cache
	upstreamService *upstream.Service
	chatService     *chat.Implementation
	streamService   *stream.Service
	searchService   *search.Service
	redisService    *redis.Service
	connections     *connections.Manager

	closeOnce sync.Once
}

// InitializeServices builds the gateway's services around one pooled HTTP
// client. Redis and Groq are optional and only logged when absent.
func InitializeServices(cfg config.UpstreamConfig) (*Services, error) {
	log.Info().Msg("Initializing core services")

	httpClient := upstream.NewHTTPClient(cfg.HTTPTimeout, cfg.MaxConnections, cfg.MaxIdleConnections)

	issuer := iam.NewService(httpClient, cfg.TokenEndpoint, cfg.APIKey, cfg.IssuerMode)
	tokenCache := token.NewCache(issuer, cfg.TokenTTL)
	log.Info().Str("mode", issuer.Mode()).Dur("ttl", cfg.TokenTTL).Msg("Initializing token cache")

	upstreamService := upstream.NewService(httpClient, cfg.ThreadEndpoint)
	runPoller := poller.NewPoller(upstreamService, cfg.PollTimeout, cfg.PollInterval)

	chatService, err := chat.NewService(tokenCache, upstreamService, runPoller)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize chat service - required for message processing")
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}
	log.Info().Msg("Initializing chat service")

	streamService := stream.NewService(tokenCache, upstreamService)

	redisService := redis.NewService()
	searchService := search.NewService(groq.NewService(httpClient))

	log.Info().
		Bool("redis", redisService != nil).
		Bool("search", searchService != nil).
		Msg("All services initialized successfully")

	return &Services{
		tokenCache:      tokenCache,
		upstreamService: upstreamService,
		chatService:     chatService,
		streamService:   streamService,
		searchService:   searchService,
		redisService:    redisService,
		connections:     connections.NewManager(connections.DefaultTimeouts),
	}, nil
}

func (s *Services) GetChatService() *chat.Implementation {
	return s.chatService
}

func (s *Services) GetStreamService() *stream.Service {
	return s.streamService
}

// GetSearchService returns nil when GROQ_API_KEY is not set
func (s *Services) GetSearchService() *search.Service {
	return s.searchService
}

func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connections
}

// GetRateLimitCounter returns the shared Redis counter, or nil for
// per-process limiting
func (s *Services) GetRateLimitCounter() ratelimit.Counter {
	if s.redisService == nil {
		return nil
	}
	return s.redisService
}

func (s *Services) HasRedis() bool {
	return s.redisService != nil
}

// Close releases everything opened by InitializeServices
func (s *Services) Close() {
	s.closeOnce.Do(func() {
		s.connections.CloseAll()
		s.upstreamService.Close()
		s.tokenCache.Close()
		if s.redisService != nil {
			if err := s.redisService.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Redis client")
			}
		}
		log.Info().Msg("Services closed")
	})
}
