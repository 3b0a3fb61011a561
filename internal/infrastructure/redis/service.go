package redis

import (
	"context"
	"time"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Service struct {
	client *redis.Client
}

// NewService connects to REDIS_URL; nil means Redis is not configured or unreachable
func NewService() *Service {
	url := config.GetRedisURL()

	if url == "" {
		log.Warn().Msg("Redis URL not configured - falling back to in-memory rate limiting")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     url,
		Password: config.GetRedisPassword(),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", url).
			Msg("Failed to establish Redis connection")
		_ = client.Close()
		return nil
	}

	return NewServiceWithClient(client)
}

func NewServiceWithClient(client *redis.Client) *Service {
	return &Service{client: client}
}

// IncrWindow increments key and starts its expiry on first use, returning
// the new count
func (s *Service) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("window", window).
			Msg("Critical Redis INCR operation failed")
		return 0, err
	}
	return incr.Val(), nil
}

// Close closes the Redis connection
func (s *Service) Close() error {
	return s.client.Close()
}
