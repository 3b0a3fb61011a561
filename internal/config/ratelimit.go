package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvBoolOrDefault("RATELIMIT_ENABLED", false)

	configs := map[string]RateLimitConfig{
		"chat": {
			Enabled: enabled,
			MaxHits: GetEnvIntOrDefault("RATELIMIT_CHAT", 120), // 120 requests per minute
			Window:  time.Minute,
		},
		"search": {
			Enabled: enabled,
			MaxHits: GetEnvIntOrDefault("RATELIMIT_SEARCH", 30), // 30 requests per minute
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("key", key).Msg("No rate limit config found")
	return RateLimitConfig{Enabled: false}
}
