package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvIntOrDefault parses an integer environment variable, falling back to
// the default when unset, malformed or negative
func GetEnvIntOrDefault(key string, defaultValue int) int {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		log.Warn().Str("key", key).Str("value", val).Int("default", defaultValue).Msg("Invalid integer value, using default")
		return defaultValue
	}

	return parsed
}

// GetEnvSecondsOrDefault parses a (possibly fractional) number of seconds
func GetEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil || parsed < 0 {
		log.Warn().Str("key", key).Str("value", val).Dur("default", defaultValue).Msg("Invalid duration value, using default")
		return defaultValue
	}

	return time.Duration(parsed * float64(time.Second))
}

// GetEnvBoolOrDefault accepts the usual strconv spellings of a boolean
func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	val := GetEnvOrDefault(key, "")
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Bool("default", defaultValue).Msg("Invalid boolean value, using default")
		return defaultValue
	}

	return parsed
}

func splitAndClean(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
