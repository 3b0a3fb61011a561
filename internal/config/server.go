package config

// ServerConfig holds the inbound HTTP settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

func GetServerConfig() ServerConfig {
	origins := splitAndClean(GetEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return ServerConfig{
		Port:           GetEnvOrDefault("PORT", "8080"),
		AllowedOrigins: origins,
		LogLevel:       GetEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      GetEnvOrDefault("LOG_FORMAT", "json"),
	}
}
