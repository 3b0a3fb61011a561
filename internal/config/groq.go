package config

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "groq/compound-mini"
)

// GetGroqAPIKey returns the key for the search tool; empty disables it
func GetGroqAPIKey() string {
	return GetEnvOrDefault("GROQ_API_KEY", "")
}

func GetGroqBaseURL() string {
	return GetEnvOrDefault("GROQ_BASE_URL", DefaultGroqBaseURL)
}

func GetGroqModel() string {
	return GetEnvOrDefault("GROQ_MODEL", DefaultGroqModel)
}
