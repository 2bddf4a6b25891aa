package models

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	RedisConnected   bool   `json:"redis_connected"`
	OpenAIConfigured bool   `json:"openai_configured"`
	CacheEnabled     bool   `json:"cache_enabled"`
	TextProvider     string `json:"text_provider"`
	Version          string `json:"version"`
	Timestamp        string `json:"timestamp"`
}
