package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported text providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Version is the service version reported by / and /health.
const Version = "1.0.0"

// configFileEnv names an optional YAML file layered over the environment.
const configFileEnv = "CONFIG_FILE"

// Settings is the process-wide configuration. It is populated once by Load
// and treated as read-only afterwards.
type Settings struct {
	// Secrets
	OpenAIAPIKey string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	APISecretKey string `yaml:"api_secret_key" env:"API_SECRET_KEY"`
	JWTSecretKey string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`

	// Server
	AppHost        string        `yaml:"app_host" env:"APP_HOST" envDefault:"0.0.0.0"`
	AppPort        int           `yaml:"app_port" env:"APP_PORT" envDefault:"8000"`
	Environment    string        `yaml:"environment" env:"ENVIRONMENT" envDefault:"development"`
	AllowedOrigins string        `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envDefault:"*"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL" envDefault:"INFO"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// OpenAI
	OpenAIModel       string `yaml:"openai_model" env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIVisionModel string `yaml:"openai_vision_model" env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o"`
	OpenAIAudioModel  string `yaml:"openai_audio_model" env:"OPENAI_AUDIO_MODEL" envDefault:"whisper-1"`
	OpenAITTSModel    string `yaml:"openai_tts_model" env:"OPENAI_TTS_MODEL" envDefault:"tts-1"`
	OpenAITTSVoice    string `yaml:"openai_tts_voice" env:"OPENAI_TTS_VOICE" envDefault:"alloy"`
	OpenAIBaseURL     string `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`

	// Text provider selection
	TextProvider    string `yaml:"text_provider" env:"TEXT_PROVIDER" envDefault:"openai"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-latest"`
	GeminiAPIKey    string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	GeminiModel     string `yaml:"gemini_model" env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// Generation defaults
	MaxTokens   int     `yaml:"max_tokens" env:"MAX_TOKENS" envDefault:"1000"`
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE" envDefault:"0.7"`

	// Cache
	CacheTTL               int     `yaml:"cache_ttl" env:"CACHE_TTL" envDefault:"3600"`
	RedisURL               string  `yaml:"redis_url" env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisEnabled           bool    `yaml:"redis_enabled" env:"REDIS_ENABLED" envDefault:"true"`
	CacheCompressThreshold int     `yaml:"cache_compress_threshold" env:"CACHE_COMPRESS_THRESHOLD" envDefault:"4096"`
	SemanticCacheEnabled   bool    `yaml:"semantic_cache_enabled" env:"SEMANTIC_CACHE_ENABLED" envDefault:"false"`
	SemanticThreshold      float32 `yaml:"semantic_threshold" env:"SEMANTIC_CACHE_THRESHOLD" envDefault:"0.95"`
	EmbeddingModel         string  `yaml:"embedding_model" env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	// Provider circuit breaker
	CircuitBreakerEnabled  bool          `yaml:"circuit_breaker_enabled" env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	CircuitBreakerFailures int           `yaml:"circuit_breaker_failures" env:"CIRCUIT_BREAKER_FAILURES" envDefault:"5"`
	CircuitBreakerTimeout  time.Duration `yaml:"circuit_breaker_timeout" env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`

	// Auth
	AuthEnabled bool          `yaml:"auth_enabled" env:"AUTH_ENABLED" envDefault:"false"`
	JWTExpiry   time.Duration `yaml:"jwt_expiry" env:"JWT_EXPIRY" envDefault:"1h"`

	// Limits
	MaxUploadBytes      int           `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	MaxVisionFiles      int           `yaml:"max_vision_files" env:"MAX_VISION_FILES" envDefault:"10"`
	PipelineConcurrency int           `yaml:"pipeline_concurrency" env:"PIPELINE_CONCURRENCY" envDefault:"1"`
	RateLimitMax        int           `yaml:"rate_limit_max" env:"RATE_LIMIT_MAX" envDefault:"600"`
	RateLimitWindow     time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load reads Settings from the environment and, when CONFIG_FILE is set,
// overlays the values found in that YAML file. The result is validated.
// Every failure is a configuration AppError.
func Load() (*Settings, error) {
	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, models.NewConfigurationError("failed to parse environment", err)
	}

	if path := os.Getenv(configFileEnv); path != "" {
		if err := settings.overlayFile(path); err != nil {
			return nil, models.NewConfigurationError("failed to load config file", err)
		}
	}

	settings.normalize()

	if err := settings.Validate(); err != nil {
		return nil, models.NewConfigurationError("invalid configuration", err)
	}
	return settings, nil
}

// Defaults returns Settings populated only from the envDefault tags, ignoring
// the process environment. Callers still need to supply secrets.
func Defaults() *Settings {
	settings := &Settings{}
	if err := env.ParseWithOptions(settings, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("invalid settings defaults: %v", err))
	}
	settings.normalize()
	return settings
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// overlayFile unmarshals a YAML file over the already parsed settings.
// Keys absent from the file keep their environment or default values.
func (s *Settings) overlayFile(configPath string) error {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), s); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func (s *Settings) normalize() {
	s.TextProvider = strings.ToLower(strings.TrimSpace(s.TextProvider))
	s.Environment = strings.ToLower(strings.TrimSpace(s.Environment))
}

// Validate checks that all settings are usable. A missing OpenAI key is not
// an error: the service still boots and reports it through /health.
func (s *Settings) Validate() error {
	var invalid []string

	if s.AppPort < 1 || s.AppPort > 65535 {
		invalid = append(invalid, "app_port")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		invalid = append(invalid, "temperature")
	}
	if s.MaxTokens <= 0 {
		invalid = append(invalid, "max_tokens")
	}
	if s.CacheTTL <= 0 {
		invalid = append(invalid, "cache_ttl")
	}
	if s.PipelineConcurrency < 1 {
		invalid = append(invalid, "pipeline_concurrency")
	}
	if s.MaxUploadBytes <= 0 {
		invalid = append(invalid, "max_upload_bytes")
	}
	if s.MaxVisionFiles <= 0 {
		invalid = append(invalid, "max_vision_files")
	}
	if s.CircuitBreakerEnabled && s.CircuitBreakerFailures <= 0 {
		invalid = append(invalid, "circuit_breaker_failures")
	}

	switch s.TextProvider {
	case ProviderOpenAI:
	case ProviderAnthropic:
		if s.AnthropicAPIKey == "" {
			invalid = append(invalid, "anthropic_api_key")
		}
	case ProviderGemini:
		if s.GeminiAPIKey == "" {
			invalid = append(invalid, "gemini_api_key")
		}
	default:
		invalid = append(invalid, "text_provider")
	}

	if s.AuthEnabled {
		if s.APISecretKey == "" {
			invalid = append(invalid, "api_secret_key")
		}
		if s.JWTSecretKey == "" {
			invalid = append(invalid, "jwt_secret_key")
		}
	}

	if len(invalid) > 0 {
		return &ValidationError{MissingFields: invalid}
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (s *Settings) ListenAddr() string {
	return net.JoinHostPort(s.AppHost, strconv.Itoa(s.AppPort))
}

// CacheTTLDuration returns the default cache entry lifetime.
func (s *Settings) CacheTTLDuration() time.Duration {
	return time.Duration(s.CacheTTL) * time.Second
}

// GetNormalizedLogLevel returns the log level in lowercase for consistent comparison
func (s *Settings) GetNormalizedLogLevel() string {
	return strings.ToLower(s.LogLevel)
}

// IsProduction returns true if the environment is production
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

// OpenAIConfigured reports whether an OpenAI API key is present.
func (s *Settings) OpenAIConfigured() bool {
	return s.OpenAIAPIKey != ""
}

// TextModel returns the model used by the selected text provider.
func (s *Settings) TextModel() string {
	switch s.TextProvider {
	case ProviderAnthropic:
		return s.AnthropicModel
	case ProviderGemini:
		return s.GeminiModel
	default:
		return s.OpenAIModel
	}
}

// Redacted returns a copy with every secret masked, for debug logging.
func (s *Settings) Redacted() Settings {
	c := *s
	c.OpenAIAPIKey = mask(c.OpenAIAPIKey)
	c.APISecretKey = mask(c.APISecretKey)
	c.JWTSecretKey = mask(c.JWTSecretKey)
	c.AnthropicAPIKey = mask(c.AnthropicAPIKey)
	c.GeminiAPIKey = mask(c.GeminiAPIKey)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return "invalid or missing configuration fields: " + strings.Join(e.MissingFields, ", ")
}
