package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Argo     ArgoConfig
	Context  ContextConfig
	Auth     AuthConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SessionTTL         time.Duration
}

type DatabaseConfig struct {
	Connection string
	Debug      bool
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
	ContextTopic string // watermill topic for context write-back
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	GeminiBaseURL     string
	HFBaseURL         string
	LLMProvider       string // "gemini", "ollama" or "huggingface"
	LLMModel          string // e.g. "gemini-2.5-flash", "qwen2.5"
}

type ArgoConfig struct {
	BaseURL  string
	Dataset  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// ContextConfig bounds the similarity lookup done before each turn.
type ContextConfig struct {
	Limit             int
	DistanceThreshold float64
}

// TracingConfig drives the OTLP exporter. Spans are only exported when
// Enabled is set.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64 // fraction of new traces kept, 1 keeps all
}

type AuthConfig struct {
	JWTSecret string // empty leaves the chat socket open
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Debug:      getEnvAsBool("DB_DEBUG", false),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			ContextTopic: getEnv("CONTEXT_TOPIC_NAME", "QUERY_CONTEXT"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiBaseURL:     getEnv("GEMINI_BASE_URL", ""),
			HFBaseURL:         getEnv("HUGGINGFACE_BASE_URL", ""),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-2.5-flash"),
		},
		Argo: ArgoConfig{
			BaseURL:  getEnv("ARGO_ERDDAP_URL", "https://erddap.ifremer.fr/erddap"),
			Dataset:  getEnv("ARGO_DATASET", "ArgoFloats"),
			Timeout:  getEnvAsDuration("ARGO_TIMEOUT", 60*time.Second),
			CacheTTL: getEnvAsDuration("ARGO_CACHE_TTL", 6*time.Hour),
		},
		Context: ContextConfig{
			Limit:             getEnvAsInt("CONTEXT_LIMIT", 3),
			DistanceThreshold: getEnvAsFloat("CONTEXT_DISTANCE_THRESHOLD", 0.8),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "floatchat-be"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
