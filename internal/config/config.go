package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Keys      APIKeys
	Ai        AIConfig
	Retrieval RetrievalConfig
	Web       WebConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	SocketLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	DataDir            string
	ImageAIURL         string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type SessionConfig struct {
	Backend    string // "redis" or "memory"
	TTLSeconds int    // 0 = no expiry
}

type APIKeys struct {
	Groq        string
	HuggingFace string
	Jina        string
	Tavily      string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "jina"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama", "huggingface", "groq"
	LLMModel          string
	LLMBaseURL        string
	GeneralReply      bool
}

type RetrievalConfig struct {
	RRFK             int
	RetrieveK        int
	ScoreThreshold   float64
	UseReranker      bool
	RerankCandidates int
	RerankTopK       int
	RerankModel      string
}

type WebConfig struct {
	Enabled        bool
	MaxResults     int
	SearchDepth    string
	IncludeDomains []string
	ArabicOnly     bool
	ArabicMinChars int
	ArabicRatio    float64
	RequireURLHint bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE", "logs/app.log"),
			SocketLogFilePath:  getEnv("SOCKET_LOG_FILE", "logs/chat_socket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			DataDir:            getEnv("DENTAL_DATA_DIR", "data"),
			ImageAIURL:         getEnv("IMAGE_AI_URL", "http://localhost:8001"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			Backend:    getEnv("DENTAL_SESSION_BACKEND", "redis"),
			TTLSeconds: getEnvAsInt("DENTAL_SESSION_TTL_SECONDS", 0),
		},
		Keys: APIKeys{
			Groq:        getEnv("GROQ_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
			Jina:        getEnv("JINA_API_KEY", ""),
			Tavily:      getEnv("TAVILY_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "groq"),
			LLMModel:          getEnv("LLM_MODEL", getEnv("GROQ_MODEL", "llama-3.1-8b-instant")),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			GeneralReply:      getEnvAsBool("DENTAL_GENERAL_REPLY", false),
		},
		Retrieval: RetrievalConfig{
			RRFK:             getEnvAsInt("DENTAL_RRF_K", 60),
			RetrieveK:        getEnvAsInt("DENTAL_RETRIEVE_K", 8),
			ScoreThreshold:   getEnvAsFloat("DENTAL_SCORE_THRESHOLD", 0.4),
			UseReranker:      getEnvAsBool("DENTAL_USE_RERANKER", false),
			RerankCandidates: getEnvAsInt("DENTAL_RERANK_CANDIDATES", 8),
			RerankTopK:       getEnvAsInt("DENTAL_RERANK_TOPK", 4),
			RerankModel:      getEnv("DENTAL_RERANK_MODEL", "jina-reranker-v2-base-multilingual"),
		},
		Web: WebConfig{
			Enabled:        getEnvAsBool("DENTAL_USE_WEB_FALLBACK", false),
			MaxResults:     getEnvAsInt("DENTAL_WEB_MAX_RESULTS", 5),
			SearchDepth:    getEnv("DENTAL_WEB_SEARCH_DEPTH", "basic"),
			IncludeDomains: getEnvAsList("DENTAL_WEB_ALLOWED_DOMAINS"),
			ArabicOnly:     getEnvAsBool("DENTAL_WEB_ARABIC_ONLY", true),
			ArabicMinChars: getEnvAsInt("DENTAL_WEB_AR_MIN_CHARS", 40),
			ArabicRatio:    getEnvAsFloat("DENTAL_WEB_AR_RATIO", 3),
			RequireURLHint: getEnvAsBool("DENTAL_WEB_ARABIC_URL_HINT", false),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strings.TrimSpace(strValue)); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64); err == nil {
		return value
	}
	return fallback
}

// Accepts 1/true/yes (any case) as true.
func getEnvAsBool(key string, fallback bool) bool {
	strValue := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	switch strValue {
	case "":
		return fallback
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
