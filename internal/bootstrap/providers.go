package bootstrap

import (
	"context"
	"fmt"
	"time"

	"dental-triage-be/internal/config"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/internal/repository/memory"
	redisRepo "dental-triage-be/internal/repository/redis"
	"dental-triage-be/pkg/embedding"
	"dental-triage-be/pkg/embedding/jina"
	"dental-triage-be/pkg/llm"
	"dental-triage-be/pkg/llm/factory"
	"dental-triage-be/pkg/rag/search"
	"dental-triage-be/pkg/rerank"
	"dental-triage-be/pkg/websearch"

	"github.com/redis/go-redis/v9"
)

const moduleName = "BOOTSTRAP"

// NewEmbeddingProvider is shared by the server and the ingest CLI so both
// write and query the same vector space.
func NewEmbeddingProvider(cfg *config.Config, log logger.ILogger) (embedding.EmbeddingProvider, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		log.Info(moduleName, "Using embedding provider", map[string]interface{}{"provider": "ollama", "model": cfg.Ai.EmbeddingModel})
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel), nil
	case "jina":
		if cfg.Keys.Jina == "" {
			return nil, fmt.Errorf("jina embeddings require JINA_API_KEY")
		}
		log.Info(moduleName, "Using embedding provider", map[string]interface{}{"provider": "jina", "model": cfg.Ai.EmbeddingModel})
		return jina.NewJinaProvider(cfg.Keys.Jina, cfg.Ai.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
}

func NewLLMProvider(cfg *config.Config, log logger.ILogger) (llm.LLMProvider, error) {
	baseURL := cfg.Ai.LLMBaseURL
	apiKey := ""
	switch cfg.Ai.LLMProvider {
	case "ollama":
		if baseURL == "" {
			baseURL = cfg.Ai.OllamaBaseURL
		}
	case "groq":
		apiKey = cfg.Keys.Groq
	case "huggingface":
		apiKey = cfg.Keys.HuggingFace
	}

	provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	log.Info(moduleName, "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})
	return provider, nil
}

// NewRetriever wires the hybrid retriever. Rerank and web stages are only
// attached when enabled and their key is present.
func NewRetriever(cfg *config.Config, repo contract.KnowledgeChunkRepository, embedder embedding.EmbeddingProvider, log logger.ILogger) *search.Orchestrator {
	searchCfg := search.DefaultConfig()
	searchCfg.RRFK = cfg.Retrieval.RRFK
	searchCfg.OutK = cfg.Retrieval.RetrieveK
	searchCfg.UseReranker = cfg.Retrieval.UseReranker
	searchCfg.RerankCandidates = cfg.Retrieval.RerankCandidates
	searchCfg.RerankTopK = cfg.Retrieval.RerankTopK
	searchCfg.UseWebFallback = cfg.Web.Enabled

	var reranker search.Reranker
	if cfg.Retrieval.UseReranker {
		// a nil *JinaReranker must not become a non-nil interface
		if r := rerank.NewJinaReranker(cfg.Keys.Jina, cfg.Retrieval.RerankModel); r != nil {
			reranker = r
		} else {
			log.Warn(moduleName, "Reranker enabled without JINA_API_KEY, stage disabled", nil)
		}
	}

	var web search.WebSearcher
	if cfg.Web.Enabled {
		if cfg.Keys.Tavily != "" {
			web = websearch.NewTavilyClient(websearch.Config{
				APIKey:         cfg.Keys.Tavily,
				MaxResults:     cfg.Web.MaxResults,
				SearchDepth:    cfg.Web.SearchDepth,
				IncludeDomains: cfg.Web.IncludeDomains,
				ArabicOnly:     cfg.Web.ArabicOnly,
				Filter: websearch.LanguageFilter{
					MinArabicChars: cfg.Web.ArabicMinChars,
					Ratio:          cfg.Web.ArabicRatio,
					RequireURLHint: cfg.Web.RequireURLHint,
				},
			}, log)
		} else {
			log.Warn(moduleName, "Web fallback enabled without TAVILY_API_KEY, stage disabled", nil)
		}
	}

	return search.NewOrchestrator(
		search.NewDenseSearcher(repo, embedder, cfg.Retrieval.ScoreThreshold),
		search.NewSparseSearcher(repo),
		reranker,
		web,
		searchCfg,
		log,
	)
}

// NewRedisClient returns nil when redis is unreachable.
func NewRedisClient(cfg *config.Config, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn(moduleName, "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(moduleName, "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// NewSessionRepository picks the session backend. Asking for redis when
// it is down is a startup error, not a silent fallback.
func NewSessionRepository(cfg *config.Config, rdb *redis.Client) (contract.SessionRepository, error) {
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	switch cfg.Session.Backend {
	case "memory":
		return memory.NewSessionRepository(ttl), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("session backend redis is unreachable at %s", cfg.App.RedisURL)
		}
		return redisRepo.NewSessionRepository(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Session.Backend)
	}
}
