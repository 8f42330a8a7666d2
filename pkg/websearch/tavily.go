// Package websearch is the last-resort retrieval source: a Tavily search
// whose results are filtered down to Arabic content.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/store"
)

const (
	moduleName      = "WEBSEARCH"
	defaultEndpoint = "https://api.tavily.com/search"
	untitled        = "بدون عنوان"
)

type Config struct {
	APIKey         string
	MaxResults     int
	SearchDepth    string
	IncludeDomains []string
	ArabicOnly     bool
	Filter         LanguageFilter
}

type TavilyClient struct {
	config   Config
	endpoint string
	client   *http.Client
	logger   logger.ILogger
}

func NewTavilyClient(config Config, log logger.ILogger) *TavilyClient {
	if config.MaxResults <= 0 {
		config.MaxResults = 5
	}
	if config.SearchDepth == "" {
		config.SearchDepth = "basic"
	}
	return &TavilyClient{
		config:   config,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 20 * time.Second},
		logger:   log,
	}
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search fails closed: a missing key, an empty query or any backend
// problem returns an empty slice.
func (c *TavilyClient) Search(ctx context.Context, query string) []store.Document {
	query = strings.TrimSpace(query)
	if query == "" || strings.TrimSpace(c.config.APIKey) == "" {
		return []store.Document{}
	}

	results, err := c.call(ctx, query)
	if err != nil {
		c.logger.Warn(moduleName, "Web search failed", map[string]interface{}{"error": err.Error()})
		return []store.Document{}
	}

	docs := make([]store.Document, 0, len(results))
	for _, item := range results {
		content := strings.TrimSpace(item.Content)
		url := strings.TrimSpace(item.URL)
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = untitled
		}
		if content == "" {
			continue
		}
		if c.config.ArabicOnly && !c.config.Filter.Accept(title, content, url) {
			continue
		}

		lang := "auto"
		if c.config.ArabicOnly {
			lang = "ar"
		}
		docs = append(docs, store.Document{
			Title:   title,
			Source:  url,
			Content: content,
			Metadata: map[string]interface{}{
				store.MetaSource: url,
				store.MetaTitle:  title,
				store.MetaURL:    url,
				"origin":         "web",
				"lang":           lang,
			},
		})
		if len(docs) >= c.config.MaxResults {
			break
		}
	}

	c.logger.Debug(moduleName, "Web search done", map[string]interface{}{
		"raw":  len(results),
		"kept": len(docs),
	})
	return docs
}

func (c *TavilyClient) call(ctx context.Context, query string) ([]tavilyResult, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:         c.config.APIKey,
		Query:          query,
		MaxResults:     c.config.MaxResults,
		SearchDepth:    c.config.SearchDepth,
		IncludeDomains: c.config.IncludeDomains,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}
	return parsed.Results, nil
}
