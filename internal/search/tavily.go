// Package search looks things up on the web through the Tavily API.
package search

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gather/pkg/circuitbreaker"
	"gather/pkg/config"
	"gather/pkg/metrics"
	"gather/pkg/otel"
)

var ErrNotConfigured = errors.New("tavily api key not configured")

// ErrUpstream wraps failures reported by the Tavily API itself.
var ErrUpstream = errors.New("tavily request failed")

type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	cacheTTL   time.Duration
	httpClient *http.Client
	rdb        *redis.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient builds a client; rdb may be nil to disable caching.
func NewClient(cfg config.TavilyConfig, rdb *redis.Client, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bcfg := circuitbreaker.DefaultConfig()
	bcfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("Tavily circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		cacheTTL:   ttl,
		httpClient: &http.Client{Timeout: timeout},
		rdb:        rdb,
		breaker:    circuitbreaker.NewCircuitBreaker(bcfg),
		logger:     logger,
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

// CacheKey is the Redis key results for query are cached under.
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return "search:" + hex.EncodeToString(sum[:])
}

// Search returns web results for query, serving repeats from the cache.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}
	if results, ok := c.cached(ctx, query); ok {
		return results, nil
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	var results []Result
	err := otel.ClientSpan(ctx, "tavily.search", func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			var err error
			results, err = c.do(ctx, query)
			return err
		})
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordSearchCallLatency(status, time.Since(start))
	if err != nil {
		c.logger.Error("Tavily search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("Tavily search finished",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
	)
	c.store(ctx, query, results)
	return results, nil
}

func (c *Client) do(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  c.maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(raw))
	}
	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Results == nil {
		parsed.Results = []Result{}
	}
	return parsed.Results, nil
}

func (c *Client) cached(ctx context.Context, query string) ([]Result, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, CacheKey(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Search cache read failed", zap.Error(err))
		}
		metrics.RecordSearchCache(false)
		return nil, false
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		metrics.RecordSearchCache(false)
		return nil, false
	}
	metrics.RecordSearchCache(true)
	return results, true
}

func (c *Client) store(ctx context.Context, query string, results []Result) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, CacheKey(query), raw, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("Search cache write failed", zap.Error(err))
	}
}
