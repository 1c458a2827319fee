package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gather/pkg/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *miniredis.Miniredis) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewClient(config.TavilyConfig{APIKey: "tvly-test", BaseURL: srv.URL}, rdb, zap.NewNop())
	return c, mr
}

func TestSearchRequestAndCache(t *testing.T) {
	var calls atomic.Int32
	c, mr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-test", req.APIKey)
		assert.Equal(t, "pottery classes", req.Query)
		assert.Equal(t, 5, req.MaxResults)
		assert.Equal(t, "basic", req.SearchDepth)
		_ = json.NewEncoder(w).Encode(searchResponse{Results: []Result{
			{Title: "Studio", URL: "https://studio.example", Content: "Classes weekly", Score: 0.9},
		}})
	})
	ctx := context.Background()

	results, err := c.Search(ctx, " pottery classes ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://studio.example", results[0].URL)
	assert.True(t, mr.Exists(CacheKey("pottery classes")))
	assert.Equal(t, 24*time.Hour, mr.TTL(CacheKey("pottery classes")))

	again, err := c.Search(ctx, "Pottery Classes")
	require.NoError(t, err)
	assert.Equal(t, results, again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchErrorsAreNotCached(t *testing.T) {
	c, mr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Search(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, mr.Exists(CacheKey("x")))
}

func TestSearchNotConfigured(t *testing.T) {
	c := NewClient(config.TavilyConfig{}, nil, zap.NewNop())
	_, err := c.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Search(context.Background(), "  ")
	assert.Error(t, err)
}

func TestCacheKeyIsStable(t *testing.T) {
	assert.Equal(t, CacheKey("Hello"), CacheKey(" hello "))
	assert.Len(t, CacheKey("x"), len("search:")+64)
}
