package di

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"browser-query/internal/domain/entity"
	"browser-query/internal/infrastructure/logger"
	"browser-query/internal/usecase/query"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapConfig map[string]string

func (m mapConfig) Get(key string) string     { return m[key] }
func (m mapConfig) MustGet(key string) string { return m[key] }
func (m mapConfig) GetWithDefault(key, def string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}
func (m mapConfig) GetBool(key string, def bool) bool {
	switch m[key] {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}
func (m mapConfig) GetInt(key string, def int) int {
	var v int
	if _, err := fmt.Sscanf(m[key], "%d", &v); err != nil {
		return def
	}
	return v
}
func (m mapConfig) GetDuration(key string, def time.Duration) time.Duration {
	v := m.GetInt(key, -1)
	if v < 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func TestConfigFromEnv(t *testing.T) {
	cfg := ConfigFromEnv(mapConfig{
		"BROWSER_HEADLESS":       "false",
		"QUERY_POLL_INTERVAL_MS": "20",
		"OPENROUTER_API_KEY":     "key",
	})

	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, 20*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, query.DefaultReloadTimeout, cfg.ReloadTimeout)
	assert.Equal(t, "key", cfg.OpenRouterAPIKey)
	assert.Equal(t, "query", cfg.LogName)
	assert.NotEmpty(t, cfg.OpenRouterURL)
}

func TestNewContainer_Static(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><p class="greeting">Hello</p></body></html>`)
	}))
	defer server.Close()

	ctx := context.Background()
	c, err := NewContainer(ctx, Config{Static: true, Logger: logger.NewNop()})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Browser)
	assert.Nil(t, c.LLM)
	require.NoError(t, c.Open(ctx, server.URL))

	el, err := c.Finder.Find(ctx, ".greeting", entity.Criteria{query.KeyText: "Hell"}, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, el)

	title, err := c.Source.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Home", title)
}

func TestNewContainer_DescribePlugin(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form><button id="go">Go</button></form></body></html>`)
	}))
	defer page.Close()

	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "#go"}},
			},
		})
	}))
	defer llm.Close()

	ctx := context.Background()
	c, err := NewContainer(ctx, Config{
		Static:           true,
		OpenRouterAPIKey: "test-key",
		OpenRouterModel:  "test-model",
		OpenRouterURL:    llm.URL,
		Logger:           logger.NewNop(),
	})
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.LLM)
	require.NoError(t, c.Open(ctx, page.URL))

	el, err := c.Finder.Find(ctx, entity.Criteria{"describe": "the submit button"}, nil, 0)
	require.NoError(t, err)

	text, err := c.Source.Text(ctx, el)
	require.NoError(t, err)
	assert.Equal(t, "Go", text)
}
