package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"browser-query/internal/adapter/locator/describe"
	"browser-query/internal/application/port/output"
	"browser-query/internal/infrastructure/browser/rod"
	"browser-query/internal/infrastructure/browser/static"
	"browser-query/internal/infrastructure/llm/openrouter"
	"browser-query/internal/infrastructure/logger"
	"browser-query/internal/usecase/query"

	"go.uber.org/zap/zapcore"
)

// Navigator is implemented by element sources that can open a URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

type Container struct {
	Browser *rod.BrowserAdapter
	Source  output.ElementSource
	Finder  *query.Finder
	LLM     output.LLMPort
	Logger  output.LoggerPort
}

type Config struct {
	Static           bool
	BrowserHeadless  bool
	BrowserTimeout   time.Duration
	PollInterval     time.Duration
	ReloadTimeout    time.Duration
	OpenRouterAPIKey string
	OpenRouterModel  string
	OpenRouterURL    string
	LogName          string
	LogLevel         zapcore.Level
	Logger           output.LoggerPort
	HTTPClient       *http.Client
}

// ConfigFromEnv reads the container settings from cfg.
func ConfigFromEnv(cfg output.ConfigPort) Config {
	return Config{
		BrowserHeadless:  cfg.GetBool("BROWSER_HEADLESS", true),
		BrowserTimeout:   cfg.GetDuration("BROWSER_TIMEOUT_MS", 0),
		PollInterval:     cfg.GetDuration("QUERY_POLL_INTERVAL_MS", query.DefaultPollInterval),
		ReloadTimeout:    cfg.GetDuration("QUERY_RELOAD_TIMEOUT_MS", query.DefaultReloadTimeout),
		OpenRouterAPIKey: cfg.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:  cfg.GetWithDefault("OPENROUTER_MODEL_NAME", "openai/gpt-4o-mini"),
		OpenRouterURL:    cfg.GetWithDefault("OPENROUTER_BASE_URL", openrouter.DefaultBaseURL),
		LogName:          cfg.GetWithDefault("LOG_NAME", "query"),
		LogLevel:         zapcore.InfoLevel,
	}
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log := cfg.Logger
	if log == nil {
		fileLog, err := logger.NewLoggerAdapter(cfg.LogName, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = fileLog
	}

	c := &Container{Logger: log}

	if cfg.Static {
		c.Source = static.New(static.HTTPLoader(cfg.HTTPClient))
	} else {
		browserCfg := rod.DefaultConfig()
		browserCfg.Headless = cfg.BrowserHeadless
		if cfg.BrowserTimeout > 0 {
			browserCfg.Timeout = cfg.BrowserTimeout
		}
		browser, err := rod.NewBrowserAdapter(ctx, browserCfg)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to create browser: %w", err)
		}
		c.Browser = browser
		c.Source = browser
	}

	waiter := query.NewWaiter(query.WaiterConfig{
		PollInterval:  cfg.PollInterval,
		ReloadTimeout: cfg.ReloadTimeout,
		Logger:        log,
	})
	c.Finder = query.NewFinder(c.Source, query.Config{
		Registry: query.NewRegistry(),
		Waiter:   waiter,
		Logger:   log,
	})

	if cfg.OpenRouterAPIKey != "" {
		llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		if cfg.OpenRouterURL != "" {
			llmCfg.BaseURL = cfg.OpenRouterURL
		}
		llmCfg.Logger = log
		llmCfg.HTTPClient = cfg.HTTPClient
		c.LLM = openrouter.NewOpenRouterAdapter(llmCfg)
		c.Finder.Use(describe.New(c.LLM, log).Plugin())
	}

	return c, nil
}

// Open navigates the element source to url.
func (c *Container) Open(ctx context.Context, url string) error {
	nav, ok := c.Source.(Navigator)
	if !ok {
		return fmt.Errorf("element source %T cannot navigate", c.Source)
	}
	c.Logger.Info("opening page", "url", url)
	return nav.Navigate(ctx, url)
}

func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
