// Package describe adds a locator that resolves elements from a plain
// language description by asking a language model for a CSS selector.
package describe

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
	"browser-query/internal/infrastructure/browser/htmlclean"
	"browser-query/internal/infrastructure/logger"
	"browser-query/internal/infrastructure/prompts"
	"browser-query/internal/usecase/query"
)

// Key is the criteria key claimed by this locator.
const Key = "describe"

const noMatch = "NONE"

var ErrNoHTMLSource = errors.New("element source cannot render html")

type Describer struct {
	llm    output.LLMPort
	logger output.LoggerPort
	clean  htmlclean.Config

	mu    sync.Mutex
	cache map[cacheKey]string
}

// cacheKey identifies a lookup by description and scope element. A nil scope
// is the whole page.
type cacheKey struct {
	description string
	scope       entity.Element
}

func New(llm output.LLMPort, log output.LoggerPort) *Describer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Describer{
		llm:    llm,
		logger: log,
		clean:  htmlclean.DefaultConfig,
		cache:  make(map[cacheKey]string),
	}
}

// WithCleaner replaces the html cleaning settings used to build prompts.
func (d *Describer) WithCleaner(cfg htmlclean.Config) *Describer {
	d.clean = cfg
	return d
}

// Plugin registers the locator on a finder's registry, bound to that
// finder's element source.
func (d *Describer) Plugin() query.Plugin {
	return func(f *query.Finder) {
		f.Registry().AddLocator(d.Matcher(f.Source()))
	}
}

// Matcher claims criteria carrying only a "describe" string. Criteria that
// also name a native strategy are left to the built-in locator.
func (d *Describer) Matcher(src output.ElementSource) query.LocatorMatcher {
	return func(selector entity.Selector) *query.Locator {
		criteria, ok := selector.(entity.Criteria)
		if !ok {
			m, isMap := selector.(map[string]any)
			if !isMap {
				return nil
			}
			criteria = entity.Criteria(m)
		}

		text, ok := criteria[Key].(string)
		if !ok || strings.TrimSpace(text) == "" {
			return nil
		}

		return &query.Locator{
			Func:        d.resolver(src, text),
			Description: "described as " + strconv.Quote(text),
		}
	}
}

func (d *Describer) resolver(src output.ElementSource, description string) entity.SelectorFunc {
	return func(ctx context.Context, scope entity.Element) (any, error) {
		css, err := d.selector(ctx, src, description, scope)
		if err != nil {
			return nil, err
		}
		if css == "" {
			return nil, nil
		}
		return src.FindAll(ctx, entity.CSS(css), scope)
	}
}

func (d *Describer) selector(ctx context.Context, src output.ElementSource, description string, scope entity.Element) (string, error) {
	key := cacheKey{description: description, scope: scope}
	cacheable := scope == nil || reflect.TypeOf(scope).Comparable()

	if cacheable {
		d.mu.Lock()
		css, ok := d.cache[key]
		d.mu.Unlock()
		if ok {
			return css, nil
		}
	}

	hs, ok := src.(output.HTMLSource)
	if !ok {
		return "", ErrNoHTMLSource
	}

	raw, err := hs.HTML(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	markup, err := htmlclean.Clean(raw, &d.clean)
	if err != nil {
		return "", err
	}

	userPrompt, err := prompts.GenerateDescribePrompt(prompts.DescribeUserTemplate, prompts.DescribePromptData{
		Description: description,
		HTML:        markup,
		Scoped:      scope != nil,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	resp, err := d.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompts.DescribeSystemPrompt},
			{Role: entity.RoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("describe %q: %w", description, err)
	}

	css := parseSelector(resp.Message.Content)
	d.logger.Debug("described selector", "description", description, "selector", css)
	if css == "" {
		// not cached: the element may appear on a later probe
		return "", nil
	}

	if cacheable {
		d.mu.Lock()
		d.cache[key] = css
		d.mu.Unlock()
	}
	return css, nil
}

// parseSelector extracts the selector from a model answer, tolerating code
// fences and backticks. NONE and empty answers yield "".
func parseSelector(answer string) string {
	s := strings.TrimSpace(answer)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "`"))
	if i := strings.Index(s, "\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if strings.EqualFold(s, noMatch) {
		return ""
	}
	return s
}
