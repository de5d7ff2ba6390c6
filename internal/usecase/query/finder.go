package query

import (
	"context"
	"fmt"
	"time"

	"browser-query/internal/application/port/input"
	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

var _ input.Finder = (*Finder)(nil)

// Plugin extends a finder, typically by registering locators, filters or
// conditions on its registry.
type Plugin func(f *Finder)

type Config struct {
	Registry *Registry
	Waiter   *Waiter
	Logger   output.LoggerPort
}

// Finder resolves selectors and waits on conditions against one element
// source. Lookups are rooted at scope; a nil scope is the whole page.
type Finder struct {
	source   output.ElementSource
	registry *Registry
	waiter   *Waiter
	logger   output.LoggerPort
	scope    entity.Element
}

func NewFinder(src output.ElementSource, cfg Config) *Finder {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Waiter == nil {
		cfg.Waiter = NewWaiter(WaiterConfig{Logger: cfg.Logger})
	}
	return &Finder{
		source:   src,
		registry: cfg.Registry,
		waiter:   cfg.Waiter,
		logger:   cfg.Logger,
	}
}

func (f *Finder) Registry() *Registry {
	return f.registry
}

func (f *Finder) Source() output.ElementSource {
	return f.source
}

// Use applies plugins in order and returns f.
func (f *Finder) Use(plugins ...Plugin) *Finder {
	for _, p := range plugins {
		p(f)
	}
	return f
}

// Within returns a finder whose lookups are rooted at el.
func (f *Finder) Within(el entity.Element) input.Finder {
	return f.within(el)
}

func (f *Finder) within(el entity.Element) *Finder {
	scoped := *f
	scoped.scope = el
	scoped.logger = f.logger.WithField("scoped", true)
	return &scoped
}

// Find resolves one element. Without a timeout it fails right away with a
// NotFoundError; with one it polls until the element shows up.
func (f *Finder) Find(ctx context.Context, selector entity.Selector, filter entity.Criteria, timeout time.Duration) (entity.Element, error) {
	q, err := f.registry.NewQuery(selector, filter, timeout)
	if err != nil {
		return nil, err
	}
	if q.Timeout() <= 0 {
		return q.FindOne(ctx, f.source, f.scope)
	}

	v, err := f.waiter.Wait(ctx, f.source, q.UntilOne(f.scope), q.Timeout(), "")
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindAll resolves every matching element. Without a timeout an empty result
// is valid; with one it polls until at least one element matches.
func (f *Finder) FindAll(ctx context.Context, selector entity.Selector, filter entity.Criteria, timeout time.Duration) ([]entity.Element, error) {
	q, err := f.registry.NewQuery(selector, filter, timeout)
	if err != nil {
		return nil, err
	}
	if q.Timeout() <= 0 {
		return q.FindAll(ctx, f.source, f.scope)
	}

	v, err := f.waiter.Wait(ctx, f.source, q.UntilSome(f.scope), q.Timeout(), "")
	if err != nil {
		return nil, err
	}
	els, ok := v.([]entity.Element)
	if !ok {
		return nil, fmt.Errorf("unexpected wait result %T", v)
	}
	return els, nil
}

// Exists reports whether the selector currently resolves to an element.
func (f *Finder) Exists(ctx context.Context, selector entity.Selector, filter entity.Criteria) bool {
	el, err := f.Find(ctx, selector, filter, 0)
	if err != nil {
		f.logger.Debug("exists check failed", "error", err)
		return false
	}
	return el != nil
}

// Parent returns the direct parent of el.
func (f *Finder) Parent(ctx context.Context, el entity.Element) (entity.Element, error) {
	return f.within(el).Find(ctx, entity.Parent(), nil, 0)
}

// Condition builds a condition from spec using the finder's registry. On a
// scoped finder, plain selectors and queries are rooted at the scope element.
func (f *Finder) Condition(spec any) (*Condition, error) {
	if f.scope == nil {
		return f.registry.NewCondition(spec)
	}

	switch s := spec.(type) {
	case *Condition, ConditionFunc, func(context.Context, output.ElementSource) (any, error), Any, []any, Spec, map[string]any:
		return f.registry.NewCondition(spec)
	case *Query:
		return s.UntilOne(f.scope), nil
	}

	q, err := f.registry.NewQuery(spec, nil, 0)
	if err != nil {
		return nil, err
	}
	return q.UntilOne(f.scope), nil
}

// Wait builds a condition from spec and polls it until it holds.
func (f *Finder) Wait(ctx context.Context, spec any, timeout time.Duration, message string) (any, error) {
	cond, err := f.Condition(spec)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("waiting", "condition", cond.Description, "timeout_ms", timeout.Milliseconds())
	return f.waiter.Wait(ctx, f.source, cond, timeout, message)
}

// ReloadUntil is Wait with a full page reload after every failed probe.
func (f *Finder) ReloadUntil(ctx context.Context, spec any, timeout time.Duration, message string) (any, error) {
	cond, err := f.Condition(spec)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("reloading until", "condition", cond.Description, "timeout_ms", timeout.Milliseconds())
	return f.waiter.ReloadUntil(ctx, f.source, cond, timeout, message)
}
