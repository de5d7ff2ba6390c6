package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

// Query is one resolution request: a locator, its filters and an optional
// timeout. A Query never changes after NewQuery returns it.
type Query struct {
	locator     *Locator
	filters     []FilterSpec
	description string
	timeout     time.Duration
}

// NewQuery resolves the selector and compiles filters from the selector's own
// criteria merged with filter. A *Query selector is returned unchanged.
func (r *Registry) NewQuery(selector entity.Selector, filter entity.Criteria, timeout time.Duration) (*Query, error) {
	if q, ok := selector.(*Query); ok {
		return q, nil
	}

	loc, err := r.ResolveLocator(selector)
	if err != nil {
		return nil, err
	}

	filters, err := r.CompileFilters(mergeCriteria(selector, filter))
	if err != nil {
		return nil, err
	}

	desc := loc.Description
	if len(filters) > 0 {
		parts := make([]string, 0, len(filters))
		for _, f := range filters {
			parts = append(parts, f.Description)
		}
		desc += " (" + strings.Join(parts, " and ") + ")"
	}

	return &Query{
		locator:     loc,
		filters:     filters,
		description: desc,
		timeout:     timeout,
	}, nil
}

func mergeCriteria(selector entity.Selector, filter entity.Criteria) entity.Criteria {
	own, _ := asCriteria(selector)
	if len(own) == 0 {
		return filter
	}
	if len(filter) == 0 {
		return own
	}
	merged := make(entity.Criteria, len(own)+len(filter))
	for k, v := range own {
		merged[k] = v
	}
	for k, v := range filter {
		merged[k] = v
	}
	return merged
}

func (q *Query) String() string {
	return q.description
}

func (q *Query) Description() string {
	return q.description
}

func (q *Query) Timeout() time.Duration {
	return q.timeout
}

func (q *Query) Locator() *Locator {
	return q.locator
}

// FindOne resolves the first matching element in document order, once.
func (q *Query) FindOne(ctx context.Context, src output.ElementSource, scope entity.Element) (entity.Element, error) {
	if len(q.filters) == 0 {
		el, err := q.locator.findOne(ctx, src, scope)
		if err != nil {
			if errors.Is(err, output.ErrNoSuchElement) {
				return nil, &NotFoundError{Description: q.description}
			}
			return nil, err
		}
		if el == nil {
			return nil, &NotFoundError{Description: q.description}
		}
		return el, nil
	}

	els, err := q.FindAll(ctx, src, scope)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, &NotFoundError{Description: q.description}
	}
	return els[0], nil
}

// FindAll resolves every matching element, once. No match is an empty slice.
func (q *Query) FindAll(ctx context.Context, src output.ElementSource, scope entity.Element) ([]entity.Element, error) {
	els, err := q.locator.findAll(ctx, src, scope)
	if err != nil {
		if errors.Is(err, output.ErrNoSuchElement) {
			return nil, nil
		}
		return nil, err
	}
	if len(q.filters) == 0 || len(els) == 0 {
		return els, nil
	}
	return q.filter(ctx, src, els)
}

// filter evaluates every candidate concurrently and keeps document order.
// Candidates that went stale while being probed are dropped.
func (q *Query) filter(ctx context.Context, src output.ElementSource, els []entity.Element) ([]entity.Element, error) {
	keep := make([]bool, len(els))

	g, gctx := errgroup.WithContext(ctx)
	for i, el := range els {
		i, el := i, el
		g.Go(func() error {
			ok, err := q.matches(gctx, src, el)
			if errors.Is(err, output.ErrStaleElement) {
				return nil
			}
			keep[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	survivors := make([]entity.Element, 0, len(els))
	for i, el := range els {
		if keep[i] {
			survivors = append(survivors, el)
		}
	}
	return survivors, nil
}

func (q *Query) matches(ctx context.Context, src output.ElementSource, el entity.Element) (bool, error) {
	results := make([]bool, len(q.filters))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range q.filters {
		i, f := i, f
		g.Go(func() error {
			ok, err := f.Test(gctx, src, el)
			results[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// UntilOne is satisfied with the first matching element under scope.
func (q *Query) UntilOne(scope entity.Element) *Condition {
	return &Condition{
		Description: "for " + q.description,
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			el, err := q.FindOne(ctx, src, scope)
			if pending(err) {
				return nil, nil
			}
			return el, err
		},
	}
}

// UntilSome is satisfied with a non-empty list of matches under scope.
func (q *Query) UntilSome(scope entity.Element) *Condition {
	return &Condition{
		Description: "for " + q.description,
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			els, err := q.FindAll(ctx, src, scope)
			if pending(err) {
				return nil, nil
			}
			if err != nil || len(els) == 0 {
				return nil, err
			}
			return els, nil
		},
	}
}
