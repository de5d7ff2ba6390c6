package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/dlclark/regexp2"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

const (
	CondURL     = "url"
	CondTitle   = "title"
	CondElement = "element"
	CondScoped  = "scoped"
	CondUnless  = "unless"
	CondStale   = "stale"
)

func builtinConditions() []namedCondition {
	return []namedCondition{
		{name: CondURL, builder: urlCondition},
		{name: CondTitle, builder: titleCondition},
		{name: CondElement, builder: elementCondition},
		{name: CondScoped, builder: scopedCondition},
		{name: CondUnless, builder: unlessCondition},
		{name: CondStale, builder: staleCondition},
	}
}

// urlCondition holds once the current URL, resolved against the candidate as
// a relative reference, is unchanged.
func urlCondition(_ *Registry, value any) (*Condition, error) {
	candidate, ok := value.(string)
	if !ok {
		return nil, &ConfigurationError{Key: "url condition", Value: value, Reason: "expected a string"}
	}
	ref, err := url.Parse(candidate)
	if err != nil {
		return nil, &ConfigurationError{Key: "url condition", Value: value, Reason: err.Error()}
	}

	return &Condition{
		Description: "for URL to become " + candidate,
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			current, err := src.CurrentURL(ctx)
			if err != nil {
				return nil, err
			}
			base, err := url.Parse(current)
			if err != nil {
				return nil, nil
			}
			if base.ResolveReference(ref).String() == current {
				return true, nil
			}
			return nil, nil
		},
	}, nil
}

func titleCondition(_ *Registry, value any) (*Condition, error) {
	var (
		desc  string
		match func(string) bool
	)
	switch t := value.(type) {
	case string:
		desc = "for title to be " + strconv.Quote(t)
		match = func(title string) bool { return title == t }
	case *regexp.Regexp:
		desc = "for title to match /" + t.String() + "/"
		match = t.MatchString
	case *regexp2.Regexp:
		desc = "for title to match /" + t.String() + "/"
		match = func(title string) bool {
			ok, err := t.MatchString(title)
			return err == nil && ok
		}
	default:
		return nil, &ConfigurationError{Key: "title condition", Value: value, Reason: "expected a string or regexp"}
	}

	return &Condition{
		Description: desc,
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			title, err := src.Title(ctx)
			if err != nil {
				return nil, err
			}
			if match(title) {
				return true, nil
			}
			return nil, nil
		},
	}, nil
}

func elementCondition(r *Registry, value any) (*Condition, error) {
	q, err := r.NewQuery(value, nil, 0)
	if err != nil {
		return nil, err
	}
	return q.UntilOne(nil), nil
}

func scopedCondition(r *Registry, value any) (*Condition, error) {
	var s Scoped
	switch v := value.(type) {
	case Scoped:
		s = v
	case *Scoped:
		if v == nil {
			return nil, &ConfigurationError{Key: "scoped condition", Value: value, Reason: "nil scope"}
		}
		s = *v
	default:
		return nil, &ConfigurationError{Key: "scoped condition", Value: value, Reason: "expected query.Scoped"}
	}
	if s.Parent == nil {
		return nil, &ConfigurationError{Key: "scoped condition", Value: value, Reason: "missing parent element"}
	}

	q, err := r.NewQuery(s.Selector, s.Filter, 0)
	if err != nil {
		return nil, err
	}
	c := q.UntilOne(s.Parent)
	c.Description = fmt.Sprintf("for %s within element", q.Description())
	return c, nil
}

// unlessCondition is a guard: it stays pending while the inner condition does
// not hold and fails with UnlessViolation once it does.
func unlessCondition(r *Registry, value any) (*Condition, error) {
	inner, err := r.NewCondition(value)
	if err != nil {
		return nil, err
	}

	return &Condition{
		Description: "unless " + inner.Description,
		guard:       true,
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			v, err := inner.Fn(ctx, src)
			if err != nil {
				if pending(err) {
					return nil, nil
				}
				return nil, err
			}
			if truthy(v) {
				return nil, &UnlessViolation{Description: inner.Description, Cause: v}
			}
			return nil, nil
		},
	}, nil
}

// staleCondition holds once the element is detached from the document.
func staleCondition(_ *Registry, value any) (*Condition, error) {
	if value == nil {
		return nil, &ConfigurationError{Key: "stale condition", Value: value, Reason: "missing element"}
	}
	el := entity.Element(value)

	return &Condition{
		Description: "for element to become stale",
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			if checker, ok := src.(output.StalenessChecker); ok {
				stale, err := checker.IsStale(ctx, el)
				if err != nil {
					return nil, err
				}
				return stale, nil
			}
			if _, err := src.Text(ctx, el); err != nil {
				if errors.Is(err, output.ErrStaleElement) {
					return true, nil
				}
				return nil, err
			}
			return nil, nil
		},
	}, nil
}
