package query

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

const (
	KeyText    = "text"
	KeyVisible = "visible"
)

// FilterSpec is a compiled predicate over one resolved element.
type FilterSpec struct {
	Description string
	Test        func(ctx context.Context, src output.ElementSource, el entity.Element) (bool, error)
}

func builtinFilters() []FilterBuilder {
	return []FilterBuilder{
		textFilter,
		visibleFilter,
	}
}

func textFilter(criteria entity.Criteria) (*FilterSpec, error) {
	v, ok := criteria[KeyText]
	if !ok || v == nil || v == "" {
		return nil, nil
	}
	m, err := matchText(v)
	if err != nil {
		return nil, err
	}
	return &FilterSpec{
		Description: m.description,
		Test: func(ctx context.Context, src output.ElementSource, el entity.Element) (bool, error) {
			text, err := src.Text(ctx, el)
			if err != nil {
				return false, err
			}
			return m.test(text), nil
		},
	}, nil
}

func visibleFilter(criteria entity.Criteria) (*FilterSpec, error) {
	v, ok := criteria[KeyVisible]
	if !ok || v == nil {
		return nil, nil
	}
	want, ok := v.(bool)
	if !ok {
		return nil, &ConfigurationError{Key: "visible filter", Value: v, Reason: "expected a bool"}
	}
	desc := "invisible"
	if want {
		desc = "visible"
	}
	return &FilterSpec{
		Description: desc,
		Test: func(ctx context.Context, src output.ElementSource, el entity.Element) (bool, error) {
			visible, err := src.Visible(ctx, el)
			if err != nil {
				return false, err
			}
			return visible == want, nil
		},
	}, nil
}

type textMatcher struct {
	description string
	test        func(text string) bool
}

func matchText(expected any) (*textMatcher, error) {
	switch e := expected.(type) {
	case string:
		return &textMatcher{
			description: "containing " + strconv.Quote(e),
			test:        func(text string) bool { return strings.Contains(text, e) },
		}, nil
	case *regexp.Regexp:
		return &textMatcher{
			description: "matching /" + e.String() + "/",
			test:        e.MatchString,
		}, nil
	case *regexp2.Regexp:
		return &textMatcher{
			description: "matching /" + e.String() + "/",
			test: func(text string) bool {
				ok, err := e.MatchString(text)
				return err == nil && ok
			},
		}, nil
	case entity.TextPredicate:
		return &textMatcher{description: "passing " + funcName(e) + "()", test: e}, nil
	case func(string) bool:
		return &textMatcher{description: "passing " + funcName(e) + "()", test: e}, nil
	}
	return nil, &ConfigurationError{Key: "text filter", Value: expected, Reason: "expected a string, regexp or func(string) bool"}
}
