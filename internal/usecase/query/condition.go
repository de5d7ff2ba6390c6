package query

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

// ConditionFunc probes the page once. A truthy result satisfies the wait.
type ConditionFunc func(ctx context.Context, src output.ElementSource) (any, error)

// Condition is a described, composable probe.
type Condition struct {
	Description string
	Fn          ConditionFunc

	// guard conditions never become truthy; they only fail.
	guard bool
}

func (c *Condition) String() string {
	return c.Description
}

// IsGuard reports whether c is an unless guard.
func (c *Condition) IsGuard() bool {
	return c.guard
}

// Spec is a keyed condition spec: every key must hold.
type Spec map[string]any

// Any is a sequence of condition specs: one of them must hold.
type Any []any

// Scoped is the value of a "scoped" condition: a lookup rooted at Parent.
type Scoped struct {
	Parent   entity.Element
	Selector entity.Selector
	Filter   entity.Criteria
}

// NewCondition builds a condition out of spec. Conditions, condition funcs and
// queries are used directly, sequences combine with ANY, Spec maps combine
// with ALL, and anything a locator claims becomes an element condition.
func (r *Registry) NewCondition(spec any) (*Condition, error) {
	switch s := spec.(type) {
	case *Condition:
		return s, nil
	case ConditionFunc:
		return &Condition{Description: "function " + funcName(s), Fn: s}, nil
	case func(context.Context, output.ElementSource) (any, error):
		return &Condition{Description: "function " + funcName(s), Fn: s}, nil
	case *Query:
		return s.UntilOne(nil), nil
	case Any:
		return r.anyOf(s)
	case []any:
		return r.anyOf(s)
	case Spec:
		return r.allOf(s)
	case map[string]any:
		return r.allOf(s)
	}

	q, err := r.NewQuery(spec, nil, 0)
	if err != nil {
		var nl *NoLocatorError
		if errors.As(err, &nl) {
			return nil, &UnsupportedConditionError{Spec: spec}
		}
		return nil, err
	}
	return q.UntilOne(nil), nil
}

func (r *Registry) anyOf(specs []any) (*Condition, error) {
	conds := make([]*Condition, 0, len(specs))
	for _, s := range specs {
		c, err := r.NewCondition(s)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return combine(conds, "some")
}

// allOf dispatches every key to its named builder. Keys are visited in sorted
// order so descriptions are stable.
func (r *Registry) allOf(spec map[string]any) (*Condition, error) {
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	conds := make([]*Condition, 0, len(names))
	for _, name := range names {
		build, ok := r.conditionBuilder(name)
		if !ok {
			return nil, &UnknownConditionError{Name: name}
		}
		c, err := build(r, spec[name])
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return combine(conds, "every")
}

// combine joins conditions with "some" (ANY) or "every" (ALL) semantics.
// Guards take part in evaluation so their failures propagate, but are ignored
// when deciding whether the combination holds.
func combine(conds []*Condition, method string) (*Condition, error) {
	switch len(conds) {
	case 0:
		return nil, &ConfigurationError{Key: "condition", Value: "[]", Reason: "empty condition spec"}
	case 1:
		return conds[0], nil
	}

	descs := make([]string, 0, len(conds)+1)
	descs = append(descs, "for "+method+" of these:")
	guard := true
	for _, c := range conds {
		descs = append(descs, c.Description)
		guard = guard && c.guard
	}

	return &Condition{
		Description: strings.Join(descs, "\n* "),
		guard:       guard,
		Fn: func(ctx context.Context, src output.ElementSource) (any, error) {
			values := make([]any, len(conds))

			g, gctx := errgroup.WithContext(ctx)
			for i, c := range conds {
				i, c := i, c
				g.Go(func() error {
					v, err := c.Fn(gctx, src)
					if err != nil && !pending(err) {
						return err
					}
					values[i] = v
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}

			if method == "some" {
				for i, c := range conds {
					if !c.guard && truthy(values[i]) {
						return values[i], nil
					}
				}
				return nil, nil
			}

			results := make([]any, 0, len(conds))
			for i, c := range conds {
				if c.guard {
					continue
				}
				if !truthy(values[i]) {
					return nil, nil
				}
				results = append(results, values[i])
			}
			if len(results) == 0 {
				return nil, nil
			}
			return results, nil
		},
	}, nil
}

// truthy mirrors loose truthiness: nil, false, zero numbers and empty
// strings, slices and maps do not satisfy a condition.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}
	return true
}
