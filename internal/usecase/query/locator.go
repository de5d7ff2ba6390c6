package query

import (
	"context"
	"reflect"
	"runtime"
	"strings"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

// Locator is the resolved form of a selector: either a native By for the
// element source or a function that resolves elements itself.
type Locator struct {
	By          *entity.By
	Func        entity.SelectorFunc
	Description string
}

func (l *Locator) String() string {
	return l.Description
}

func (l *Locator) findOne(ctx context.Context, src output.ElementSource, scope entity.Element) (entity.Element, error) {
	if l.By != nil {
		return src.FindOne(ctx, *l.By, scope)
	}
	els, err := l.call(ctx, src, scope)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, output.ErrNoSuchElement
	}
	return els[0], nil
}

func (l *Locator) findAll(ctx context.Context, src output.ElementSource, scope entity.Element) ([]entity.Element, error) {
	if l.By != nil {
		return src.FindAll(ctx, *l.By, scope)
	}
	return l.call(ctx, src, scope)
}

// call runs a function locator. A returned query is resolved under the same
// scope.
func (l *Locator) call(ctx context.Context, src output.ElementSource, scope entity.Element) ([]entity.Element, error) {
	res, err := l.Func(ctx, scope)
	if err != nil {
		return nil, err
	}

	switch v := res.(type) {
	case *Query:
		if v == nil {
			return nil, nil
		}
		return v.FindAll(ctx, src, scope)
	case []*Query:
		var els []entity.Element
		for _, q := range v {
			if q == nil {
				continue
			}
			found, err := q.FindAll(ctx, src, scope)
			if err != nil {
				return nil, err
			}
			els = append(els, found...)
		}
		return els, nil
	}
	return toElements(res), nil
}

// toElements accepts whatever a function selector returned: nothing, one
// element or a slice of elements of any concrete type.
func toElements(res any) []entity.Element {
	switch v := res.(type) {
	case nil:
		return nil
	case []entity.Element:
		return v
	}

	rv := reflect.ValueOf(res)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		els := make([]entity.Element, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			els = append(els, rv.Index(i).Interface())
		}
		return els
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}
	return []entity.Element{res}
}

func builtinLocators() []LocatorMatcher {
	return []LocatorMatcher{
		textLocator,
		funcLocator,
		nativeLocator,
		criteriaLocator,
	}
}

// textLocator treats a plain string as a css selector.
func textLocator(selector entity.Selector) *Locator {
	s, ok := selector.(string)
	if !ok {
		return nil
	}
	return byLocator(entity.CSS(s))
}

func funcLocator(selector entity.Selector) *Locator {
	switch fn := selector.(type) {
	case entity.SelectorFunc:
		return &Locator{Func: fn, Description: "function " + funcName(fn)}
	case func(context.Context, entity.Element) (any, error):
		return &Locator{Func: fn, Description: "function " + funcName(fn)}
	case entity.NamedFunc:
		if fn.Fn == nil {
			return nil
		}
		return &Locator{Func: fn.Fn, Description: fn.Name}
	}
	return nil
}

func nativeLocator(selector entity.Selector) *Locator {
	switch by := selector.(type) {
	case entity.By:
		return byLocator(by)
	case *entity.By:
		if by != nil {
			return byLocator(*by)
		}
	}
	return nil
}

// criteriaLocator picks the first strategy key holding a string. Strategies
// are probed in entity.Strategies order.
func criteriaLocator(selector entity.Selector) *Locator {
	criteria, ok := asCriteria(selector)
	if !ok {
		return nil
	}
	for _, s := range entity.Strategies {
		if v, ok := criteria[s.String()].(string); ok {
			return byLocator(entity.By{Strategy: s, Value: v})
		}
	}
	return nil
}

func byLocator(by entity.By) *Locator {
	return &Locator{By: &by, Description: by.String()}
}

func asCriteria(v any) (entity.Criteria, bool) {
	switch c := v.(type) {
	case entity.Criteria:
		return c, true
	case map[string]any:
		return entity.Criteria(c), true
	}
	return nil, false
}

// funcName returns the short name of a function value, e.g. "query.match".
func funcName(fn any) string {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return "function"
	}
	f := runtime.FuncForPC(rv.Pointer())
	if f == nil {
		return "function"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
