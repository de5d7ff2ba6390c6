package query

import (
	"sync"

	"browser-query/internal/domain/entity"
)

// LocatorMatcher claims a selector by returning a non-nil Locator.
type LocatorMatcher func(selector entity.Selector) *Locator

// FilterBuilder compiles its own key out of criteria. It returns nil when the
// key is absent.
type FilterBuilder func(criteria entity.Criteria) (*FilterSpec, error)

// ConditionBuilder builds a named condition from the value found under its key
// in a Spec. The registry is passed so builders can recurse.
type ConditionBuilder func(r *Registry, value any) (*Condition, error)

type namedCondition struct {
	name    string
	builder ConditionBuilder
}

// Registry holds the ordered locator, filter and condition builders of one
// session. Registration order is dispatch priority and entries are never removed.
type Registry struct {
	mu         sync.RWMutex
	locators   []LocatorMatcher
	filters    []FilterBuilder
	conditions []namedCondition
}

// NewRegistry returns a registry seeded with the built-ins.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, m := range builtinLocators() {
		r.AddLocator(m)
	}
	for _, b := range builtinFilters() {
		r.AddFilter(b)
	}
	for _, c := range builtinConditions() {
		r.AddCondition(c.name, c.builder)
	}
	return r
}

func (r *Registry) AddLocator(m LocatorMatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locators = append(r.locators, m)
}

func (r *Registry) AddFilter(b FilterBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, b)
}

// AddCondition registers a named condition builder. When a name is registered
// twice the first registration keeps winning.
func (r *Registry) AddCondition(name string, b ConditionBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions = append(r.conditions, namedCondition{name: name, builder: b})
}

// ResolveLocator asks every matcher in order; the first claim wins.
func (r *Registry) ResolveLocator(selector entity.Selector) (*Locator, error) {
	r.mu.RLock()
	matchers := r.locators
	r.mu.RUnlock()

	for _, m := range matchers {
		if loc := m(selector); loc != nil {
			return loc, nil
		}
	}
	return nil, &NoLocatorError{Selector: selector}
}

// CompileFilters runs every filter builder and keeps all non-nil results.
func (r *Registry) CompileFilters(criteria entity.Criteria) ([]FilterSpec, error) {
	if len(criteria) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	builders := r.filters
	r.mu.RUnlock()

	var specs []FilterSpec
	for _, b := range builders {
		spec, err := b(criteria)
		if err != nil {
			return nil, err
		}
		if spec != nil {
			specs = append(specs, *spec)
		}
	}
	return specs, nil
}

func (r *Registry) conditionBuilder(name string) (ConditionBuilder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conditions {
		if c.name == name {
			return c.builder, true
		}
	}
	return nil, false
}
