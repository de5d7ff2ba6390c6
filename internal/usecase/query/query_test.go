package query

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

func TestNewQuery_Description(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name     string
		selector entity.Selector
		filter   entity.Criteria
		want     string
	}{
		{"plain", ".foo", nil, "css .foo"},
		{"text filter", ".foo", entity.Criteria{KeyText: "bar"}, `css .foo (containing "bar")`},
		{"criteria carries filter", entity.Criteria{"css": ".foo", KeyText: "bar"}, nil, `css .foo (containing "bar")`},
		{"regexp", "li", entity.Criteria{KeyText: regexp.MustCompile(`^T`)}, "css li (matching /^T/)"},
		{"regexp2", "li", entity.Criteria{KeyText: regexp2.MustCompile(`^T`, regexp2.ECMAScript)}, "css li (matching /^T/)"},
		{"predicate", "li", entity.Criteria{KeyText: isTwo}, "css li (passing query.isTwo())"},
		{"visible", "p", entity.Criteria{KeyVisible: true}, "css p (visible)"},
		{"invisible", "p", entity.Criteria{KeyVisible: false}, "css p (invisible)"},
		{"both", "p", entity.Criteria{KeyText: "bar", KeyVisible: true}, `css p (containing "bar" and visible)`},
		{"empty text ignored", "p", entity.Criteria{KeyText: ""}, "css p"},
		{"filter overrides selector criteria", entity.Criteria{"css": "p", KeyText: "a"}, entity.Criteria{KeyText: "b"}, `css p (containing "b")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := r.NewQuery(tt.selector, tt.filter, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Description())
			assert.Equal(t, tt.want, q.String())
		})
	}
}

func TestNewQuery_InvalidFilters(t *testing.T) {
	r := NewRegistry()

	_, err := r.NewQuery("p", entity.Criteria{KeyText: 12}, 0)
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, IsConfiguration(err))

	_, err = r.NewQuery("p", entity.Criteria{KeyVisible: "yes"}, 0)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "visible filter", ce.Key)
}

func TestNewQuery_ReusesQuery(t *testing.T) {
	r := NewRegistry()

	q, err := r.NewQuery(".foo", nil, 0)
	require.NoError(t, err)

	again, err := r.NewQuery(q, entity.Criteria{KeyText: "ignored"}, 0)
	require.NoError(t, err)
	assert.Same(t, q, again)
}

func TestQuery_FindAll_Empty(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	q, err := NewRegistry().NewQuery(".nothing", nil, 0)
	require.NoError(t, err)

	els, err := q.FindAll(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestQuery_FindOne_NotFound(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	q, err := NewRegistry().NewQuery(".foo", entity.Criteria{KeyText: "qux"}, 0)
	require.NoError(t, err)

	_, err = q.FindOne(context.Background(), src, nil)
	require.Error(t, err)
	assert.EqualError(t, err, `No such element: css .foo (containing "qux")`)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, output.ErrNoSuchElement)
}

func TestQuery_FindOne_NoFilters(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	r := NewRegistry()

	q, err := r.NewQuery(".two", nil, 0)
	require.NoError(t, err)
	el, err := q.FindOne(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"occurs twice"}, texts(t, src, []entity.Element{el}))

	q, err = r.NewQuery(entity.ID("missing"), nil, 0)
	require.NoError(t, err)
	_, err = q.FindOne(context.Background(), src, nil)
	assert.EqualError(t, err, "No such element: id missing")
}

func TestQuery_TextFilterForms(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	r := NewRegistry()

	forms := map[string]any{
		"string":    "Two",
		"regexp":    regexp.MustCompile(`^Two$`),
		"regexp2":   regexp2.MustCompile(`^Two$`, regexp2.ECMAScript),
		"predicate": entity.TextPredicate(isTwo),
		"func":      isTwo,
	}

	for name, expected := range forms {
		t.Run(name, func(t *testing.T) {
			q, err := r.NewQuery("li", entity.Criteria{KeyText: expected}, 0)
			require.NoError(t, err)

			els, err := q.FindAll(context.Background(), src, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"Two"}, texts(t, src, els))
		})
	}
}

func TestQuery_VisibleFilter(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	r := NewRegistry()

	visible, err := r.NewQuery("p.foo", entity.Criteria{KeyVisible: true}, 0)
	require.NoError(t, err)
	els, err := visible.FindAll(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Len(t, els, 2)

	hidden, err := r.NewQuery("p.foo", entity.Criteria{KeyVisible: false}, 0)
	require.NoError(t, err)
	els, err = hidden.FindAll(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Len(t, els, 1)
}

func TestQuery_FindAll_KeepsDocumentOrder(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	q, err := NewRegistry().NewQuery("p.foo, li", entity.Criteria{KeyVisible: true}, 0)
	require.NoError(t, err)

	els, err := q.FindAll(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "baz", "One", "Two"}, texts(t, src, els))
}

func TestQuery_FindAll_DropsStaleCandidates(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	ctx := context.Background()

	all, err := src.Document.FindAll(ctx, entity.TagName("li"), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	src.failText(all[0], output.ErrStaleElement)

	anything := entity.TextPredicate(func(string) bool { return true })
	q, err := NewRegistry().NewQuery("li", entity.Criteria{KeyText: anything}, 0)
	require.NoError(t, err)

	els, err := q.FindAll(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Two"}, texts(t, src, els))
}

func TestQuery_FindAll_FilterErrorPropagates(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	ctx := context.Background()

	all, err := src.Document.FindAll(ctx, entity.TagName("li"), nil)
	require.NoError(t, err)
	boom := errors.New("driver crashed")
	src.failText(all[1], boom)

	q, err := NewRegistry().NewQuery("li", entity.Criteria{KeyText: "o"}, 0)
	require.NoError(t, err)

	_, err = q.FindAll(ctx, src, nil)
	assert.ErrorIs(t, err, boom)
}

func TestQuery_FunctionLocator(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	ctx := context.Background()

	items := func(ctx context.Context, scope entity.Element) (any, error) {
		return src.Document.FindAll(ctx, entity.TagName("li"), scope)
	}
	none := entity.NamedFunc{Name: "nothing", Fn: func(context.Context, entity.Element) (any, error) {
		return nil, nil
	}}

	r := NewRegistry()
	q, err := r.NewQuery(items, entity.Criteria{KeyText: "One"}, 0)
	require.NoError(t, err)
	els, err := q.FindAll(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"One"}, texts(t, src, els))

	q, err = r.NewQuery(none, nil, 0)
	require.NoError(t, err)
	_, err = q.FindOne(ctx, src, nil)
	assert.EqualError(t, err, "No such element: nothing")
}

func TestQuery_FunctionLocatorReturnsQuery(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	ctx := context.Background()
	r := NewRegistry()

	items := func(context.Context, entity.Element) (any, error) {
		return r.NewQuery("li", entity.Criteria{KeyText: "Two"}, 0)
	}
	q, err := r.NewQuery(items, nil, 0)
	require.NoError(t, err)

	el, err := q.FindOne(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Two"}, texts(t, src, []entity.Element{el}))

	both := func(context.Context, entity.Element) (any, error) {
		first, err := r.NewQuery(".foo", entity.Criteria{KeyVisible: true}, 0)
		if err != nil {
			return nil, err
		}
		second, err := r.NewQuery(entity.TagName("li"), nil, 0)
		if err != nil {
			return nil, err
		}
		return []*Query{first, second}, nil
	}
	q, err = r.NewQuery(both, nil, 0)
	require.NoError(t, err)
	els, err := q.FindAll(ctx, src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "baz", "One", "Two"}, texts(t, src, els))

	list, err := src.Document.FindOne(ctx, entity.ID("list"), nil)
	require.NoError(t, err)
	paragraphs := func(context.Context, entity.Element) (any, error) {
		return r.NewQuery("p", nil, 0)
	}
	q, err = r.NewQuery(paragraphs, nil, 0)
	require.NoError(t, err)
	els, err = q.FindAll(ctx, src, list)
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestQuery_Scoped(t *testing.T) {
	src := newSpy(t, fixtureHTML)
	ctx := context.Background()

	list, err := src.Document.FindOne(ctx, entity.ID("list"), nil)
	require.NoError(t, err)

	q, err := NewRegistry().NewQuery(entity.TagName("li"), nil, 0)
	require.NoError(t, err)

	els, err := q.FindAll(ctx, src, list)
	require.NoError(t, err)
	assert.Len(t, els, 2)

	p, err := NewRegistry().NewQuery("p", nil, 0)
	require.NoError(t, err)
	els, err = p.FindAll(ctx, src, list)
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestToElements(t *testing.T) {
	type node struct{ id int }
	a, b := &node{1}, &node{2}

	assert.Nil(t, toElements(nil))
	assert.Nil(t, toElements((*node)(nil)))
	assert.Equal(t, []entity.Element{a}, toElements(a))
	assert.Equal(t, []entity.Element{a, b}, toElements([]*node{a, b}))
	assert.Equal(t, []entity.Element{a}, toElements([]entity.Element{a}))
}
