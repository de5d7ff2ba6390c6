package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"browser-query/internal/domain/entity"
	"browser-query/internal/infrastructure/browser/static"
)

const fixtureHTML = `<html><head><title>Fixture</title></head><body>
<div id="main">
	<p class="foo">bar</p>
	<p class="foo">baz</p>
	<p class="foo" style="display: none">bar hidden</p>
	<span class="two">occurs twice</span>
	<span class="two">occurs twice</span>
	<ul id="list"><li>One</li><li>Two</li></ul>
	<a href="/next" id="next">Next page</a>
	<input type="text" name="q" />
</div>
</body></html>`

// spySource counts driver lookups and can fail Text for chosen elements.
type spySource struct {
	*static.Document

	mu      sync.Mutex
	lookups int
	textErr map[entity.Element]error
}

func newSpy(t *testing.T, markup string) *spySource {
	t.Helper()
	doc, err := static.Parse("http://example.test/app/index.html", markup)
	require.NoError(t, err)
	return &spySource{Document: doc, textErr: map[entity.Element]error{}}
}

func (s *spySource) FindOne(ctx context.Context, by entity.By, scope entity.Element) (entity.Element, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	return s.Document.FindOne(ctx, by, scope)
}

func (s *spySource) FindAll(ctx context.Context, by entity.By, scope entity.Element) ([]entity.Element, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	return s.Document.FindAll(ctx, by, scope)
}

func (s *spySource) Text(ctx context.Context, el entity.Element) (string, error) {
	s.mu.Lock()
	err := s.textErr[el]
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.Document.Text(ctx, el)
}

func (s *spySource) failText(el entity.Element, err error) {
	s.mu.Lock()
	s.textErr[el] = err
	s.mu.Unlock()
}

func (s *spySource) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func texts(t *testing.T, src *spySource, els []entity.Element) []string {
	t.Helper()
	out := make([]string, 0, len(els))
	for _, el := range els {
		text, err := src.Document.Text(context.Background(), el)
		require.NoError(t, err)
		out = append(out, text)
	}
	return out
}

func fastWaiter() *Waiter {
	return NewWaiter(WaiterConfig{PollInterval: 5 * time.Millisecond})
}

func newTestFinder(t *testing.T, markup string) (*Finder, *spySource) {
	t.Helper()
	src := newSpy(t, markup)
	return NewFinder(src, Config{Waiter: fastWaiter()}), src
}

func isTwo(text string) bool {
	return text == "Two"
}
