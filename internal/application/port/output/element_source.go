package output

import (
	"context"
	"errors"

	"browser-query/internal/domain/entity"
)

var (
	// ErrNoSuchElement is returned by FindOne when nothing matches.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement marks an element that is no longer attached to the page.
	ErrStaleElement = errors.New("stale element reference")
	// ErrUnsupportedStrategy is returned for locator strategies a source cannot run.
	ErrUnsupportedStrategy = errors.New("unsupported locator strategy")
)

// ElementSource is the driver side of element resolution. A nil scope means
// the whole page, otherwise lookups are relative to the scope element.
type ElementSource interface {
	FindOne(ctx context.Context, by entity.By, scope entity.Element) (entity.Element, error)
	FindAll(ctx context.Context, by entity.By, scope entity.Element) ([]entity.Element, error)
	Text(ctx context.Context, el entity.Element) (string, error)
	Visible(ctx context.Context, el entity.Element) (bool, error)

	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Reload(ctx context.Context) error
}

// StalenessChecker is implemented by sources that can tell whether an element
// was detached from the document.
type StalenessChecker interface {
	IsStale(ctx context.Context, el entity.Element) (bool, error)
}

// HTMLSource is implemented by sources that can serialize markup. A nil scope
// returns the whole document.
type HTMLSource interface {
	HTML(ctx context.Context, scope entity.Element) (string, error)
}
