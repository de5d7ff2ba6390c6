package input

import (
	"context"
	"time"

	"browser-query/internal/domain/entity"
)

type Finder interface {
	Find(ctx context.Context, selector entity.Selector, filter entity.Criteria, timeout time.Duration) (entity.Element, error)
	FindAll(ctx context.Context, selector entity.Selector, filter entity.Criteria, timeout time.Duration) ([]entity.Element, error)
	Exists(ctx context.Context, selector entity.Selector, filter entity.Criteria) bool

	Wait(ctx context.Context, spec any, timeout time.Duration, message string) (any, error)
	ReloadUntil(ctx context.Context, spec any, timeout time.Duration, message string) (any, error)

	// Within returns a Finder whose lookups are rooted at el.
	Within(el entity.Element) Finder
}
