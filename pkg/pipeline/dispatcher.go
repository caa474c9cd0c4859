package pipeline

import (
	"context"
	"fmt"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// dispatcher terminates the chain. Storage writes are handled by the router
// upstream, so Tx is a no-op here; FindAll resolves the query domain and
// serves it from the model store or the matching adapter.
type dispatcher struct {
	BaseMiddleware
	pctx *Context
}

// NewDispatcher returns the terminal stage factory.
func NewDispatcher() Factory {
	return func(_ context.Context, pctx *Context, next Middleware) (Middleware, error) {
		if pctx.Manager == nil {
			return nil, &ConfigurationError{Stage: "dispatcher", Err: errNoManager}
		}
		return &dispatcher{BaseMiddleware: BaseMiddleware{next: next}, pctx: pctx}, nil
	}
}

func (d *dispatcher) FindAll(ctx context.Context, session *Session, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	domain, ok := d.pctx.Hierarchy.FindDomain(class)
	if !ok {
		return nil, fmt.Errorf("query class %s: %w", class, ErrUnroutable)
	}
	if domain == core.DomainModel {
		return d.pctx.Model.FindAll(class, query, options), nil
	}
	adapter, err := d.pctx.Manager.GetAdapter(ctx, domain, false)
	if err != nil {
		return nil, err
	}
	return adapter.FindAll(ctx, class, query, options)
}
