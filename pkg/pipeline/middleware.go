package pipeline

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// Middleware is one stage of the transaction/query chain. Stages observe,
// transform or reject a batch before forwarding it to the next stage.
//
// Any stage may return an error before calling the next one, aborting the
// whole batch from the caller's point of view. Once a stage has called into
// the remainder of the chain, a downstream failure is propagated untouched,
// never caught or translated.
type Middleware interface {
	// Tx processes a batch of transactions and returns one result per
	// transaction in submission order.
	Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error)

	// FindAll answers a query, typically by delegating unchanged to the
	// next stage unless this one rewrites the query.
	FindAll(ctx context.Context, session *Session, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error)
}

// Factory builds one middleware wrapping the remainder of the chain. next is
// nil for the terminal stage. A factory must fail here, at assembly, when its
// stage's dependencies are missing: a configuration error at construction
// beats a panic at first use.
type Factory func(ctx context.Context, pctx *Context, next Middleware) (Middleware, error)

// BaseMiddleware implements the default "do nothing extra, forward to next"
// behavior. Concrete stages embed it and override only the methods they care
// about.
type BaseMiddleware struct {
	next Middleware
}

func (m *BaseMiddleware) provideTx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	if m.next == nil {
		return make([]core.Result, len(txes)), nil
	}
	return m.next.Tx(ctx, session, txes)
}

func (m *BaseMiddleware) provideFindAll(ctx context.Context, session *Session, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	if m.next == nil {
		return nil, nil
	}
	return m.next.FindAll(ctx, session, class, query, options)
}

// Tx forwards the batch unchanged.
func (m *BaseMiddleware) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	return m.provideTx(ctx, session, txes)
}

// FindAll forwards the query unchanged.
func (m *BaseMiddleware) FindAll(ctx context.Context, session *Session, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	return m.provideFindAll(ctx, session, class, query, options)
}

// Build assembles the chain from factories, first factory outermost. Order
// is significant and fixed by the assembler; see DefaultFactories.
func Build(ctx context.Context, pctx *Context, factories ...Factory) (Middleware, error) {
	var next Middleware
	for i := len(factories) - 1; i >= 0; i-- {
		mw, err := factories[i](ctx, pctx, next)
		if err != nil {
			return nil, err
		}
		next = mw
	}
	return next, nil
}
