package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// TriggerRegistry is the external trigger evaluator boundary. The chain
// hands it the full transaction batch and merges whatever derived
// transactions it returns back into the stream.
type TriggerRegistry interface {
	Apply(ctx context.Context, session *Session, txes []core.Tx) ([]core.Tx, error)
}

// TriggerFunc adapts a plain function to TriggerRegistry.
type TriggerFunc func(ctx context.Context, session *Session, txes []core.Tx) ([]core.Tx, error)

func (f TriggerFunc) Apply(ctx context.Context, session *Session, txes []core.Tx) ([]core.Tx, error) {
	return f(ctx, session, txes)
}

// triggerStage invokes the registry after routing has persisted the batch
// and queues the derived transactions on the session; the pipeline drains
// the queue by re-entering the chain, so derived transactions are routed,
// observed and allowed to trigger further derivations themselves.
type triggerStage struct {
	BaseMiddleware
	pctx     *Context
	registry TriggerRegistry
}

// NewTriggers returns the trigger stage factory. A nil registry yields a
// pass-through stage.
func NewTriggers(registry TriggerRegistry) Factory {
	return func(_ context.Context, pctx *Context, next Middleware) (Middleware, error) {
		return &triggerStage{
			BaseMiddleware: BaseMiddleware{next: next},
			pctx:           pctx,
			registry:       registry,
		}, nil
	}
}

func (t *triggerStage) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	results, err := t.provideTx(ctx, session, txes)
	if err != nil {
		return nil, err
	}
	if t.registry == nil || len(txes) == 0 {
		return results, nil
	}

	derived, err := t.registry.Apply(ctx, session, txes)
	if err != nil {
		return nil, err
	}
	if len(derived) > 0 {
		t.pctx.Logger.DebugWithContext(ctx, "triggers produced derived transactions",
			zap.Int("count", len(derived)))
		session.QueueDerived(derived...)
	}
	return results, nil
}
