package pipeline

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// BroadcastFunc receives the full, ordered transaction stream after
// persistence, for fan-out to live queries and connected clients.
type BroadcastFunc func(ctx context.Context, session *Session, txes []core.Tx)

// broadcastStage is the last observing stage of the chain. It sees every
// transaction the router forwarded, client-submitted and derived alike.
type broadcastStage struct {
	BaseMiddleware
	fn BroadcastFunc
}

// NewBroadcast returns the broadcast stage factory. A nil fn still records
// the stream on the session for inspection.
func NewBroadcast(fn BroadcastFunc) Factory {
	return func(_ context.Context, _ *Context, next Middleware) (Middleware, error) {
		return &broadcastStage{BaseMiddleware: BaseMiddleware{next: next}, fn: fn}, nil
	}
}

func (b *broadcastStage) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	results, err := b.provideTx(ctx, session, txes)
	if err != nil {
		return nil, err
	}
	session.logBroadcast(txes)
	if b.fn != nil {
		b.fn(ctx, session, txes)
	}
	return results, nil
}
