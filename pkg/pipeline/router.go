package pipeline

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

var tracer = otel.Tracer("pkg/pipeline")

// domainTxRouter partitions a heterogeneous batch by target storage domain
// and dispatches each partition to its owning adapter, while still forwarding
// the original, unpartitioned batch to the next stage so downstream stages
// observe the full ordered stream.
type domainTxRouter struct {
	BaseMiddleware
	pctx *Context
}

// NewDomainTxRouter is the router stage factory. It fails assembly when the
// adapter manager is missing.
func NewDomainTxRouter(_ context.Context, pctx *Context, next Middleware) (Middleware, error) {
	if pctx.Manager == nil {
		return nil, &ConfigurationError{Stage: "domain-tx-router", Err: errNoManager}
	}
	return &domainTxRouter{BaseMiddleware: BaseMiddleware{next: next}, pctx: pctx}, nil
}

// routedTx pairs a routable transaction with its position in the original
// batch, so adapter results can be mapped back to submission order.
type routedTx struct {
	index  int
	tx     core.Tx
	domain core.Domain
}

func (r *domainTxRouter) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	ctx, span := tracer.Start(ctx, "router.Tx")
	defer span.End()

	results := make([]core.Result, len(txes))
	for i := range results {
		results[i] = core.Result{Matched: true}
	}

	byDomain := make(map[core.Domain][]routedTx)
	var order []core.Domain
	routed := 0
	for i, tx := range txes {
		_, class, ok := core.TargetOf(tx)
		if !ok {
			// Structural/meta transactions are not routed.
			continue
		}
		domain, ok := r.pctx.Hierarchy.FindDomain(class)
		if !ok {
			// Tolerated: pure structural classifiers have no storage
			// domain. The transaction is skipped, the batch continues.
			r.pctx.Logger.WarnWithContext(ctx, "skipping unroutable transaction",
				zap.String("tx", string(tx.Header().ID)), zap.String("class", string(class)))
			if r.pctx.Metrics != nil {
				r.pctx.Metrics.RoutingSkips.Inc()
			}
			continue
		}
		if domain == core.DomainTransient {
			continue
		}
		if _, seen := byDomain[domain]; !seen {
			order = append(order, domain)
		}
		byDomain[domain] = append(byDomain[domain], routedTx{index: i, tx: tx, domain: domain})
		routed++
	}

	if err := r.preloadRemoved(ctx, session, byDomain); err != nil {
		return nil, err
	}

	// Re-group domains by the adapter that physically serves them: several
	// domains may share one connection, and batching at the adapter level
	// minimizes round trips. Marking every touched domain in use happens
	// here, even for groups that end up empty for that adapter.
	byAdapter := make(map[string][]routedTx)
	var adapterOrder []string
	for _, domain := range order {
		name := r.pctx.Manager.GetAdapterName(domain)
		if _, err := r.pctx.Manager.GetAdapter(ctx, domain, true); err != nil {
			return nil, err
		}
		if _, seen := byAdapter[name]; !seen {
			adapterOrder = append(adapterOrder, name)
		}
		byAdapter[name] = append(byAdapter[name], byDomain[domain]...)
	}

	if err := r.dispatch(ctx, results, byAdapter, adapterOrder); err != nil {
		return nil, err
	}

	// Model-domain changes are replayed into the in-memory store, which is
	// authoritative for reads of that domain.
	for _, rt := range byDomain[core.DomainModel] {
		r.pctx.Model.Apply(rt.tx)
	}

	// Forward the entire original batch, not just the routed subset, so
	// triggers and broadcast observe the full ordered stream.
	if _, err := r.provideTx(ctx, session, txes); err != nil {
		return nil, err
	}

	if r.pctx.Metrics != nil && routed > 0 {
		r.pctx.Metrics.TxRouted.Add(float64(routed))
	}
	return results, nil
}

// preloadRemoved loads the documents affected by Remove transactions before
// deletion and stores them in the session scratch map, keyed by identifier.
// Model-domain documents come from the model store; everything else from the
// domain's adapter.
func (r *domainTxRouter) preloadRemoved(ctx context.Context, session *Session, byDomain map[core.Domain][]routedTx) error {
	for domain, group := range byDomain {
		var ids []core.Ref
		for _, rt := range group {
			if remove, ok := rt.tx.(*core.TxRemoveDoc); ok {
				ids = append(ids, remove.ObjectID)
			}
		}
		if len(ids) == 0 {
			continue
		}

		if domain == core.DomainModel {
			for _, id := range ids {
				if doc, ok := r.pctx.Model.Get(id); ok {
					session.Removed[id] = doc
				}
			}
			continue
		}

		adapter, err := r.pctx.Manager.GetAdapter(ctx, domain, true)
		if err != nil {
			return err
		}
		docs, err := adapter.Load(ctx, domain, ids)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			session.Removed[doc.ID] = doc
		}
	}
	return nil
}

// dispatch sends each adapter group to its adapter. Groups are disjoint, so
// they run concurrently; submission order is preserved within each group and
// therefore within each domain.
func (r *domainTxRouter) dispatch(ctx context.Context, results []core.Result, byAdapter map[string][]routedTx, adapterOrder []string) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, name := range adapterOrder {
		group := byAdapter[name]
		if len(group) == 0 {
			continue
		}
		p.Go(func(ctx context.Context) error {
			adapter, err := r.pctx.Manager.GetAdapterByName(ctx, name)
			if err != nil {
				return err
			}
			batch := make([]core.Tx, len(group))
			for i, rt := range group {
				batch[i] = rt.tx
			}
			res, err := adapter.Tx(ctx, batch...)
			if err != nil {
				return err
			}
			for i, rt := range group {
				if i < len(res) {
					results[rt.index] = res[i]
				}
			}
			return nil
		})
	}
	return p.Wait()
}

var errNoManager = errors.New("adapter manager is not configured")
