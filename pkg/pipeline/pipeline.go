package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// maxDerivedRounds bounds trigger chains: each round replays the derived
// transactions queued by the previous one, and a chain this deep is a trigger
// cycle, not a workload.
const maxDerivedRounds = 100

// DefaultFactories returns the canonical stage order. Permission checks run
// before routing so rejected transactions never touch storage. Triggers sit
// below the router so they observe persisted state, and broadcast below them
// so clients only learn about applied changes.
func DefaultFactories(triggers TriggerRegistry, broadcast BroadcastFunc) []Factory {
	return []Factory{
		NewGuestGuard,
		NewRatingGuard,
		NewVersioning,
		NewDomainTxRouter,
		NewTriggers(triggers),
		NewBroadcast(broadcast),
		NewDispatcher(),
	}
}

// Pipeline is the assembled middleware chain for one workspace. It is safe
// for concurrent use: per-request state lives on the Session, and conditional
// batches sharing a scope are serialized here.
type Pipeline struct {
	pctx *Context
	head Middleware

	mu     sync.Mutex
	scopes map[string]*sync.Mutex
}

// New assembles a pipeline from the given stage factories, first factory
// outermost. Assembly fails when any stage's dependencies are missing.
func New(ctx context.Context, pctx *Context, factories ...Factory) (*Pipeline, error) {
	head, err := Build(ctx, pctx, factories...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		pctx:   pctx,
		head:   head,
		scopes: make(map[string]*sync.Mutex),
	}, nil
}

// Submit runs a batch of transactions through the chain and returns one
// result per transaction in submission order. Conditional batches are
// verified and expanded here; trigger-produced transactions are replayed
// through the chain before Submit returns, so callers observe their effects.
func (p *Pipeline) Submit(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	if p.pctx.Metrics != nil {
		p.pctx.Metrics.TxSubmitted.Add(float64(len(txes)))
		start := time.Now()
		defer func() {
			p.pctx.Metrics.TxDuration.Observe(float64(time.Since(start).Milliseconds()))
		}()
	}

	unlock := p.lockScopes(txes)
	defer unlock()

	effective, origin, results, err := p.expandConditionals(ctx, session, txes)
	if err != nil {
		return nil, err
	}

	chainResults, err := p.head.Tx(ctx, session, effective)
	if err != nil {
		return nil, err
	}
	for j, i := range origin {
		if _, ok := txes[i].(*core.TxApplyIf); ok {
			continue
		}
		if j < len(chainResults) {
			results[i] = chainResults[j]
		}
	}

	if err := p.processDerived(ctx, session); err != nil {
		return nil, err
	}
	return results, nil
}

// SubmitOne submits a single transaction and returns its result.
func (p *Pipeline) SubmitOne(ctx context.Context, session *Session, tx core.Tx) (core.Result, error) {
	results, err := p.Submit(ctx, session, []core.Tx{tx})
	if err != nil {
		return core.Result{}, err
	}
	result, _ := core.Single(results)
	return result, nil
}

// Query answers a find request through the chain, so query-rewriting stages
// apply.
func (p *Pipeline) Query(ctx context.Context, session *Session, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	if p.pctx.Metrics != nil {
		start := time.Now()
		defer func() {
			p.pctx.Metrics.QueryDuration.Observe(float64(time.Since(start).Milliseconds()))
		}()
	}
	return p.head.FindAll(ctx, session, class, query, options)
}

// Close releases every storage adapter the pipeline instantiated.
func (p *Pipeline) Close() error {
	return p.pctx.Manager.Close()
}

// expandConditionals verifies every TxApplyIf in the batch and splices
// matched inner transactions into the effective batch. results carries one
// pre-filled entry per conditional; origin[j] is the index in txes that
// produced effective[j].
func (p *Pipeline) expandConditionals(ctx context.Context, session *Session, txes []core.Tx) ([]core.Tx, []int, []core.Result, error) {
	results := make([]core.Result, len(txes))
	effective := make([]core.Tx, 0, len(txes))
	origin := make([]int, 0, len(txes))

	for i, tx := range txes {
		applyIf, ok := tx.(*core.TxApplyIf)
		if !ok {
			effective = append(effective, tx)
			origin = append(origin, i)
			continue
		}
		matched, err := p.verify(ctx, session, applyIf)
		if err != nil {
			return nil, nil, nil, err
		}
		results[i] = core.Result{Matched: matched}
		if !matched {
			continue
		}
		for _, inner := range applyIf.Txes {
			effective = append(effective, inner)
			origin = append(origin, i)
		}
	}
	return effective, origin, results, nil
}

// verify checks a conditional batch's preconditions: every Match query must
// return at least one document, every NotMatch query none.
func (p *Pipeline) verify(ctx context.Context, session *Session, applyIf *core.TxApplyIf) (bool, error) {
	one := &core.FindOptions{Limit: 1}
	for _, m := range applyIf.Match {
		docs, err := p.head.FindAll(ctx, session, m.Class, m.Query, one)
		if err != nil {
			return false, err
		}
		if len(docs) == 0 {
			return false, nil
		}
	}
	for _, m := range applyIf.NotMatch {
		docs, err := p.head.FindAll(ctx, session, m.Class, m.Query, one)
		if err != nil {
			return false, err
		}
		if len(docs) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// lockScopes serializes conditional batches sharing a scope. Scopes are
// locked in sorted order so two batches naming overlapping scope sets cannot
// deadlock. The returned function releases them in reverse order.
func (p *Pipeline) lockScopes(txes []core.Tx) func() {
	seen := make(map[string]bool)
	var names []string
	for _, tx := range txes {
		if applyIf, ok := tx.(*core.TxApplyIf); ok && applyIf.Scope != "" && !seen[applyIf.Scope] {
			seen[applyIf.Scope] = true
			names = append(names, applyIf.Scope)
		}
	}
	if len(names) == 0 {
		return func() {}
	}
	sort.Strings(names)

	locks := make([]*sync.Mutex, 0, len(names))
	p.mu.Lock()
	for _, name := range names {
		lock, ok := p.scopes[name]
		if !ok {
			lock = &sync.Mutex{}
			p.scopes[name] = lock
		}
		locks = append(locks, lock)
	}
	p.mu.Unlock()

	for _, lock := range locks {
		lock.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// processDerived replays trigger-produced transactions until the queue is
// empty. Each round runs under a derived view of the session, so permission
// checks do not reapply, while the scratch state stays shared.
func (p *Pipeline) processDerived(ctx context.Context, session *Session) error {
	derived := session.AsDerived()
	for round := 0; ; round++ {
		queue := session.DrainDerived()
		if len(queue) == 0 {
			return nil
		}
		if round >= maxDerivedRounds {
			return invariant("derived transaction chain exceeded %d rounds", maxDerivedRounds)
		}
		if p.pctx.Metrics != nil {
			p.pctx.Metrics.TxDerived.Add(float64(len(queue)))
		}
		// Trigger-produced conditionals are verified and expanded just
		// like submitted ones. Their scopes are not latched anew: any
		// serialization they need is provided by the latches the
		// submitting batch already holds.
		effective, _, _, err := p.expandConditionals(ctx, derived, queue)
		if err != nil {
			return err
		}
		if len(effective) == 0 {
			continue
		}
		if _, err := p.head.Tx(ctx, derived, effective); err != nil {
			return err
		}
	}
}
