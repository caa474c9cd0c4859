package pipeline

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// versioning maintains append-only version chains for classifiers carrying
// the Versioned trait and hides non-latest versions from ordinary queries.
//
// Within a chain, at most one document is flagged latest at any time and
// version numbers are strictly increasing under single-writer conditions.
// Concurrent creation of versions in the same chain is not made race-free
// here; adapters wanting strict consistency should enforce a unique
// (baseChain, version) constraint.
type versioning struct {
	BaseMiddleware
	pctx    *Context
	factory *core.TxFactory
}

// NewVersioning is the versioning stage factory.
func NewVersioning(_ context.Context, pctx *Context, next Middleware) (Middleware, error) {
	return &versioning{
		BaseMiddleware: BaseMiddleware{next: next},
		pctx:           pctx,
		factory:        core.NewTxFactory("core:account:System", true),
	}, nil
}

func (v *versioning) versioned(class core.Ref) bool {
	_, ok := v.pctx.Hierarchy.ClassHierarchyMixin(class, core.MixinVersioned)
	return ok
}

// FindAll pins versioned queries to the latest version unless the caller
// already addresses an explicit document, chain or latest flag.
func (v *versioning) FindAll(ctx context.Context, session *Session, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	if !v.versioned(class) {
		return v.provideFindAll(ctx, session, class, query, options)
	}
	if _, ok := query["_id"]; ok {
		return v.provideFindAll(ctx, session, class, query, options)
	}
	if _, ok := query[core.AttrBaseChain]; ok {
		return v.provideFindAll(ctx, session, class, query, options)
	}
	if _, ok := query[core.AttrIsLatest]; ok {
		return v.provideFindAll(ctx, session, class, query, options)
	}

	pinned := make(core.Query, len(query)+1)
	for k, val := range query {
		pinned[k] = val
	}
	pinned[core.AttrIsLatest] = true
	return v.provideFindAll(ctx, session, class, pinned, options)
}

func (v *versioning) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	var demotions []core.Tx

	out := make([]core.Tx, len(txes))
	for i, tx := range txes {
		rewritten, extra, err := v.rewrite(ctx, session, tx)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
		demotions = append(demotions, extra...)
	}

	results, err := v.provideTx(ctx, session, out)
	if err != nil {
		return nil, err
	}

	// Demotions depend on the new version already being assigned, so they
	// go out as a second, subsequent call rather than interleaved with the
	// triggering creates.
	if len(demotions) > 0 {
		if _, err := v.provideTx(ctx, session, demotions); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// rewrite stamps version attributes onto creates of versioned documents. The
// incoming transaction is never mutated: an amended copy replaces it in the
// forwarded batch.
func (v *versioning) rewrite(ctx context.Context, session *Session, tx core.Tx) (core.Tx, []core.Tx, error) {
	switch t := tx.(type) {
	case *core.TxCreateDoc:
		if !v.versioned(t.ObjectClass) {
			return tx, nil, nil
		}
		return v.rewriteCreate(ctx, session, t)
	case *core.TxApplyIf:
		var demotions []core.Tx
		inner := make([]core.Tx, len(t.Txes))
		changed := false
		for i, itx := range t.Txes {
			rewritten, extra, err := v.rewrite(ctx, session, itx)
			if err != nil {
				return nil, nil, err
			}
			inner[i] = rewritten
			if rewritten != itx {
				changed = true
			}
			demotions = append(demotions, extra...)
		}
		if !changed {
			return tx, demotions, nil
		}
		cp := *t
		cp.Txes = inner
		return &cp, demotions, nil
	default:
		return tx, nil, nil
	}
}

func (v *versioning) rewriteCreate(ctx context.Context, session *Session, t *core.TxCreateDoc) (core.Tx, []core.Tx, error) {
	base := core.Ref(attrString(t.Attributes, core.AttrBaseChain))

	cp := *t
	cp.Attributes = make(map[string]any, len(t.Attributes)+4)
	for k, val := range t.Attributes {
		cp.Attributes[k] = val
	}

	if base == "" || base == t.ObjectID {
		// First version of a new chain.
		cp.Attributes[core.AttrVersion] = float64(1)
		cp.Attributes[core.AttrBaseChain] = string(t.ObjectID)
		cp.Attributes[core.AttrIsLatest] = true
		cp.Attributes[core.AttrCreatedBy] = string(t.ModifiedBy)
		return &cp, nil, nil
	}

	chain, err := v.provideFindAll(ctx, session, t.ObjectClass,
		core.Query{core.AttrBaseChain: string(base)},
		&core.FindOptions{Sort: []core.SortBy{{Field: core.AttrVersion, Order: core.Descending}}})
	if err != nil {
		return nil, nil, err
	}
	if len(chain) == 0 {
		return nil, nil, invariant("version chain %q not found for %q", base, t.ObjectID)
	}

	latest := chain[0]
	for _, doc := range chain {
		if doc.BoolAttr(core.AttrIsLatest) {
			latest = doc
			break
		}
	}
	version, _ := latest.NumberAttr(core.AttrVersion)

	cp.Attributes[core.AttrVersion] = version + 1
	cp.Attributes[core.AttrBaseChain] = string(base)
	cp.Attributes[core.AttrIsLatest] = true
	// The chain keeps its original creating actor.
	if creator := latest.StringAttr(core.AttrCreatedBy); creator != "" {
		cp.Attributes[core.AttrCreatedBy] = creator
	} else {
		cp.Attributes[core.AttrCreatedBy] = string(latest.ModifiedBy)
	}

	var demotions []core.Tx
	for _, doc := range chain {
		if !doc.BoolAttr(core.AttrIsLatest) {
			continue
		}
		demotions = append(demotions, v.factory.UpdateDoc(doc.Class, doc.Space, doc.ID, core.DocumentUpdate{
			Set: map[string]any{
				core.AttrIsLatest: false,
				core.AttrReadonly: true,
			},
		}))
	}
	return &cp, demotions, nil
}

func attrString(attrs map[string]any, key string) string {
	v, _ := attrs[key].(string)
	return v
}
