package pipeline

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

const (
	// reactionKindStar reactions may repeat; they are merged downstream
	// instead of being rejected as duplicates.
	reactionKindStar = "star"

	ratingValueMin = 0
	ratingValueMax = 5
)

// ratingGuard validates reaction documents and protects aggregate rating
// documents, which are derivable only from reactions and never written
// directly.
type ratingGuard struct {
	BaseMiddleware
	pctx *Context
}

// NewRatingGuard is the rating/reaction stage factory.
func NewRatingGuard(_ context.Context, pctx *Context, next Middleware) (Middleware, error) {
	return &ratingGuard{BaseMiddleware: BaseMiddleware{next: next}, pctx: pctx}, nil
}

func (g *ratingGuard) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	for _, tx := range txes {
		if err := g.check(ctx, session, tx); err != nil {
			return nil, err
		}
	}
	return g.provideTx(ctx, session, txes)
}

func (g *ratingGuard) check(ctx context.Context, session *Session, tx core.Tx) error {
	if apply, ok := tx.(*core.TxApplyIf); ok {
		for _, inner := range apply.Txes {
			if err := g.check(ctx, session, inner); err != nil {
				return err
			}
		}
		return nil
	}

	_, class, ok := core.TargetOf(tx)
	if !ok {
		return nil
	}

	if g.pctx.Hierarchy.IsDerived(class, core.ClassRating) {
		// Aggregates are recomputed by triggers; the derived replay is
		// the only legitimate writer.
		if session.Derived {
			return nil
		}
		return invariant("rating documents are derived from reactions and cannot be written directly")
	}

	if !g.pctx.Hierarchy.IsDerived(class, core.ClassReaction) {
		return nil
	}

	switch t := tx.(type) {
	case *core.TxCreateDoc:
		return g.checkCreate(ctx, session, t)
	case *core.TxUpdateDoc:
		return g.checkUpdate(t)
	case *core.TxRemoveDoc:
		// Remove is deliberately not validated. Whether removal needs an
		// invariant of its own is an unresolved product decision; until
		// then it passes through unchanged.
		return nil
	}
	return nil
}

// checkCreate rejects a duplicate reaction of the same kind, value and emoji
// by the same actor on the same target.
func (g *ratingGuard) checkCreate(ctx context.Context, session *Session, t *core.TxCreateDoc) error {
	kind, _ := t.Attributes[core.AttrReactionKind].(string)
	if kind == reactionKindStar {
		return nil
	}

	query := core.Query{
		core.AttrAttachedTo:   t.Attributes[core.AttrAttachedTo],
		"modifiedBy":          t.ModifiedBy,
		core.AttrReactionKind: t.Attributes[core.AttrReactionKind],
	}
	if v, ok := t.Attributes[core.AttrReactionValue]; ok {
		query[core.AttrReactionValue] = v
	}
	if v, ok := t.Attributes[core.AttrReactionEmoji]; ok {
		query[core.AttrReactionEmoji] = v
	}

	existing, err := g.provideFindAll(ctx, session, t.ObjectClass, query, &core.FindOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return invariant("duplicate reaction on %q", t.Attributes[core.AttrAttachedTo])
	}
	return nil
}

// checkUpdate forbids changing a reaction's kind and requires an in-range
// numeric value.
func (g *ratingGuard) checkUpdate(t *core.TxUpdateDoc) error {
	if _, ok := t.Operations.Set[core.AttrReactionKind]; ok {
		return invariant("reaction kind cannot be changed")
	}
	if raw, ok := t.Operations.Set[core.AttrReactionValue]; ok {
		value, isNumber := core.AsNumber(raw)
		if !isNumber || value < ratingValueMin || value > ratingValueMax {
			return invariant("reaction value must be a rating between %d and %d", ratingValueMin, ratingValueMax)
		}
	}
	return nil
}
