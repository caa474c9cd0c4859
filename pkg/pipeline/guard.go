package pipeline

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// spaceRestrictedFields are always forbidden to restricted identities on
// space documents, regardless of access-policy grants.
var spaceRestrictedFields = map[string]struct{}{
	"members":  {},
	"private":  {},
	"archived": {},
	"owners":   {},
	"autoJoin": {},
}

// guestGuard enforces the per-classifier access policy for restricted
// (guest) identities. It runs strictly before routing and persistence and
// rejects with the uniform ErrForbidden, leaking no internal detail.
type guestGuard struct {
	BaseMiddleware
	pctx *Context
}

// NewGuestGuard is the permission-guard stage factory.
func NewGuestGuard(_ context.Context, pctx *Context, next Middleware) (Middleware, error) {
	return &guestGuard{BaseMiddleware: BaseMiddleware{next: next}, pctx: pctx}, nil
}

func (g *guestGuard) Tx(ctx context.Context, session *Session, txes []core.Tx) ([]core.Result, error) {
	if !g.restricted(session) {
		return g.provideTx(ctx, session, txes)
	}
	for _, tx := range txes {
		if err := g.check(ctx, session, tx); err != nil {
			return nil, err
		}
	}
	return g.provideTx(ctx, session, txes)
}

func (g *guestGuard) restricted(session *Session) bool {
	// Server-generated transactions carry their own upstream checks.
	if session.Derived {
		return false
	}
	return session.Account != nil && session.Account.Restricted
}

func (g *guestGuard) check(ctx context.Context, session *Session, tx core.Tx) error {
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

	if g.pctx.Hierarchy.IsDerived(class, core.ClassSpace) {
		return g.checkSpace(tx, class)
	}
	return g.checkDoc(ctx, session, tx, class)
}

// checkSpace applies the stricter rules for space/container documents.
func (g *guestGuard) checkSpace(tx core.Tx, class core.Ref) error {
	policy := g.policy(class)

	switch t := tx.(type) {
	case *core.TxRemoveDoc:
		// Non-members can never remove a space.
		return ErrForbidden
	case *core.TxCreateDoc:
		if policy == nil || !policy.GuestCanCreate {
			return ErrForbidden
		}
		return nil
	case *core.TxUpdateDoc:
		for _, field := range t.Operations.Fields() {
			if _, restricted := spaceRestrictedFields[field]; restricted {
				return ErrForbidden
			}
		}
		if t.Operations.HasArrayOps() {
			return ErrForbidden
		}
		if policy == nil || !policy.GuestCanUpdate {
			return ErrForbidden
		}
		return nil
	case *core.TxMixin:
		// Trait application carries its own downstream checks.
		return nil
	case *core.TxApplyIf:
		return nil
	}
	return nil
}

// checkDoc applies the generic-document rules.
func (g *guestGuard) checkDoc(ctx context.Context, session *Session, tx core.Tx, class core.Ref) error {
	policy := g.policy(class)

	switch t := tx.(type) {
	case *core.TxMixin:
		return nil
	case *core.TxCreateDoc:
		if policy != nil && policy.GuestCanCreate {
			return nil
		}
		return ErrForbidden
	case *core.TxRemoveDoc:
		if policy != nil && policy.GuestCanRemove {
			return nil
		}
		return ErrForbidden
	case *core.TxUpdateDoc:
		if policy != nil && policy.GuestCanUpdate {
			return nil
		}
		if policy != nil && policy.IdentityBound && g.ownIdentity(ctx, session, t) {
			return nil
		}
		return ErrForbidden
	case *core.TxApplyIf:
		return nil
	}
	return nil
}

// ownIdentity reports whether an identity-bound update targets a document
// representing the acting identity itself: either one of the account's
// linked social identifiers, or a person record resolving to the account's
// person.
func (g *guestGuard) ownIdentity(ctx context.Context, session *Session, tx *core.TxUpdateDoc) bool {
	account := session.Account
	if account.HasSocialID(tx.ObjectID) {
		return true
	}

	docs, err := g.provideFindAll(ctx, session, tx.ObjectClass, core.Query{"_id": tx.ObjectID}, &core.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return false
	}
	doc := docs[0]
	if !g.pctx.Hierarchy.IsDerived(doc.Class, core.ClassPerson) {
		return false
	}
	if account.Person != "" && doc.ID == account.Person {
		return true
	}
	profile := core.Ref(doc.StringAttr("profile"))
	return profile != "" && profile == account.Person
}

func (g *guestGuard) policy(class core.Ref) *core.AccessPolicy {
	raw, ok := g.pctx.Hierarchy.ClassHierarchyMixin(class, core.MixinAccessPolicy)
	if !ok {
		return nil
	}
	policy := core.DecodeAccessPolicy(raw)
	return &policy
}
