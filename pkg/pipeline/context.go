// Package pipeline implements the ordered middleware chain every stateful
// change flows through before being persisted: domain routing, permission
// enforcement, versioning and invariant guards, trigger evaluation and
// broadcast.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/hierarchy"
	"github.com/hcengineering/platform-sub028/pkg/logger"
	"github.com/hcengineering/platform-sub028/pkg/model"
	"github.com/hcengineering/platform-sub028/pkg/telemetry"
)

// Context is the per-workspace shared state handed to every middleware at
// construction. It carries no behavior of its own.
type Context struct {
	WorkspaceID uuid.UUID
	Workspace   string
	Branding    map[string]string

	Hierarchy *hierarchy.Hierarchy
	Model     *model.Store
	Manager   *AdapterManager

	Logger  logger.Logger
	Metrics *telemetry.Metrics
}

// Session is the per-request ephemeral state threaded through every stage.
// It lives for one request (or one long-lived subscription) and is never
// shared across concurrent requests, so it needs no locking.
type Session struct {
	ID      uuid.UUID
	Account *core.Account

	// Derived marks a re-entry of the chain with server-generated
	// transactions; permission checks do not apply to those.
	Derived bool

	// Removed collects documents loaded just before their Remove was
	// routed, keyed by identifier, so later stages can inspect a document
	// that storage no longer has.
	Removed map[core.Ref]*core.Doc

	scratch *sessionScratch
}

// sessionScratch is shared between a session and its derived views.
type sessionScratch struct {
	derived   []core.Tx
	broadcast []core.Tx
}

// NewSession starts a request-scoped session for the given account.
func NewSession(account *core.Account) *Session {
	return &Session{
		ID:      uuid.New(),
		Account: account,
		Removed: make(map[core.Ref]*core.Doc),
		scratch: &sessionScratch{},
	}
}

// AsDerived returns a view of the session for replaying server-generated
// transactions. Scratch state is shared with the parent session.
func (s *Session) AsDerived() *Session {
	cp := *s
	cp.Derived = true
	return &cp
}

// QueueDerived appends trigger-produced transactions for the pipeline to
// apply after the current batch.
func (s *Session) QueueDerived(txes ...core.Tx) {
	s.scratch.derived = append(s.scratch.derived, txes...)
}

// DrainDerived returns and clears the queued derived transactions.
func (s *Session) DrainDerived() []core.Tx {
	q := s.scratch.derived
	s.scratch.derived = nil
	return q
}

func (s *Session) logBroadcast(txes []core.Tx) {
	s.scratch.broadcast = append(s.scratch.broadcast, txes...)
}

// Broadcasted returns the ordered stream observed by the broadcast stage.
func (s *Session) Broadcasted() []core.Tx {
	return s.scratch.broadcast
}
