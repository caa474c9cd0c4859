package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/internal/mocks"
	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/hierarchy"
	"github.com/hcengineering/platform-sub028/pkg/logger"
	"github.com/hcengineering/platform-sub028/pkg/model"
	"github.com/hcengineering/platform-sub028/pkg/storage"
	"github.com/hcengineering/platform-sub028/pkg/storage/memory"
)

func testClassifiers() []core.Classifier {
	return []core.Classifier{
		{ID: core.ClassDoc, Kind: core.KindClass},
		{ID: "core:class:Class", Extends: core.ClassDoc, Kind: core.KindClass, Domain: core.DomainModel},
		{ID: core.ClassSpace, Extends: core.ClassDoc, Kind: core.KindClass, Domain: "docs",
			Traits: map[core.Ref]map[string]any{
				core.MixinAccessPolicy: {core.PolicyGuestCanCreate: true, core.PolicyGuestCanUpdate: true},
			}},
		{ID: core.ClassPerson, Extends: core.ClassDoc, Kind: core.KindClass, Domain: "docs",
			Traits: map[core.Ref]map[string]any{
				core.MixinAccessPolicy: {core.PolicyIdentityBound: true},
			}},
		{ID: core.ClassReaction, Extends: core.ClassDoc, Kind: core.KindClass, Domain: "activity",
			Traits: map[core.Ref]map[string]any{
				core.MixinAccessPolicy: {
					core.PolicyGuestCanCreate: true,
					core.PolicyGuestCanUpdate: true,
					core.PolicyGuestCanRemove: true,
				},
			}},
		{ID: core.ClassRating, Extends: core.ClassDoc, Kind: core.KindClass, Domain: "activity"},
		{ID: "task:class:Task", Extends: core.ClassDoc, Kind: core.KindClass, Domain: "docs",
			Traits: map[core.Ref]map[string]any{
				core.MixinAccessPolicy: {core.PolicyGuestCanCreate: true},
			}},
		{ID: "doc:class:Document", Extends: core.ClassDoc, Kind: core.KindClass, Domain: "docs",
			Traits: map[core.Ref]map[string]any{
				core.MixinVersioned: {},
			}},
		{ID: "note:class:Note", Extends: core.ClassDoc, Kind: core.KindClass, Domain: "notes"},
		{ID: "ui:class:Hint", Extends: core.ClassDoc, Kind: core.KindClass, Domain: core.DomainTransient},
		{ID: "meta:class:Marker", Extends: core.ClassDoc, Kind: core.KindClass},
	}
}

// env wires a complete pipeline over two recording memory adapters: "main"
// serves every domain except "notes", which lives on "second".
type env struct {
	pipeline *Pipeline
	pctx     *Context
	main     *mocks.RecordingAdapter
	second   *mocks.RecordingAdapter
	factory  *core.TxFactory
}

func newEnv(t *testing.T, triggers TriggerRegistry, broadcast BroadcastFunc) *env {
	t.Helper()
	ctx := context.Background()

	h, err := hierarchy.New(testClassifiers())
	require.NoError(t, err)

	main := mocks.NewRecordingAdapter(memory.New(h))
	second := mocks.NewRecordingAdapter(memory.New(h))

	manager, err := NewAdapterManager(AdapterManagerConfig{
		DomainAdapters: map[core.Domain]string{"notes": "second"},
		DefaultAdapter: "main",
		Factories: map[string]storage.Factory{
			"main":   func(context.Context) (storage.Adapter, error) { return main, nil },
			"second": func(context.Context) (storage.Adapter, error) { return second, nil },
		},
	}, logger.NewNoopLogger())
	require.NoError(t, err)

	pctx := &Context{
		Workspace: "test",
		Hierarchy: h,
		Model:     model.NewStore(h),
		Manager:   manager,
		Logger:    logger.NewNoopLogger(),
	}

	p, err := New(ctx, pctx, DefaultFactories(triggers, broadcast)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return &env{
		pipeline: p,
		pctx:     pctx,
		main:     main,
		second:   second,
		factory:  core.NewTxFactory("acc1", false),
	}
}

func (e *env) session() *Session {
	return NewSession(&core.Account{ID: "acc1"})
}

func (e *env) guestSession() *Session {
	return NewSession(&core.Account{
		ID:         "guest1",
		Person:     "person1",
		SocialIDs:  []core.Ref{"social1"},
		Restricted: true,
	})
}

// mustSubmit applies txes and fails the test on any rejection.
func (e *env) mustSubmit(t *testing.T, session *Session, txes ...core.Tx) []core.Result {
	t.Helper()
	results, err := e.pipeline.Submit(context.Background(), session, txes)
	require.NoError(t, err)
	require.Len(t, results, len(txes))
	return results
}

// find queries through the chain with a fresh session.
func (e *env) find(t *testing.T, class core.Ref, query core.Query, options *core.FindOptions) []*core.Doc {
	t.Helper()
	docs, err := e.pipeline.Query(context.Background(), e.session(), class, query, options)
	require.NoError(t, err)
	return docs
}
