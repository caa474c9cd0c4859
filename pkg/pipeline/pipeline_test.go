package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

func TestSubmitApplyIf(t *testing.T) {
	e := newEnv(t, nil, nil)

	e.mustSubmit(t, e.session(), e.factory.CreateDoc("task:class:Task", "space1", "t1", map[string]any{"state": "open"}))

	t.Run("preconditions_hold", func(t *testing.T) {
		results := e.mustSubmit(t, e.session(), e.factory.ApplyIf("tasks",
			[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"_id": "t1", "state": "open"}}},
			[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"_id": "t2"}}},
			[]core.Tx{e.factory.CreateDoc("task:class:Task", "space1", "t2", nil)},
		))
		require.True(t, results[0].Matched)
		require.Len(t, e.find(t, "task:class:Task", core.Query{"_id": "t2"}, nil), 1)
	})

	t.Run("match_fails", func(t *testing.T) {
		results := e.mustSubmit(t, e.session(), e.factory.ApplyIf("tasks",
			[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"_id": "missing"}}},
			nil,
			[]core.Tx{e.factory.CreateDoc("task:class:Task", "space1", "t3", nil)},
		))
		require.False(t, results[0].Matched)
		require.Empty(t, e.find(t, "task:class:Task", core.Query{"_id": "t3"}, nil))
	})

	t.Run("notmatch_fails", func(t *testing.T) {
		results := e.mustSubmit(t, e.session(), e.factory.ApplyIf("tasks",
			nil,
			[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"_id": "t1"}}},
			[]core.Tx{e.factory.CreateDoc("task:class:Task", "space1", "t4", nil)},
		))
		require.False(t, results[0].Matched)
		require.Empty(t, e.find(t, "task:class:Task", core.Query{"_id": "t4"}, nil))
	})

	t.Run("mixed_batch_keeps_order", func(t *testing.T) {
		results := e.mustSubmit(t, e.session(),
			e.factory.CreateDoc("task:class:Task", "space1", "t5", nil),
			e.factory.ApplyIf("tasks",
				[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"_id": "missing"}}},
				nil,
				[]core.Tx{e.factory.CreateDoc("task:class:Task", "space1", "t6", nil)}),
			e.factory.CreateDoc("task:class:Task", "space1", "t7", nil),
		)
		require.True(t, results[0].Matched)
		require.False(t, results[1].Matched)
		require.True(t, results[2].Matched)
		require.NotNil(t, results[2].Object)
		require.Equal(t, core.Ref("t7"), results[2].Object.ID)
	})
}

func TestSubmitApplyIfScopeSerialization(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()

	// Concurrent conditional creation under one scope with a not-exists
	// precondition must admit exactly one writer.
	var wg sync.WaitGroup
	matched := make([]bool, 16)
	for i := range matched {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			factory := core.NewTxFactory("acc1", false)
			results, err := e.pipeline.Submit(ctx, e.session(), []core.Tx{
				factory.ApplyIf("singleton",
					nil,
					[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"slug": "only-one"}}},
					[]core.Tx{factory.CreateDoc("task:class:Task", "space1", "", map[string]any{"slug": "only-one"})},
				),
			})
			if err == nil && len(results) == 1 {
				matched[i] = results[0].Matched
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, m := range matched {
		if m {
			winners++
		}
	}
	require.Equal(t, 1, winners)
	require.Len(t, e.find(t, "task:class:Task", core.Query{"slug": "only-one"}, nil), 1)
}

func TestSubmitOne(t *testing.T) {
	e := newEnv(t, nil, nil)

	result, err := e.pipeline.SubmitOne(context.Background(), e.session(),
		e.factory.CreateDoc("task:class:Task", "space1", "t1", nil))
	require.NoError(t, err)
	require.True(t, result.Matched)
	require.NotNil(t, result.Object)
}

func TestTriggersProduceDerivedTransactions(t *testing.T) {
	system := core.NewTxFactory("core:account:System", true)

	// On every reaction create, recompute a rating aggregate.
	registry := TriggerFunc(func(_ context.Context, session *Session, txes []core.Tx) ([]core.Tx, error) {
		var derived []core.Tx
		if session.Derived {
			return nil, nil
		}
		for _, tx := range txes {
			create, ok := tx.(*core.TxCreateDoc)
			if !ok || create.ObjectClass != core.ClassReaction {
				continue
			}
			target, _ := create.Attributes[core.AttrAttachedTo].(string)
			derived = append(derived, system.CreateDoc(core.ClassRating, create.ObjectSpace, core.Ref("rating-"+target), map[string]any{
				core.AttrAttachedTo: target,
				"count":             float64(1),
			}))
		}
		return derived, nil
	})

	e := newEnv(t, registry, nil)
	session := e.session()

	e.mustSubmit(t, session, reaction(e.factory, "r1", map[string]any{
		core.AttrAttachedTo:    "doc1",
		core.AttrReactionKind:  "star",
		core.AttrReactionValue: float64(5),
	}))

	// The derived aggregate was persisted during the same Submit call.
	docs := e.find(t, core.ClassRating, core.Query{core.AttrAttachedTo: "doc1"}, nil)
	require.Len(t, docs, 1)

	// Broadcast observed the client batch first, then the derived batch.
	stream := session.Broadcasted()
	require.Len(t, stream, 2)
	require.Equal(t, core.Ref("r1"), stream[0].(*core.TxCreateDoc).ObjectID)
	require.True(t, stream[1].Header().IsDerived())
}

func TestTriggersMayProduceConditionalTransactions(t *testing.T) {
	system := core.NewTxFactory("core:account:System", true)

	// The trigger maintains a singleton marker document through a
	// conditional: created only when no marker exists yet.
	registry := TriggerFunc(func(_ context.Context, session *Session, txes []core.Tx) ([]core.Tx, error) {
		if session.Derived {
			return nil, nil
		}
		return []core.Tx{system.ApplyIf("marker",
			nil,
			[]core.QueryMatch{{Class: "task:class:Task", Query: core.Query{"kind": "marker"}}},
			[]core.Tx{system.CreateDoc("task:class:Task", "space1", "", map[string]any{"kind": "marker"})},
		)}, nil
	})

	e := newEnv(t, registry, nil)

	e.mustSubmit(t, e.session(), e.factory.CreateDoc("task:class:Task", "space1", "t1", nil))
	require.Len(t, e.find(t, "task:class:Task", core.Query{"kind": "marker"}, nil), 1)

	// A second submission re-derives the conditional, whose precondition
	// now fails, so no second marker appears.
	e.mustSubmit(t, e.session(), e.factory.CreateDoc("task:class:Task", "space1", "t2", nil))
	require.Len(t, e.find(t, "task:class:Task", core.Query{"kind": "marker"}, nil), 1)
}

func TestDerivedChainDepthIsBounded(t *testing.T) {
	system := core.NewTxFactory("core:account:System", true)

	// A registry that always derives another transaction never terminates
	// by itself; the pipeline must cut it off.
	registry := TriggerFunc(func(_ context.Context, _ *Session, txes []core.Tx) ([]core.Tx, error) {
		return []core.Tx{system.CreateDoc("task:class:Task", "space1", "", nil)}, nil
	})

	e := newEnv(t, registry, nil)
	_, err := e.pipeline.Submit(context.Background(), e.session(),
		[]core.Tx{e.factory.CreateDoc("task:class:Task", "space1", "t1", nil)})
	require.Error(t, err)
	require.True(t, IsInvariantError(err))
}

func TestBroadcastHandlerReceivesStream(t *testing.T) {
	var (
		mu     sync.Mutex
		calls  int
		seen   int
		stream []core.Tx
	)
	handler := func(_ context.Context, _ *Session, txes []core.Tx) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		seen += len(txes)
		stream = append(stream, txes...)
	}

	e := newEnv(t, nil, handler)
	e.mustSubmit(t, e.session(),
		e.factory.CreateDoc("task:class:Task", "space1", "t1", nil),
		e.factory.CreateDoc("note:class:Note", "space1", "n1", nil),
	)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
	require.Equal(t, 2, seen)
	require.Equal(t, core.Ref("t1"), stream[0].(*core.TxCreateDoc).ObjectID)
}

func TestBuildOrder(t *testing.T) {
	// Assembly fails fast when a stage dependency is missing.
	_, err := New(context.Background(), &Context{}, DefaultFactories(nil, nil)...)
	require.Error(t, err)

	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
}
