package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/telemetry"
)

func TestRouterDispatchesByDomain(t *testing.T) {
	e := newEnv(t, nil, nil)
	session := e.session()

	results := e.mustSubmit(t, session,
		e.factory.CreateDoc("task:class:Task", "space1", "t1", map[string]any{"title": "a"}),
		e.factory.CreateDoc("note:class:Note", "space1", "n1", map[string]any{"text": "b"}),
		e.factory.CreateDoc("task:class:Task", "space1", "t2", map[string]any{"title": "c"}),
	)

	for _, result := range results {
		require.True(t, result.Matched)
	}

	// Each adapter received exactly one batched call for its partition.
	require.Equal(t, 1, e.main.TxCalls())
	require.Equal(t, 2, e.main.TxSeen())
	require.Equal(t, 1, e.second.TxCalls())
	require.Equal(t, 1, e.second.TxSeen())

	require.Len(t, e.find(t, "task:class:Task", core.Query{}, nil), 2)
	require.Len(t, e.find(t, "note:class:Note", core.Query{}, nil), 1)
}

func TestRouterResultsMapToSubmissionOrder(t *testing.T) {
	e := newEnv(t, nil, nil)

	results := e.mustSubmit(t, e.session(),
		e.factory.CreateDoc("note:class:Note", "space1", "n1", map[string]any{"text": "n"}),
		e.factory.CreateDoc("task:class:Task", "space1", "t1", map[string]any{"title": "t"}),
	)

	require.NotNil(t, results[0].Object)
	require.Equal(t, core.Ref("n1"), results[0].Object.ID)
	require.NotNil(t, results[1].Object)
	require.Equal(t, core.Ref("t1"), results[1].Object.ID)
}

func TestRouterSkipsUnroutable(t *testing.T) {
	e := newEnv(t, nil, nil)
	e.pctx.Metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	session := e.session()

	// The marker class resolves to no domain; the batch must still apply
	// the routable transaction and succeed as a whole.
	results := e.mustSubmit(t, session,
		e.factory.CreateDoc("meta:class:Marker", "space1", "m1", nil),
		e.factory.CreateDoc("task:class:Task", "space1", "t1", nil),
	)
	require.True(t, results[0].Matched)
	require.True(t, results[1].Matched)

	require.Equal(t, 1, e.main.TxSeen())
	require.Len(t, e.find(t, "task:class:Task", core.Query{}, nil), 1)

	// Only the dispatched transaction counts as routed; the skip is
	// recorded separately.
	require.Equal(t, float64(1), testutil.ToFloat64(e.pctx.Metrics.TxRouted))
	require.Equal(t, float64(1), testutil.ToFloat64(e.pctx.Metrics.RoutingSkips))
}

func TestRouterSkipsTransient(t *testing.T) {
	e := newEnv(t, nil, nil)

	e.mustSubmit(t, e.session(), e.factory.CreateDoc("ui:class:Hint", "space1", "h1", nil))
	require.Equal(t, 0, e.main.TxCalls())
	require.Equal(t, 0, e.second.TxCalls())
}

func TestRouterPreloadsRemovedDocuments(t *testing.T) {
	e := newEnv(t, nil, nil)

	e.mustSubmit(t, e.session(), e.factory.CreateDoc("task:class:Task", "space1", "t1", map[string]any{"title": "keep"}))

	session := e.session()
	e.mustSubmit(t, session, e.factory.RemoveDoc("task:class:Task", "space1", "t1"))

	// The document was captured before deletion for later stages.
	doc, ok := session.Removed["t1"]
	require.True(t, ok)
	require.Equal(t, "keep", doc.StringAttr("title"))

	require.Empty(t, e.find(t, "task:class:Task", core.Query{"_id": "t1"}, nil))
}

func TestRouterModelDomain(t *testing.T) {
	e := newEnv(t, nil, nil)

	e.mustSubmit(t, e.session(),
		e.factory.CreateDoc("core:class:Class", core.SpaceModel, "class1", map[string]any{"label": "Task"}))

	// Model documents are replayed into the in-memory store and served from
	// it, never from an adapter.
	doc, ok := e.pctx.Model.Get("class1")
	require.True(t, ok)
	require.Equal(t, "Task", doc.StringAttr("label"))

	docs := e.find(t, "core:class:Class", core.Query{"_id": "class1"}, nil)
	require.Len(t, docs, 1)

	// Removing a model document preloads it from the model store.
	session := e.session()
	e.mustSubmit(t, session, e.factory.RemoveDoc("core:class:Class", core.SpaceModel, "class1"))
	require.Contains(t, session.Removed, core.Ref("class1"))
	_, ok = e.pctx.Model.Get("class1")
	require.False(t, ok)
}

func TestRouterRequiresManager(t *testing.T) {
	_, err := NewDomainTxRouter(context.Background(), &Context{}, nil)
	require.Error(t, err)

	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	require.Equal(t, "domain-tx-router", confErr.Stage)
}

func TestQueryOfUnroutableClassFails(t *testing.T) {
	e := newEnv(t, nil, nil)

	_, err := e.pipeline.Query(context.Background(), e.session(), "meta:class:Marker", core.Query{}, nil)
	require.ErrorIs(t, err, ErrUnroutable)
}
