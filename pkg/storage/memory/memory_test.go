package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/hierarchy"
	"github.com/hcengineering/platform-sub028/pkg/storage"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	h, err := hierarchy.New([]core.Classifier{
		{ID: core.ClassDoc, Kind: core.KindClass},
		{ID: "task:class:Task", Extends: core.ClassDoc, Kind: core.KindClass, Domain: "docs"},
		{ID: "task:class:Subtask", Extends: "task:class:Task", Kind: core.KindClass},
		{ID: "note:class:Note", Extends: core.ClassDoc, Kind: core.KindClass, Domain: "notes"},
	})
	require.NoError(t, err)
	return New(h)
}

func TestBackendTx(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	factory := core.NewTxFactory("acc1", false)

	t.Run("create_returns_stored_document", func(t *testing.T) {
		results, err := backend.Tx(ctx, factory.CreateDoc("task:class:Task", "space1", "t1", map[string]any{"title": "x"}))
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.True(t, results[0].Matched)
		require.NotNil(t, results[0].Object)
		require.Equal(t, "x", results[0].Object.StringAttr("title"))
	})

	t.Run("update_applies_in_order", func(t *testing.T) {
		_, err := backend.Tx(ctx,
			factory.UpdateDoc("task:class:Task", "space1", "t1", core.DocumentUpdate{Set: map[string]any{"title": "y"}}),
			factory.UpdateDoc("task:class:Task", "space1", "t1", core.DocumentUpdate{Set: map[string]any{"title": "z"}}),
		)
		require.NoError(t, err)

		docs, err := backend.FindAll(ctx, "task:class:Task", core.Query{"_id": "t1"}, nil)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "z", docs[0].StringAttr("title"))
	})

	t.Run("update_of_missing_document_is_ignored", func(t *testing.T) {
		results, err := backend.Tx(ctx,
			factory.UpdateDoc("task:class:Task", "space1", "ghost", core.DocumentUpdate{Set: map[string]any{"title": "x"}}))
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("remove_deletes", func(t *testing.T) {
		_, err := backend.Tx(ctx, factory.RemoveDoc("task:class:Task", "space1", "t1"))
		require.NoError(t, err)

		docs, err := backend.FindAll(ctx, "task:class:Task", core.Query{"_id": "t1"}, nil)
		require.NoError(t, err)
		require.Empty(t, docs)
	})

	t.Run("conditional_batches_are_rejected", func(t *testing.T) {
		_, err := backend.Tx(ctx, factory.ApplyIf("scope", nil, nil, nil))
		require.ErrorIs(t, err, storage.ErrUnsupportedTx)
	})
}

func TestBackendFindAllResultsAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	factory := core.NewTxFactory("acc1", false)

	_, err := backend.Tx(ctx,
		factory.CreateDoc("task:class:Task", "space1", "t1", map[string]any{"tags": []any{"a", "b", "c"}}))
	require.NoError(t, err)

	held, err := backend.FindAll(ctx, "task:class:Task", core.Query{"_id": "t1"}, nil)
	require.NoError(t, err)
	require.Len(t, held, 1)

	_, err = backend.Tx(ctx,
		factory.UpdateDoc("task:class:Task", "space1", "t1", core.DocumentUpdate{
			Pull: map[string]any{"tags": "a"},
		}))
	require.NoError(t, err)

	// The previously returned document must not observe the later update.
	require.Equal(t, []any{"a", "b", "c"}, held[0].Attr("tags"))

	docs, err := backend.FindAll(ctx, "task:class:Task", core.Query{"_id": "t1"}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, []any{"b", "c"}, docs[0].Attr("tags"))
}

func TestBackendFindAllSubclasses(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	factory := core.NewTxFactory("acc1", false)

	_, err := backend.Tx(ctx,
		factory.CreateDoc("task:class:Task", "space1", "t1", nil),
		factory.CreateDoc("task:class:Subtask", "space1", "s1", nil),
		factory.CreateDoc("note:class:Note", "space1", "n1", nil),
	)
	require.NoError(t, err)

	// A parent-class query matches subclass documents within the domain.
	docs, err := backend.FindAll(ctx, "task:class:Task", core.Query{}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	docs, err = backend.FindAll(ctx, "task:class:Subtask", core.Query{}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, core.Ref("s1"), docs[0].ID)
}

func TestBackendLoad(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	factory := core.NewTxFactory("acc1", false)

	_, err := backend.Tx(ctx,
		factory.CreateDoc("task:class:Task", "space1", "t1", nil),
		factory.CreateDoc("task:class:Task", "space1", "t2", nil),
	)
	require.NoError(t, err)

	// Missing identifiers are skipped, not an error.
	docs, err := backend.Load(ctx, "docs", []core.Ref{"t1", "ghost", "t2"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestBackendClose(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	require.NoError(t, backend.Close())

	_, err := backend.Tx(ctx, core.NewTxFactory("acc1", false).CreateDoc("task:class:Task", "space1", "t1", nil))
	require.ErrorIs(t, err, storage.ErrAdapterClosed)

	_, err = backend.Load(ctx, "docs", []core.Ref{"t1"})
	require.ErrorIs(t, err, storage.ErrAdapterClosed)
}
