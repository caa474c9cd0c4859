package null

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

func TestAdapter(t *testing.T) {
	ctx := context.Background()
	adapter := New()
	factory := core.NewTxFactory("acc1", false)

	results, err := adapter.Tx(ctx,
		factory.CreateDoc("task:class:Task", "space1", "t1", nil),
		factory.RemoveDoc("task:class:Task", "space1", "t1"),
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		require.True(t, result.Matched)
		require.Nil(t, result.Object)
	}

	docs, err := adapter.FindAll(ctx, "task:class:Task", core.Query{}, nil)
	require.NoError(t, err)
	require.Empty(t, docs)

	docs, err = adapter.Load(ctx, "docs", []core.Ref{"t1"})
	require.NoError(t, err)
	require.Empty(t, docs)

	require.NoError(t, adapter.Close())
}
