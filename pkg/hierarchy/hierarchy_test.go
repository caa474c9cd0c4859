package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

func testClassifiers() []core.Classifier {
	return []core.Classifier{
		{ID: core.ClassDoc, Kind: core.KindClass},
		{ID: "task:class:Task", Extends: core.ClassDoc, Kind: core.KindClass, Domain: "docs",
			Traits: map[core.Ref]map[string]any{
				core.MixinVersioned: {},
			}},
		{ID: "task:class:Subtask", Extends: "task:class:Task", Kind: core.KindClass},
		{ID: "meta:class:Marker", Extends: core.ClassDoc, Kind: core.KindClass},
	}
}

func TestNew(t *testing.T) {
	t.Run("valid_set", func(t *testing.T) {
		h, err := New(testClassifiers())
		require.NoError(t, err)
		require.NotNil(t, h.Classifier("task:class:Task"))
	})

	t.Run("duplicate_identifier", func(t *testing.T) {
		_, err := New([]core.Classifier{
			{ID: "task:class:Task"},
			{ID: "task:class:Task"},
		})
		require.ErrorContains(t, err, "duplicate classifier")
	})

	t.Run("unknown_parent", func(t *testing.T) {
		_, err := New([]core.Classifier{
			{ID: "task:class:Task", Extends: "missing:class:Base"},
		})
		require.ErrorContains(t, err, "extends unknown")
	})
}

func TestIsDerived(t *testing.T) {
	h, err := New(testClassifiers())
	require.NoError(t, err)

	tests := []struct {
		name      string
		candidate core.Ref
		ancestor  core.Ref
		want      bool
	}{
		{name: "self", candidate: "task:class:Task", ancestor: "task:class:Task", want: true},
		{name: "direct_parent", candidate: "task:class:Subtask", ancestor: "task:class:Task", want: true},
		{name: "root", candidate: "task:class:Subtask", ancestor: core.ClassDoc, want: true},
		{name: "sibling", candidate: "task:class:Subtask", ancestor: "meta:class:Marker", want: false},
		{name: "unknown_candidate", candidate: "missing:class:X", ancestor: core.ClassDoc, want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, h.IsDerived(test.candidate, test.ancestor))
		})
	}
}

func TestFindDomain(t *testing.T) {
	h, err := New(testClassifiers())
	require.NoError(t, err)

	t.Run("declared_domain", func(t *testing.T) {
		domain, ok := h.FindDomain("task:class:Task")
		require.True(t, ok)
		require.Equal(t, core.Domain("docs"), domain)
	})

	t.Run("inherited_domain", func(t *testing.T) {
		domain, ok := h.FindDomain("task:class:Subtask")
		require.True(t, ok)
		require.Equal(t, core.Domain("docs"), domain)
	})

	t.Run("no_domain_in_chain", func(t *testing.T) {
		_, ok := h.FindDomain("meta:class:Marker")
		require.False(t, ok)
	})

	t.Run("unknown_classifier", func(t *testing.T) {
		_, ok := h.FindDomain("missing:class:X")
		require.False(t, ok)
	})
}

func TestClassHierarchyMixin(t *testing.T) {
	h, err := New(testClassifiers())
	require.NoError(t, err)

	// The trait is declared on the parent and inherited by the subclass.
	_, ok := h.ClassHierarchyMixin("task:class:Subtask", core.MixinVersioned)
	require.True(t, ok)

	_, ok = h.ClassHierarchyMixin("meta:class:Marker", core.MixinVersioned)
	require.False(t, ok)
}

func TestAncestors(t *testing.T) {
	h, err := New(testClassifiers())
	require.NoError(t, err)

	require.Equal(t,
		[]core.Ref{"task:class:Subtask", "task:class:Task", core.ClassDoc},
		h.Ancestors("task:class:Subtask"))
}

func TestDomains(t *testing.T) {
	h, err := New(testClassifiers())
	require.NoError(t, err)
	require.Equal(t, []core.Domain{"docs"}, h.Domains())
}
