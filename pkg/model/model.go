// Package model holds the in-memory authoritative replica of model-domain
// documents.
package model

import (
	"sync"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/hierarchy"
)

// Store is the workspace's replica of bootstrap/schema documents, the
// subset whose classifier resolves to the reserved model domain. It mutates
// only by replaying model transactions and is otherwise authoritative: reads
// of the model domain never touch a storage adapter.
type Store struct {
	hierarchy *hierarchy.Hierarchy

	mu   sync.RWMutex
	docs map[core.Ref]*core.Doc
}

// NewStore returns an empty model store.
func NewStore(h *hierarchy.Hierarchy) *Store {
	return &Store{
		hierarchy: h,
		docs:      make(map[core.Ref]*core.Doc),
	}
}

// Get returns the model document with the given identifier.
func (s *Store) Get(id core.Ref) (*core.Doc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// FindAll returns model documents of the given class (or a subclass)
// matching the query.
func (s *Store) FindAll(class core.Ref, query core.Query, options *core.FindOptions) []*core.Doc {
	s.mu.RLock()
	var out []*core.Doc
	for _, doc := range s.docs {
		if !s.hierarchy.IsDerived(doc.Class, class) {
			continue
		}
		if !core.Matches(doc, query) {
			continue
		}
		out = append(out, doc.Clone())
	}
	s.mu.RUnlock()
	return core.ApplyOptions(out, options)
}

// Apply replays one transaction into the store. Conditional batches are not
// replayed here; the pipeline unwraps them before routing.
func (s *Store) Apply(tx core.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := tx.(type) {
	case *core.TxCreateDoc:
		s.docs[t.ObjectID] = core.BuildDoc(t)
	case *core.TxUpdateDoc:
		if doc, ok := s.docs[t.ObjectID]; ok {
			core.ApplyUpdate(doc, t)
		}
	case *core.TxRemoveDoc:
		delete(s.docs, t.ObjectID)
	case *core.TxMixin:
		if doc, ok := s.docs[t.ObjectID]; ok {
			core.ApplyMixin(doc, t)
		}
	case *core.TxApplyIf:
	}
}
