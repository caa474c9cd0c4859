// Package memory provides an ephemeral memory-backed implementation of
// [storage.Adapter].
package memory

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/storage"
)

var tracer = otel.Tracer("pkg/storage/memory")

// Backend keeps every domain's documents in process memory. Instances may be
// safely shared by multiple goroutines.
type Backend struct {
	schema storage.Schema

	mu   sync.RWMutex
	docs map[core.Domain]map[core.Ref]*core.Doc // GUARDED_BY(mu)

	closed bool
}

var _ storage.Adapter = (*Backend)(nil)
var _ storage.Provisioner = (*Backend)(nil)

// New returns an empty backend resolving classes through schema.
func New(schema storage.Schema) *Backend {
	return &Backend{
		schema: schema,
		docs:   make(map[core.Domain]map[core.Ref]*core.Doc),
	}
}

func (b *Backend) domainBucket(domain core.Domain) map[core.Ref]*core.Doc {
	bucket, ok := b.docs[domain]
	if !ok {
		bucket = make(map[core.Ref]*core.Doc)
		b.docs[domain] = bucket
	}
	return bucket
}

// EnsureDomain pre-creates the domain bucket. See [storage.Provisioner].
func (b *Backend) EnsureDomain(_ context.Context, domain core.Domain) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrAdapterClosed
	}
	b.domainBucket(domain)
	return nil
}

// Tx see [storage.Adapter].Tx.
func (b *Backend) Tx(ctx context.Context, txes ...core.Tx) ([]core.Result, error) {
	_, span := tracer.Start(ctx, "memory.Tx")
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, storage.ErrAdapterClosed
	}

	results := make([]core.Result, 0, len(txes))
	for _, tx := range txes {
		_, class, ok := core.TargetOf(tx)
		if !ok {
			return nil, storage.UnsupportedTxError(tx)
		}
		domain, ok := b.schema.FindDomain(class)
		if !ok {
			return nil, storage.UnsupportedTxError(tx)
		}
		bucket := b.domainBucket(domain)

		switch t := tx.(type) {
		case *core.TxCreateDoc:
			doc := core.BuildDoc(t)
			bucket[t.ObjectID] = doc
			results = append(results, core.Result{Object: doc.Clone(), Matched: true})
		case *core.TxUpdateDoc:
			if doc, ok := bucket[t.ObjectID]; ok {
				core.ApplyUpdate(doc, t)
			}
			results = append(results, core.Result{Matched: true})
		case *core.TxRemoveDoc:
			delete(bucket, t.ObjectID)
			results = append(results, core.Result{Matched: true})
		case *core.TxMixin:
			if doc, ok := bucket[t.ObjectID]; ok {
				core.ApplyMixin(doc, t)
			}
			results = append(results, core.Result{Matched: true})
		case *core.TxApplyIf:
			return nil, storage.UnsupportedTxError(tx)
		}
	}
	return results, nil
}

// Load see [storage.Adapter].Load.
func (b *Backend) Load(ctx context.Context, domain core.Domain, ids []core.Ref) ([]*core.Doc, error) {
	_, span := tracer.Start(ctx, "memory.Load")
	defer span.End()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, storage.ErrAdapterClosed
	}

	bucket := b.docs[domain]
	out := make([]*core.Doc, 0, len(ids))
	for _, id := range ids {
		if doc, ok := bucket[id]; ok {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// FindAll see [storage.Adapter].FindAll.
func (b *Backend) FindAll(ctx context.Context, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	_, span := tracer.Start(ctx, "memory.FindAll")
	defer span.End()

	domain, ok := b.schema.FindDomain(class)
	if !ok {
		return nil, nil
	}

	b.mu.RLock()
	var out []*core.Doc
	for _, doc := range b.docs[domain] {
		if !b.schema.IsDerived(doc.Class, class) {
			continue
		}
		if !core.Matches(doc, query) {
			continue
		}
		out = append(out, doc.Clone())
	}
	b.mu.RUnlock()

	return core.ApplyOptions(out, options), nil
}

// Close releases the backend. Subsequent operations fail with
// ErrAdapterClosed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.docs = nil
	return nil
}
