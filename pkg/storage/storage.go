// Package storage contains the adapter contract and shared storage helpers.
//
//go:generate mockgen -source storage.go -destination ../../internal/mocks/mock_storage.go -package mocks Adapter
package storage

import (
	"context"

	"github.com/hcengineering/platform-sub028/pkg/core"
)

// Adapter is a storage back-end bound to one or more domains. The pipeline
// never assumes a specific storage technology: anything able to persist
// documents and answer queries can serve a domain.
//
// Transactions within one Tx call are applied in submission order. Ordering
// between two concurrent Tx calls touching the same document is whatever the
// underlying storage provides; last-writer-wins is acceptable.
type Adapter interface {
	// Tx applies a batch of transactions and returns one result per
	// transaction. Updates addressing a missing document are ignored.
	Tx(ctx context.Context, txes ...core.Tx) ([]core.Result, error)

	// Load fetches documents by identifier from the given domain. Missing
	// identifiers are skipped, not an error.
	Load(ctx context.Context, domain core.Domain, ids []core.Ref) ([]*core.Doc, error)

	// FindAll answers a query over documents of the given class. The class
	// is already resolved to a domain this adapter serves.
	FindAll(ctx context.Context, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error)

	Close() error
}

// Provisioner is implemented by adapters that lazily provision per-domain
// resources (tables, buckets) on first use. The adapter manager calls
// EnsureDomain exactly once per domain when the domain is first marked in
// use.
type Provisioner interface {
	EnsureDomain(ctx context.Context, domain core.Domain) error
}

// Factory builds a named adapter instance. Factories run lazily, when the
// first domain served by the adapter is touched.
type Factory func(ctx context.Context) (Adapter, error)

// Schema is the slice of the classifier hierarchy adapters need to resolve
// classes to domains and to match subclass documents against a parent-class
// query. *hierarchy.Hierarchy satisfies it.
type Schema interface {
	FindDomain(class core.Ref) (core.Domain, bool)
	IsDerived(candidate, ancestor core.Ref) bool
}
